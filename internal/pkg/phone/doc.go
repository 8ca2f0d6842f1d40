// Package phone turns user-typed phone numbers into a canonical
// international key: ASCII digits only, country code first, no "+" or "00".
//
// Normalization never fails. Input in any Unicode digit script (for example
// Persian or Arabic-Indic digits, full-width forms) is folded to ASCII before
// separators are stripped, and the result is stable under re-normalization:
//
//	n := phone.NewNormalizer("98", 10)
//	n.Normalize("0912 195-8296")    // "989121958296"
//	n.Normalize("+98 912 195 8296") // "989121958296"
//	n.Normalize("۰۹۱۲۱۹۵۸۲۹۶")       // "989121958296"
package phone
