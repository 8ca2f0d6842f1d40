// Package validator validates request structs with go-playground/validator
// and reports failures as a snake_case field-to-message map.
//
// Besides the built-in tags it registers "phone", which accepts a human-typed
// phone number in any digit script.
package validator
