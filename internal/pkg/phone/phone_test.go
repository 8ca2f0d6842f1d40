package phone

import "testing"

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer("98", 10)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "trunk prefix with separators", raw: "0912 195-8296", want: "989121958296"},
		{name: "trunk prefix compact", raw: "09121958296", want: "989121958296"},
		{name: "plus international", raw: "+98 (912) 195 8296", want: "989121958296"},
		{name: "double zero international", raw: "0098 912 195 8296", want: "989121958296"},
		{name: "country code with trunk zero", raw: "+98 0912 195 8296", want: "989121958296"},
		{name: "country code with bracketed trunk zero", raw: "+98 (0) 912 195 8296", want: "989121958296"},
		{name: "double zero with trunk zero", raw: "0098 0912 195 8296", want: "989121958296"},
		{name: "bare national", raw: "9121958296", want: "989121958296"},
		{name: "already canonical", raw: "989121958296", want: "989121958296"},
		{name: "persian digits", raw: "۰۹۱۲۱۹۵۸۲۹۶", want: "989121958296"},
		{name: "arabic indic digits", raw: "٠٩١٢١٩٥٨٢٩٦", want: "989121958296"},
		{name: "full width digits", raw: "０９１２１９５８２９６", want: "989121958296"},
		{name: "foreign number kept", raw: "+1 415 555 2671", want: "14155552671"},
		{name: "empty", raw: "", want: ""},
		{name: "no digits", raw: "call me", want: ""},
		{name: "only zeros", raw: "000", want: ""},
		{name: "short garbage", raw: "a1b2", want: "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.raw); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	// Arrange
	n := NewNormalizer("98", 10)
	inputs := []string{
		"0912 195-8296", "+98 912 195 8296", "00989121958296", "9121958296",
		"001234567890", "0", "00", "0098", "12", "۹۸۹۱۲", "+44 20 7946 0958", "x",
		"+98 0912 195 8296", "+98 (0) 912 195 8296", "0098 0912 195 8296", "980", "98000",
	}

	for _, raw := range inputs {
		// Act
		once := n.Normalize(raw)
		twice := n.Normalize(once)

		// Assert
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestNormalizer_SameNumberSameKey(t *testing.T) {
	// Arrange
	n := NewNormalizer("98", 10)
	forms := []string{
		"0912 195-8296", "09121958296", "+98 912 195 8296", "+98 0912 195 8296",
		"+98 (0) 912 195 8296", "0098 0912 195 8296", "00989121958296", "9121958296",
	}

	// Act
	want := n.Normalize(forms[0])

	// Assert
	for _, raw := range forms[1:] {
		if got := n.Normalize(raw); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNewNormalizer_Defaults(t *testing.T) {
	n := NewNormalizer("+0", 0)

	if n.CountryCode() != DefaultCountryCode {
		t.Fatalf("CountryCode() = %q, want %q", n.CountryCode(), DefaultCountryCode)
	}
	if got := n.Normalize("09121958296"); got != "989121958296" {
		t.Fatalf("Normalize() = %q", got)
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("①-٢-３"); got != "123" {
		t.Fatalf("Digits() = %q, want 123", got)
	}
}
