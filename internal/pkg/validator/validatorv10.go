package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/phoneverify/internal/pkg/phone"
)

// Phone input bounds. E.164 allows at most 15 digits.
const (
	phoneMinDigits = 7
	phoneMaxDigits = 15
	phoneMaxRunes  = 32
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError is a field-to-message map returned when validation fails.
//
// Keys are the json names of the failing fields, falling back to the lowercased
// Go field name when a field has no json tag.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and custom rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	v10CustomValidation(validate, enTrans)

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}

		errV10 := make(V10ValidationError)
		for _, fe := range validateErrs {
			errV10[fe.Field()] = fe.Translate(v.translator)
		}

		return errV10
	}

	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(fld.Name)
	}

	return name
}

// isPhone accepts digits in any script plus the separators people type:
// spaces, dashes, dots, parentheses and a leading plus.
func isPhone(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || len([]rune(raw)) > phoneMaxRunes {
		return false
	}

	for i, r := range raw {
		switch {
		case unicode.IsDigit(r), unicode.IsSpace(r), strings.ContainsRune("-.()", r):
		case r == '+' && i == 0:
		default:
			return false
		}
	}

	n := len(phone.Digits(raw))
	return n >= phoneMinDigits && n <= phoneMaxDigits
}

//nolint:errcheck,gosec,forcetypeassert // make linter silent
func v10CustomValidation(validate *validator.Validate, enTrans ut.Translator) {
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		p, ok := fl.Field().Interface().(string)
		return ok && isPhone(p)
	})

	translate := func(ut ut.Translator, fe validator.FieldError) string {
		t, err := ut.T(fe.Tag(), fe.Field())
		if err != nil {
			slog.Warn("warning: error translating", "FieldError", fe, "error", err)
			return fe.(error).Error()
		}

		return t
	}

	validate.RegisterTranslation("phone", enTrans,
		func(ut ut.Translator) error {
			return ut.Add("phone", "{0} must be a valid phone number", false)
		},
		translate,
	)

	validate.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
	})

	validate.RegisterTranslation("digits", enTrans,
		func(ut ut.Translator) error {
			return ut.Add("digits", "{0} must contain only digits", false)
		},
		translate,
	)
}
