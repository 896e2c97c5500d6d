// Package registration implements the three-step sign-up wizard.
package registration

import (
	"reflect"
	"strings"
	"sync"

	"btw-buddy/internal/format"
	"btw-buddy/internal/models"

	"github.com/go-playground/validator/v10"
)

// Step is one of Step1, Step2 or Step3
type Step interface {
	Number() int
	step()
}

// Step1 holds the account credentials and the owner's name
type Step1 struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
}

// Step2 holds the company registration details
type Step2 struct {
	CompanyName string `json:"company_name" validate:"required"`
	KvKNumber   string `json:"kvk_number" validate:"required,kvk"`
	BTWNumber   string `json:"btw_number" validate:"omitempty,btw"`
	IBAN        string `json:"iban" validate:"required,iban"`
	LegalForm   string `json:"legal_form" validate:"required,oneof=eenmanszaak vof bv maatschap"`
}

// Step3 holds the business address and filing preferences
type Step3 struct {
	Street      string `json:"street" validate:"required"`
	HouseNumber string `json:"house_number" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required,nlpostcode"`
	City        string `json:"city" validate:"required"`
	VATPeriod   string `json:"vat_period" validate:"required,oneof=month quarter year"`
	AcceptTerms bool   `json:"accept_terms" validate:"required"`
}

func (Step1) Number() int { return 1 }
func (Step2) Number() int { return 2 }
func (Step3) Number() int { return 3 }

func (Step1) step() {}
func (Step2) step() {}
func (Step3) step() {}

// FieldErrors maps a JSON field name to a human readable message
type FieldErrors map[string]string

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterValidation("kvk", stringRule(format.ValidKvK))
		v.RegisterValidation("btw", stringRule(format.ValidBTW))
		v.RegisterValidation("iban", stringRule(format.ValidIBAN))
		v.RegisterValidation("nlpostcode", stringRule(format.ValidPostcode))
		validate = v
	})
	return validate
}

func stringRule(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	}
}

var messages = map[string]string{
	"required":   "This field is required.",
	"email":      "Enter a valid email address.",
	"min":        "Use at least 8 characters.",
	"eqfield":    "Passwords do not match.",
	"kvk":        "A KvK number has 8 digits.",
	"btw":        "Use the format NL123456789B01.",
	"iban":       "Enter a valid IBAN.",
	"nlpostcode": "Use the format 1234 AB.",
	"oneof":      "Choose one of the listed options.",
}

// Validate checks a step and returns its field errors, or nil when valid
func Validate(s Step) FieldErrors {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"non_field_errors": err.Error()}
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "Invalid value."
		}
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = msg
		}
	}
	if fe, ok := out["accept_terms"]; ok && fe == messages["required"] {
		out["accept_terms"] = "You must accept the terms."
	}
	return out
}

// SplitPayload turns a full registration body back into its typed steps
func SplitPayload(p models.RegistrationPayload) (Step1, Step2, Step3) {
	return Step1{
			Email:           p.Email,
			Password:        p.Password,
			PasswordConfirm: p.Password,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
		}, Step2{
			CompanyName: p.CompanyName,
			KvKNumber:   p.KvKNumber,
			BTWNumber:   p.BTWNumber,
			IBAN:        p.IBAN,
			LegalForm:   p.LegalForm,
		}, Step3{
			Street:      p.Street,
			HouseNumber: p.HouseNumber,
			PostalCode:  p.PostalCode,
			City:        p.City,
			VATPeriod:   p.VATPeriod,
			AcceptTerms: p.AcceptTerms,
		}
}

// ValidatePayload validates every step of a full registration body
func ValidatePayload(p models.RegistrationPayload) FieldErrors {
	s1, s2, s3 := SplitPayload(p)
	out := FieldErrors{}
	for _, s := range []Step{s1, s2, s3} {
		for k, v := range Validate(s) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
