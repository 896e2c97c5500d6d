package registration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"btw-buddy/internal/api"
	"btw-buddy/internal/models"
)

var (
	ErrWrongStep  = errors.New("step submitted out of order")
	ErrIncomplete = errors.New("registration has unfinished steps")
)

// Backend is the subset of the auth API the wizard needs
type Backend interface {
	ValidateStep1(ctx context.Context, req models.Step1ValidationRequest) error
	CompleteRegistration(ctx context.Context, payload models.RegistrationPayload) (*models.MessageResponse, error)
	SendVerificationEmail(ctx context.Context, email string) error
}

// Wizard walks a user through the three registration steps. Each step is
// validated locally before the wizard advances; step 1 is also checked by the
// server so duplicate emails surface early.
type Wizard struct {
	backend Backend
	current int
	step1   *Step1
	step2   *Step2
	step3   *Step3
}

func NewWizard(backend Backend) *Wizard {
	return &Wizard{backend: backend, current: 1}
}

// Current returns the step the user is on, pre-filled with anything entered
// earlier. It returns nil once all steps are done.
func (w *Wizard) Current() Step {
	switch w.current {
	case 1:
		if w.step1 != nil {
			return *w.step1
		}
		return Step1{}
	case 2:
		if w.step2 != nil {
			return *w.step2
		}
		return Step2{}
	case 3:
		if w.step3 != nil {
			return *w.step3
		}
		return Step3{}
	}
	return nil
}

// Done reports whether every step has been accepted
func (w *Wizard) Done() bool {
	return w.step1 != nil && w.step2 != nil && w.step3 != nil && w.current > 3
}

// Back returns to the previous step, keeping what was entered
func (w *Wizard) Back() {
	if w.current > 1 {
		w.current--
	}
}

// Submit validates s and advances on success. Field problems are returned as
// FieldErrors with a nil error; the error is reserved for transport failures.
func (w *Wizard) Submit(ctx context.Context, s Step) (FieldErrors, error) {
	if s == nil || s.Number() != w.current {
		return nil, ErrWrongStep
	}

	switch st := s.(type) {
	case Step1:
		st.Email = strings.ToLower(strings.TrimSpace(st.Email))
		if fe := Validate(st); fe != nil {
			return fe, nil
		}
		err := w.backend.ValidateStep1(ctx, models.Step1ValidationRequest{
			Email:     st.Email,
			Password:  st.Password,
			FirstName: st.FirstName,
			LastName:  st.LastName,
		})
		if fields := api.FieldErrors(err); len(fields) > 0 {
			return serverFieldErrors(fields), nil
		}
		if err != nil {
			return nil, fmt.Errorf("validate step 1: %w", err)
		}
		w.step1 = &st
	case Step2:
		if fe := Validate(st); fe != nil {
			return fe, nil
		}
		w.step2 = &st
	case Step3:
		if fe := Validate(st); fe != nil {
			return fe, nil
		}
		w.step3 = &st
	}

	w.current++
	return nil, nil
}

// Payload assembles the body for /auth/register/complete/
func (w *Wizard) Payload() (models.RegistrationPayload, error) {
	if !w.Done() {
		return models.RegistrationPayload{}, ErrIncomplete
	}
	return models.RegistrationPayload{
		Email:       w.step1.Email,
		Password:    w.step1.Password,
		FirstName:   w.step1.FirstName,
		LastName:    w.step1.LastName,
		CompanyName: w.step2.CompanyName,
		KvKNumber:   w.step2.KvKNumber,
		BTWNumber:   w.step2.BTWNumber,
		IBAN:        w.step2.IBAN,
		LegalForm:   w.step2.LegalForm,
		Street:      w.step3.Street,
		HouseNumber: w.step3.HouseNumber,
		PostalCode:  w.step3.PostalCode,
		City:        w.step3.City,
		VATPeriod:   w.step3.VATPeriod,
		AcceptTerms: w.step3.AcceptTerms,
	}, nil
}

// Complete submits the registration and asks the server to send the
// verification email. A failed email request is logged but does not undo the
// registration; the user can request a new email later.
func (w *Wizard) Complete(ctx context.Context) (*models.MessageResponse, FieldErrors, error) {
	payload, err := w.Payload()
	if err != nil {
		return nil, nil, err
	}

	resp, err := w.backend.CompleteRegistration(ctx, payload)
	if fields := api.FieldErrors(err); len(fields) > 0 {
		return nil, serverFieldErrors(fields), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("complete registration: %w", err)
	}

	if err := w.backend.SendVerificationEmail(ctx, payload.Email); err != nil {
		log.Printf("[Registration] Verification email for %s not sent: %v", payload.Email, err)
	}
	return resp, nil, nil
}

func serverFieldErrors(fields map[string][]string) FieldErrors {
	out := make(FieldErrors, len(fields))
	for k, msgs := range fields {
		out[k] = strings.Join(msgs, " ")
	}
	return out
}
