package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"btw-buddy/internal/models"
	"btw-buddy/internal/registration"
)

// cmdRegister walks the three registration steps. With -file the answers come
// from a JSON registration payload instead of the prompts.
func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.out)
	file := fs.String("file", "", "JSON file with the full registration payload")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	wizard := registration.NewWizard(a.auth)

	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		var payload models.RegistrationPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%s: %w", *file, err)
		}
		s1, s2, s3 := registration.SplitPayload(payload)
		for _, step := range []registration.Step{s1, s2, s3} {
			fields, err := wizard.Submit(ctx, step)
			if err != nil {
				return err
			}
			if len(fields) > 0 {
				fmt.Fprintf(a.out, "Step %d has problems:\n", step.Number())
				a.printFieldErrors(fields)
				return errRegistrationRejected
			}
		}
	} else {
		var last registration.Step
		for !wizard.Done() {
			current := wizard.Current()
			if last != nil && last.Number() == current.Number() {
				current = last
			}
			step, err := askStep(a, current)
			if err != nil {
				return err
			}
			last = step
			fields, err := wizard.Submit(ctx, step)
			if err != nil {
				return err
			}
			if len(fields) > 0 {
				fmt.Fprintln(a.out, "Please fix the following:")
				a.printFieldErrors(fields)
			}
		}
	}

	resp, fields, err := wizard.Complete(ctx)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		fmt.Fprintln(a.out, "The server rejected the registration:")
		a.printFieldErrors(fields)
		return errRegistrationRejected
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

var errRegistrationRejected = errors.New("registration not completed")

// askStep prompts for every field of s, offering earlier answers as defaults
func askStep(a *app, s registration.Step) (registration.Step, error) {
	var err error
	ask := func(label string, v *string) {
		if err != nil {
			return
		}
		shown := label
		if *v != "" && !strings.Contains(strings.ToLower(label), "password") {
			shown = fmt.Sprintf("%s [%s]", label, *v)
		}
		var answer string
		if answer, err = a.prompt(shown); err == nil && answer != "" {
			*v = answer
		}
	}

	switch st := s.(type) {
	case registration.Step1:
		fmt.Fprintln(a.out, "Step 1 of 3: your account")
		ask("Email", &st.Email)
		ask("Password", &st.Password)
		ask("Repeat password", &st.PasswordConfirm)
		ask("First name", &st.FirstName)
		ask("Last name", &st.LastName)
		return st, err
	case registration.Step2:
		fmt.Fprintln(a.out, "Step 2 of 3: your company")
		ask("Company name", &st.CompanyName)
		ask("KvK number", &st.KvKNumber)
		ask("BTW number (optional)", &st.BTWNumber)
		ask("IBAN", &st.IBAN)
		ask("Legal form (eenmanszaak, vof, bv, maatschap)", &st.LegalForm)
		return st, err
	case registration.Step3:
		fmt.Fprintln(a.out, "Step 3 of 3: address and filing")
		ask("Street", &st.Street)
		ask("House number", &st.HouseNumber)
		ask("Postal code", &st.PostalCode)
		ask("City", &st.City)
		ask("VAT period (month, quarter, year)", &st.VATPeriod)
		terms := ""
		ask("Accept the terms? (yes/no)", &terms)
		st.AcceptTerms = strings.EqualFold(terms, "yes") || strings.EqualFold(terms, "y")
		return st, err
	}
	return nil, registration.ErrWrongStep
}
