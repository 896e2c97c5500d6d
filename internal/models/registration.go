package models

// RegistrationPayload is the full body posted to /auth/register/complete/
type RegistrationPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	KvKNumber   string `json:"kvk_number"`
	BTWNumber   string `json:"btw_number"`
	IBAN        string `json:"iban"`
	LegalForm   string `json:"legal_form"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	VATPeriod   string `json:"vat_period"` // month, quarter or year
	AcceptTerms bool   `json:"accept_terms"`
}

// Step1ValidationRequest is posted to /auth/register/step1/validate/
type Step1ValidationRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type SendVerificationEmailRequest struct {
	Email string `json:"email"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// MessageResponse is the generic acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}
