package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"btw-buddy/internal/auth"
	"btw-buddy/internal/config"
	devserver "btw-buddy/internal/http"
	"btw-buddy/internal/models"
	"btw-buddy/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cli runs commands against an in-process dev server. Every invocation gets a
// fresh app, like a new process, sharing only the token store.
type cli struct {
	cfg   *config.Config
	store storage.TokenStore
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	cfg := &config.Config{}
	cfg.API.TimeoutSeconds = 5
	cfg.API.UserAgent = "btw-cli-test"
	cfg.Session.RefreshSkewSeconds = 60
	cfg.DevServer.JWTSecret = "cli-secret"
	cfg.DevServer.Issuer = "btw-buddy-test"
	cfg.DevServer.AccessTTLMinutes = 5
	cfg.DevServer.RefreshTTLHours = 24
	cfg.DevServer.RotateRefresh = true

	srv := httptest.NewServer(devserver.NewDevServer(cfg, auth.NewIssuer(cfg), nil))
	t.Cleanup(srv.Close)
	cfg.API.BaseURL = srv.URL + "/api"

	return &cli{cfg: cfg, store: storage.NewMemoryStore()}
}

func (c *cli) run(input string, args ...string) (string, error) {
	var out bytes.Buffer
	err := newApp(c.cfg, c.store, strings.NewReader(input), &out).run(context.Background(), args)
	return out.String(), err
}

func writeJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

var payload = models.RegistrationPayload{
	Email:       "jan@example.nl",
	Password:    "geheim123",
	FirstName:   "Jan",
	LastName:    "de Vries",
	CompanyName: "De Vries Advies",
	KvKNumber:   "12345678",
	IBAN:        "NL91ABNA0417164300",
	LegalForm:   "eenmanszaak",
	Street:      "Keizersgracht",
	HouseNumber: "12a",
	PostalCode:  "1015 CJ",
	City:        "Amsterdam",
	VATPeriod:   "quarter",
	AcceptTerms: true,
}

func (c *cli) registerAndLogin(t *testing.T) {
	t.Helper()
	out, err := c.run("", "register", "-file", writeJSON(t, payload))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Account created for jan@example.nl")

	out, err = c.run("", "login", "-email", payload.Email, "-password", payload.Password)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in as jan@example.nl")
}

func TestUnknownCommand(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "Usage: btw")

	_, err = c.run("", "frobnicate")
	assert.Error(t, err)
}

func TestTotals(t *testing.T) {
	c := newCLI(t)
	path := writeJSON(t, map[string]any{
		"customer_name": "Bakkerij Jansen",
		"issue_date":    "2024-03-05",
		"lines": []map[string]any{
			{"description": "Advies", "quantity": 2, "unit_price": "100", "vat_rate": 21},
			{"description": "Boek", "quantity": "1", "unit_price": "50,00", "vat_rate": 9},
		},
	})
	pdfPath := filepath.Join(t.TempDir(), "totals.pdf")

	out, err := c.run("", "totals", "-pdf", pdfPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "296,50")
	assert.NotContains(t, out, "Warning")

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestTotals_UnknownRateWarning(t *testing.T) {
	c := newCLI(t)
	lines := `[{"description":"Import","quantity":1,"unit_price":100,"vat_rate":13}]`

	out, err := c.run(lines, "totals", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning")
	assert.Contains(t, out, "13,00")
}

func TestTotals_JSON(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(`[{"quantity":"abc","unit_price":10,"vat_rate":21}]`, "totals", "-json", "-")
	require.NoError(t, err)

	var totals models.InvoiceTotals
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	assert.True(t, totals.Total.IsZero())
	assert.Len(t, totals.VATBreakdown, 3)
}

func TestSessionCommands(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	c.registerAndLogin(t)

	out, err := c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "jan@example.nl")
	assert.Contains(t, out, "De Vries Advies")

	out, err = c.run("", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Access token valid until")

	out, err = c.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = c.run("", "whoami", "-offline")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestRefresh_WithoutSession(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "refresh")
	require.Error(t, err)
	assert.Equal(t, "not logged in, run: btw login", describe(err))
	assert.Contains(t, out, "Your session has ended")
}

func TestLogin_PromptsForMissingValues(t *testing.T) {
	t.Setenv("BTW_PASSWORD", "")
	c := newCLI(t)
	_, err := c.run("", "register", "-file", writeJSON(t, payload))
	require.NoError(t, err)

	out, err := c.run("jan@example.nl\ngeheim123\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Email: ")
	assert.Contains(t, out, "Logged in as jan@example.nl")

	_, err = c.run("", "login", "-email", "jan@example.nl", "-password", "wrong")
	assert.Error(t, err)
}

func TestRegister_Interactive(t *testing.T) {
	c := newCLI(t)
	answers := strings.Join([]string{
		// step 1, first with a mismatched confirmation
		"piet@example.nl", "geheim123", "anders123", "Piet", "Jansen",
		// step 1 again: earlier answers are defaults
		"", "geheim123", "geheim123", "", "",
		// step 2
		"Jansen Bouw", "87654321", "", "NL91ABNA0417164300", "vof",
		// step 3
		"Dorpsstraat", "1", "1234 AB", "Utrecht", "month", "yes",
	}, "\n") + "\n"

	out, err := c.run(answers, "register")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Please fix the following")
	assert.Contains(t, out, "password_confirm")
	assert.Contains(t, out, "Account created for piet@example.nl")
}

func TestRegister_Rejected(t *testing.T) {
	c := newCLI(t)
	bad := payload
	bad.KvKNumber = "123"

	out, err := c.run("", "register", "-file", writeJSON(t, bad))
	assert.ErrorIs(t, err, errRegistrationRejected)
	assert.Contains(t, out, "kvk_number")
}

func TestLedgerCommands(t *testing.T) {
	c := newCLI(t)
	c.registerAndLogin(t)

	out, err := c.run("", "transactions", "add", "-date", "2024-07-10", "-description", "Advieswerk",
		"-kind", "income", "-amount", "500", "-rate", "21")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Booked transaction 1")

	out, err = c.run("", "transactions", "list", "-period", "2024-Q3")
	require.NoError(t, err)
	assert.Contains(t, out, "Advieswerk")
	assert.Contains(t, out, "10-07-2024")

	receiptPath := filepath.Join(t.TempDir(), "bon.pdf")
	require.NoError(t, os.WriteFile(receiptPath, []byte("%PDF-1.4 bon"), 0o600))
	out, err = c.run("", "receipts", "upload", receiptPath)
	require.NoError(t, err, out)
	// ids come from one sequence shared by every ledger record
	assert.Contains(t, out, "Uploaded receipt 2")

	out, err = c.run("", "receipts", "link", "-id", "2", "-transaction", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "linked to transaction 1")

	saved := filepath.Join(t.TempDir(), "copy.pdf")
	_, err = c.run("", "receipts", "download", "-id", "2", "-out", saved)
	require.NoError(t, err)
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 bon", string(data))

	out, err = c.run("", "vat-returns", "prepare", "-period", "2024-Q3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "105,00")

	out, err = c.run("", "vat-returns", "submit", "-id", "3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "submitted")

	_, err = c.run("", "vat-returns", "prepare", "-period", "2024-Q3")
	assert.Error(t, err)
}

func TestInvoiceCommands(t *testing.T) {
	c := newCLI(t)
	c.registerAndLogin(t)

	path := writeJSON(t, map[string]any{
		"customer_name": "Bakkerij Jansen",
		"issue_date":    "2024-03-05",
		"lines": []map[string]any{
			{"description": "Advies", "quantity": 2, "unit_price": 100, "vat_rate": 21},
		},
	})
	out, err := c.run("", "invoices", "create", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created invoice 2024-0001")
	assert.Contains(t, out, "242,00")

	out, err = c.run("", "invoices", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bakkerij Jansen")

	pdfPath := filepath.Join(t.TempDir(), "invoice.pdf")
	_, err = c.run("", "invoices", "pdf", "-id", "1", "-out", pdfPath)
	require.NoError(t, err)
	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = c.run(`{"customer_name":"Leeg","lines":[]}`, "invoices", "create", "-")
	assert.ErrorIs(t, err, errNoLines)
}

func TestTwoFactorCommands(t *testing.T) {
	c := newCLI(t)
	c.registerAndLogin(t)

	out, err := c.run("", "2fa", "setup")
	require.NoError(t, err, out)
	m := regexp.MustCompile(`Secret:\s+(\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	secret := m[1]

	code, err := auth.GenerateOTP(secret, time.Now())
	require.NoError(t, err)
	out, err = c.run("", "2fa", "enable", "-code", code)
	require.NoError(t, err, out)
	assert.Contains(t, out, "enabled")

	_, err = c.run("", "logout")
	require.NoError(t, err)

	out, err = c.run("", "login", "-email", payload.Email, "-password", payload.Password)
	require.NoError(t, err)
	assert.Contains(t, out, "btw verify-otp -user 1")

	out, err = c.run("", "login", "-email", payload.Email, "-password", payload.Password, "-totp-secret", secret)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in as jan@example.nl")
}
