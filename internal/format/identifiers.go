package format

import (
	"math/big"
	"regexp"
	"strings"
)

var (
	kvkPattern      = regexp.MustCompile(`^[0-9]{8}$`)
	btwPattern      = regexp.MustCompile(`^NL[0-9]{9}B[0-9]{2}$`)
	postcodePattern = regexp.MustCompile(`^[1-9][0-9]{3} ?[A-Z]{2}$`)
	ibanPattern     = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
)

// Compact strips spaces and dots and upper-cases an identifier
func Compact(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", ".", "").Replace(s)
}

// ValidKvK reports whether s is an 8-digit Chamber of Commerce number
func ValidKvK(s string) bool {
	return kvkPattern.MatchString(Compact(s))
}

// ValidBTW reports whether s is a Dutch VAT identification number (NL123456789B01)
func ValidBTW(s string) bool {
	return btwPattern.MatchString(Compact(s))
}

// ValidPostcode reports whether s is a Dutch postal code (1234 AB)
func ValidPostcode(s string) bool {
	return postcodePattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// ValidIBAN checks the IBAN shape and its ISO 7064 mod-97 checksum
func ValidIBAN(s string) bool {
	iban := Compact(s)
	if !ibanPattern.MatchString(iban) {
		return false
	}

	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			digits.WriteString(big.NewInt(int64(r-'A'+10)).String())
		} else {
			digits.WriteRune(r)
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
