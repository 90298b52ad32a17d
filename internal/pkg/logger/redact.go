package logger

import (
	"regexp"
	"strings"
)

// Mexican RFC: 3-4 letters, YYMMDD, 3 alphanumerics.
var rfcRegex = regexp.MustCompile(`\b[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}\b`)

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "api_key"), strings.Contains(key, "secret"),
		strings.Contains(key, "password"), strings.Contains(key, "token"):
		return RedactSecret(val)
	case strings.Contains(key, "tax_id"), strings.Contains(key, "rfc"):
		return RedactTaxID(val)
	}
	// Redact any embedded RFCs in generic fields
	return rfcRegex.ReplaceAllStringFunc(val, RedactTaxID)
}

// RedactSecret keeps the last four characters of a credential.
// "abcd1234wxyz" → "****wxyz"
func RedactSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// RedactTaxID masks a taxpayer identifier, keeping its first three characters.
// "ACM010101AB1" → "ACM*********"
func RedactTaxID(id string) string {
	r := []rune(id)
	if len(r) <= 3 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:3]) + strings.Repeat("*", len(r)-3)
}
