package util //nolint:revive // package name util hosts small helpers shared by logging call sites

import "strings"

const redactedTokenSuffix = "…[redacted]"

// RedactToken keeps the first four characters of a bearer or refresh token so log lines
// can be correlated without leaking a usable credential.
func RedactToken(token string) string {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return ""
	case len(token) <= 8:
		return "[redacted]"
	default:
		return token[:4] + redactedTokenSuffix
	}
}

// RedactEmail masks the local part of an address, keeping two characters and the domain.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" {
		return "***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
