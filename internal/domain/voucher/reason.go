package voucher

import "strings"

// Reason classifies why a voucher cannot be redeemed.
type Reason string

const (
	ReasonNotFound          Reason = "not_found"
	ReasonAlreadyUsed       Reason = "already_used"
	ReasonExpired           Reason = "expired"
	ReasonUsageLimitReached Reason = "usage_limit_reached"
	ReasonDisabled          Reason = "disabled"
)

var reasonAliases = map[string]Reason{
	"not_found":                   ReasonNotFound,
	"voucher_not_found":           ReasonNotFound,
	"already_used":                ReasonAlreadyUsed,
	"voucher_already_used":        ReasonAlreadyUsed,
	"used":                        ReasonAlreadyUsed,
	"expired":                     ReasonExpired,
	"voucher_expired":             ReasonExpired,
	"usage_limit_reached":         ReasonUsageLimitReached,
	"voucher_usage_limit_reached": ReasonUsageLimitReached,
	"exhausted":                   ReasonUsageLimitReached,
	"disabled":                    ReasonDisabled,
	"voucher_disabled":            ReasonDisabled,
	"inactive":                    ReasonDisabled,
}

// Exhaustion reports whether r says the voucher has no redemptions left.
func (r Reason) Exhaustion() bool {
	return r == ReasonAlreadyUsed || r == ReasonUsageLimitReached
}

// ParseReason maps a machine-readable reason sent by the backend to a Reason.
// Unknown values yield "".
func ParseReason(s string) Reason {
	return reasonAliases[strings.ToLower(strings.TrimSpace(s))]
}

// messagePatterns is checked in order; the backend ships Arabic texts and
// English deployments use the phrases below.
var messagePatterns = []struct {
	needle string
	reason Reason
}{
	{"الكرت غير موجود", ReasonNotFound},
	{"not found", ReasonNotFound},
	{"does not exist", ReasonNotFound},
	{"الكرت غير مفعل", ReasonDisabled},
	{"disabled", ReasonDisabled},
	{"deactivated", ReasonDisabled},
	{"not active", ReasonDisabled},
	{"inactive", ReasonDisabled},
	{"انتهت صلاحية", ReasonExpired},
	{"expired", ReasonExpired},
	{"already used", ReasonAlreadyUsed},
	{"already redeemed", ReasonAlreadyUsed},
	{"تم استخدام الكرت مسبقا", ReasonAlreadyUsed},
	{"استنفاد", ReasonUsageLimitReached},
	{"usage limit", ReasonUsageLimitReached},
	{"exhausted", ReasonUsageLimitReached},
}

// ClassifyMessage maps a human-readable backend message to a Reason, or "".
func ClassifyMessage(message string) Reason {
	m := strings.ToLower(message)
	for _, p := range messagePatterns {
		if strings.Contains(m, p.needle) {
			return p.reason
		}
	}
	return ""
}
