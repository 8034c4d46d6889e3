// Package voucher contains the redeemable voucher and network session types.
// It is pure and free of transport concerns; payload decoding lives with the client.
package voucher

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a voucher.
type Status string

const (
	StatusActive   Status = "active"
	StatusUsed     Status = "used"
	StatusExpired  Status = "expired"
	StatusDisabled Status = "disabled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusUsed, StatusExpired, StatusDisabled:
		return true
	default:
		return false
	}
}

// Voucher is a redeemable code entitling its holder to a bounded network session.
type Voucher struct {
	ID              int64
	Code            string
	Value           float64
	DurationMinutes *int
	DataLimitMb     *int
	UsageCount      int
	MaxUsageCount   int
	ExpiresAt       *time.Time
	Status          Status
	FirstUsedAt     *time.Time
	LastUsedAt      *time.Time
}

// Ineligibility returns why the voucher cannot be redeemed at now, or "" when it can.
// Disabled and expired take precedence over usage, matching the backend's own check order.
// Spent usage is usage_limit_reached, except on a single-use voucher, where the one
// redemption makes it already_used. The result depends only on the reported state.
func (v Voucher) Ineligibility(now time.Time) Reason {
	switch {
	case v.Status == StatusDisabled:
		return ReasonDisabled
	case v.Status == StatusExpired, v.ExpiresAt != nil && now.After(*v.ExpiresAt):
		return ReasonExpired
	case v.MaxUsageCount > 0 && v.UsageCount >= v.MaxUsageCount:
		if v.MaxUsageCount == 1 {
			return ReasonAlreadyUsed
		}
		return ReasonUsageLimitReached
	case v.Status == StatusUsed:
		return ReasonAlreadyUsed
	default:
		return ""
	}
}

// Eligible reports whether the voucher can be redeemed at now.
func (v Voucher) Eligible(now time.Time) bool {
	return v.Ineligibility(now) == ""
}

// RemainingUses returns how many redemptions are left, never negative.
func (v Voucher) RemainingUses() int {
	if n := v.MaxUsageCount - v.UsageCount; n > 0 {
		return n
	}
	return 0
}

// NetworkSession is a live or historical network session created by a redemption.
type NetworkSession struct {
	// ID is the backend row id used by operator actions; SessionID is the public handle.
	ID               int64
	VoucherID        int64
	SessionID        string
	VoucherCode      string
	StartedAt        time.Time
	EndedAt          *time.Time
	Active           bool
	RemainingMinutes *int
	DataUsedMb       *float64
	DataLimitMb      *int
	MACAddress       string
	IPAddress        string
}

// CheckResult is the outcome of a read-only voucher check.
type CheckResult struct {
	IsValid           bool
	ValidationMessage string
	Voucher           Voucher
	ActiveSessions    []NetworkSession
	// Reason classifies an invalid voucher; empty when IsValid.
	Reason Reason
}

// RedeemResult is the outcome of a successful redemption: a session always exists.
type RedeemResult struct {
	Message string
	Voucher Voucher
	Session NetworkSession
}

// SessionPage is one page of an operator session listing.
type SessionPage struct {
	Sessions []NetworkSession
	Page     int
	Pages    int
	PerPage  int
	Total    int
	HasNext  bool
	HasPrev  bool
}

// NormalizeCode trims and uppercases a human-typed voucher code.
// Every call site sends the normalized form so check and redeem see the same string.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
