package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alqudimi/wifi-network-manager/internal/domain/voucher"
)

// Backend voucher routes, relative to the API base URL.
const (
	pathVoucherCheck  = "/vouchers/check"
	pathVoucherRedeem = "/vouchers/redeem"
	pathSessions      = "/vouchers/sessions"
)

// backendTimeLayouts are tried in order. The backend serializes naive UTC
// datetimes without an offset.
var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// backendTime decodes the backend's timestamps. Values without an offset are UTC.
type backendTime struct {
	time.Time
}

func (t *backendTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if raw == "" {
		return nil
	}
	for _, layout := range backendTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", raw)
}

func (t *backendTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type codeRequest struct {
	Code       string `json:"code"`
	MACAddress string `json:"mac_address,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
}

type voucherPayload struct {
	ID              int64        `json:"id"`
	Code            string       `json:"code"`
	Value           float64      `json:"value"`
	DurationMinutes *int         `json:"duration_minutes"`
	DataLimitMb     *int         `json:"data_limit_mb"`
	Status          string       `json:"status,omitempty"`
	IsActive        *bool        `json:"is_active"`
	IsUsed          bool         `json:"is_used"`
	UsageCount      int          `json:"usage_count"`
	MaxUsageCount   int          `json:"max_usage_count"`
	ExpiresAt       *backendTime `json:"expires_at"`
	FirstUsedAt     *backendTime `json:"first_used_at"`
	LastUsedAt      *backendTime `json:"last_used_at"`
}

func (p *voucherPayload) toDomain(now time.Time) voucher.Voucher {
	v := voucher.Voucher{
		ID:              p.ID,
		Code:            voucher.NormalizeCode(p.Code),
		Value:           p.Value,
		DurationMinutes: p.DurationMinutes,
		DataLimitMb:     p.DataLimitMb,
		UsageCount:      p.UsageCount,
		MaxUsageCount:   p.MaxUsageCount,
		ExpiresAt:       p.ExpiresAt.ptr(),
		FirstUsedAt:     p.FirstUsedAt.ptr(),
		LastUsedAt:      p.LastUsedAt.ptr(),
	}
	v.Status = p.status(v, now)
	return v
}

// status prefers an explicit status and otherwise derives one from the flags,
// disabled first, then expired, then used.
func (p *voucherPayload) status(v voucher.Voucher, now time.Time) voucher.Status {
	if s := voucher.Status(p.Status); s.Valid() {
		return s
	}
	switch {
	case p.IsActive != nil && !*p.IsActive:
		return voucher.StatusDisabled
	case v.ExpiresAt != nil && now.After(*v.ExpiresAt):
		return voucher.StatusExpired
	case p.IsUsed, v.MaxUsageCount > 0 && v.UsageCount >= v.MaxUsageCount:
		return voucher.StatusUsed
	default:
		return voucher.StatusActive
	}
}

type sessionPayload struct {
	ID               int64        `json:"id"`
	VoucherID        int64        `json:"voucher_id"`
	SessionID        string       `json:"session_id"`
	MACAddress       string       `json:"mac_address"`
	IPAddress        string       `json:"ip_address"`
	DataUploadedMb   *float64     `json:"data_uploaded_mb"`
	DataDownloadedMb *float64     `json:"data_downloaded_mb"`
	TotalDataMb      *float64     `json:"total_data_mb"`
	StartedAt        *backendTime `json:"started_at"`
	EndedAt          *backendTime `json:"ended_at"`
	DurationMinutes  *int         `json:"duration_minutes"`
	IsActive         *bool        `json:"is_active"`
}

// toDomain normalizes a session. v is the voucher it belongs to when known and
// supplies the quota; code is used when v carries no code.
func (p *sessionPayload) toDomain(v *voucher.Voucher, code string) voucher.NetworkSession {
	s := voucher.NetworkSession{
		ID:          p.ID,
		VoucherID:   p.VoucherID,
		SessionID:   p.SessionID,
		VoucherCode: voucher.NormalizeCode(code),
		EndedAt:     p.EndedAt.ptr(),
		MACAddress:  p.MACAddress,
		IPAddress:   p.IPAddress,
		DataUsedMb:  p.dataUsed(),
	}
	if started := p.StartedAt.ptr(); started != nil {
		s.StartedAt = *started
	}
	if p.IsActive != nil {
		s.Active = *p.IsActive
	} else {
		s.Active = s.EndedAt == nil
	}

	if v == nil {
		return s
	}
	if v.Code != "" {
		s.VoucherCode = v.Code
	}
	s.DataLimitMb = v.DataLimitMb
	if v.DurationMinutes != nil && p.DurationMinutes != nil {
		remaining := max(*v.DurationMinutes-*p.DurationMinutes, 0)
		s.RemainingMinutes = &remaining
	}
	return s
}

func (p *sessionPayload) dataUsed() *float64 {
	if p.TotalDataMb != nil {
		v := *p.TotalDataMb
		return &v
	}
	if p.DataUploadedMb == nil && p.DataDownloadedMb == nil {
		return nil
	}
	var total float64
	if p.DataUploadedMb != nil {
		total += *p.DataUploadedMb
	}
	if p.DataDownloadedMb != nil {
		total += *p.DataDownloadedMb
	}
	return &total
}

type checkResponse struct {
	Voucher           *voucherPayload  `json:"voucher"`
	IsValid           bool             `json:"is_valid"`
	ValidationMessage string           `json:"validation_message"`
	ActiveSessions    []sessionPayload `json:"active_sessions"`
}

type redeemResponse struct {
	Message string          `json:"message"`
	Voucher *voucherPayload `json:"voucher"`
	Session *sessionPayload `json:"session"`
}

// voucherActionResponse is returned by the operator voucher actions.
type voucherActionResponse struct {
	Message string          `json:"message"`
	Voucher *voucherPayload `json:"voucher"`
}

type sessionActionResponse struct {
	Message string          `json:"message"`
	Session *sessionPayload `json:"session"`
}

type sessionListResponse struct {
	Sessions   []sessionPayload `json:"sessions"`
	Pagination struct {
		Page    int  `json:"page"`
		Pages   int  `json:"pages"`
		PerPage int  `json:"per_page"`
		Total   int  `json:"total"`
		HasNext bool `json:"has_next"`
		HasPrev bool `json:"has_prev"`
	} `json:"pagination"`
}
