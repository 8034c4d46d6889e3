package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/domain/voucher"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/metrics"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/statsd"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
)

// VoucherServiceOptions groups dependencies for VoucherService.
type VoucherServiceOptions struct {
	Caller  ports.Caller // Required: supplies the guest or operator context
	Metrics statsd.Sink  // Optional
	Logger  *slog.Logger // Optional
	// Now overrides the clock used for eligibility. Tests only.
	Now func() time.Time
}

// VoucherService is the voucher protocol client: a read-only check and a
// committing redeem, plus the operator actions on vouchers and sessions.
// Calls are never retried here.
type VoucherService struct {
	caller  ports.Caller
	metrics statsd.Sink
	logger  *slog.Logger
	now     func() time.Time
}

// NewVoucherService constructs a new VoucherService.
func NewVoucherService(opts VoucherServiceOptions) (*VoucherService, error) {
	if opts.Caller == nil {
		return nil, errors.New("Caller is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &VoucherService{
		caller:  opts.Caller,
		metrics: opts.Metrics,
		logger:  logger.With("component", "voucher_service"),
		now:     now,
	}, nil
}

// MustNewVoucherService constructs a new VoucherService and panics on error.
func MustNewVoucherService(opts VoucherServiceOptions) *VoucherService {
	svc, err := NewVoucherService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// CheckVoucher validates code without side effects. An ineligible voucher is not an
// error: the result has IsValid false and a Reason.
func (s *VoucherService) CheckVoucher(ctx context.Context, code string) (*voucher.CheckResult, error) {
	start := time.Now()
	code = voucher.NormalizeCode(code)
	if code == "" {
		return nil, apperrors.ValidationField("code", "voucher code is required")
	}

	var resp checkResponse
	err := s.caller.Call(ctx, http.MethodPost, pathVoucherCheck, codeRequest{Code: code}, &resp)
	if err == nil && resp.Voucher == nil {
		err = apperrors.ServerError("malformed response from server: missing voucher")
	}
	if err != nil {
		reason, _ := classifyFailure(err)
		err = recode(err, reason)
		s.emit("check", start, err, "")
		return nil, err
	}

	now := s.now()
	v := resp.Voucher.toDomain(now)

	result := &voucher.CheckResult{
		IsValid:           resp.IsValid,
		ValidationMessage: resp.ValidationMessage,
		Voucher:           v,
		ActiveSessions:    make([]voucher.NetworkSession, 0, len(resp.ActiveSessions)),
	}
	for i := range resp.ActiveSessions {
		result.ActiveSessions = append(result.ActiveSessions, resp.ActiveSessions[i].toDomain(&v, code))
	}
	if !resp.IsValid {
		result.Reason = v.Ineligibility(now)
		if result.Reason == "" {
			result.Reason = voucher.ClassifyMessage(resp.ValidationMessage)
		}
	}

	s.emit("check", start, nil, result.Reason)
	return result, nil
}

// RedeemOptions carries the optional device context of a redemption.
type RedeemOptions struct {
	MACAddress string
	IPAddress  string
}

// RedeemVoucher converts code into a network session. The backend validates the
// voucher again, so no prior check is required. Either a session is returned or
// a classified error is; there is no partial result.
func (s *VoucherService) RedeemVoucher(ctx context.Context, code string, opts RedeemOptions) (*voucher.RedeemResult, error) {
	start := time.Now()
	code = voucher.NormalizeCode(code)
	if code == "" {
		return nil, apperrors.ValidationField("code", "voucher code is required")
	}

	req := codeRequest{Code: code, MACAddress: opts.MACAddress, IPAddress: opts.IPAddress}
	var resp redeemResponse
	err := s.caller.Call(ctx, http.MethodPost, pathVoucherRedeem, req, &resp)
	if err == nil && (resp.Session == nil || resp.Session.SessionID == "") {
		err = apperrors.ServerError("malformed response from server: missing session")
	}
	if err != nil {
		reason, fromText := classifyFailure(err)
		if fromText && reason.Exhaustion() {
			reason = s.exhaustionReason(ctx, code, reason)
		}
		err = recode(err, reason)
		s.emit("redeem", start, err, "")
		return nil, err
	}

	result := &voucher.RedeemResult{Message: resp.Message}
	var v *voucher.Voucher
	if resp.Voucher != nil {
		result.Voucher = resp.Voucher.toDomain(s.now())
		v = &result.Voucher
	}
	result.Session = resp.Session.toDomain(v, code)

	s.logger.InfoContext(ctx, "voucher redeemed", "session_id", result.Session.SessionID)
	s.emit("redeem", start, nil, "")
	return result, nil
}

// classifyFailure returns the voucher reason a failed check or redeem describes,
// or "" when the failure is not about the voucher. A machine reason wins over the
// status, which wins over the message text; fromText reports the last case.
// Transport and server failures never carry a reason.
func classifyFailure(err error) (reason voucher.Reason, fromText bool) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Status == 0 || appErr.Status >= http.StatusInternalServerError {
		return "", false
	}
	switch appErr.Code {
	case apperrors.ErrCodeSessionExpired, apperrors.ErrCodePermissionDenied, apperrors.ErrCodeServerError:
		return "", false
	}

	if reason = voucher.ParseReason(appErr.Reason); reason != "" {
		return reason, false
	}
	if appErr.Status == http.StatusNotFound {
		return voucher.ReasonNotFound, false
	}
	reason = voucher.ClassifyMessage(appErr.Message)
	return reason, reason != ""
}

func recode(err error, reason voucher.Reason) error {
	if reason == "" {
		return err
	}
	return apperrors.Recode(err, ReasonCode(reason))
}

// exhaustionReason settles a redeem refused with an exhaustion message. The backend
// words a spent single-use voucher and an exhausted multi-use one alike, so the
// voucher is read back through the side-effect free check and classified from the
// state it reports. fallback is kept when that read fails.
func (s *VoucherService) exhaustionReason(ctx context.Context, code string, fallback voucher.Reason) voucher.Reason {
	var resp checkResponse
	if err := s.caller.Call(ctx, http.MethodPost, pathVoucherCheck, codeRequest{Code: code}, &resp); err != nil || resp.Voucher == nil {
		s.logger.DebugContext(ctx, "voucher state unavailable, classifying from message", "error", err)
		return fallback
	}
	now := s.now()
	if reason := resp.Voucher.toDomain(now).Ineligibility(now); reason.Exhaustion() {
		return reason
	}
	return fallback
}

// ReasonCode maps a voucher reason to its error code.
func ReasonCode(reason voucher.Reason) apperrors.ErrorCode {
	switch reason {
	case voucher.ReasonNotFound:
		return apperrors.ErrCodeVoucherNotFound
	case voucher.ReasonAlreadyUsed:
		return apperrors.ErrCodeVoucherAlreadyUsed
	case voucher.ReasonExpired:
		return apperrors.ErrCodeVoucherExpired
	case voucher.ReasonUsageLimitReached:
		return apperrors.ErrCodeVoucherUsageLimitReached
	case voucher.ReasonDisabled:
		return apperrors.ErrCodeVoucherDisabled
	default:
		return apperrors.ErrCodeServerError
	}
}

func (s *VoucherService) emit(op string, start time.Time, err error, reason voucher.Reason) {
	result := metrics.ResultSuccess
	switch {
	case err != nil && apperrors.IsVoucherError(err):
		result = metrics.ResultInvalid
		reason = voucher.ParseReason(string(apperrors.GetCode(err)))
	case err != nil:
		result = metrics.ResultError
	case reason != "":
		result = metrics.ResultInvalid
	}
	metrics.EmitVoucher(s.metrics, metrics.VoucherMetric{
		Operation: op,
		Result:    result,
		Reason:    string(reason),
		Duration:  time.Since(start),
	})
}

// ActivateVoucher re-enables a voucher. Operators only.
func (s *VoucherService) ActivateVoucher(ctx context.Context, id int64) (*voucher.Voucher, error) {
	return s.voucherAction(ctx, id, "activate")
}

// DeactivateVoucher disables a voucher so it can no longer be redeemed. Operators only.
func (s *VoucherService) DeactivateVoucher(ctx context.Context, id int64) (*voucher.Voucher, error) {
	return s.voucherAction(ctx, id, "deactivate")
}

// ResetVoucher clears a voucher's usage and ends its active sessions. Operators only.
func (s *VoucherService) ResetVoucher(ctx context.Context, id int64) (*voucher.Voucher, error) {
	return s.voucherAction(ctx, id, "reset")
}

func (s *VoucherService) voucherAction(ctx context.Context, id int64, action string) (*voucher.Voucher, error) {
	if err := s.requireOperator(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperrors.ValidationField("id", "voucher id must be positive")
	}

	var resp voucherActionResponse
	path := fmt.Sprintf("/vouchers/vouchers/%d/%s", id, action)
	if err := s.caller.Do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Voucher == nil {
		return nil, apperrors.ServerError("malformed response from server: missing voucher")
	}
	v := resp.Voucher.toDomain(s.now())
	s.logger.Info("voucher "+action, "voucher_id", id)
	return &v, nil
}

// TerminateSession ends a network session by its backend id. Operators only.
func (s *VoucherService) TerminateSession(ctx context.Context, id int64) (*voucher.NetworkSession, error) {
	if err := s.requireOperator(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperrors.ValidationField("id", "session id must be positive")
	}

	var resp sessionActionResponse
	path := fmt.Sprintf("%s/%d/terminate", pathSessions, id)
	if err := s.caller.Do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, apperrors.ServerError("malformed response from server: missing session")
	}
	session := resp.Session.toDomain(nil, "")
	return &session, nil
}

// SessionQuery filters an operator session listing. Zero values use backend defaults.
type SessionQuery struct {
	ActiveOnly bool
	Page       int
	PerPage    int
}

func (q SessionQuery) encode() string {
	values := url.Values{}
	if q.ActiveOnly {
		values.Set("active_only", "true")
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// ListSessions returns one page of network sessions, newest first. Operators only.
func (s *VoucherService) ListSessions(ctx context.Context, q SessionQuery) (*voucher.SessionPage, error) {
	if err := s.requireOperator(); err != nil {
		return nil, err
	}

	var resp sessionListResponse
	if err := s.caller.Do(ctx, http.MethodGet, pathSessions+q.encode(), nil, &resp); err != nil {
		return nil, err
	}

	page := &voucher.SessionPage{
		Sessions: make([]voucher.NetworkSession, 0, len(resp.Sessions)),
		Page:     resp.Pagination.Page,
		Pages:    resp.Pagination.Pages,
		PerPage:  resp.Pagination.PerPage,
		Total:    resp.Pagination.Total,
		HasNext:  resp.Pagination.HasNext,
		HasPrev:  resp.Pagination.HasPrev,
	}
	for i := range resp.Sessions {
		page.Sessions = append(page.Sessions, resp.Sessions[i].toDomain(nil, ""))
	}
	return page, nil
}

// requireOperator gates operator actions on the current identity, re-read on every call.
func (s *VoucherService) requireOperator() error {
	if !domainauth.IsOperator(s.caller.Snapshot().Identity) {
		return apperrors.PermissionDenied("operator role required")
	}
	return nil
}
