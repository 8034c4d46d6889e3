package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/statsd"
)

func TestEmitRequest(t *testing.T) {
	var rec statsd.Recorder

	EmitRequest(&rec, RequestMetric{
		Method:   "POST",
		Route:    "/vouchers/redeem",
		Status:   400,
		Duration: 20 * time.Millisecond,
		Err:      apperrors.New(apperrors.ErrCodeVoucherExpired, "expired"),
	})

	counts := rec.Named("api.request")
	require.Len(t, counts, 1)
	assert.Equal(t, map[string]string{
		"method":      "POST",
		"route":       "/vouchers/redeem",
		"status":      "400",
		"result":      "error",
		"error_class": "voucher_expired",
	}, counts[0].Tags)
	require.Len(t, rec.Named("api.duration"), 1)
}

func TestEmitRequest_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitRequest(nil, RequestMetric{Method: "GET"})
		EmitAuthTransition(nil, "anonymous", "authenticated")
		EmitRenewal(nil, nil)
		EmitVoucher(nil, VoucherMetric{Operation: "check"})
	})
}

func TestEmitAuthTransition(t *testing.T) {
	var rec statsd.Recorder

	EmitAuthTransition(&rec, "authenticated", "authenticated")
	EmitAuthTransition(&rec, "anonymous", "authenticating")

	got := rec.Named("auth.transition")
	require.Len(t, got, 1)
	assert.Equal(t, "authenticating", got[0].Tags["to"])
	assert.Empty(t, rec.Named("auth.authenticated"), "intermediate states leave the gauge alone")

	EmitAuthTransition(&rec, "authenticating", "authenticated")
	EmitAuthTransition(&rec, "authenticated", "anonymous")
	gauge := rec.Named("auth.authenticated")
	require.Len(t, gauge, 2)
	assert.Equal(t, "g", gauge[0].Kind)
	assert.InDelta(t, 1.0, gauge[0].Value, 0)
	assert.InDelta(t, 0.0, gauge[1].Value, 0)
}

func TestEmitRenewal(t *testing.T) {
	var rec statsd.Recorder

	EmitRenewal(&rec, nil)
	EmitRenewal(&rec, apperrors.SessionExpired("refresh rejected"))

	got := rec.Named("auth.renewal")
	require.Len(t, got, 2)
	assert.Equal(t, "success", got[0].Tags["result"])
	assert.Equal(t, "error", got[1].Tags["result"])
	assert.Equal(t, "session_expired", got[1].Tags["error_class"])
}

func TestEmitVoucher(t *testing.T) {
	var rec statsd.Recorder

	EmitVoucher(&rec, VoucherMetric{Operation: "check", Result: ResultInvalid, Reason: "usage_limit_reached", Duration: time.Millisecond})

	got := rec.Named("voucher.check")
	require.Len(t, got, 1)
	assert.Equal(t, "usage_limit_reached", got[0].Tags["reason"])
	assert.Len(t, rec.Named("voucher.check.duration"), 1)
}
