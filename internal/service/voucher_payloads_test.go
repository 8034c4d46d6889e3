package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alqudimi/wifi-network-manager/internal/domain/voucher"
	"github.com/Alqudimi/wifi-network-manager/internal/testutil"
)

func TestBackendTime_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 5, 7, 123456000, time.UTC)

	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{name: "naive iso", input: `"2024-03-09T14:05:07.123456"`, want: &want},
		{name: "naive with space", input: `"2024-03-09 14:05:07.123456"`, want: &want},
		{name: "rfc3339 offset", input: `"2024-03-09T17:05:07.123456+03:00"`, want: &want},
		{name: "null", input: `null`},
		{name: "empty", input: `""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				At *backendTime `json:"at"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"at":`+tt.input+`}`), &got))
			if tt.want == nil {
				assert.Nil(t, got.At.ptr())
				return
			}
			require.NotNil(t, got.At.ptr())
			assert.True(t, tt.want.Equal(*got.At.ptr()), "got %v", got.At.ptr())
			assert.Equal(t, time.UTC, got.At.Location())
		})
	}

	var bad backendTime
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestVoucherPayload_Status(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	past := &backendTime{now.Add(-time.Minute)}

	tests := []struct {
		name    string
		payload voucherPayload
		want    voucher.Status
	}{
		{name: "explicit status wins", payload: voucherPayload{Status: "expired", IsActive: testutil.BoolPtr(true)}, want: voucher.StatusExpired},
		{name: "unknown status is derived", payload: voucherPayload{Status: "weird", MaxUsageCount: 1}, want: voucher.StatusActive},
		{name: "inactive", payload: voucherPayload{IsActive: testutil.BoolPtr(false), ExpiresAt: past}, want: voucher.StatusDisabled},
		{name: "expired", payload: voucherPayload{ExpiresAt: past, IsUsed: true}, want: voucher.StatusExpired},
		{name: "used flag", payload: voucherPayload{IsUsed: true}, want: voucher.StatusUsed},
		{name: "usage reached", payload: voucherPayload{UsageCount: 2, MaxUsageCount: 2}, want: voucher.StatusUsed},
		{name: "active", payload: voucherPayload{UsageCount: 1, MaxUsageCount: 2}, want: voucher.StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.payload.toDomain(now).Status)
		})
	}
}

func TestSessionPayload_ToDomain(t *testing.T) {
	started := &backendTime{time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}
	v := &voucher.Voucher{Code: "AB12", DurationMinutes: testutil.IntPtr(60), DataLimitMb: testutil.IntPtr(500)}

	t.Run("with voucher", func(t *testing.T) {
		p := sessionPayload{
			ID:               4,
			SessionID:        "sess-1",
			StartedAt:        started,
			DurationMinutes:  testutil.IntPtr(45),
			DataUploadedMb:   testutil.Float64Ptr(1.5),
			DataDownloadedMb: testutil.Float64Ptr(2.5),
		}
		s := p.toDomain(v, "ignored")
		assert.Equal(t, int64(4), s.ID)
		assert.Equal(t, "AB12", s.VoucherCode)
		assert.True(t, s.Active, "no end time means active")
		assert.Equal(t, started.Time, s.StartedAt)
		require.NotNil(t, s.RemainingMinutes)
		assert.Equal(t, 15, *s.RemainingMinutes)
		require.NotNil(t, s.DataUsedMb)
		assert.InDelta(t, 4.0, *s.DataUsedMb, 0.0001)
		assert.Equal(t, v.DataLimitMb, s.DataLimitMb)
	})

	t.Run("overrun clamps to zero", func(t *testing.T) {
		p := sessionPayload{SessionID: "sess-2", DurationMinutes: testutil.IntPtr(90), TotalDataMb: testutil.Float64Ptr(7)}
		s := p.toDomain(v, "")
		require.NotNil(t, s.RemainingMinutes)
		assert.Zero(t, *s.RemainingMinutes)
		assert.InDelta(t, 7.0, *s.DataUsedMb, 0.0001)
	})

	t.Run("without voucher", func(t *testing.T) {
		ended := &backendTime{started.Add(time.Hour)}
		p := sessionPayload{SessionID: "sess-3", StartedAt: started, EndedAt: ended}
		s := p.toDomain(nil, " cd34 ")
		assert.Equal(t, "CD34", s.VoucherCode)
		assert.False(t, s.Active)
		assert.Nil(t, s.RemainingMinutes)
		assert.Nil(t, s.DataUsedMb)
		assert.Nil(t, s.DataLimitMb)
	})
}
