package errors

import (
	"context"
	"fmt"
	"net"
	"testing"

	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: apperrors.SessionExpired("session expired"), want: "session_expired"},
		{
			name: "wrapped app error",
			err:  fmt.Errorf("redeem: %w", apperrors.New(apperrors.ErrCodeVoucherExpired, "انتهت صلاحية الكرت")),
			want: "voucher_expired",
		},
		{name: "op error", err: fmt.Errorf("dial: %w", &net.OpError{Op: "dial", Err: context.DeadlineExceeded}), want: "context_deadlineexceedederror"},
		{name: "plain", err: fmt.Errorf("boom"), want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
