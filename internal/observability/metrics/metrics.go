// Package metrics emits the client's standard StatsD series. Every helper is a
// no-op for a nil sink.
package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/Alqudimi/wifi-network-manager/internal/observability/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultInvalid = "invalid"
)

const (
	stateAuthenticated = "authenticated"
	stateAnonymous     = "anonymous"
)

// RequestMetric describes one backend round trip.
type RequestMetric struct {
	Method   string
	Route    string
	Status   int
	Duration time.Duration
	Err      error
}

// EmitRequest records api.request and api.duration.
func EmitRequest(sink statsd.Sink, in RequestMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	if in.Err != nil {
		result = ResultError
	}
	tags := map[string]string{
		"method": in.Method,
		"route":  in.Route,
		"status": strconv.Itoa(in.Status),
		"result": result,
	}
	if class := obserrors.Classify(in.Err); class != "" {
		tags["error_class"] = class
	}

	sink.Count("api.request", 1, tags)
	if in.Duration > 0 {
		sink.Timing("api.duration", in.Duration, CloneTags(tags))
	}
}

// EmitAuthTransition records a state change of the auth lifecycle. Settling in
// "authenticated" or "anonymous" also sets the auth.authenticated gauge to 1 or 0.
func EmitAuthTransition(sink statsd.Sink, from, to string) {
	if sink == nil || from == to {
		return
	}
	sink.Count("auth.transition", 1, map[string]string{"from": from, "to": to})
	switch to {
	case stateAuthenticated:
		sink.Gauge("auth.authenticated", 1, nil)
	case stateAnonymous:
		sink.Gauge("auth.authenticated", 0, nil)
	}
}

// EmitRenewal records one refresh-token renewal attempt.
func EmitRenewal(sink statsd.Sink, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	sink.Count("auth.renewal", 1, tags)
}

// VoucherMetric describes a check or redeem outcome.
type VoucherMetric struct {
	Operation string // "check" or "redeem"
	Result    string
	Reason    string
	Duration  time.Duration
}

// EmitVoucher records voucher.<operation> and its timing.
func EmitVoucher(sink statsd.Sink, in VoucherMetric) {
	if sink == nil || in.Operation == "" {
		return
	}
	tags := map[string]string{"result": in.Result}
	if in.Reason != "" {
		tags["reason"] = in.Reason
	}
	sink.Count("voucher."+in.Operation, 1, tags)
	if in.Duration > 0 {
		sink.Timing("voucher."+in.Operation+".duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
