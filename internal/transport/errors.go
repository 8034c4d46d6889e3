package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
)

// errorBody is the union of error shapes the backend produces: handlers return
// {"message"}, the JWT layer returns {"msg"} and some views add a machine reason.
type errorBody struct {
	Message string `json:"message"`
	Msg     string `json:"msg"`
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Code    string `json:"code"`
}

func errorFromResponse(status int, body []byte) *apperrors.AppError {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		payload = errorBody{}
	}

	message := firstNonEmpty(payload.Message, payload.Msg, payload.Error)
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "HTTP " + strconv.Itoa(status)
	}

	return &apperrors.AppError{
		Code:    CodeForStatus(status),
		Message: message,
		Status:  status,
		Reason:  firstNonEmpty(payload.Reason, payload.Code),
	}
}

// CodeForStatus maps an HTTP status to the default error code. Callers that know
// more about an endpoint (login, voucher redemption) refine it.
func CodeForStatus(status int) apperrors.ErrorCode {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.ErrCodeSessionExpired
	case status == http.StatusForbidden:
		return apperrors.ErrCodePermissionDenied
	case status == http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case status == http.StatusConflict:
		return apperrors.ErrCodeConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.ErrCodeValidation
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return apperrors.ErrCodeTimeout
	default:
		return apperrors.ErrCodeServerError
	}
}

// RouteOf collapses numeric and UUID path segments so metrics stay low-cardinality:
// /vouchers/vouchers/42/activate becomes /vouchers/vouchers/:id/activate.
func RouteOf(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = ":id"
		} else if _, err := uuid.Parse(s); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
