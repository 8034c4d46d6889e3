package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Alqudimi/wifi-network-manager/config"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/statsd"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *statsd.Recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := &statsd.Recorder{}
	c, err := New(Options{
		Config:  config.APIConfig{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second},
		Metrics: rec,
	})
	require.NoError(t, err)
	return c, rec
}

func TestClient_Do_Success(t *testing.T) {
	var gotAuth, gotType, gotPath, gotID string
	var gotBody map[string]string

	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotID = r.Header.Get(requestIDHeader)
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte(`{"is_valid": true, "validation_message": "ok"}`))
	})

	var out struct {
		IsValid bool   `json:"is_valid"`
		Message string `json:"validation_message"`
	}
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/vouchers/check",
		Body:   map[string]string{"code": "AB12"},
		Token:  &oauth2.Token{AccessToken: "access-1", TokenType: "Bearer"},
	}, &out)
	require.NoError(t, err)

	assert.True(t, out.IsValid)
	assert.Equal(t, "ok", out.Message)
	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "/api/vouchers/check", gotPath)
	assert.Equal(t, map[string]string{"code": "AB12"}, gotBody)
	_, parseErr := uuid.Parse(gotID)
	assert.NoError(t, parseErr, "request id should be a uuid")

	reqs := rec.Named("api.request")
	require.Len(t, reqs, 1)
	assert.Equal(t, "success", reqs[0].Tags["result"])
	assert.Equal(t, "200", reqs[0].Tags["status"])
	assert.Equal(t, "/vouchers/check", reqs[0].Tags["route"])
}

func TestClient_Do_AnonymousHasNoAuthHeader(t *testing.T) {
	var hasAuth bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/auth/logout"}, nil))
	assert.False(t, hasAuth)
}

func TestClient_Do_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    apperrors.ErrorCode
		message string
		reason  string
	}{
		{name: "unauthorized jwt", status: 401, body: `{"msg":"Token has expired"}`, code: apperrors.ErrCodeSessionExpired, message: "Token has expired"},
		{name: "forbidden", status: 403, body: `{"message":"صلاحيات غير كافية"}`, code: apperrors.ErrCodePermissionDenied, message: "صلاحيات غير كافية"},
		{name: "not found", status: 404, body: `{"message":"الكرت غير موجود"}`, code: apperrors.ErrCodeNotFound, message: "الكرت غير موجود"},
		{name: "conflict", status: 409, body: `{"message":"اسم المستخدم موجود مسبقاً"}`, code: apperrors.ErrCodeConflict, message: "اسم المستخدم موجود مسبقاً"},
		{name: "bad request with reason", status: 400, body: `{"message":"Voucher already used","reason":"already_used"}`, code: apperrors.ErrCodeValidation, message: "Voucher already used", reason: "already_used"},
		{name: "server error non json", status: 502, body: `<html>bad gateway</html>`, code: apperrors.ErrCodeServerError, message: "Bad Gateway"},
		{name: "server error message", status: 500, body: `{"message":"حدث خطأ في الخادم"}`, code: apperrors.ErrCodeServerError, message: "حدث خطأ في الخادم"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/auth/profile"}, &struct{}{})
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, tt.status, appErr.Status)
			assert.Equal(t, tt.reason, appErr.Reason)

			reqs := rec.Named("api.request")
			require.Len(t, reqs, 1)
			assert.Equal(t, "error", reqs[0].Tags["result"])
		})
	}
}

func TestClient_Do_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"user": `))
	})

	var out map[string]any
	err := c.Do(context.Background(), Request{Path: "/auth/profile"}, &out)
	assert.True(t, apperrors.IsServerError(err), "got %v", err)
}

func TestClient_Do_NetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(Options{Config: config.APIConfig{BaseURL: base, Timeout: time.Second}})
	require.NoError(t, err)

	err = c.Do(context.Background(), Request{Path: "/auth/profile"}, nil)
	assert.True(t, apperrors.IsNetworkUnavailable(err), "got %v", err)
}

func TestClient_Do_CanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, Request{Path: "/auth/profile"}, nil)
	assert.True(t, apperrors.IsCanceled(err), "got %v", err)
}

func TestClient_Do_RejectsRelativePath(t *testing.T) {
	c, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("request must not be sent")
	})

	err := c.Do(context.Background(), Request{Path: "auth/profile"}, nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNew_CookieJar(t *testing.T) {
	c, err := New(Options{Config: config.APIConfig{CookiesEnabled: true}})
	require.NoError(t, err)
	assert.NotNil(t, c.httpClient.Jar)
	assert.Equal(t, "http://localhost:5000/api", c.BaseURL())
}

func TestRouteOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/vouchers/check", "/vouchers/check"},
		{"/vouchers/vouchers/42/activate", "/vouchers/vouchers/:id/activate"},
		{"/vouchers/sessions/" + uuid.Nil.String() + "/terminate", "/vouchers/sessions/:id/terminate"},
		{"/auth/profile?x=1", "/auth/profile"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RouteOf(tt.in), tt.in)
	}
}
