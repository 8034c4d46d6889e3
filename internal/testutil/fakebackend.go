package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Messages returned by the fake backend. They are the texts the real backend sends.
const (
	MsgInvalidLogin       = "اسم المستخدم أو كلمة المرور غير صحيحة"
	MsgInactiveAccount    = "الحساب غير مفعل"
	MsgMissingCredentials = "اسم المستخدم وكلمة المرور مطلوبان"
	MsgInvalidRefresh     = "رمز التحديث غير صالح"
	MsgTokenExpired       = "Token has expired"
	MsgOperatorRequired   = "صلاحيات مشغل مطلوبة"
	MsgCodeRequired       = "كود الكرت مطلوب"
	MsgVoucherNotFound    = "الكرت غير موجود"
	MsgVoucherDisabled    = "الكرت غير مفعل"
	MsgVoucherExpired     = "انتهت صلاحية الكرت"
	MsgVoucherExhausted   = "تم استنفاد عدد مرات الاستخدام المسموحة"
	MsgVoucherValid       = "الكرت صالح للاستخدام"
	MsgVoucherRedeemed    = "تم استخدام الكرت بنجاح"
	MsgWrongPassword      = "كلمة المرور الحالية غير صحيحة"
	MsgServerError        = "حدث خطأ في الخادم"
)

const backendTimeLayout = "2006-01-02T15:04:05.999999"

// FakeUser is an account known to the fake backend.
type FakeUser struct {
	ID       int64
	Username string
	Password string
	Email    string
	FullName string
	Phone    string
	Role     string
	Inactive bool
}

func (u *FakeUser) payload() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"full_name": u.FullName,
		"phone":     u.Phone,
		"role":      u.Role,
		"is_active": !u.Inactive,
	}
}

// FakeVoucher is a voucher known to the fake backend.
type FakeVoucher struct {
	ID              int64
	Code            string
	Value           float64
	DurationMinutes *int
	DataLimitMb     *int
	Inactive        bool
	UsageCount      int
	MaxUsageCount   int
	ExpiresAt       *time.Time
	FirstUsedAt     *time.Time
	LastUsedAt      *time.Time
}

type fakeSession struct {
	id        int64
	voucherID int64
	sessionID string
	mac       string
	ip        string
	startedAt time.Time
	endedAt   *time.Time
}

type failure struct {
	status  int
	message string
	// remaining is the number of requests still to fail; negative fails forever.
	remaining int
}

// FakeBackend is an in-process stand-in for the voucher REST API, served under /api.
// It issues HS256 JWT pairs, enforces bearer auth and operator roles and keeps
// voucher usage and session state, so clients can be exercised end to end.
type FakeBackend struct {
	Server *httptest.Server

	mu            sync.Mutex
	now           func() time.Time
	secret        []byte
	accessTTL     time.Duration
	users         map[string]*FakeUser
	vouchers      map[string]*FakeVoucher
	sessions      []*fakeSession
	revoked       map[string]bool
	calls         map[string]int
	failures      map[string]*failure
	nextUserID    int64
	nextVoucherID int64
}

// NewFakeBackend starts a fake backend seeded with the default admin/admin123 account.
// The server is closed when the test completes.
func NewFakeBackend(t TestingTB) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		now:       time.Now,
		secret:    []byte(uuid.NewString()),
		accessTTL: time.Hour,
		users:     make(map[string]*FakeUser),
		vouchers:  make(map[string]*FakeVoucher),
		revoked:   make(map[string]bool),
		calls:     make(map[string]int),
		failures:  make(map[string]*failure),
	}
	b.AddUser(FakeUser{Username: "admin", Password: "admin123", Email: "admin@example.com", FullName: "مدير النظام", Role: "admin"})

	b.Server = httptest.NewServer(b.routes())
	registerCleanup(t, b.Server.Close)
	return b
}

// URL returns the API base URL clients should be configured with.
func (b *FakeBackend) URL() string {
	return b.Server.URL + "/api"
}

// SetClock overrides the backend clock used for token expiry and voucher state.
func (b *FakeBackend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// SetAccessTTL changes the lifetime of access tokens issued from now on.
func (b *FakeBackend) SetAccessTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessTTL = ttl
}

// AddUser registers an account and returns its id.
func (b *FakeBackend) AddUser(u FakeUser) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextUserID++
	u.ID = b.nextUserID
	if u.Role == "" {
		u.Role = "user"
	}
	b.users[u.Username] = &u
	return u.ID
}

// AddVoucher registers a voucher and returns its id. MaxUsageCount defaults to 1.
func (b *FakeBackend) AddVoucher(v FakeVoucher) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextVoucherID++
	v.ID = b.nextVoucherID
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))
	if v.MaxUsageCount == 0 {
		v.MaxUsageCount = 1
	}
	b.vouchers[v.Code] = &v
	return v.ID
}

// Voucher returns a copy of the stored voucher.
func (b *FakeBackend) Voucher(code string) (FakeVoucher, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vouchers[code]
	if !ok {
		return FakeVoucher{}, false
	}
	return *v, true
}

// SessionCount returns how many sessions were created for code.
func (b *FakeBackend) SessionCount(code string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vouchers[code]
	if !ok {
		return 0
	}
	n := 0
	for _, s := range b.sessions {
		if s.voucherID == v.ID {
			n++
		}
	}
	return n
}

// Fail makes the next times requests to route answer status with message.
// Route is "METHOD /path" without the /api prefix; times <= 0 fails forever.
func (b *FakeBackend) Fail(route string, status int, message string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if times <= 0 {
		times = -1
	}
	b.failures[route] = &failure{status: status, message: message, remaining: times}
}

// ClearFailures removes every injected failure.
func (b *FakeBackend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.failures)
}

// Calls returns how many requests hit route ("METHOD /path").
func (b *FakeBackend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// IssueTokens mints a pair for username as a login would.
func (b *FakeBackend) IssueTokens(username string) (access, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(username)
}

// RevokeAll invalidates every token issued so far, as an expired session would.
func (b *FakeBackend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.secret = []byte(uuid.NewString())
}

func (b *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.handleLogin)
		r.Post("/auth/register", b.handleRegister)
		r.Post("/auth/refresh", b.handleRefresh)
		r.With(b.requireToken).Post("/auth/logout", b.handleLogout)
		r.With(b.requireToken).Get("/auth/profile", b.handleProfile)
		r.With(b.requireToken).Put("/auth/profile", b.handleUpdateProfile)
		r.With(b.requireToken).Post("/auth/change-password", b.handleChangePassword)

		r.Post("/vouchers/check", b.handleCheck)
		r.Post("/vouchers/redeem", b.handleRedeem)
		r.Group(func(r chi.Router) {
			r.Use(b.requireToken, b.requireOperator)
			r.Post("/vouchers/vouchers/{id}/{action}", b.handleVoucherAction)
			r.Post("/vouchers/sessions/{id}/terminate", b.handleTerminate)
			r.Get("/vouchers/sessions", b.handleListSessions)
		})
	})
	return r
}

// record counts calls and applies injected failures before routing.
func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		b.mu.Lock()
		b.calls[route]++
		f, ok := b.failures[route]
		var status int
		var message string
		if ok && f.remaining != 0 {
			status, message = f.status, f.message
			if f.remaining > 0 {
				f.remaining--
			}
		}
		b.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]any{"message": message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxUserKey struct{}

func withUser(r *http.Request, u *FakeUser) context.Context {
	return context.WithValue(r.Context(), ctxUserKey{}, u)
}

func userFrom(r *http.Request) *FakeUser {
	u, _ := r.Context().Value(ctxUserKey{}).(*FakeUser)
	return u
}

func (b *FakeBackend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Missing Authorization Header"})
			return
		}
		b.mu.Lock()
		user, err := b.userForTokenLocked(raw, "access")
		b.mu.Unlock()
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": MsgTokenExpired})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r, user)))
	})
}

func (b *FakeBackend) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r)
		if user == nil || (user.Role != "admin" && user.Role != "operator") {
			writeJSON(w, http.StatusForbidden, map[string]any{"message": MsgOperatorRequired})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) issueLocked(username string) (string, string) {
	now := b.now()
	access := b.signLocked(username, "access", now.Add(b.accessTTL))
	refresh := b.signLocked(username, "refresh", now.Add(30*24*time.Hour))
	return access, refresh
}

func (b *FakeBackend) signLocked(username, typ string, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub":  username,
		"type": typ,
		"jti":  uuid.NewString(),
		"iat":  b.now().Unix(),
		"exp":  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err)) //nolint:forbidigo // HMAC signing with a fixed key cannot fail
	}
	return signed
}

func (b *FakeBackend) userForTokenLocked(raw, typ string) (*FakeUser, error) {
	if b.revoked[raw] {
		return nil, errors.New("token revoked")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(b.now))
	if err != nil {
		return nil, err
	}
	if claims["type"] != typ {
		return nil, errors.New("wrong token type")
	}
	sub, _ := claims["sub"].(string)
	user, ok := b.users[sub]
	if !ok || user.Inactive {
		return nil, errors.New("unknown user")
	}
	return user, nil
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Username == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": MsgMissingCredentials})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.users[in.Username]
	if !ok || user.Password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": MsgInvalidLogin})
		return
	}
	if user.Inactive {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": MsgInactiveAccount})
		return
	}
	access, refresh := b.issueLocked(user.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "تم تسجيل الدخول بنجاح",
		"user":          user.payload(),
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (b *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	}
	if !decode(w, r, &in) {
		return
	}
	for field, value := range map[string]string{"username": in.Username, "email": in.Email, "password": in.Password} {
		if value == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "الحقل " + field + " مطلوب"})
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[in.Username]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "اسم المستخدم موجود مسبقاً"})
		return
	}
	for _, u := range b.users {
		if strings.EqualFold(u.Email, in.Email) {
			writeJSON(w, http.StatusConflict, map[string]any{"message": "البريد الإلكتروني موجود مسبقاً"})
			return
		}
	}
	b.nextUserID++
	user := &FakeUser{
		ID:       b.nextUserID,
		Username: in.Username,
		Password: in.Password,
		Email:    in.Email,
		FullName: in.FullName,
		Phone:    in.Phone,
		Role:     "user",
	}
	b.users[user.Username] = user
	access, refresh := b.issueLocked(user.Username)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "تم إنشاء الحساب بنجاح",
		"user":          user.payload(),
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (b *FakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "رمز التحديث مطلوب"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	user, err := b.userForTokenLocked(in.RefreshToken, "refresh")
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": MsgInvalidRefresh})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": b.signLocked(user.Username, "access", b.now().Add(b.accessTTL)),
	})
}

func (b *FakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	b.revoked[raw] = true
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "تم تسجيل الخروج بنجاح"})
}

func (b *FakeBackend) handleProfile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": userFrom(r).payload()})
}

func (b *FakeBackend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FullName *string `json:"full_name"`
		Phone    *string `json:"phone"`
	}
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	user := userFrom(r)
	if in.FullName != nil {
		user.FullName = *in.FullName
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "تم تحديث الملف الشخصي بنجاح", "user": user.payload()})
}

func (b *FakeBackend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	user := userFrom(r)
	if user.Password != in.CurrentPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": MsgWrongPassword})
		return
	}
	if len(in.NewPassword) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "كلمة المرور يجب أن تكون 6 أحرف على الأقل"})
		return
	}
	user.Password = in.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"message": "تم تغيير كلمة المرور بنجاح"})
}

type codeInput struct {
	Code       string `json:"code"`
	MACAddress string `json:"mac_address"`
	IPAddress  string `json:"ip_address"`
}

func (b *FakeBackend) handleCheck(w http.ResponseWriter, r *http.Request) {
	var in codeInput
	if !decode(w, r, &in) {
		return
	}
	if in.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": MsgCodeRequired})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vouchers[strings.ToUpper(strings.TrimSpace(in.Code))]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": MsgVoucherNotFound})
		return
	}
	valid, message := b.validityLocked(v)
	active := make([]map[string]any, 0)
	for _, s := range b.sessions {
		if s.voucherID == v.ID && s.endedAt == nil {
			active = append(active, b.sessionPayloadLocked(s))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"voucher":            b.voucherPayloadLocked(v),
		"is_valid":           valid,
		"validation_message": message,
		"active_sessions":    active,
	})
}

func (b *FakeBackend) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var in codeInput
	if !decode(w, r, &in) {
		return
	}
	if in.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": MsgCodeRequired})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vouchers[strings.ToUpper(strings.TrimSpace(in.Code))]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": MsgVoucherNotFound})
		return
	}
	if valid, message := b.validityLocked(v); !valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": message})
		return
	}

	now := b.now().UTC()
	v.UsageCount++
	v.LastUsedAt = &now
	if v.UsageCount == 1 {
		v.FirstUsedAt = &now
	}
	s := &fakeSession{
		id:        int64(len(b.sessions) + 1),
		voucherID: v.ID,
		sessionID: uuid.NewString(),
		mac:       in.MACAddress,
		ip:        in.IPAddress,
		startedAt: now,
	}
	b.sessions = append(b.sessions, s)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": MsgVoucherRedeemed,
		"voucher": b.voucherPayloadLocked(v),
		"session": b.sessionPayloadLocked(s),
	})
}

func (b *FakeBackend) handleVoucherAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var v *FakeVoucher
	for _, candidate := range b.vouchers {
		if candidate.ID == id {
			v = candidate
		}
	}
	if v == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": MsgVoucherNotFound})
		return
	}

	var message string
	switch chi.URLParam(r, "action") {
	case "activate":
		v.Inactive = false
		message = "تم تفعيل الكرت بنجاح"
	case "deactivate":
		v.Inactive = true
		message = "تم إلغاء تفعيل الكرت بنجاح"
	case "reset":
		v.UsageCount = 0
		v.FirstUsedAt, v.LastUsedAt = nil, nil
		now := b.now().UTC()
		for _, s := range b.sessions {
			if s.voucherID == v.ID && s.endedAt == nil {
				s.endedAt = &now
			}
		}
		message = "تم إعادة تعيين الكرت بنجاح"
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "voucher": b.voucherPayloadLocked(v)})
}

func (b *FakeBackend) handleTerminate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil || id < 1 || int(id) > len(b.sessions) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}
	s := b.sessions[id-1]
	if s.endedAt == nil {
		now := b.now().UTC()
		s.endedAt = &now
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "تم إنهاء الجلسة بنجاح", "session": b.sessionPayloadLocked(s)})
}

func (b *FakeBackend) handleListSessions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	activeOnly := r.URL.Query().Get("active_only") == "true"

	b.mu.Lock()
	defer b.mu.Unlock()
	matched := make([]*fakeSession, 0, len(b.sessions))
	for _, s := range b.sessions {
		if !activeOnly || s.endedAt == nil {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].startedAt.After(matched[j].startedAt) })

	total := len(matched)
	pages := (total + perPage - 1) / perPage
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)
	items := make([]map[string]any, 0, end-start)
	for _, s := range matched[start:end] {
		items = append(items, b.sessionPayloadLocked(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": items,
		"pagination": map[string]any{
			"page":     page,
			"pages":    pages,
			"per_page": perPage,
			"total":    total,
			"has_next": page < pages,
			"has_prev": page > 1,
		},
	})
}

// validityLocked mirrors the backend's check order: inactive, expired, exhausted.
func (b *FakeBackend) validityLocked(v *FakeVoucher) (bool, string) {
	switch {
	case v.Inactive:
		return false, MsgVoucherDisabled
	case v.ExpiresAt != nil && b.now().After(*v.ExpiresAt):
		return false, MsgVoucherExpired
	case v.UsageCount >= v.MaxUsageCount:
		return false, MsgVoucherExhausted
	default:
		return true, MsgVoucherValid
	}
}

func (b *FakeBackend) voucherPayloadLocked(v *FakeVoucher) map[string]any {
	return map[string]any{
		"id":               v.ID,
		"code":             v.Code,
		"batch_id":         1,
		"value":            v.Value,
		"duration_minutes": v.DurationMinutes,
		"data_limit_mb":    v.DataLimitMb,
		"is_active":        !v.Inactive,
		"is_used":          v.UsageCount >= v.MaxUsageCount,
		"usage_count":      v.UsageCount,
		"max_usage_count":  v.MaxUsageCount,
		"expires_at":       formatTime(v.ExpiresAt),
		"first_used_at":    formatTime(v.FirstUsedAt),
		"last_used_at":     formatTime(v.LastUsedAt),
	}
}

func (b *FakeBackend) sessionPayloadLocked(s *fakeSession) map[string]any {
	end := b.now()
	if s.endedAt != nil {
		end = *s.endedAt
	}
	started := s.startedAt
	return map[string]any{
		"id":                 s.id,
		"voucher_id":         s.voucherID,
		"session_id":         s.sessionID,
		"mac_address":        nullable(s.mac),
		"ip_address":         nullable(s.ip),
		"data_uploaded_mb":   0.0,
		"data_downloaded_mb": 0.0,
		"total_data_mb":      0.0,
		"started_at":         formatTime(&started),
		"ended_at":           formatTime(s.endedAt),
		"duration_minutes":   int(end.Sub(s.startedAt).Minutes()),
		"is_active":          s.endedAt == nil,
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(backendTimeLayout)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "طلب غير صالح"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
