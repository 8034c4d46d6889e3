package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Alqudimi/wifi-network-manager/config"
	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/metrics"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/statsd"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
	"github.com/Alqudimi/wifi-network-manager/internal/transport"
	"github.com/Alqudimi/wifi-network-manager/internal/util"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Transport ports.Transport    // Required
	Sessions  ports.SessionStore // Required: the service is its only writer
	Config    config.AuthConfig
	Metrics   statsd.Sink  // Optional
	Logger    *slog.Logger // Optional
	// Now overrides the clock used for proactive renewal. Tests only.
	Now func() time.Time
}

// AuthService is the authentication lifecycle manager. It acquires, renews and
// discards the credential pair and keeps the session store's identity in step.
//
// Every login, register and logout takes a new generation. Results of an older
// generation are discarded, so the most recently started attempt wins.
type AuthService struct {
	transport ports.Transport
	sessions  ports.SessionStore
	metrics   statsd.Sink
	logger    *slog.Logger
	renewSkew time.Duration
	now       func() time.Time

	// commitMu serializes the generation check with the session store write it guards.
	commitMu   sync.Mutex
	generation uint64

	stateMu sync.RWMutex
	state   domainauth.State

	flights singleflight.Group
}

var _ ports.Caller = (*AuthService)(nil)

// NewAuthService constructs a new AuthService in the anonymous state.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Transport == nil {
		return nil, errors.New("Transport is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("Sessions is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	cfg.Sanitize()

	return &AuthService{
		transport: opts.Transport,
		sessions:  opts.Sessions,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "auth_service"),
		renewSkew: cfg.RenewSkew,
		now:       now,
		state:     domainauth.StateAnonymous,
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	svc, err := NewAuthService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// State returns the current lifecycle state.
func (s *AuthService) State() domainauth.State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Snapshot returns the session store's {identity, authenticated} pair.
func (s *AuthService) Snapshot() domainauth.Snapshot {
	return s.sessions.Snapshot()
}

func (s *AuthService) setState(to domainauth.State) {
	s.stateMu.Lock()
	from := s.state
	s.state = to
	s.stateMu.Unlock()

	if from != to {
		metrics.EmitAuthTransition(s.metrics, string(from), string(to))
		s.logger.Debug("auth state changed", "from", from, "to", to)
	}
}

// begin starts a new generation, invalidating every attempt still in flight.
func (s *AuthService) begin() uint64 {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.generation++
	return s.generation
}

func (s *AuthService) currentGeneration() uint64 {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.generation
}

// resetLocked clears the session store and settles anonymous. commitMu must be held.
func (s *AuthService) resetLocked(ctx context.Context) {
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear stored credentials failed", "error", err)
	}
	s.setState(domainauth.StateAnonymous)
}

// settleAnonymous clears the session unless a newer generation has taken over.
// It reports whether the reset happened.
func (s *AuthService) settleAnonymous(ctx context.Context, gen uint64) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if gen != s.generation {
		return false
	}
	s.resetLocked(ctx)
	return true
}

// Login exchanges username and password for a credential pair and identity.
// On failure the session store ends anonymous.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domainauth.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.ValidationField("username", "username is required")
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	return s.authenticate(ctx, "login", pathLogin, loginRequest{
		Username: username,
		Password: password,
	})
}

// RegisterInput holds the profile fields for a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
}

// Register creates an account and signs it in with the returned credential pair.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domainauth.Identity, error) {
	req := registerRequest{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
	}
	switch {
	case req.Username == "":
		return nil, apperrors.ValidationField("username", "username is required")
	case req.Email == "":
		return nil, apperrors.ValidationField("email", "email is required")
	case req.Password == "":
		return nil, apperrors.ValidationField("password", "password is required")
	}

	return s.authenticate(ctx, "register", pathRegister, req)
}

func (s *AuthService) authenticate(ctx context.Context, op, path string, body any) (*domainauth.Identity, error) {
	gen := s.begin()
	s.setState(domainauth.StateAuthenticating)

	var resp tokenResponse
	err := s.transport.Do(ctx, transport.Request{Method: http.MethodPost, Path: path, Body: body}, &resp)
	if err == nil {
		err = resp.validate()
	}
	if err != nil {
		err = credentialError(err)
		if !s.settleAnonymous(ctx, gen) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeCanceled, op+" superseded by a newer attempt")
		}
		s.logger.InfoContext(ctx, op+" failed", "error_code", apperrors.GetCode(err))
		return nil, err
	}

	identity, err := s.commitLogin(ctx, gen, resp)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, op+" succeeded",
		"user_id", identity.ID,
		"email", util.RedactEmail(identity.Email),
		"role", identity.Role)
	return identity, nil
}

// commitLogin stores the pair and the identity as one step of generation gen.
func (s *AuthService) commitLogin(ctx context.Context, gen uint64, resp tokenResponse) (*domainauth.Identity, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if gen != s.generation {
		return nil, apperrors.Canceled("login superseded by a newer attempt")
	}

	cred := resp.credential()
	if err := s.sessions.SetCredential(ctx, &cred); err != nil {
		s.resetLocked(ctx)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServerError, "could not store credentials")
	}
	s.sessions.SetIdentity(resp.User)
	s.setState(domainauth.StateAuthenticated)
	return resp.User.Clone(), nil
}

// credentialError maps a rejected login or register to InvalidCredentials while
// keeping the backend's message.
func credentialError(err error) error {
	if apperrors.GetStatus(err) == http.StatusUnauthorized {
		return apperrors.Recode(err, apperrors.ErrCodeInvalidCredentials)
	}
	return err
}

// Logout notifies the backend when a credential is held and then clears the session.
// The remote call is best effort; its failure is logged and never returned. Only a
// failure to clear durable storage is reported, after memory has been cleared anyway.
func (s *AuthService) Logout(ctx context.Context) error {
	s.begin()

	if cred, ok := s.sessions.Credential(ctx); ok && cred.AccessToken != "" {
		req := transport.Request{Method: http.MethodPost, Path: pathLogout, Token: cred.OAuth2Token()}
		if err := s.transport.Do(ctx, req, nil); err != nil {
			s.logger.WarnContext(ctx, "remote logout failed", "error", err)
		}
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	err := s.sessions.Clear(ctx)
	s.setState(domainauth.StateAnonymous)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeServerError, "could not clear stored credentials")
	}
	s.logger.InfoContext(ctx, "logout completed")
	return nil
}

func isTransient(err error) bool {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNetworkUnavailable, apperrors.ErrCodeTimeout, apperrors.ErrCodeCanceled:
		return true
	default:
		return false
	}
}
