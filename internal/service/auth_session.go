package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/metrics"
	"github.com/Alqudimi/wifi-network-manager/internal/transport"
	"github.com/Alqudimi/wifi-network-manager/internal/util"
)

// renewalState is the per-operation renewal sub-machine.
type renewalState uint8

const (
	renewalAttempting renewalState = iota
	renewalExhausted
)

// renewalBudget allows exactly one renewal. spend moves attempting to exhausted.
type renewalBudget struct {
	state renewalState
}

func (b *renewalBudget) spend() bool {
	if b.state == renewalExhausted {
		return false
	}
	b.state = renewalExhausted
	return true
}

var errRenewalSpent = errors.New("token renewal already attempted")

// VerifySession checks the stored credential against the profile endpoint and
// settles the lifecycle state. It makes at most one renewal attempt. Concurrent
// callers share a single verification.
//
// It returns false with a nil error when no credential is stored and false with a
// session_expired error when the credential was rejected and renewal also failed;
// in both cases the session is cleared. Network failures leave the stored credential
// in place and are returned as-is.
func (s *AuthService) VerifySession(ctx context.Context) (bool, error) {
	v, err, _ := s.flights.Do("verify", func() (any, error) {
		return s.verify(ctx)
	})
	ok, _ := v.(bool)
	return ok, err
}

func (s *AuthService) verify(ctx context.Context) (bool, error) {
	gen := s.currentGeneration()

	cred, ok := s.sessions.Credential(ctx)
	if !ok || cred.AccessToken == "" {
		s.settleAnonymous(ctx, gen)
		return false, nil
	}
	if s.State() == domainauth.StateAnonymous {
		s.setState(domainauth.StateAuthenticating)
	}

	var budget renewalBudget
	if cred.AccessExpired(s.now(), s.renewSkew) {
		renewed, err := s.renew(ctx, gen, cred, &budget)
		if err != nil {
			return s.failVerify(ctx, gen, err)
		}
		cred = renewed
	}

	identity, err := s.fetchProfile(ctx, cred)
	if err != nil && !isTransient(err) && budget.state == renewalAttempting {
		renewed, renewErr := s.renew(ctx, gen, cred, &budget)
		if renewErr != nil {
			return s.failVerify(ctx, gen, renewErr)
		}
		identity, err = s.fetchProfile(ctx, renewed)
	}
	if err != nil {
		return s.failVerify(ctx, gen, err)
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if gen != s.generation {
		// A login or logout started meanwhile and owns the session now.
		return false, apperrors.Canceled("verification superseded by a newer attempt")
	}
	s.sessions.SetIdentity(identity)
	s.setState(domainauth.StateAuthenticated)
	return true, nil
}

func (s *AuthService) failVerify(ctx context.Context, gen uint64, err error) (bool, error) {
	if isTransient(err) {
		s.interrupted(ctx)
		return false, err
	}
	if s.settleAnonymous(ctx, gen) {
		s.logger.InfoContext(ctx, "session verification failed", "error", err)
	}
	return false, apperrors.Recode(err, apperrors.ErrCodeSessionExpired)
}

// interrupted restores a settled state after a network failure without touching the
// stored credential.
func (s *AuthService) interrupted(ctx context.Context) {
	if s.sessions.Snapshot().Authenticated {
		s.setState(domainauth.StateAuthenticated)
		return
	}
	s.setState(domainauth.StateAnonymous)
	s.logger.WarnContext(ctx, "session verification interrupted; credential kept for the next attempt")
}

func (s *AuthService) fetchProfile(ctx context.Context, cred domainauth.Credential) (*domainauth.Identity, error) {
	var resp profileResponse
	req := transport.Request{Method: http.MethodGet, Path: pathProfile, Token: cred.OAuth2Token()}
	if err := s.transport.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, apperrors.ServerError("malformed response from server: missing user")
	}
	return resp.User, nil
}

// renew spends budget on one refresh-token exchange and persists the result.
// Concurrent renewals of the same generation share one backend call; a newer
// generation never joins a flight started by an older one.
func (s *AuthService) renew(ctx context.Context, gen uint64, cred domainauth.Credential, budget *renewalBudget) (domainauth.Credential, error) {
	if !budget.spend() {
		return cred, errRenewalSpent
	}
	if cred.RefreshToken == "" {
		return cred, apperrors.SessionExpired("no refresh token stored")
	}

	v, err, _ := s.flights.Do(renewFlightKey(gen), func() (any, error) {
		return s.exchangeRefreshToken(ctx, gen, cred)
	})
	if err != nil {
		return cred, err
	}
	return v.(domainauth.Credential), nil
}

func renewFlightKey(gen uint64) string {
	return "renew:" + strconv.FormatUint(gen, 10)
}

func (s *AuthService) exchangeRefreshToken(ctx context.Context, gen uint64, cred domainauth.Credential) (domainauth.Credential, error) {
	prev := s.State()
	s.setState(domainauth.StateRefreshing)
	defer func() {
		if s.State() == domainauth.StateRefreshing {
			s.setState(prev)
		}
	}()

	var resp refreshResponse
	req := transport.Request{
		Method: http.MethodPost,
		Path:   pathRefresh,
		Body:   refreshRequest{RefreshToken: cred.RefreshToken},
	}
	err := s.transport.Do(ctx, req, &resp)
	if err == nil && resp.AccessToken == "" {
		err = apperrors.ServerError("malformed response from server: missing access token")
	}
	metrics.EmitRenewal(s.metrics, err)
	if err != nil {
		s.logger.InfoContext(ctx, "token renewal failed",
			"error_code", apperrors.GetCode(err),
			"refresh_token", util.RedactToken(cred.RefreshToken))
		return cred, err
	}

	next := cred.WithAccessToken(resp.AccessToken)
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if gen != s.generation {
		return cred, apperrors.Canceled("renewal superseded by a newer attempt")
	}
	if err := s.sessions.SetCredential(ctx, &next); err != nil {
		// Memory still holds the previous pair; the renewed token is used for this
		// call only and the next start renews again.
		s.logger.WarnContext(ctx, "persist renewed credential failed", "error", err)
	}
	s.logger.DebugContext(ctx, "access token renewed", "access_token", util.RedactToken(next.AccessToken))
	return next, nil
}

// authorizedCall is one request sent under the stored credential.
type authorizedCall struct {
	req transport.Request
	out any
	// rejectCode, when set, maps a 401 on the request itself to that code instead of
	// triggering a renewal. Used where 401 means "wrong password", not "stale token".
	rejectCode apperrors.ErrorCode
}

// Do sends an authorized request. A stale access token is renewed at most once per
// call, either up front when its exp has passed or after a 401, and the request is
// retried once. When renewal fails the session is cleared and session_expired returned.
func (s *AuthService) Do(ctx context.Context, method, path string, in, out any) error {
	return s.authorized(ctx, authorizedCall{
		req: transport.Request{Method: method, Path: path, Body: in},
		out: out,
	})
}

// Call sends the request with the stored credential when one is held and
// anonymously otherwise. Call is for endpoints that also serve guests: when the
// stored session turns out to be expired and cannot be renewed, the session is
// cleared and the request is sent once more without a credential.
func (s *AuthService) Call(ctx context.Context, method, path string, in, out any) error {
	req := transport.Request{Method: method, Path: path, Body: in}
	if cred, ok := s.sessions.Credential(ctx); ok && !cred.IsZero() {
		err := s.authorized(ctx, authorizedCall{req: req, out: out})
		if !apperrors.IsSessionExpired(err) {
			return err
		}
		s.logger.InfoContext(ctx, "stored session rejected, retrying as guest", "path", path)
	}
	return s.transport.Do(ctx, req, out)
}

func (s *AuthService) authorized(ctx context.Context, call authorizedCall) error {
	gen := s.currentGeneration()
	cred, ok := s.sessions.Credential(ctx)
	if !ok || cred.IsZero() {
		return apperrors.SessionExpired("not signed in")
	}

	var budget renewalBudget
	if cred.AccessToken == "" || cred.AccessExpired(s.now(), s.renewSkew) {
		renewed, err := s.renew(ctx, gen, cred, &budget)
		if err != nil {
			return s.expire(ctx, gen, err)
		}
		cred = renewed
	}

	call.req.Token = cred.OAuth2Token()
	err := s.transport.Do(ctx, call.req, call.out)
	if err == nil || !apperrors.IsSessionExpired(err) {
		return err
	}
	if call.rejectCode != "" {
		return apperrors.Recode(err, call.rejectCode)
	}

	renewed, renewErr := s.renew(ctx, gen, cred, &budget)
	if renewErr != nil {
		return s.expire(ctx, gen, renewErr)
	}
	call.req.Token = renewed.OAuth2Token()
	err = s.transport.Do(ctx, call.req, call.out)
	if apperrors.IsSessionExpired(err) {
		return s.expire(ctx, gen, err)
	}
	return err
}

// expire ends the session after a failed renewal. Transient failures keep it.
func (s *AuthService) expire(ctx context.Context, gen uint64, err error) error {
	if isTransient(err) {
		return err
	}
	if s.settleAnonymous(ctx, gen) {
		s.logger.InfoContext(ctx, "session expired", "error", err)
	}
	if errors.Is(err, errRenewalSpent) {
		return apperrors.Wrap(err, apperrors.ErrCodeSessionExpired, "session expired, please sign in again")
	}
	return apperrors.Recode(err, apperrors.ErrCodeSessionExpired)
}

// ChangePassword asks the backend to replace the account password. It never changes
// session state: a rejected current password is reported as invalid_credentials and
// the caller decides whether to sign in again.
func (s *AuthService) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" {
		return apperrors.ValidationField("current_password", "current password is required")
	}
	if next == "" {
		return apperrors.ValidationField("new_password", "new password is required")
	}

	return s.authorized(ctx, authorizedCall{
		req: transport.Request{
			Method: http.MethodPost,
			Path:   pathChangePassword,
			Body:   changePasswordRequest{CurrentPassword: current, NewPassword: next},
		},
		rejectCode: apperrors.ErrCodeInvalidCredentials,
	})
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	FullName string
	Phone    string
}

// UpdateProfile saves the profile and publishes the updated identity.
func (s *AuthService) UpdateProfile(ctx context.Context, in ProfileUpdate) (*domainauth.Identity, error) {
	gen := s.currentGeneration()

	var resp profileResponse
	if err := s.Do(ctx, http.MethodPut, pathProfile, profileUpdateRequest(in), &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, apperrors.ServerError("malformed response from server: missing user")
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if gen != s.generation {
		return nil, apperrors.Canceled("profile update superseded by a newer attempt")
	}
	s.sessions.SetIdentity(resp.User)
	return resp.User.Clone(), nil
}
