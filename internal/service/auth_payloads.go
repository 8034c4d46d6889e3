package service

import (
	"strings"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
)

// Backend auth routes, relative to the API base URL.
const (
	pathLogin          = "/auth/login"
	pathRegister       = "/auth/register"
	pathLogout         = "/auth/logout"
	pathRefresh        = "/auth/refresh"
	pathProfile        = "/auth/profile"
	pathChangePassword = "/auth/change-password"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// tokenResponse is returned by login and register.
type tokenResponse struct {
	Message      string               `json:"message"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	User         *domainauth.Identity `json:"user"`
}

func (r tokenResponse) validate() error {
	if r.AccessToken == "" || r.RefreshToken == "" {
		return apperrors.ServerError("malformed response from server: missing token pair")
	}
	if r.User == nil || strings.TrimSpace(r.User.Username) == "" {
		return apperrors.ServerError("malformed response from server: missing user")
	}
	return nil
}

func (r tokenResponse) credential() domainauth.Credential {
	return domainauth.Credential{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshResponse carries a new access token. Backends that rotate refresh tokens
// also return the replacement refresh token.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type profileResponse struct {
	Message string               `json:"message,omitempty"`
	User    *domainauth.Identity `json:"user"`
}

type profileUpdateRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
