package handler

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/pouchlog/internal/domain"
	"github.com/sumire/pouchlog/internal/service"
)

// AuthHandler handles registration, login and OAuth endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register creates a local account and starts a session.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	user, tokens, err := h.auth.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}

	setSessionCookies(c, tokens)
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return JSON(c, http.StatusCreated, map[string]any{"user": user, "tokens": tokens})
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	user, tokens, err := h.auth.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		if wantsHTML(c) {
			return c.Redirect(http.StatusSeeOther, "/login?error=invalid")
		}
		return err
	}

	setSessionCookies(c, tokens)
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return JSON(c, http.StatusOK, map[string]any{"user": user, "tokens": tokens})
}

// Logout clears the session cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	clearSessionCookies(c)
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return c.NoContent(http.StatusNoContent)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// Refresh generates a new token pair from a refresh token, taken from the
// body or the session cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var in refreshRequest
	_ = c.Bind(&in)
	if in.RefreshToken == "" {
		if cookie, err := c.Cookie(refreshCookie); err == nil {
			in.RefreshToken = cookie.Value
		}
	}
	if in.RefreshToken == "" {
		return fmt.Errorf("%w: refresh_token is required", domain.ErrInvalidInput)
	}

	tokens, err := h.auth.RefreshAccessToken(in.RefreshToken)
	if err != nil {
		return err
	}

	setSessionCookies(c, tokens)
	return JSON(c, http.StatusOK, tokens)
}

// GoogleRedirect sends the user to Google's OAuth consent page.
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	state := generateState()
	c.SetCookie(&http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GoogleAuthURL(state))
}

// GoogleCallback handles the OAuth callback from Google.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	stateCookie, err := c.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.QueryParam("state") {
		return fmt.Errorf("%w: oauth state mismatch", domain.ErrInvalidInput)
	}

	code := c.QueryParam("code")
	if code == "" {
		return fmt.Errorf("%w: missing code parameter", domain.ErrInvalidInput)
	}

	_, tokens, err := h.auth.GoogleCallback(c.Request().Context(), code)
	if err != nil {
		return err
	}

	setSessionCookies(c, tokens)
	return c.Redirect(http.StatusSeeOther, "/")
}

// VerifyEmail consumes an email verification token from the link in the
// confirmation email.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	if err := h.auth.VerifyEmail(c.Request().Context(), c.Param("token")); err != nil {
		return err
	}
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/settings?verified=1")
	}
	return JSON(c, http.StatusOK, map[string]string{"status": "verified"})
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	user, err := h.auth.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, user)
}

// UpdateProfile changes the user's display name and timezone.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var in service.UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	user, err := h.auth.UpdateProfile(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, user)
}

// ResendVerification sends a fresh confirmation email.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	user, err := h.auth.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if err := h.auth.SendVerification(c.Request().Context(), user); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]string{"status": "sent"})
}

// wantsHTML reports whether the request came from a browser form rather
// than an API client.
func wantsHTML(c echo.Context) bool {
	return !isAPIRequest(c)
}

func setSessionCookies(c echo.Context, tokens *service.TokenPair) {
	c.SetCookie(&http.Cookie{
		Name:     accessCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   15 * 60,
	})
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   7 * 24 * 60 * 60,
	})
}

func clearSessionCookies(c echo.Context) {
	for _, name := range []string{accessCookie, refreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}

func generateState() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
