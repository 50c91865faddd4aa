package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/sumire/pouchlog/internal/domain"
)

// AccountStore defines the user data access interface consumed by AuthService.
type AccountStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	UpsertOAuth(ctx context.Context, user domain.User) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, id int64, displayName, timezone string) error
}

// VerificationStore defines the email verification token interface.
type VerificationStore interface {
	Create(ctx context.Context, v domain.EmailVerification) (*domain.EmailVerification, error)
	FindByToken(ctx context.Context, token string) (*domain.EmailVerification, error)
	MarkVerified(ctx context.Context, id int64, at time.Time) error
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	JWTSecret          string
	BaseURL            string
}

const verificationTTL = 48 * time.Hour

// AuthService handles local and OAuth authentication.
type AuthService struct {
	users     AccountStore
	tokens    VerificationStore
	mailer    EmailSender
	jwtSecret []byte
	baseURL   string
	google    *oauth2.Config
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users AccountStore, tokens VerificationStore, mailer EmailSender, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		jwtSecret: []byte(cfg.JWTSecret),
		baseURL:   cfg.BaseURL,
		google: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     googleOAuth.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.BaseURL + "/auth/google/callback",
		},
		now: time.Now,
	}
}

// TokenPair holds an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput is the payload for creating a local account.
type RegisterInput struct {
	Email       string `json:"email" form:"email" validate:"required,email,max=254"`
	Password    string `json:"password" form:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" form:"display_name" validate:"required,max=80"`
	Timezone    string `json:"timezone" form:"timezone" validate:"omitempty,max=64"`
}

// Register creates a local account, queues a verification email, and returns
// the user with a signed token pair. The verification email is best effort;
// registration succeeds even when the mailer is down.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, *TokenPair, error) {
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return nil, nil, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidInput, in.Timezone)
		}
	} else {
		in.Timezone = "UTC"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)

	user, err := s.users.Create(ctx, domain.User{
		Email:        in.Email,
		PasswordHash: &hashStr,
		Provider:     domain.AuthProviderLocal,
		DisplayName:  in.DisplayName,
		Timezone:     in.Timezone,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.SendVerification(ctx, user); err != nil {
		slog.Warn("could not send verification email", "user_id", user.ID, "error", err)
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies local credentials and returns a token pair. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, domain.ErrUnauthorized
	}
	if user.Provider != domain.AuthProviderLocal || user.PasswordHash == nil {
		return nil, nil, domain.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrUnauthorized
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// GoogleAuthURL returns the Google OAuth authorization URL.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.google.AuthCodeURL(state)
}

// GoogleCallback exchanges the authorization code, upserts the account, and
// returns a JWT pair.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*domain.User, *TokenPair, error) {
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("google token exchange: %w", err)
	}

	info, err := fetchGoogleUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch google user info: %w", err)
	}

	providerID := info.ID
	user, err := s.users.UpsertOAuth(ctx, domain.User{
		Email:       info.Email,
		Provider:    domain.AuthProviderGoogle,
		ProviderID:  &providerID,
		DisplayName: info.Name,
		Timezone:    "UTC",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert google user: %w", err)
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// SendVerification issues a fresh token and emails the confirmation link.
func (s *AuthService) SendVerification(ctx context.Context, user *domain.User) error {
	if user.EmailVerified {
		return nil
	}
	if !s.mailer.Configured() {
		return fmt.Errorf("email not configured")
	}

	rec, err := s.tokens.Create(ctx, domain.EmailVerification{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(verificationTTL),
	})
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/verify/%s", s.baseURL, rec.Token)
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Please confirm your email address by clicking the link below:</p><p><a href="%s">Verify my email</a></p><p>The link expires in 48 hours.</p>`,
		user.DisplayName, link)
	return s.mailer.Send(user.Email, "Confirm your email address", body)
}

// VerifyEmail consumes a verification token. Expired tokens return
// ErrInvalidInput; already-used tokens return ErrConflict.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	rec, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		return err
	}

	now := s.now()
	if rec.Expired(now) {
		return fmt.Errorf("%w: verification link expired", domain.ErrInvalidInput)
	}

	if err := s.tokens.MarkVerified(ctx, rec.ID, now); err != nil {
		return err
	}
	return s.users.MarkEmailVerified(ctx, rec.UserID)
}

// ValidateToken validates a JWT access token and returns the user ID.
func (s *AuthService) ValidateToken(tokenString string) (int64, error) {
	claims, err := s.parseToken(tokenString, "access")
	if err != nil {
		return 0, err
	}
	userID, ok := claims["sub"].(float64)
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	return int64(userID), nil
}

// RefreshAccessToken validates a refresh token and returns a new token pair.
func (s *AuthService) RefreshAccessToken(refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	userID, ok := claims["sub"].(float64)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return s.generateTokenPair(int64(userID))
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// UpdateProfileInput is the payload for profile edits.
type UpdateProfileInput struct {
	DisplayName string `json:"display_name" form:"display_name" validate:"required,max=80"`
	Timezone    string `json:"timezone" form:"timezone" validate:"required,max=64"`
}

// UpdateProfile changes display name and timezone.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (*domain.User, error) {
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidInput, in.Timezone)
	}
	if err := s.users.UpdateProfile(ctx, userID, in.DisplayName, in.Timezone); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) parseToken(tokenString, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	if tokenType, _ := claims["type"].(string); tokenType != wantType {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) generateTokenPair(userID int64) (*TokenPair, error) {
	now := s.now()

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"type": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
	})
	accessStr, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"type": "refresh",
		"iat":  now.Unix(),
		"exp":  now.Add(7 * 24 * time.Hour).Unix(),
	})
	refreshStr, err := refreshToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
	}, nil
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func fetchGoogleUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}
