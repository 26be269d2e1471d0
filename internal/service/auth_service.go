package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"workshop-service/internal/config"
	"workshop-service/internal/model"
	"workshop-service/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrProviderNotConfigured = errors.New("authentication provider not configured")
	ErrInvalidToken          = errors.New("invalid or expired token")
)

// TokenBundle is the structured result of parsing an OAuth callback fragment.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// userMetadata models the provider's profile claims as named optional fields
// instead of free-form map lookups.
type userMetadata struct {
	FullName  *string `json:"full_name,omitempty"`
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Picture   *string `json:"picture,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email"`
	UserMetadata userMetadata `json:"user_metadata"`
}

type AuthService interface {
	// AuthorizeURL builds the provider's Google authorize URL. It returns the
	// URL and the effective redirect target (the caller-supplied one, or the
	// configured frontend callback).
	AuthorizeURL(redirectTo string) (oauthURL, effectiveRedirect string, err error)
	// ExtractTokens parses an OAuth callback URL fragment of the form
	// #access_token=...&refresh_token=...&expires_in=... into a TokenBundle.
	ExtractTokens(callbackURL string) (*TokenBundle, error)
	// Verify validates the bearer token's HMAC signature and claims, then
	// resolves the local user, creating it on first sight.
	Verify(ctx context.Context, token string) (*model.User, error)
	// SignOut relays the signout to the provider, invalidating the token.
	SignOut(ctx context.Context, token string) error
}

type authService struct {
	cfg    config.Config
	users  repository.UserRepository
	client *http.Client
}

func NewAuthService(cfg config.Config, users repository.UserRepository) AuthService {
	return &authService{
		cfg:    cfg,
		users:  users,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *authService) AuthorizeURL(redirectTo string) (string, string, error) {
	if s.cfg.SupabaseURL == "" {
		return "", "", ErrProviderNotConfigured
	}

	if redirectTo == "" {
		redirectTo = strings.TrimSuffix(s.cfg.FrontendURL, "/") + "/auth/callback"
	}

	params := url.Values{
		"provider":    {"google"},
		"redirect_to": {redirectTo},
	}
	return s.cfg.SupabaseURL + "/auth/v1/authorize?" + params.Encode(), redirectTo, nil
}

func (s *authService) ExtractTokens(callbackURL string) (*TokenBundle, error) {
	parsed, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse callback URL: %w", err)
	}

	if parsed.Fragment == "" {
		return nil, errors.New("no URL fragment found; OAuth callback URLs carry tokens after #")
	}

	params, err := url.ParseQuery(parsed.Fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL fragment: %w", err)
	}

	accessToken := params.Get("access_token")
	if accessToken == "" {
		return nil, errors.New("no access_token found in URL fragment")
	}
	if strings.Count(accessToken, ".") != 2 {
		return nil, errors.New("invalid JWT format: token must have 3 dot-separated parts")
	}

	bundle := &TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: params.Get("refresh_token"),
		TokenType:    params.Get("token_type"),
	}
	if bundle.TokenType == "" {
		bundle.TokenType = "bearer"
	}

	if raw := params.Get("expires_in"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			bundle.ExpiresIn = secs
			bundle.ExpiresAt = time.Now().UTC().Add(time.Duration(secs) * time.Second).Format(time.RFC3339)
		}
	}

	return bundle, nil
}

func (s *authService) Verify(ctx context.Context, tokenString string) (*model.User, error) {
	if s.cfg.SupabaseJWTSecret == "" {
		return nil, ErrProviderNotConfigured
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.SupabaseJWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return s.users.Upsert(ctx, repository.UserProfile{
		Email:     claims.Email,
		Name:      displayName(claims),
		SubjectID: &claims.Subject,
		AvatarURL: coalesce(claims.UserMetadata.AvatarURL, claims.UserMetadata.Picture),
	})
}

func (s *authService) SignOut(ctx context.Context, tokenString string) error {
	if s.cfg.SupabaseURL == "" {
		return ErrProviderNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SupabaseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tokenString)
	req.Header.Set("apikey", s.cfg.SupabaseKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider signout failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("provider signout failed: status %d", resp.StatusCode)
	}
	return nil
}

func displayName(claims *accessClaims) string {
	if name := coalesce(claims.UserMetadata.FullName, claims.UserMetadata.Name); name != nil {
		return *name
	}
	local, _, _ := strings.Cut(claims.Email, "@")
	return local
}

func coalesce(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
