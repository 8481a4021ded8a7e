// Package session issues and validates signed player session tokens.
//
// Tokens are stateless: validity is a pure function of the token and the
// server-held HMAC secret, so a process restart with a new secret invalidates
// every outstanding token and clients must rejoin. There is no revocation
// list; logout is client-local.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
)

// TokenLifetime is the fixed validity window for issued session tokens.
const TokenLifetime = 24 * time.Hour

// signingMethod pins the accepted JWT algorithm.
const signingMethod = "HS256"

var (
	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = apperrors.New(apperrors.CodeAuthExpired, "session token expired")
	// ErrTokenMalformed indicates the token failed signature or structure checks.
	ErrTokenMalformed = apperrors.New(apperrors.CodeAuthInvalid, "session token malformed")
	// ErrTokenUnknown indicates the referenced campaign or player no longer exists.
	ErrTokenUnknown = apperrors.New(apperrors.CodeAuthInvalid, "session token references unknown campaign or player")
)

// Claims captures the validated identity carried by a session token.
type Claims struct {
	CampaignID string
	PlayerID   string
	PlayerName string
	IsDM       bool
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// tokenClaims is the internal claims type used for JWT signing and parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	CampaignID string `json:"campaign_id"`
	PlayerName string `json:"player_name"`
	IsDM       bool   `json:"is_dm"`
}

// Directory answers whether a campaign/player pair still exists.
//
// Validation consults it after signature checks so tokens for deleted
// campaigns or players are rejected as unknown rather than accepted.
type Directory interface {
	HasPlayer(campaignID, playerID string) bool
}

// Registry issues and validates session tokens for one signing secret.
type Registry struct {
	secret    []byte
	directory Directory
	now       func() time.Time
}

// NewRegistry creates a registry from a hex-encoded HMAC secret.
//
// directory may be nil, in which case existence checks are skipped; the
// server always wires one so stale tokens fail with ErrTokenUnknown.
func NewRegistry(hexSecret string, directory Directory, now func() time.Time) (*Registry, error) {
	hexSecret = strings.TrimSpace(hexSecret)
	if hexSecret == "" {
		return nil, errors.New("session hmac key is required")
	}
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("decode session hmac key: %w", err)
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("session hmac key must be at least 32 bytes, got %d", len(secret))
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		secret:    secret,
		directory: directory,
		now:       now,
	}, nil
}

// Issue signs a token for the given player identity. It always succeeds for
// a configured registry and embeds the fixed 24 hour expiry.
func (r *Registry) Issue(campaignID, playerID, playerName string, isDM bool) (string, error) {
	issuedAt := r.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TokenLifetime)),
		},
		CampaignID: campaignID,
		PlayerName: playerName,
		IsDM:       isDM,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token and returns the identity it carries.
//
// Failures distinguish ErrTokenExpired (past expiry), ErrTokenMalformed
// (signature or structure) and ErrTokenUnknown (campaign or player gone).
func (r *Registry) Validate(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenMalformed
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}

	if parsed.Subject == "" || parsed.CampaignID == "" || parsed.ExpiresAt == nil {
		return Claims{}, ErrTokenMalformed
	}

	if r.directory != nil && !r.directory.HasPlayer(parsed.CampaignID, parsed.Subject) {
		return Claims{}, ErrTokenUnknown
	}

	claims := Claims{
		CampaignID: parsed.CampaignID,
		PlayerID:   parsed.Subject,
		PlayerName: parsed.PlayerName,
		IsDM:       parsed.IsDM,
		ExpiresAt:  parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}
