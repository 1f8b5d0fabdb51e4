package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

// MinSecretLength is the minimal HS512 key size in bytes (256 bits).
const MinSecretLength = 32

// MinTTL is the shortest token lifetime. Token timestamps have whole-second precision,
// so a shorter TTL would produce tokens whose expiry equals their issue time.
const MinTTL = time.Second

// DefaultIssuer is used when Config.Issuer is empty.
const DefaultIssuer = "fulus-pay"

const refreshTokenType = "refresh"

// ErrWeakSecret is returned by NewService when the signing key is shorter than MinSecretLength.
var ErrWeakSecret = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)

// ErrShortTTL is returned by NewService when a token lifetime is below MinTTL.
var ErrShortTTL = fmt.Errorf("jwt token TTLs must be at least %s", MinTTL)

var errUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// Config holds TokenService settings
type Config struct {
	Now        func() time.Time
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service issues and verifies HS512 session tokens.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	now        func() time.Time
	issuer     string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Claims is the token payload. Access tokens carry the identity claims,
// refresh tokens carry only Type = "refresh" on top of the registered claims.
type Claims struct {
	UserID      string `json:"userId,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Name        string `json:"name,omitempty"`
	Authorities string `json:"authorities,omitempty"`
	Type        string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// NewService creates a token service.
// The secret is validated here so that a weak key fails at startup, not per call.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if cfg.AccessTTL < MinTTL || cfg.RefreshTTL < MinTTL {
		return nil, ErrShortTTL
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		secret:     []byte(cfg.Secret),
		issuer:     issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}, nil
}

// AccessTTL returns the configured access token lifetime
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccessToken creates a signed access token for the identity
func (s *Service) IssueAccessToken(identity models.Identity) (string, time.Time, error) {
	if identity.SubjectID == "" {
		return "", time.Time{}, errors.New("identity has no subject id")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.accessTTL)

	claims := Claims{
		UserID:           identity.SubjectID,
		PhoneNumber:      identity.PhoneNumber,
		Name:             identity.Name,
		Authorities:      identity.Role.Authority(),
		RegisteredClaims: s.registered(identity.SubjectID, issuedAt, expiresAt),
	}

	token, err := s.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create access token: %w", err)
	}

	return token, claims.ExpiresAt.Time, nil
}

// IssueRefreshToken creates a minimal long-lived token used only to mint new access tokens
func (s *Service) IssueRefreshToken(subjectID string) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("subject id is empty")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.refreshTTL)

	claims := Claims{
		Type:             refreshTokenType,
		RegisteredClaims: s.registered(subjectID, issuedAt, expiresAt),
	}

	token, err := s.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return token, claims.ExpiresAt.Time, nil
}

// Verify checks an access token and returns the identity it carries.
// Failures are always *VerificationError. Refresh tokens are rejected as Malformed.
func (s *Service) Verify(token string) (models.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return models.Identity{}, err
	}

	if claims.Type != "" {
		return models.Identity{}, newVerificationError(ReasonMalformed, errors.New("not an access token"))
	}

	subject := claims.Subject
	if subject == "" || claims.UserID != subject {
		return models.Identity{}, newVerificationError(ReasonMalformed, errors.New("subject claims mismatch"))
	}

	role, ok := models.RoleFromAuthority(claims.Authorities)
	if !ok {
		return models.Identity{}, newVerificationError(ReasonMalformed, fmt.Errorf("unknown authority %q", claims.Authorities))
	}

	// Токены выдаются только активным и незаблокированным учетным записям
	return models.Identity{
		SubjectID:   subject,
		Name:        claims.Name,
		PhoneNumber: claims.PhoneNumber,
		Role:        role,
		Active:      true,
	}, nil
}

// VerifyRefresh checks a refresh token and returns its subject id
func (s *Service) VerifyRefresh(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}

	if claims.Type != refreshTokenType {
		return "", newVerificationError(ReasonMalformed, errors.New("not a refresh token"))
	}
	if claims.Subject == "" {
		return "", newVerificationError(ReasonMalformed, errors.New("missing subject"))
	}

	return claims.Subject, nil
}

// IsExpired reports whether the token can no longer be used.
// Any parse or verification failure counts as expired.
func (s *Service) IsExpired(token string) bool {
	_, err := s.parse(token)
	return err != nil
}

func (s *Service) registered(subject string, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (s *Service) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
}

func (s *Service) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, newVerificationError(ReasonMalformed, errors.New("empty token"))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}

	return claims, nil
}

// keyFunc pins the algorithm to HS512; anything else (including "none") is refused
// before the signature is checked.
func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
		return nil, errUnsupportedAlgorithm
	}
	return s.secret, nil
}

// classify maps golang-jwt errors onto the closed set of verification reasons
func classify(err error) *VerificationError {
	switch {
	case errors.Is(err, errUnsupportedAlgorithm), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newVerificationError(ReasonUnsupportedAlgorithm, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return newVerificationError(ReasonBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newVerificationError(ReasonExpired, err)
	default:
		return newVerificationError(ReasonMalformed, err)
	}
}
