package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef-test-key"

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, clock *testClock, secret string) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Secret:     secret,
		Issuer:     "fulus-pay-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	return svc
}

func testIdentity() models.Identity {
	return models.Identity{
		SubjectID:   "b7e1c6a4-2f0e-4d7e-9d35-1f4c0e8b9a11",
		Name:        "Ada Obi",
		PhoneNumber: "+2348012345678",
		Role:        models.RoleAdmin,
		Active:      true,
	}
}

func requireReason(t *testing.T, err error, want Reason) {
	t.Helper()
	require.Error(t, err)
	reason, ok := ReasonOf(err)
	require.True(t, ok, "expected *VerificationError, got %T", err)
	assert.Equal(t, want, reason)
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid config",
			cfg:  Config{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour},
		},
		{
			name:    "secret shorter than 256 bits",
			cfg:     Config{Secret: strings.Repeat("k", MinSecretLength-1), AccessTTL: time.Minute, RefreshTTL: time.Hour},
			wantErr: ErrWeakSecret,
		},
		{
			name:    "empty secret",
			cfg:     Config{AccessTTL: time.Minute, RefreshTTL: time.Hour},
			wantErr: ErrWeakSecret,
		},
		{
			name:    "zero access ttl",
			cfg:     Config{Secret: testSecret, RefreshTTL: time.Hour},
			wantErr: ErrShortTTL,
		},
		{
			name:    "sub-second access ttl",
			cfg:     Config{Secret: testSecret, AccessTTL: 500 * time.Millisecond, RefreshTTL: time.Hour},
			wantErr: ErrShortTTL,
		},
		{
			name:    "sub-second refresh ttl",
			cfg:     Config{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: 999 * time.Millisecond},
			wantErr: ErrShortTTL,
		},
		{
			name: "one second ttl",
			cfg:  Config{Secret: testSecret, AccessTTL: MinTTL, RefreshTTL: MinTTL},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestMinTTL_TokenOutlivesIssue(t *testing.T) {
	// Момент выдачи не на границе секунды: exp округляется вниз
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 200_000_000, time.UTC)}
	svc, err := NewService(Config{Secret: testSecret, AccessTTL: MinTTL, RefreshTTL: MinTTL, Now: clock.Now})
	require.NoError(t, err)

	token, _, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.NoError(t, err)
	assert.False(t, svc.IsExpired(token))
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, testSecret)

	token, expiresAt, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(15*time.Minute), expiresAt)
	assert.Equal(t, 3, strings.Count(token, ".")+1)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity(), identity)

	// повторная проверка возвращает тот же снимок
	again, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, identity, again)
}

func TestAccessTokenClaims(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, testSecret)

	token, _, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	claims := &Claims{}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, "HS512", parsed.Method.Alg())
	assert.Equal(t, testIdentity().SubjectID, claims.Subject)
	assert.Equal(t, testIdentity().SubjectID, claims.UserID)
	assert.Equal(t, "+2348012345678", claims.PhoneNumber)
	assert.Equal(t, "Ada Obi", claims.Name)
	assert.Equal(t, "ROLE_ADMIN", claims.Authorities)
	assert.Equal(t, "fulus-pay-test", claims.Issuer)
	assert.Empty(t, claims.Type)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := &testClock{now: issuedAt}
	svc := newTestService(t, clock, testSecret)

	token, _, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	clock.now = issuedAt.Add(15*time.Minute - time.Second)
	_, err = svc.Verify(token)
	require.NoError(t, err)
	assert.False(t, svc.IsExpired(token))

	clock.now = issuedAt.Add(15*time.Minute + time.Second)
	_, err = svc.Verify(token)
	requireReason(t, err, ReasonExpired)
	assert.ErrorIs(t, err, ErrExpired)
	assert.True(t, svc.IsExpired(token))
}

func TestVerify_Classification(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, testSecret)
	other := newTestService(t, clock, strings.Repeat("x", 64))

	foreign, _, err := other.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	valid, _, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	superAdmin := testIdentity()
	superAdmin.Role = models.RoleSuperAdmin
	elevated, _, err := svc.IssueAccessToken(superAdmin)
	require.NoError(t, err)

	// подпись от одного токена, payload от другого
	validParts := strings.Split(valid, ".")
	elevatedParts := strings.Split(elevated, ".")
	spliced := validParts[0] + "." + elevatedParts[1] + "." + validParts[2]

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:      "x",
		Authorities: "ROLE_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			Issuer:    "fulus-pay-test",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:      "x",
		Authorities: "ROLE_SUPER_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			Issuer:    "fulus-pay-test",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongIssuer, err := NewService(Config{
		Secret: testSecret, Issuer: "someone-else",
		AccessTTL: time.Minute, RefreshTTL: time.Hour, Now: clock.Now,
	})
	require.NoError(t, err)
	wrongIssuerToken, _, err := wrongIssuer.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	refresh, _, err := svc.IssueRefreshToken(testIdentity().SubjectID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  Reason
	}{
		{name: "signed with another key", token: foreign, want: ReasonBadSignature},
		{name: "spliced payload", token: spliced, want: ReasonBadSignature},
		{name: "HS256 with the right key", token: hs256, want: ReasonUnsupportedAlgorithm},
		{name: "alg none", token: none, want: ReasonUnsupportedAlgorithm},
		{name: "empty", token: "", want: ReasonMalformed},
		{name: "garbage", token: "not-a-token", want: ReasonMalformed},
		{name: "two segments", token: "aaa.bbb", want: ReasonMalformed},
		{name: "wrong issuer", token: wrongIssuerToken, want: ReasonMalformed},
		{name: "refresh token used as access", token: refresh, want: ReasonMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := svc.Verify(tt.token)
			requireReason(t, err, tt.want)
			assert.True(t, identity.IsZero())
		})
	}
}

func TestReason_Suspicious(t *testing.T) {
	assert.True(t, ReasonBadSignature.Suspicious())
	assert.True(t, ReasonUnsupportedAlgorithm.Suspicious())
	assert.False(t, ReasonExpired.Suspicious())
	assert.False(t, ReasonMalformed.Suspicious())
}

func TestVerificationError_Is(t *testing.T) {
	err := error(newVerificationError(ReasonBadSignature, jwt.ErrTokenSignatureInvalid))

	assert.ErrorIs(t, err, ErrBadSignature)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	assert.False(t, errors.Is(err, ErrExpired))
	assert.Contains(t, err.Error(), "token signature is invalid")

	_, ok := ReasonOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestRefreshToken(t *testing.T) {
	issuedAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := &testClock{now: issuedAt}
	svc := newTestService(t, clock, testSecret)

	refresh, expiresAt, err := svc.IssueRefreshToken("admin-1")
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(7*24*time.Hour), expiresAt)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(refresh, claims)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.Type)
	assert.Empty(t, claims.Authorities)
	assert.Empty(t, claims.PhoneNumber)

	subject, err := svc.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", subject)

	access, _, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)
	_, err = svc.VerifyRefresh(access)
	requireReason(t, err, ReasonMalformed)

	clock.now = expiresAt.Add(time.Second)
	_, err = svc.VerifyRefresh(refresh)
	requireReason(t, err, ReasonExpired)
}

func TestIssue_RequiresSubject(t *testing.T) {
	svc := newTestService(t, &testClock{now: time.Now()}, testSecret)

	_, _, err := svc.IssueAccessToken(models.Identity{Role: models.RoleAdmin})
	require.Error(t, err)

	_, _, err = svc.IssueRefreshToken("")
	require.Error(t, err)
}

func TestIsExpired_NeverPanicsOnGarbage(t *testing.T) {
	svc := newTestService(t, &testClock{now: time.Now()}, testSecret)

	inputs := []string{
		"",
		".",
		"..",
		"a.b.c",
		"eyJhbGciOiJIUzUxMiJ9.eyJ9.sig",
		strings.Repeat("A", 10000),
		"\x00\x01\x02",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.True(t, svc.IsExpired(in))
		})
	}
}
