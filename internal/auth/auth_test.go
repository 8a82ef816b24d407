package auth_test

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/gauntlet/internal/auth"
)

func TestJWTIssueAndValidate(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	user := uuid.New()
	token, expiresAt, err := mgr.IssueToken(user, "ci", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(61*time.Minute)))

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user, claims.UserID())
	assert.Equal(t, "ci", claims.Name)
	assert.Equal(t, "gauntlet", claims.Issuer)
}

func TestIssueToken_CustomTTL(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", 24*time.Hour)
	require.NoError(t, err)

	_, expiresAt, err := mgr.IssueToken(uuid.New(), "", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, expiresAt.Before(time.Now().Add(6*time.Minute)))
}

// newTestJWTManagerWithKey creates a JWTManager backed by a key pair written to
// temp PEM files, and returns the raw private key for forging tokens.
func newTestJWTManagerWithKey(t *testing.T) (*auth.JWTManager, ed25519.PrivateKey) {
	t.Helper()
	privPath, pubPath, err := auth.GenerateKeyFiles(t.TempDir())
	require.NoError(t, err)

	mgr, err := auth.NewJWTManager(privPath, pubPath, time.Hour)
	require.NoError(t, err)

	priv := readPrivateKey(t, privPath)
	return mgr, priv
}

// forgeToken signs a JWT with the given private key and claims.
func forgeToken(t *testing.T, privKey ed25519.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(privKey)
	require.NoError(t, err)
	return signed
}

func TestValidateToken_Rejects(t *testing.T) {
	mgr, privKey := newTestJWTManagerWithKey(t)
	now := time.Now().UTC()

	tests := []struct {
		name    string
		claims  jwt.RegisteredClaims
		wantErr string
	}{
		{
			name: "wrong issuer",
			claims: jwt.RegisteredClaims{
				Subject: uuid.NewString(), Issuer: "not-gauntlet", Audience: jwt.ClaimStrings{"gauntlet"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			wantErr: "invalid issuer",
		},
		{
			name: "malformed subject",
			claims: jwt.RegisteredClaims{
				Subject: "not-a-uuid", Issuer: "gauntlet", Audience: jwt.ClaimStrings{"gauntlet"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			wantErr: "invalid subject",
		},
		{
			name: "wrong audience",
			claims: jwt.RegisteredClaims{
				Subject: uuid.NewString(), Issuer: "gauntlet", Audience: jwt.ClaimStrings{"other-service"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			wantErr: "validate token",
		},
		{
			name: "expired",
			claims: jwt.RegisteredClaims{
				Subject: uuid.NewString(), Issuer: "gauntlet", Audience: jwt.ClaimStrings{"gauntlet"},
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			},
			wantErr: "validate token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := forgeToken(t, privKey, &auth.Claims{RegisteredClaims: tt.claims})
			_, err := mgr.ValidateToken(token)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateToken_ForeignKey(t *testing.T) {
	mgr, _ := newTestJWTManagerWithKey(t)
	other, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	token, _, err := other.IssueToken(uuid.New(), "", 0)
	require.NoError(t, err)
	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateKeyFiles_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := auth.GenerateKeyFiles(dir)
	require.NoError(t, err)

	_, _, err = auth.GenerateKeyFiles(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestNewJWTManager_MismatchedKeys(t *testing.T) {
	privA, _, err := auth.GenerateKeyFiles(t.TempDir())
	require.NoError(t, err)
	_, pubB, err := auth.GenerateKeyFiles(t.TempDir())
	require.NoError(t, err)

	_, err = auth.NewJWTManager(privA, pubB, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}
