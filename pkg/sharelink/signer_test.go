package sharelink

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerSignAndVerify(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	claims := Claims{ID: "link-1", Day: "Senin", Building: "DS", Format: "pdf"}

	token, expiresAt, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	parsed, parsedExpiry, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims, parsed)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignerRejectsExpired(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	token, _, err := signer.Sign(Claims{ID: "link-1", Format: "csv"})
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = signer.Verify(token)
	require.EqualError(t, err, "token expired")
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Sign(Claims{ID: "link-1", Day: "Senin", Format: "csv"})
	require.NoError(t, err)

	other, _, err := NewSigner("other", time.Hour).Sign(Claims{ID: "link-1", Day: "Selasa", Format: "csv"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged := strings.Split(other, ".")
	parts[2] = forged[2]

	_, _, err = signer.Verify(strings.Join(parts, "."))
	require.EqualError(t, err, "invalid token signature")

	_, _, err = signer.Verify("a.b.c")
	require.EqualError(t, err, "invalid token format")
}

func TestSignerRequiresSecret(t *testing.T) {
	_, _, err := NewSigner("", time.Hour).Sign(Claims{ID: "x", Format: "csv"})
	require.Error(t, err)
}
