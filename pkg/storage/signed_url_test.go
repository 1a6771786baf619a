package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenSignerIssueAndVerify(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	token, expiresAt, err := signer.Issue("teachers-20260901.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	filename, verifiedExpiry, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "teachers-20260901.csv", filename)
	require.WithinDuration(t, expiresAt, verifiedExpiry, time.Second)
}

func TestTokenSignerRejectsTampering(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	token, _, err := signer.Issue("teachers-20260901.csv")
	require.NoError(t, err)

	_, _, err = signer.Verify(token + "x")
	require.Error(t, err)

	other := NewTokenSigner("other-secret", time.Hour)
	_, _, err = other.Verify(token)
	require.Error(t, err)
}

func TestTokenSignerExpired(t *testing.T) {
	signer := NewTokenSigner("secret", 10*time.Millisecond)
	token, _, err := signer.Issue("students-20260901.pdf")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, _, err = signer.Verify(token)
	require.Error(t, err)
}
