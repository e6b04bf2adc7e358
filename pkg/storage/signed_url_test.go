package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("proposal-1", "proposals/proposal-1/report.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ref, key, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "proposal-1", ref)
	assert.Equal(t, "proposals/proposal-1/report.csv", key)
	assert.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("run-1", "runs/run-1/report.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	ref, key, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "run-1", ref)
	assert.Equal(t, "runs/run-1/report.pdf", key)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("run-1", "runs/run-1/report.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, _, _, err = signer.Parse("a.b.c", false)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, _, err = signer.Generate("a.b", "key")
	assert.Error(t, err)
}
