package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("job-1", "behavior/job-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	jobID, name, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "behavior/job-1.csv", name)
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "behavior/job-1.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "job-2"
	_, _, err = signer.Verify(strings.Join(parts, "."))
	require.Error(t, err)
}

func TestDownloadSignerRejectsWrongSecret(t *testing.T) {
	token, _, err := NewDownloadSigner("secret", time.Hour).Sign("job-1", "behavior/job-1.csv")
	require.NoError(t, err)

	_, _, err = NewDownloadSigner("other", time.Hour).Verify(token)
	require.Error(t, err)
}

func TestDownloadSignerExpired(t *testing.T) {
	signer := NewDownloadSigner("secret", 10*time.Millisecond)
	token, _, err := signer.Sign("job-1", "behavior/job-1.csv")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, _, err = signer.Verify(token)
	require.Error(t, err)
}
