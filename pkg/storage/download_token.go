package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadSigner mints and verifies the HMAC tokens embedded in report
// download links. A token binds a job ID to an artifact name and an expiry,
// so a shared link goes stale on its own.
//
// Token layout: jobID.expiryUnix.base64(name).base64(signature).
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer with the provided secret and TTL.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for one stored artifact.
func (s *DownloadSigner) Sign(jobID, name string) (string, time.Time, error) {
	if jobID == "" || name == "" {
		return "", time.Time{}, fmt.Errorf("job id and artifact name are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("download token secret is empty")
	}
	expiresAt := time.Now().Add(s.ttl)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(name))
	payload := fmt.Sprintf("%s.%d.%s", jobID, expiresAt.Unix(), encoded)
	return payload + "." + s.signature(payload), expiresAt, nil
}

// Verify checks a token's signature and expiry and returns the job ID and
// artifact name it binds.
func (s *DownloadSigner) Verify(token string) (string, string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", fmt.Errorf("malformed download token")
	}
	payload := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(s.signature(payload)), []byte(parts[3])) {
		return "", "", fmt.Errorf("download token signature mismatch")
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("malformed download token expiry")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", "", fmt.Errorf("download token expired")
	}
	name, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", fmt.Errorf("malformed artifact name: %w", err)
	}
	return parts[0], string(name), nil
}

func (s *DownloadSigner) signature(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
