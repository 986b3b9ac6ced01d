package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signedHeader(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":" + string(body)))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"event":"recording.completed"}`)
	ts := fmt.Sprintf("%d", now.Unix())
	sig := signedHeader("s3cr3t", ts, body)

	assert.NoError(t, VerifySignature("s3cr3t", sig, ts, body, now))
	assert.ErrorIs(t, VerifySignature("wrong", sig, ts, body, now), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("s3cr3t", "v0=deadbeef", ts, body, now), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("s3cr3t", "", ts, body, now), ErrMissingSignature)
	assert.ErrorIs(t, VerifySignature("s3cr3t", sig, "", body, now), ErrMissingSignature)
	assert.ErrorIs(t, VerifySignature("s3cr3t", sig, "not-a-number", body, now), ErrInvalidSignature)
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{}`)

	old := fmt.Sprintf("%d", now.Add(-6*time.Minute).Unix())
	assert.ErrorIs(t, VerifySignature("s", signedHeader("s", old, body), old, body, now), ErrStaleTimestamp)

	future := fmt.Sprintf("%d", now.Add(6*time.Minute).Unix())
	assert.ErrorIs(t, VerifySignature("s", signedHeader("s", future, body), future, body, now), ErrStaleTimestamp)

	edge := fmt.Sprintf("%d", now.Add(-4*time.Minute).Unix())
	assert.NoError(t, VerifySignature("s", signedHeader("s", edge, body), edge, body, now))
}

func TestChallengeDigest(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("s3cr3t"))
	mac.Write([]byte("test123"))
	want := hex.EncodeToString(mac.Sum(nil))

	got := ChallengeDigest("s3cr3t", "test123")
	assert.Equal(t, want, got)
	assert.Len(t, got, 64)
	assert.Equal(t, strings.ToLower(got), got, "lowercase hex")
}
