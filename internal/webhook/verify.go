package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleTimestamp   = errors.New("stale webhook timestamp")
)

// timestampTolerance bounds clock skew and replay of captured requests.
const timestampTolerance = 5 * time.Minute

// VerifySignature validates the provider's request signature:
// hex HMAC-SHA256 of "v0:{timestamp}:{body}" keyed by the shared secret,
// sent as "v0={hex}". Comparison is constant time.
func VerifySignature(secret, signature, timestamp string, body []byte, now time.Time) error {
	if signature == "" || timestamp == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	requestTime := time.Unix(ts, 0)
	if now.Sub(requestTime) > timestampTolerance || requestTime.Sub(now) > timestampTolerance {
		return ErrStaleTimestamp
	}

	base := []byte("v0:" + timestamp + ":" + string(body))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(base)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// ChallengeDigest returns the lowercase hex HMAC-SHA256 of plainToken keyed by
// the shared secret, as required by the endpoint validation handshake.
func ChallengeDigest(secret, plainToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(plainToken))
	return hex.EncodeToString(mac.Sum(nil))
}
