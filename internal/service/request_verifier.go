package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
)

const (
	HeaderSlackTimestamp = "X-Slack-Request-Timestamp"
	HeaderSlackSignature = "X-Slack-Signature"

	// MaxRequestAge is the replay window, in seconds, on either side of now.
	MaxRequestAge = 300

	signatureVersion = "v0"
)

// RequestVerifier authenticates inbound Slack webhook calls.
type RequestVerifier interface {
	Verify(body []byte, headers http.Header, now int64) bool
}

type requestVerifier struct {
	signingSecret []byte
}

func NewRequestVerifier(signingSecret string) RequestVerifier {
	return &requestVerifier{signingSecret: []byte(signingSecret)}
}

// Verify checks the request timestamp against now and the v0 HMAC-SHA256 signature
// over "v0:<timestamp>:<body>". It never panics; any malformed input is a rejection.
func (v *requestVerifier) Verify(body []byte, headers http.Header, now int64) bool {
	if len(v.signingSecret) == 0 || headers == nil {
		return false
	}

	tsHeader := headers.Get(HeaderSlackTimestamp)
	signature := headers.Get(HeaderSlackSignature)
	if tsHeader == "" || signature == "" {
		return false
	}

	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return false
	}

	age := now - ts
	if age < 0 {
		age = -age
	}
	if age > MaxRequestAge {
		return false
	}

	expected := Sign(v.signingSecret, tsHeader, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Sign computes the Slack signature header value for body sent at timestamp.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signatureVersion + ":" + timestamp + ":"))
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}
