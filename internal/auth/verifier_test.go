package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "webhook-secret"

func sign(t *testing.T, secret string, body []byte) []byte {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func TestVerifyHMACFormats(t *testing.T) {
	body := []byte(`{"event_type":"tool_call","conversation_id":"conv-1"}`)
	digest := sign(t, testSecret, body)
	verifier := NewVerifier(testSecret, "", false)

	testCases := []struct {
		name      string
		header    string
		signature string
		valid     bool
	}{
		{"raw hex", "X-Webhook-Signature", hex.EncodeToString(digest), true},
		{"raw base64", "X-Signature", base64.StdEncoding.EncodeToString(digest), true},
		{"sha256 prefix", "X-Hub-Signature-256", "sha256=" + hex.EncodeToString(digest), true},
		{"k=v list", "Tavus-Signature", "t=1693000000,v1=" + hex.EncodeToString(digest), true},
		{"k=v list last v1 wins", "Tavus-Signature", "v1=deadbeef,v1=" + hex.EncodeToString(digest), true},
		{"wrong signature", "X-Webhook-Signature", hex.EncodeToString(sign(t, "other-secret", body)), false},
		{"garbage", "X-Webhook-Signature", "not-a-signature", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			headers := http.Header{}
			headers.Set(tc.header, tc.signature)
			result := verifier.Verify(body, headers, url.Values{})
			assert.Equal(t, tc.valid, result.Valid)
			assert.Equal(t, MethodHMAC, result.Method)
		})
	}
}

func TestVerifyTamperedBody(t *testing.T) {
	body := []byte(`{"event_type":"tool_call"}`)
	headers := http.Header{}
	headers.Set("X-Webhook-Signature", hex.EncodeToString(sign(t, testSecret, body)))

	verifier := NewVerifier(testSecret, "", false)

	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] = 'X'

	assert.True(t, verifier.Verify(body, headers, url.Values{}).Valid)
	assert.False(t, verifier.Verify(tampered, headers, url.Values{}).Valid)
}

func TestVerifyTokenFallback(t *testing.T) {
	body := []byte(`{}`)

	t.Run("token matches", func(t *testing.T) {
		verifier := NewVerifier("", "static-token", false)
		result := verifier.Verify(body, http.Header{}, url.Values{"t": {"static-token"}})
		assert.True(t, result.Valid)
		assert.Equal(t, MethodToken, result.Method)
	})

	t.Run("token param alias", func(t *testing.T) {
		verifier := NewVerifier("", "static-token", false)
		result := verifier.Verify(body, http.Header{}, url.Values{"token": {"static-token"}})
		assert.True(t, result.Valid)
	})

	t.Run("token mismatch", func(t *testing.T) {
		verifier := NewVerifier("", "static-token", false)
		result := verifier.Verify(body, http.Header{}, url.Values{"t": {"wrong"}})
		assert.False(t, result.Valid)
		assert.Equal(t, MethodToken, result.Method)
	})

	t.Run("secret set but no header falls back to token", func(t *testing.T) {
		verifier := NewVerifier(testSecret, "static-token", false)
		result := verifier.Verify(body, http.Header{}, url.Values{"t": {"static-token"}})
		assert.True(t, result.Valid)
		assert.Equal(t, MethodToken, result.Method)
	})

	t.Run("invalid signature does not fall back to token", func(t *testing.T) {
		verifier := NewVerifier(testSecret, "static-token", false)
		headers := http.Header{}
		headers.Set("X-Webhook-Signature", "deadbeef")
		result := verifier.Verify(body, headers, url.Values{"t": {"static-token"}})
		assert.False(t, result.Valid)
		assert.Equal(t, MethodHMAC, result.Method)
	})
}

func TestVerifyOpenMode(t *testing.T) {
	body := []byte(`{}`)

	t.Run("explicitly unverified", func(t *testing.T) {
		verifier := NewVerifier("", "", true)
		result := verifier.Verify(body, http.Header{}, url.Values{})
		assert.True(t, result.Valid)
		assert.Equal(t, MethodNone, result.Method)
	})

	t.Run("no credentials and not explicitly open rejects", func(t *testing.T) {
		verifier := NewVerifier("", "", false)
		result := verifier.Verify(body, http.Header{}, url.Values{})
		assert.False(t, result.Valid)
	})

	t.Run("open flag does not bypass configured secret", func(t *testing.T) {
		verifier := NewVerifier(testSecret, "", true)
		result := verifier.Verify(body, http.Header{}, url.Values{})
		assert.False(t, result.Valid)
	})
}
