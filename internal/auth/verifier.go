package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
)

// Method identifies which credential scheme decided a verification outcome
type Method string

const (
	MethodHMAC  Method = "hmac"
	MethodToken Method = "token"
	MethodNone  Method = "none"
)

// Result is the outcome of verifying one inbound delivery
type Result struct {
	Valid  bool
	Method Method
}

// signatureHeaders are the header names providers are known to carry the
// HMAC signature under, checked in order.
var signatureHeaders = []string{
	"X-Webhook-Signature",
	"X-Signature",
	"X-Hub-Signature-256",
	"Tavus-Signature",
}

// tokenParams are the query parameter names accepted for static-token auth.
var tokenParams = []string{"t", "token"}

// Verifier authenticates inbound webhook deliveries with an HMAC-SHA256
// shared secret, a static callback-URL token, or an explicit open mode.
type Verifier struct {
	secret          []byte
	token           string
	allowUnverified bool
}

// NewVerifier builds a Verifier. Empty secret and token with
// allowUnverified false rejects everything, which is the safe default for a
// misconfigured deployment.
func NewVerifier(secret, token string, allowUnverified bool) *Verifier {
	v := &Verifier{token: token, allowUnverified: allowUnverified}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

// Verify checks one delivery. The HMAC is computed over the exact raw body
// bytes as received, never a re-serialized form. A present-but-invalid
// signature fails immediately; the token fallback applies only when no
// signature header arrived at all.
func (v *Verifier) Verify(rawBody []byte, headers http.Header, query url.Values) Result {
	if len(v.secret) > 0 {
		if sig, ok := findSignature(headers); ok {
			return Result{Valid: v.verifyHMAC(rawBody, sig), Method: MethodHMAC}
		}
	}
	if v.token != "" {
		for _, param := range tokenParams {
			if got := query.Get(param); got != "" {
				ok := subtle.ConstantTimeCompare([]byte(got), []byte(v.token)) == 1
				return Result{Valid: ok, Method: MethodToken}
			}
		}
	}
	if len(v.secret) == 0 && v.token == "" && v.allowUnverified {
		return Result{Valid: true, Method: MethodNone}
	}
	return Result{Valid: false, Method: MethodNone}
}

func (v *Verifier) verifyHMAC(rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	for _, candidate := range decodeSignature(signature) {
		if hmac.Equal(candidate, expected) {
			return true
		}
	}
	return false
}

// findSignature returns the first populated signature header.
func findSignature(headers http.Header) (string, bool) {
	for _, name := range signatureHeaders {
		if value := headers.Get(name); value != "" {
			return value, true
		}
	}
	return "", false
}

// decodeSignature normalizes the accepted wire formats into candidate
// digests: raw hex, raw base64, "sha256=<hex>", and comma-separated k=v
// lists where the last v1 entry carries the signature.
func decodeSignature(raw string) [][]byte {
	value := strings.TrimSpace(raw)

	if strings.Contains(value, ",") {
		var v1 string
		for _, part := range strings.Split(value, ",") {
			key, val, found := strings.Cut(strings.TrimSpace(part), "=")
			if found && key == "v1" {
				v1 = val
			}
		}
		if v1 != "" {
			value = v1
		}
	}
	value = strings.TrimPrefix(value, "sha256=")

	var candidates [][]byte
	if decoded, err := hex.DecodeString(value); err == nil {
		candidates = append(candidates, decoded)
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		candidates = append(candidates, decoded)
	}
	return candidates
}
