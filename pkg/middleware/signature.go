package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/logger"
)

const SignatureHeader = "X-Payment-Signature"

// SignatureVerification accepts only requests whose body carries a valid
// HMAC-SHA256 signature in SignatureHeader, hex encoded and optionally
// prefixed with "sha256=".
func SignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := extractSignature(r)
			if signature == "" {
				reject(w, log, r, apperrors.Unauthorized("Missing request signature"), "reason", "missing "+SignatureHeader)
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				reject(w, log, r, apperrors.InvalidInput("Failed to read request body"), "error", err)
				return
			}

			if !verifySignature(body, signature, secret) {
				reject(w, log, r, apperrors.Unauthorized("Invalid request signature"), "remote_addr", r.RemoteAddr)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(SignatureHeader))
	signature, _ := strings.CutPrefix(header, "sha256=")
	return signature
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// Sign returns the hex signature SignatureVerification expects for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(body []byte, received, secret string) bool {
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(received)))
}
