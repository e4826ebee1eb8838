package messenger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks a webhook body against the X-Hub-Signature-256
// header value using the app secret. Constant-time comparison.
func VerifySignature(appSecret, signature string, body []byte) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	expected := signature[len(signaturePrefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	actual := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(actual))
}
