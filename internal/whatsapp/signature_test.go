package whatsapp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(token, payload string) string {
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	const token = "secret-token"
	const reqURL = "https://caja.example.com/webhooks/whatsapp"

	form := url.Values{}
	form.Set("From", "whatsapp:+5491112345678")
	form.Set("Body", "gasto 100 | Varios | Prueba")

	// params concatenated in sorted key order after the URL
	payload := reqURL + "Body" + "gasto 100 | Varios | Prueba" + "From" + "whatsapp:+5491112345678"
	sig := signPayload(token, payload)

	assert.True(t, ValidSignature(token, reqURL, form, sig))
}

func TestValidSignatureRejectsTampering(t *testing.T) {
	const token = "secret-token"
	const reqURL = "https://caja.example.com/webhooks/whatsapp"

	form := url.Values{}
	form.Set("Body", "gasto 100 | Varios | Prueba")

	sig := signPayload(token, reqURL+"Body"+"gasto 100 | Varios | Prueba")

	// body changed after signing
	form.Set("Body", "gasto 999999 | Varios | Prueba")
	assert.False(t, ValidSignature(token, reqURL, form, sig))

	// wrong token
	assert.False(t, ValidSignature("other-token", reqURL, form, sig))

	// garbage signature
	assert.False(t, ValidSignature(token, reqURL, form, "bm90IGEgc2ln"))
}

func TestValidSignatureDisabledWithoutToken(t *testing.T) {
	assert.True(t, ValidSignature("", "https://x", url.Values{}, "anything"))
}
