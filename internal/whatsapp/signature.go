package whatsapp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
)

// ValidSignature checks an X-Twilio-Signature header against the request.
// Twilio signs the full webhook URL concatenated with every POST
// parameter, sorted by key, as HMAC-SHA1 of the auth token, base64
// encoded. An empty auth token disables validation.
func ValidSignature(authToken, requestURL string, form url.Values, signature string) bool {
	if authToken == "" {
		return true
	}

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := requestURL
	for _, k := range keys {
		for _, v := range form[k] {
			payload += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
