package okx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Signer signs timestamp + method + request path (with query) + body.
type Signer struct {
	apiKey     string
	secret     []byte
	passphrase string
	now        func() time.Time
}

func NewSigner(apiKey, secret, passphrase string) (*Signer, error) {
	apiKey = strings.TrimSpace(apiKey)
	secret = strings.TrimSpace(secret)
	passphrase = strings.TrimSpace(passphrase)
	if apiKey == "" || secret == "" || passphrase == "" {
		return nil, errors.New("okx api key, secret and passphrase are required")
	}
	return &Signer{apiKey: apiKey, secret: []byte(secret), passphrase: passphrase, now: time.Now}, nil
}

func (s *Signer) Sign(req *http.Request, body []byte) error {
	ts := s.now().UTC().Format(timestampLayout)
	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(ts + strings.ToUpper(req.Method) + path + string(body)))
	req.Header.Set("OK-ACCESS-KEY", s.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", s.passphrase)
	return nil
}
