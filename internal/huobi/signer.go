package huobi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	signatureMethod  = "HmacSHA256"
	signatureVersion = "2"
	timestampLayout  = "2006-01-02T15:04:05"
)

// Signer implements signature version 2: the sorted, url-encoded query
// (including the auth parameters) is signed together with method, host and path.
type Signer struct {
	apiKey string
	secret []byte
	now    func() time.Time
}

func NewSigner(apiKey, secret string) (*Signer, error) {
	apiKey = strings.TrimSpace(apiKey)
	secret = strings.TrimSpace(secret)
	if apiKey == "" || secret == "" {
		return nil, errors.New("huobi api key and secret are required")
	}
	return &Signer{apiKey: apiKey, secret: []byte(secret), now: time.Now}, nil
}

func (s *Signer) Sign(req *http.Request, _ []byte) error {
	query := req.URL.Query()
	query.Set("AccessKeyId", s.apiKey)
	query.Set("SignatureMethod", signatureMethod)
	query.Set("SignatureVersion", signatureVersion)
	query.Set("Timestamp", s.now().UTC().Format(timestampLayout))
	query.Del("Signature")
	encoded := query.Encode()
	payload := strings.Join([]string{
		req.Method,
		strings.ToLower(req.URL.Hostname()),
		req.URL.Path,
		encoded,
	}, "\n")
	query.Set("Signature", sign(s.secret, payload))
	req.URL.RawQuery = query.Encode()
	return nil
}

func sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
