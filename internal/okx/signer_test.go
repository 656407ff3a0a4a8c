package okx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerHeaders(t *testing.T) {
	signer, err := NewSigner("key", "secret", "pass")
	require.NoError(t, err)
	signer.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC) }

	body := []byte(`{"instrument_id":"BTC-USDT"}`)
	req, err := http.NewRequest(http.MethodPost, "https://www.okex.com/api/spot/v3/orders?x=1", strings.NewReader(string(body)))
	require.NoError(t, err)
	require.NoError(t, signer.Sign(req, body))

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("2024-01-02T03:04:05.678Z" + "POST" + "/api/spot/v3/orders?x=1" + string(body)))
	require.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), req.Header.Get("OK-ACCESS-SIGN"))
	require.Equal(t, "key", req.Header.Get("OK-ACCESS-KEY"))
	require.Equal(t, "pass", req.Header.Get("OK-ACCESS-PASSPHRASE"))
	require.Equal(t, "2024-01-02T03:04:05.678Z", req.Header.Get("OK-ACCESS-TIMESTAMP"))
}

func TestNewSignerRequiresPassphrase(t *testing.T) {
	_, err := NewSigner("key", "secret", "")
	require.Error(t, err)
}
