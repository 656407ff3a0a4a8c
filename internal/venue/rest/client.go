package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shadow-hedger/internal/venue"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 2048

// Signer authenticates an outgoing request. body is the exact payload sent.
type Signer interface {
	Sign(req *http.Request, body []byte) error
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	signer  Signer
	log     *zap.Logger
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New builds a JSON REST client. ratePerSec <= 0 disables client-side limiting.
func New(baseURL string, timeout time.Duration, ratePerSec float64, signer Signer, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		burst := int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		signer:  signer,
		log:     log,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, query, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	op := method + " " + path
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = data
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &venue.TransientError{Op: op, Err: err}
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.signer != nil {
		if err := c.signer.Sign(req, payload); err != nil {
			return nil, err
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &venue.TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Debug("rest request failed", zap.String("op", op), zap.Int("status", resp.StatusCode))
		return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, venue.FromStatus(op, resp.StatusCode, data)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &venue.TransientError{Op: op, Err: err}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Decode unmarshals a response body, reporting failures as protocol errors.
func Decode(op string, resp *Response, v any) error {
	if resp == nil {
		return &venue.ProtocolError{Op: op, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &venue.ProtocolError{Op: op, Err: err}
	}
	return nil
}
