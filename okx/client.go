// Package okx is a small client for the public OKX v5 market data
// endpoints. It returns raw tables; typing is left to table.Normalize.
package okx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the public AWS-hosted OKX endpoint.
	DefaultBaseURL = "https://aws.okx.com"

	instrumentsPath = "/api/v5/public/instruments"
	candlesPath     = "/api/v5/market/history-candles"
)

// Client issues read-only requests against the OKX REST API. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(strings.TrimRight(u, "/")) }
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithHTTPClient swaps the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.http.BaseURL
		c.http = newResty(resty.NewWithClient(hc))
		c.http.SetBaseURL(base)
	}
}

// NewClient returns a client for DefaultBaseURL unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: newResty(resty.New()),
		log:  zerolog.Nop(),
	}
	c.http.SetBaseURL(DefaultBaseURL)
	for _, o := range opts {
		o(c)
	}
	return c
}

func newResty(r *resty.Client) *resty.Client {
	r.SetHeader("Accept-Encoding", "gzip, deflate, br")
	r.SetHeader("Connection", "keep-alive")
	r.SetRetryCount(0)
	return r
}

// envelope is the common OKX response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// get issues a GET and returns the raw data member of the reply.
func (c *Client) get(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, path, err)
	}

	body, err := decodeBody(resp.Header().Get("Content-Encoding"), resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, path, err)
	}

	c.log.Debug().
		Str("path", path).
		Interface("params", params).
		Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("okx request")

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		apiErr := &APIError{Status: resp.StatusCode(), Msg: strings.TrimSpace(string(limit(body, 8<<10)))}
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Code != "" {
			apiErr.Code, apiErr.Msg = env.Code, env.Msg
		}
		return nil, apiErr
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrTransport, path, err)
	}
	if env.Code != "" && env.Code != "0" {
		return nil, &APIError{Status: resp.StatusCode(), Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

// decodeBody undoes the Content-Encoding of body. Setting Accept-Encoding
// by hand turns off net/http's transparent gzip, so every encoding offered
// in the request header is handled here. Resty may already have inflated a
// gzip body, hence the magic check.
func decodeBody(encoding string, body []byte) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r = gr
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			// raw deflate without the zlib header
			r = flate.NewReader(bytes.NewReader(body))
		} else {
			r = zr
		}
	default:
		return body, nil
	}
	return io.ReadAll(r)
}

func limit(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// cell renders a decoded JSON value as a raw table cell.
func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func decodeJSON(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
