// Package client talks to a running bmcserver over its HTTP and websocket API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerCommandID      = "X-Command-ID"
	headerReplayed       = "Idempotent-Replayed"

	maxErrorBody = 512
)

var ErrUnexpectedReply = errors.New("unexpected server reply")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}

	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Options configure a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string
	// Token is sent as a bearer token and wins over basic credentials.
	Token    string
	Timeout  time.Duration
	RetryMax int
}

// Result is the outcome of an applied command.
type Result struct {
	Mode      entity.DeviceMode
	CommandID string
	Replayed  bool
}

type Client struct {
	http  *retryablehttp.Client
	base  string
	opts  Options
	watch *websocket.Dialer
}

func New(opts Options) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = opts.RetryMax
	hc.Logger = nil
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if opts.Timeout > 0 {
		hc.HTTPClient.Timeout = opts.Timeout
	}

	return &Client{
		http:  hc,
		base:  strings.TrimRight(opts.BaseURL, "/"),
		opts:  opts,
		watch: &websocket.Dialer{HandshakeTimeout: opts.Timeout},
	}
}

// Mode returns the current device mode.
func (c *Client) Mode(ctx context.Context) (entity.DeviceMode, error) {
	var out dto.ModeResponse
	if _, err := c.do(ctx, http.MethodGet, "/", nil, nil, &out); err != nil {
		return 0, err
	}

	return out.Mode, nil
}

// State returns the full server state.
func (c *Client) State(ctx context.Context) (dto.StateResponse, error) {
	var out dto.StateResponse
	if _, err := c.do(ctx, http.MethodGet, "/state", nil, nil, &out); err != nil {
		return dto.StateResponse{}, err
	}

	return out, nil
}

// SetMode asks the server to drive the device to target. A non-empty key makes the request replayable.
func (c *Client) SetMode(ctx context.Context, target, key string) (Result, error) {
	body, err := json.Marshal(dto.CommandRequest{TargetMode: target})
	if err != nil {
		return Result{}, err
	}

	var header http.Header
	if key != "" {
		header = http.Header{headerIdempotencyKey: []string{key}}
	}

	return c.command(ctx, "/command", body, header)
}

// Zero drives the device to the server's safe mode.
func (c *Client) Zero(ctx context.Context) (Result, error) {
	return c.command(ctx, "/zero", nil, nil)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(dto.Credentials{Username: username, Password: password})
	if err != nil {
		return "", err
	}

	var out dto.Token
	if _, err := c.do(ctx, http.MethodPost, "/authorize", body, nil, &out); err != nil {
		return "", err
	}

	return out.Token, nil
}

// Watch streams state changes to fn until ctx ends, the server closes the feed or fn fails.
func (c *Client) Watch(ctx context.Context, fn func(dto.StateResponse) error) error {
	target, err := wsURL(c.base + "/ws/state")
	if err != nil {
		return err
	}

	conn, resp, err := c.watch.DialContext(ctx, target, c.authHeader())
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		return fmt.Errorf("client - watch - dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var st dto.StateResponse
		if err := conn.ReadJSON(&st); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}

			return fmt.Errorf("client - watch - read: %w", err)
		}

		if err := fn(st); err != nil {
			return err
		}
	}
}

func (c *Client) command(ctx context.Context, path string, body []byte, header http.Header) (Result, error) {
	var out dto.ModeResponse

	resp, err := c.do(ctx, http.MethodPost, path, body, header, &out)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Mode:      out.Mode,
		CommandID: resp.Get(headerCommandID),
		Replayed:  resp.Get(headerReplayed) == "true",
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, header http.Header, out any) (http.Header, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, err
	}

	for k, v := range c.authHeader() {
		req.Header[k] = v
	}

	for k, v := range header {
		req.Header[k] = v
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client - %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, readAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}

	return resp.Header, nil
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}

	switch {
	case c.opts.Token != "":
		h.Set("Authorization", "Bearer "+c.opts.Token)
	case c.opts.Username != "":
		req := http.Request{Header: h}
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}

	return h
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error string `json:"error"`
	}

	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func wsURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	return u.String(), nil
}
