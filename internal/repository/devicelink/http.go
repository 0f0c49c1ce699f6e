package devicelink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

const (
	modePath       = "/mode"
	maxErrorBody   = 512
	retryWaitFloor = 100 * time.Millisecond
	retryWaitCeil  = time.Second
)

var ErrBadReply = errors.New("malformed device reply")

// modeMessage is the body exchanged with the remote driver in both directions.
type modeMessage struct {
	Mode string `json:"mode"`
}

// HTTP forwards mode commands to a driver service sitting next to the electronics.
type HTTP struct {
	client  *retryablehttp.Client
	url     string
	timeout time.Duration
}

var _ command.DeviceLink = (*HTTP)(nil)

// NewHTTP builds a link to baseURL. retryMax is the number of transport retries;
// keep it at 0 unless the driver applies commands idempotently.
func NewHTTP(baseURL string, timeout time.Duration, retryMax int, l logger.Interface) *HTTP {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitFloor
	client.RetryWaitMax = retryWaitCeil
	client.Logger = leveledLogger{l: l}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTP{
		client:  client,
		url:     strings.TrimRight(baseURL, "/") + modePath,
		timeout: timeout,
	}
}

// Send POSTs the target to the driver and returns the mode it reports back.
func (h *HTTP) Send(ctx context.Context, target entity.DeviceMode) (entity.DeviceMode, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	body, err := json.Marshal(modeMessage{Mode: target.String()})
	if err != nil {
		return 0, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("devicelink - http - send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return 0, fmt.Errorf("%w: %s", command.ErrLinkUnavailable, readSnippet(resp.Body))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return 0, fmt.Errorf("%w: status %d: %s", command.ErrLinkNACK, resp.StatusCode, readSnippet(resp.Body))
	}

	var reply modeMessage
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadReply, err)
	}

	mode, err := entity.ParseDeviceMode(reply.Mode)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadReply, err)
	}

	return mode, nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))

	return strings.TrimSpace(string(b))
}

// leveledLogger adapts logger.Interface to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l logger.Interface
}

func (a leveledLogger) Error(msg string, kv ...interface{}) { a.l.Error(msg + formatKV(kv)) }
func (a leveledLogger) Info(msg string, kv ...interface{})  { a.l.Debug(msg + formatKV(kv)) }
func (a leveledLogger) Debug(msg string, kv ...interface{}) { a.l.Debug(msg + formatKV(kv)) }
func (a leveledLogger) Warn(msg string, kv ...interface{})  { a.l.Warn(msg + formatKV(kv)) }

func formatKV(kv []interface{}) string {
	var b strings.Builder

	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}

	return b.String()
}
