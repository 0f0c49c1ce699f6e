package devicelink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

func newDriver(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func TestHTTPSend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		want     entity.DeviceMode
		errIs    error
		wantKind command.DeviceErrorKind
	}{
		{
			name: "driver confirms target",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var msg modeMessage
				_ = json.NewDecoder(r.Body).Decode(&msg)
				_ = json.NewEncoder(w).Encode(msg)
			},
			want: entity.ModeRun,
		},
		{
			name: "driver refuses",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "interlock open", http.StatusConflict)
			},
			errIs:    command.ErrLinkNACK,
			wantKind: command.KindNACK,
		},
		{
			name: "driver offline",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "warming up", http.StatusServiceUnavailable)
			},
			errIs:    command.ErrLinkUnavailable,
			wantKind: command.KindUnavailable,
		},
		{
			name: "garbled reply",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"mode":"SPINNING"}`))
			},
			errIs:    ErrBadReply,
			wantKind: command.KindTransport,
		},
		{
			name: "driver too slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(time.Second):
				case <-r.Context().Done():
				}

				w.WriteHeader(http.StatusOK)
			},
			timeout:  20 * time.Millisecond,
			errIs:    context.DeadlineExceeded,
			wantKind: command.KindTimeout,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := newDriver(t, tc.handler)

			timeout := tc.timeout
			if timeout == 0 {
				timeout = time.Second
			}

			link := NewHTTP(srv.URL+"/", timeout, 0, logger.New("error"))

			got, err := link.Send(context.Background(), entity.ModeRun)
			if tc.errIs == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)

				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.errIs), "got %v", err)
			assert.Equal(t, tc.wantKind, command.NormalizeDeviceError(entity.ModeRun, err).Kind)
		})
	}
}

func TestHTTPSendPostsToModePath(t *testing.T) {
	t.Parallel()

	var gotPath, gotMethod, gotType string

	srv := newDriver(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod, gotType = r.URL.Path, r.Method, r.Header.Get("Content-Type")

		_, _ = w.Write([]byte(`{"mode":"OFF"}`))
	})

	link := NewHTTP(srv.URL, time.Second, 0, logger.New("error"))

	got, err := link.Send(context.Background(), entity.ModeOff)
	require.NoError(t, err)
	assert.Equal(t, entity.ModeOff, got)
	assert.Equal(t, "/mode", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
}

func TestFormatKV(t *testing.T) {
	t.Parallel()

	assert.Equal(t, " method=POST url=/mode", formatKV([]interface{}{"method", "POST", "url", "/mode"}))
	assert.Empty(t, formatKV([]interface{}{"dangling"}))
}
