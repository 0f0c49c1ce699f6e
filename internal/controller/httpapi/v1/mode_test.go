package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
	"github.com/device-management-toolkit/bmcserver/internal/mocks"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type modeTest struct {
	engine *gin.Engine
	cmd    *mocks.MockFeature
	st     *mocks.MockReader
}

func newModeTest(t *testing.T, auth gin.HandlerFunc) modeTest {
	t.Helper()

	mockCtl := gomock.NewController(t)

	cmd := mocks.NewMockFeature(mockCtl)
	st := mocks.NewMockReader(mockCtl)

	engine := gin.New()
	routes := NewModeRoutes(cmd, st, logger.New("error"))
	Register(engine, routes.Routes(), auth)

	return modeTest{engine: engine, cmd: cmd, st: st}
}

func (m modeTest) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()
	m.engine.ServeHTTP(w, req)

	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())

	return out
}

func TestGetMode(t *testing.T) {
	t.Parallel()

	m := newModeTest(t, nil)
	m.st.EXPECT().Snapshot().Return(entity.ServerState{CurrentMode: entity.ModeStandby})

	w := m.do(http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"STANDBY"}`, w.Body.String())
}

func TestGetState(t *testing.T) {
	t.Parallel()

	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	m := newModeTest(t, nil)
	m.st.EXPECT().Snapshot().Return(entity.ServerState{
		CurrentMode: entity.ModeRun,
		LastUpdated: updated,
		InFlight:    true,
		Revision:    7,
	})

	w := m.do(http.MethodGet, "/state", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"RUN","lastUpdated":"2024-05-01T12:00:00Z","inFlight":true,"revision":7}`, w.Body.String())
}

func TestPostCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		header     http.Header
		expect     func(cmd *mocks.MockFeature)
		wantStatus int
		wantBody   string
	}{
		{
			name: "applied",
			body: `{"targetMode":"RUN"}`,
			expect: func(cmd *mocks.MockFeature) {
				cmd.EXPECT().
					Process(gomock.Any(), entity.CommandRequest{TargetMode: "RUN"}).
					Return(entity.Applied(entity.ModeRun, "cmd-1"))
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"mode":"RUN"}`,
		},
		{
			name: "command in progress",
			body: `{"targetMode":"RUN"}`,
			expect: func(cmd *mocks.MockFeature) {
				cmd.EXPECT().
					Process(gomock.Any(), gomock.Any()).
					Return(entity.Rejected(command.ConflictError{}))
			},
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"command in progress"}`,
		},
		{
			name: "device failure",
			body: `{"targetMode":"FAULT"}`,
			expect: func(cmd *mocks.MockFeature) {
				cmd.EXPECT().
					Process(gomock.Any(), gomock.Any()).
					Return(entity.Failed(command.DeviceError{
						Kind:   command.KindTimeout,
						Target: entity.ModeFault,
						Err:    context.DeadlineExceeded,
					}, "cmd-2"))
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"device timeout: context deadline exceeded"}`,
		},
		{
			name:       "unknown mode never reaches the processor",
			body:       `{"targetMode":"BOGUS"}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"invalid mode"}`,
		},
		{
			name:       "lower case mode",
			body:       `{"targetMode":"run"}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"invalid mode"}`,
		},
		{
			name:       "missing target",
			body:       `{}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"invalid mode"}`,
		},
		{
			name:       "malformed json",
			body:       `{"targetMode":`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"invalid request"}`,
		},
		{
			name:       "wrong type",
			body:       `{"targetMode":3}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"invalid request"}`,
		},
		{
			name:   "idempotency key header",
			body:   `{"targetMode":"OFF"}`,
			header: http.Header{headerIdempotencyKey: []string{"tok-1"}},
			expect: func(cmd *mocks.MockFeature) {
				cmd.EXPECT().
					Process(gomock.Any(), entity.CommandRequest{TargetMode: "OFF", IdempotencyToken: "tok-1"}).
					Return(entity.Applied(entity.ModeOff, "cmd-3"))
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"mode":"OFF"}`,
		},
		{
			name:   "body token wins over header",
			body:   `{"targetMode":"OFF","idempotencyToken":"body-tok"}`,
			header: http.Header{headerIdempotencyKey: []string{"header-tok"}},
			expect: func(cmd *mocks.MockFeature) {
				cmd.EXPECT().
					Process(gomock.Any(), entity.CommandRequest{TargetMode: "OFF", IdempotencyToken: "body-tok"}).
					Return(entity.Applied(entity.ModeOff, "cmd-4"))
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"mode":"OFF"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newModeTest(t, nil)
			if tc.expect != nil {
				tc.expect(m.cmd)
			}

			w := m.do(http.MethodPost, "/command", tc.body, tc.header)

			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			assert.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}
}

func TestPostCommandHeaders(t *testing.T) {
	t.Parallel()

	m := newModeTest(t, nil)

	res := entity.Applied(entity.ModeRun, "cmd-9")
	res.Replayed = true

	m.cmd.EXPECT().Process(gomock.Any(), gomock.Any()).Return(res)

	w := m.do(http.MethodPost, "/command", `{"targetMode":"RUN","idempotencyToken":"t"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cmd-9", w.Header().Get(headerCommandID))
	assert.Equal(t, "true", w.Header().Get(headerReplayed))
}

func TestPostZero(t *testing.T) {
	t.Parallel()

	m := newModeTest(t, nil)
	m.cmd.EXPECT().Zero(gomock.Any()).Return(entity.Applied(entity.ModeOff, "cmd-z"))

	w := m.do(http.MethodPost, "/zero", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"OFF"}`, w.Body.String())
	assert.Equal(t, "cmd-z", w.Header().Get(headerCommandID))
}

func TestProtectedRoutes(t *testing.T) {
	t.Parallel()

	auth := gin.BasicAuth(gin.Accounts{"admin": "secret"})
	m := newModeTest(t, auth)

	w := m.do(http.MethodPost, "/command", `{"targetMode":"RUN"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = m.do(http.MethodPost, "/zero", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// reads stay open
	m.st.EXPECT().Snapshot().Return(entity.ServerState{CurrentMode: entity.ModeOff})
	w = m.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	m.cmd.EXPECT().Process(gomock.Any(), gomock.Any()).Return(entity.Applied(entity.ModeRun, "cmd-a"))

	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(`{"targetMode":"RUN"}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("admin", "secret")

	rec := httptest.NewRecorder()
	m.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			err:        command.ValidationError{Reason: command.ReasonInvalidMode},
			wantStatus: http.StatusConflict,
			wantError:  "invalid mode",
		},
		{
			name:       "conflict",
			err:        command.ConflictError{},
			wantStatus: http.StatusConflict,
			wantError:  "command in progress",
		},
		{
			name:       "device",
			err:        command.DeviceError{Kind: command.KindNACK, Err: command.ErrLinkNACK},
			wantStatus: http.StatusBadGateway,
			wantError:  "device nack: device NACK",
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "general error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantError, decodeBody(t, w)["error"])
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := logger.NewWithWriter("info", &buf)
	v := validator.New()

	require.True(t, registerValidation(v, l, "devicemode", dto.ValidateDeviceMode))
	assert.NoError(t, v.Var("RUN", "devicemode"))
	assert.Empty(t, buf.String())

	assert.False(t, registerValidation(v, l, "", dto.ValidateDeviceMode))
	assert.Contains(t, buf.String(), "register")
	assert.Contains(t, buf.String(), "error")
}
