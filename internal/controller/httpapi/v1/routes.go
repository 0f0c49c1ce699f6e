package v1

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/state"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerCommandID      = "X-Command-ID"
	headerReplayed       = "Idempotent-Replayed"
)

// Route is one entry of the static route table.
type Route struct {
	Method string
	Path   string
	// Protected routes sit behind the auth middleware when one is configured.
	Protected bool
	Handler   gin.HandlerFunc
}

// ModeRoutes translates HTTP requests into commands and state reads.
type ModeRoutes struct {
	cmd command.Feature
	st  state.Reader
	l   logger.Interface
}

var registerValidations sync.Once

func NewModeRoutes(cmd command.Feature, st state.Reader, l logger.Interface) *ModeRoutes {
	registerValidations.Do(func() {
		if binding.Validator == nil {
			return
		}

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerValidation(v, l, "devicemode", dto.ValidateDeviceMode)
		}
	})

	return &ModeRoutes{cmd: cmd, st: st, l: l}
}

// registerValidation adds a custom binding tag. A failure leaves the tag unknown to the
// binder, so it is logged loudly rather than dropped.
func registerValidation(v *validator.Validate, l logger.Interface, tag string, fn validator.Func) bool {
	if err := v.RegisterValidation(tag, fn); err != nil {
		l.Error(fmt.Errorf("http - v1 - register %q validation: %w", tag, err))

		return false
	}

	return true
}

// Routes returns the route table served by ModeRoutes.
func (r *ModeRoutes) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Handler: r.getMode},
		{Method: http.MethodGet, Path: "/state", Handler: r.getState},
		{Method: http.MethodPost, Path: "/command", Protected: true, Handler: r.postCommand},
		{Method: http.MethodPost, Path: "/zero", Protected: true, Handler: r.postZero},
	}
}

// Register mounts routes on h. A nil auth leaves protected routes open.
func Register(h gin.IRoutes, routes []Route, auth gin.HandlerFunc) {
	for _, rt := range routes {
		if rt.Protected && auth != nil {
			h.Handle(rt.Method, rt.Path, auth, rt.Handler)

			continue
		}

		h.Handle(rt.Method, rt.Path, rt.Handler)
	}
}
