// Package httpapi implements routing paths. Each services in own file.
package httpapi

import (
	"net/http"
	"sort"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/device-management-toolkit/bmcserver/config"
	v1 "github.com/device-management-toolkit/bmcserver/internal/controller/httpapi/v1"
	"github.com/device-management-toolkit/bmcserver/internal/controller/openapi"
	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
	"github.com/device-management-toolkit/bmcserver/internal/usecase"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

// NewRouter -.
func NewRouter(handler *gin.Engine, l logger.Interface, t usecase.Usecases, cfg *config.Config, verifier *oidc.IDTokenVerifier) {
	// Options
	handler.Use(gin.Logger())
	handler.Use(gin.Recovery())
	handler.Use(metricsMiddleware())

	// K8s probe
	handler.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Prometheus metrics
	handler.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.GET("/routes", listRoutes(handler))
	handler.GET("/openapi.json", openapi.Handler(cfg.Version))

	// Protected routes take a bearer token or basic credentials
	var auth gin.HandlerFunc

	if !cfg.Auth.Disabled {
		login := v1.NewLoginRoute(cfg.Auth, verifier)
		if verifier == nil {
			handler.POST("/authorize", login.Login)
		}

		auth = login.AuthMiddleware()
	}

	modes := v1.NewModeRoutes(t.Commands, t.State, l)
	v1.Register(handler, modes.Routes(), auth)
}

// listRoutes reports what is registered on the engine when asked, so routes added after
// NewRouter show up too.
func listRoutes(engine *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		registered := engine.Routes()

		out := make([]dto.RouteInfo, 0, len(registered))
		for _, r := range registered {
			out = append(out, dto.RouteInfo{Method: r.Method, Path: r.Path})
		}

		sort.Slice(out, func(i, j int) bool {
			if out[i].Path != out[j].Path {
				return out[i].Path < out[j].Path
			}

			return out[i].Method < out[j].Method
		})

		c.JSON(http.StatusOK, out)
	}
}
