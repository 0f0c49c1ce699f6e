package v1

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/device-management-toolkit/bmcserver/config"
	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
)

const errUnauthorized = "unauthorized"

// LoginRoute issues bearer tokens and checks them on protected routes.
type LoginRoute struct {
	cfg config.Auth
	// verifier is set when bearer tokens come from an OIDC provider instead of Login.
	verifier *oidc.IDTokenVerifier
	now      func() time.Time
}

func NewLoginRoute(cfg config.Auth, verifier *oidc.IDTokenVerifier) *LoginRoute {
	return &LoginRoute{cfg: cfg, verifier: verifier, now: time.Now}
}

// NewOIDCVerifier discovers the configured issuer. It returns nil when no issuer is set.
func NewOIDCVerifier(ctx context.Context, cfg config.Auth) (*oidc.IDTokenVerifier, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}

	return provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}), nil
}

// Login exchanges username and password for a signed token.
func (lr *LoginRoute) Login(c *gin.Context) {
	var creds dto.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response{Error: "invalid request"})

		return
	}

	if !lr.validCredentials(creds.Username, creds.Password) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response{Error: "invalid credentials"})

		return
	}

	now := lr.now()
	claims := jwt.RegisteredClaims{
		Subject:   creds.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lr.cfg.JWTExpiration)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(lr.cfg.JWTKey))
	if err != nil {
		ErrorResponse(c, err)

		return
	}

	c.JSON(http.StatusOK, dto.Token{Token: signed})
}

// AuthMiddleware accepts a bearer token issued by Login or basic credentials.
func (lr *LoginRoute) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		switch {
		case strings.HasPrefix(header, "Bearer "):
			if !lr.validToken(c.Request.Context(), strings.TrimPrefix(header, "Bearer ")) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response{Error: errUnauthorized})

				return
			}
		default:
			user, pass, ok := c.Request.BasicAuth()
			if !ok || !lr.validCredentials(user, pass) {
				c.Header("WWW-Authenticate", `Basic realm="bmcserver"`)
				c.AbortWithStatusJSON(http.StatusUnauthorized, response{Error: errUnauthorized})

				return
			}
		}

		c.Next()
	}
}

func (lr *LoginRoute) validCredentials(user, pass string) bool {
	if lr.cfg.Username == "" || lr.cfg.Password == "" {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(lr.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(lr.cfg.Password)) == 1

	return userOK && passOK
}

func (lr *LoginRoute) validToken(ctx context.Context, tokenString string) bool {
	if lr.verifier != nil {
		_, err := lr.verifier.Verify(ctx, tokenString)

		return err == nil
	}

	if lr.cfg.JWTKey == "" {
		return false
	}

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(lr.cfg.JWTKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(lr.now),
		jwt.WithExpirationRequired(),
	)

	return err == nil && token.Valid
}
