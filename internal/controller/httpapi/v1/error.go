package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/device-management-toolkit/bmcserver/internal/usecase/command"
)

type response struct {
	Error string `json:"error" example:"invalid mode"`
}

func ErrorResponse(c *gin.Context, err error) {
	var (
		validationErr command.ValidationError
		conflictErr   command.ConflictError
		deviceErr     command.DeviceError
	)

	switch {
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusConflict, response{Error: validationErr.Reason})
	case errors.As(err, &conflictErr):
		c.AbortWithStatusJSON(http.StatusConflict, response{Error: conflictErr.Error()})
	case errors.As(err, &deviceErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, response{Error: deviceErr.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, response{Error: "general error"})
	}
}

// bindError turns a body binding failure into a ValidationError. A bad targetMode is
// reported the same way the processor reports it.
func bindError(err error) command.ValidationError {
	var validatorErr validator.ValidationErrors
	if errors.As(err, &validatorErr) {
		for _, fe := range validatorErr {
			if fe.Field() == "TargetMode" {
				return command.ValidationError{Reason: command.ReasonInvalidMode, Err: err}
			}
		}
	}

	return command.ValidationError{Reason: command.ReasonInvalidRequest, Err: err}
}
