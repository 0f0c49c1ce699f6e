package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
)

func (r *ModeRoutes) getMode(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ModeResponse{Mode: r.st.Snapshot().CurrentMode})
}

func (r *ModeRoutes) getState(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewStateResponse(r.st.Snapshot()))
}

// postCommand asks the processor for a transition. The header token is used when the body has none.
func (r *ModeRoutes) postCommand(c *gin.Context) {
	var req dto.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, bindError(err))

		return
	}

	if req.IdempotencyToken == "" {
		req.IdempotencyToken = c.GetHeader(headerIdempotencyKey)
	}

	res := r.cmd.Process(c.Request.Context(), req.ToEntity())
	r.writeResult(c, "postCommand", res)
}

// postZero drives the device to its safe mode.
func (r *ModeRoutes) postZero(c *gin.Context) {
	res := r.cmd.Zero(c.Request.Context())
	r.writeResult(c, "postZero", res)
}

func (r *ModeRoutes) writeResult(c *gin.Context, op string, res entity.CommandResult) {
	if res.CommandID != "" {
		c.Header(headerCommandID, res.CommandID)
	}

	switch res.Outcome {
	case entity.OutcomeApplied:
		if res.Replayed {
			c.Header(headerReplayed, "true")
		}

		c.JSON(http.StatusOK, dto.ModeResponse{Mode: res.Mode})
	case entity.OutcomeRejected:
		c.AbortWithStatusJSON(http.StatusConflict, response{Error: res.Reason()})
	case entity.OutcomeFailed:
		r.l.Error(res.Err, "http - v1 - "+op)
		c.AbortWithStatusJSON(http.StatusBadGateway, response{Error: res.Reason()})
	default:
		ErrorResponse(c, res.Err)
	}
}
