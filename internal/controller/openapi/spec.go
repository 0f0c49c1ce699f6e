// Package openapi describes the gateway's HTTP surface as an OpenAPI 3 document.
package openapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

const openAPIVersion = "3.0.3"

func modeSchema() *openapi3.Schema {
	names := entity.DeviceModes()
	values := make([]interface{}, 0, len(names))

	for _, m := range names {
		values = append(values, m.String())
	}

	return openapi3.NewStringSchema().WithEnum(values...)
}

func modeResponseSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().WithProperty("mode", modeSchema())
	s.Required = []string{"mode"}

	return s
}

func errorSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema())
	s.Required = []string{"error"}

	return s
}

func stateSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("mode", modeSchema()).
		WithProperty("lastUpdated", openapi3.NewDateTimeSchema()).
		WithProperty("inFlight", openapi3.NewBoolSchema()).
		WithProperty("revision", openapi3.NewInt64Schema())
	s.Required = []string{"mode", "lastUpdated", "inFlight", "revision"}

	return s
}

func commandRequestSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("targetMode", modeSchema()).
		WithProperty("idempotencyToken", openapi3.NewStringSchema().WithMaxLength(128))
	s.Required = []string{"targetMode"}

	return s
}

func jsonResponse(description string, schema *openapi3.Schema) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)}
}

// commandResponses is shared by every route that runs a command.
func commandResponses() *openapi3.Responses {
	return openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, jsonResponse("Device confirmed the new mode", modeResponseSchema())),
		openapi3.WithStatus(http.StatusUnauthorized, jsonResponse("Missing or invalid credentials", errorSchema())),
		openapi3.WithStatus(http.StatusConflict, jsonResponse("Invalid mode or a command is already in progress", errorSchema())),
		openapi3.WithStatus(http.StatusBadGateway, jsonResponse("Device did not apply the command", errorSchema())),
	)
}

func operation(id, summary string, responses *openapi3.Responses) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	op.Tags = []string{"Device Mode"}
	op.Responses = responses

	return op
}

// Document builds the OpenAPI description of the mode routes.
func Document(version string) *openapi3.T {
	getMode := operation("getMode", "Current device mode",
		openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, jsonResponse("Current mode", modeResponseSchema()))))

	getState := operation("getState", "Full server state",
		openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, jsonResponse("Current state", stateSchema()))))

	postCommand := operation("postCommand", "Request a mode transition", commandResponses())
	postCommand.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(commandRequestSchema()),
	}
	postCommand.AddParameter(openapi3.NewHeaderParameter("Idempotency-Key").
		WithDescription("Used when the body carries no idempotencyToken").
		WithSchema(openapi3.NewStringSchema()))

	postZero := operation("postZero", "Drive the device to its safe mode", commandResponses())

	return &openapi3.T{
		OpenAPI: openAPIVersion,
		Info: &openapi3.Info{
			Title:       "BMC device mode server",
			Description: "Serializes mode commands to the BMC and reports the confirmed device mode.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/", &openapi3.PathItem{Get: getMode}),
			openapi3.WithPath("/state", &openapi3.PathItem{Get: getState}),
			openapi3.WithPath("/command", &openapi3.PathItem{Post: postCommand}),
			openapi3.WithPath("/zero", &openapi3.PathItem{Post: postZero}),
		),
	}
}

// Handler serves the document as JSON, rendered once.
func Handler(version string) gin.HandlerFunc {
	var (
		once    sync.Once
		body    []byte
		failure error
	)

	return func(c *gin.Context) {
		once.Do(func() {
			body, failure = json.Marshal(Document(version))
		})

		if failure != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "general error"})

			return
		}

		c.Data(http.StatusOK, "application/json", body)
	}
}
