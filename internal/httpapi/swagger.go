//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggo/swag"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SwaggerInfo describes the API; paths mirror the godoc annotations on the handlers.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "askd API",
	Description:      "Portfolio assistant: model loading, chat and lifecycle.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

const docTemplate = `{
  "swagger": "2.0",
  "info": {"title": "{{.Title}}", "description": "{{.Description}}", "version": "{{.Version}}"},
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "paths": {
    "/load": {"post": {"tags": ["session"], "summary": "Load the model", "produces": ["application/x-ndjson"], "responses": {"200": {"description": "NDJSON progress lines, then a LoadResult"}}}},
    "/chat": {"post": {"tags": ["session"], "summary": "Ask a question", "consumes": ["application/json"], "produces": ["application/json"],
      "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/ChatRequest"}}],
      "responses": {
        "200": {"description": "OK", "schema": {"$ref": "#/definitions/ChatResponse"}},
        "400": {"description": "Empty message", "schema": {"$ref": "#/definitions/ErrorResponse"}},
        "409": {"description": "Model not loaded", "schema": {"$ref": "#/definitions/ErrorResponse"}},
        "429": {"description": "Answer already in progress", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}},
    "/dispose": {"post": {"tags": ["session"], "summary": "Release the model", "responses": {"204": {"description": "No Content"}}}},
    "/status": {"get": {"tags": ["session"], "summary": "Session status", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/models": {"get": {"tags": ["models"], "summary": "Model catalog", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}}
  },
  "definitions": {
    "ChatRequest": {"type": "object", "properties": {"message": {"type": "string"}}},
    "ChatResponse": {"type": "object", "properties": {"reply": {"type": "string"}, "fallback": {"type": "boolean"}}},
    "ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}, "kind": {"type": "string"}, "retryable": {"type": "boolean"}}}
  }
}`
