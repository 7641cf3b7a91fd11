// Package swagger registers the OpenAPI description served under /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["health"],
                "summary": "Service health",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "503": {"description": "Database unhealthy"}}
            }
        },
        "/api/v1/status": {
            "get": {
                "tags": ["status"],
                "summary": "Coordinator status line and queue statistics",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/snapshot": {
            "get": {
                "tags": ["status"],
                "summary": "Every stored transcription",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/ws": {
            "get": {
                "tags": ["status"],
                "summary": "WebSocket stream of coordinator events",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/api/v1/sources": {
            "get": {
                "tags": ["sources"],
                "summary": "List registered sources",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["sources"],
                "summary": "Register an audio file or URL as a source",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{
                    "in": "body",
                    "name": "request",
                    "required": true,
                    "schema": {
                        "type": "object",
                        "properties": {
                            "path": {"type": "string"},
                            "transcribe": {"type": "boolean"}
                        }
                    }
                }],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Unsupported input"}, "404": {"description": "File not found"}}
            }
        },
        "/api/v1/sources/{id}": {
            "get": {
                "tags": ["sources"],
                "summary": "Source details",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown source"}}
            },
            "delete": {
                "tags": ["sources"],
                "summary": "Remove a source and its transcription",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown source"}}
            }
        },
        "/api/v1/sources/{id}/regions": {
            "post": {
                "tags": ["sources"],
                "summary": "Report a region created on the source's track",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Already transcribed or pending"}, "202": {"description": "Queued"}}
            }
        },
        "/api/v1/sources/{id}/transcribe": {
            "post": {
                "tags": ["transcription"],
                "summary": "Queue a transcription, replacing any pending job",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"202": {"description": "Queued"}, "404": {"description": "Unknown source"}, "412": {"description": "Sample access unavailable"}}
            }
        },
        "/api/v1/sources/{id}/transcription": {
            "get": {
                "tags": ["transcription"],
                "summary": "Fetch a transcription",
                "produces": ["application/json", "text/plain", "text/vtt", "application/x-subrip"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "enum": ["text", "json", "srt", "vtt"], "name": "format", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown format"}, "404": {"description": "Not transcribed"}}
            },
            "put": {
                "tags": ["transcription"],
                "summary": "Import a VTT, SRT or JSON transcript",
                "consumes": ["text/vtt", "application/x-subrip", "application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "enum": ["json", "srt", "vtt"], "name": "format", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid transcript"}, "404": {"description": "Unknown source"}}
            }
        },
        "/api/v1/document/save": {
            "post": {
                "tags": ["document"],
                "summary": "Persist the document to the archive",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/document/load": {
            "post": {
                "tags": ["document"],
                "summary": "Restore the document from the archive",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Nothing saved"}}
            }
        },
        "/api/v1/jobs": {
            "get": {
                "tags": ["jobs"],
                "summary": "Recent transcription jobs",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "source_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/jobs/counts": {
            "get": {
                "tags": ["jobs"],
                "summary": "Job counts by status",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/jobs/{run_id}": {
            "get": {
                "tags": ["jobs"],
                "summary": "One job record",
                "parameters": [{"type": "string", "name": "run_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown run"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "VoxScript API",
	Description:      "Speech-to-text for audio sources, backed by whisper.cpp",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
