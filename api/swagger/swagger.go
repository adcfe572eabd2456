package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "GenPlan Web API",
        "description": "Timetable grid, exports and schedule generation in front of the GenPlan API",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Timetable", "description": "Day x room timetable grid"},
        {"name": "Scheduler", "description": "Schedule generation and conflict handling"},
        {"name": "Observability", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {"tags": ["Observability"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check of redis and the GenPlan API",
                "responses": {"200": {"description": "Ready"}, "503": {"description": "Degraded"}}
            }
        },
        "/metrics": {
            "get": {"tags": ["Observability"], "summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "In-process metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/timetable/days": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Selectable days and buildings",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/timetable/grid": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Timetable grid for one day",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "day", "in": "query", "type": "string", "description": "Defaults to the first available day"},
                    {"name": "building", "in": "query", "type": "string", "description": "Building code or all"},
                    {"name": "search", "in": "query", "type": "string", "maxLength": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "GenPlan API failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/view": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Timetable grid page",
                "produces": ["text/html"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "day", "in": "query", "type": "string"},
                    {"name": "building", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "HTML page"}}
            }
        },
        "/api/v1/timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download the timetable grid",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "day", "in": "query", "type": "string"},
                    {"name": "building", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/timetable/export/link": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Create a signed share link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShareLinkRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/timetable/shared/{token}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download a shared export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/generate": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Retained generation jobs",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Scheduler"],
                "summary": "Queue hybrid schedule generation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Another generation is in flight", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/generate/{jobId}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Generation job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/check-conflicts": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Re-run conflict detection upstream",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ConflictCheckRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schedules/resolve-conflicts": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Resolve conflicts upstream",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveConflictsRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "ShareLinkRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "building": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["day", "format"]
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "academic_year": {"type": "string"},
                "semester": {"type": "string", "enum": ["ganjil", "genap", "pendek"]},
                "population_size": {"type": "integer"},
                "generations": {"type": "integer"},
                "mutation_rate": {"type": "number"},
                "initial_temperature": {"type": "number"},
                "cooling_rate": {"type": "number"},
                "clear_existing": {"type": "boolean"}
            },
            "required": ["academic_year", "semester"]
        },
        "ConflictCheckRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "schedule_ids": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "ResolveConflictsRequest": {
            "type": "object",
            "properties": {
                "schedule_ids": {"type": "array", "items": {"type": "integer"}},
                "strategy": {"type": "string", "enum": ["auto", "reschedule", "relocate"]}
            },
            "required": ["schedule_ids"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
