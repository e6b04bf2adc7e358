package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClassGrid API",
        "description": "Course section scheduling: proposals, optimization, exports and versioned runs.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Scheduler", "description": "Schedule proposals, optimization and saved runs"},
        {"name": "Ops", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/schedules/generate": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Generate a schedule proposal",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid catalog or weights", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Term not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/proposals/{id}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get a schedule proposal",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Proposal expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/proposals/{id}/optimize": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Optimize a schedule proposal",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "schema": {"$ref": "#/definitions/OptimizeScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Optimized proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Optimization job queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Proposal changed concurrently", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Proposal expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/proposals/{id}/export": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Export a proposal as CSV or PDF",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Signed download link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/exports/{token}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Download an exported schedule",
                "security": [],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"in": "path", "name": "token", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/jobs/{id}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get an optimization job",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/save": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Save a proposal as a versioned run",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SaveScheduleRequest"}}],
                "responses": {
                    "201": {"description": "Saved run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Proposal has conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Proposal leaves sections unassigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/runs": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "List saved runs for a term",
                "parameters": [{"in": "query", "name": "termId", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Runs", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/runs/{id}/assignments": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get placements of a saved run",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Assignments", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/runs/{id}": {
            "delete": {
                "tags": ["Scheduler"],
                "summary": "Delete a draft run",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Run is not a draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Weights": {
            "type": "object",
            "properties": {
                "preference": {"type": "number"},
                "utilization": {"type": "number"},
                "balance": {"type": "number"}
            }
        },
        "Budget": {
            "type": "object",
            "properties": {
                "maxSteps": {"type": "integer"},
                "maxDepth": {"type": "integer"},
                "maxDisplaced": {"type": "integer"},
                "iterations": {"type": "integer"},
                "timeLimitMs": {"type": "integer"},
                "seed": {"type": "integer"},
                "shuffle": {"type": "boolean"}
            }
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "required": ["termId"],
            "properties": {
                "termId": {"type": "string"},
                "catalog": {"type": "object", "description": "Inline catalog: grid, rooms, instructors, sections, cohorts"},
                "optimize": {"type": "boolean"},
                "weights": {"$ref": "#/definitions/Weights"},
                "budget": {"$ref": "#/definitions/Budget"}
            }
        },
        "OptimizeScheduleRequest": {
            "type": "object",
            "properties": {
                "budget": {"$ref": "#/definitions/Budget"},
                "async": {"type": "boolean"}
            }
        },
        "ExportScheduleRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "SaveScheduleRequest": {
            "type": "object",
            "required": ["proposalId"],
            "properties": {
                "proposalId": {"type": "string"},
                "publish": {"type": "boolean"},
                "allowPartial": {"type": "boolean"}
            }
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
