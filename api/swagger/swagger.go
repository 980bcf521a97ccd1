package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tahfidz API",
        "description": "TPQ / Rumah Tahfidz management API with behaviour scoring",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Santri", "description": "Student roster"},
        {"name": "Halaqah", "description": "Memorization circles"},
        {"name": "Behavior", "description": "Behaviour events and score summaries"},
        {"name": "Goals", "description": "Character goals and milestones"},
        {"name": "Attendance", "description": "Session attendance"},
        {"name": "Hafalan", "description": "Memorization evaluations"},
        {"name": "Payments", "description": "Invoices and checkout"},
        {"name": "Dashboard", "description": "Role-specific overviews"},
        {"name": "Reports", "description": "Background recap exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke all sessions",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/santri": {
            "get": {
                "tags": ["Santri"],
                "summary": "List santri",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "halaqahId", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Santri"],
                "summary": "Register a santri",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/santri/{id}": {
            "get": {
                "tags": ["Santri"],
                "summary": "Get santri detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Santri"],
                "summary": "Update a santri",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Santri"],
                "summary": "Deactivate a santri",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/behavior": {
            "get": {
                "tags": ["Behavior"],
                "summary": "List behaviour events",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Behavior"],
                "summary": "Record a behaviour event",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordBehaviorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Points disagree with polarity"}
                }
            }
        },
        "/behavior/summary/{santriId}": {
            "get": {
                "tags": ["Behavior"],
                "summary": "Score summary with trend for one santri",
                "parameters": [
                    {"name": "santriId", "in": "path", "required": true, "type": "string"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/goals": {
            "get": {
                "tags": ["Goals"],
                "summary": "List character goals",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Goals"],
                "summary": "Create a character goal with milestones",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/goals/{id}/milestones/{milestoneId}/complete": {
            "post": {
                "tags": ["Goals"],
                "summary": "Complete a milestone, recomputing goal progress",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "milestoneId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Goal is not active"}
                }
            }
        },
        "/goals/{id}/status": {
            "put": {
                "tags": ["Goals"],
                "summary": "Pause, resume or cancel a goal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance rows",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Record one session's attendance in bulk",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hafalan": {
            "get": {
                "tags": ["Hafalan"],
                "summary": "List hafalan sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Hafalan"],
                "summary": "Record an evaluated session",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/invoices": {
            "get": {
                "tags": ["Payments"],
                "summary": "List invoices",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "summary": "Issue an invoice",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/invoices/{id}/checkout": {
            "post": {
                "tags": ["Payments"],
                "summary": "Open a checkout transaction",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invoice not in a checkout-able state"}
                }
            },
            "delete": {
                "tags": ["Payments"],
                "summary": "Abandon an open checkout",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/invoices/{id}/confirm": {
            "post": {
                "tags": ["Payments"],
                "summary": "Confirm settlement of a pending invoice",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/admin": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "School-wide dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/musyrif": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Per-halaqah dashboard for the authenticated musyrif",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/wali": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Per-child dashboard for the authenticated wali",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List the caller's recent report jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a recap export",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report via its signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RecordBehaviorRequest": {
            "type": "object",
            "properties": {
                "santri_id": {"type": "string"},
                "category": {"type": "string"},
                "polarity": {"type": "string", "enum": ["POSITIVE", "NEGATIVE", "NEUTRAL"]},
                "points": {"type": "integer"},
                "description": {"type": "string"},
                "occurred_at": {"type": "string"}
            },
            "required": ["santri_id", "category", "polarity", "description"]
        },
        "BehaviorSummary": {
            "type": "object",
            "properties": {
                "santri_id": {"type": "string"},
                "total_points": {"type": "integer"},
                "score": {"type": "integer"},
                "total_records": {"type": "integer"},
                "trend": {"type": "object"}
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
