package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TeachLink API",
        "description": "Application lifecycle and interview negotiation API",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Applications", "description": "Application lifecycle and status"},
        {"name": "Interviews", "description": "Interview scheduling negotiation"},
        {"name": "Notes", "description": "Internal notes ledger"},
        {"name": "Documents", "description": "Applicant document downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive a JWT",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/applications/{id}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Fetch an application with interview and notes",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/jobs/{jobId}/applications": {
            "get": {
                "tags": ["Applications"],
                "summary": "List applications for a job posting",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/applications/{id}/status": {
            "patch": {
                "tags": ["Applications"],
                "summary": "Advance an application through its lifecycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or concurrent write"}
                }
            }
        },
        "/applications/{id}/timeline": {
            "get": {
                "tags": ["Applications"],
                "summary": "Reconstructed lifecycle timeline",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/applications/{id}/interview-request": {
            "post": {
                "tags": ["Interviews"],
                "summary": "Send an interview invitation with proposed slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Invitation already exists"}
                }
            }
        },
        "/applications/{id}/interview-response": {
            "patch": {
                "tags": ["Interviews"],
                "summary": "Accept a proposed slot or suggest an alternative",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invitation already answered"}
                }
            }
        },
        "/applications/{id}/interview-alternative-response": {
            "patch": {
                "tags": ["Interviews"],
                "summary": "Accept or decline the candidate's alternative slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "No alternative awaiting review"}
                }
            }
        },
        "/applications/{id}/notes": {
            "get": {
                "tags": ["Notes"],
                "summary": "List notes, newest first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Notes"],
                "summary": "Append a note",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/applications/{id}/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download an applicant document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "type", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Document not found"}
                }
            }
        },
        "/applications/{id}/download-link": {
            "post": {
                "tags": ["Documents"],
                "summary": "Issue a signed, expiring download link",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "type", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
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
                "pagination": {"type": "object"},
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
