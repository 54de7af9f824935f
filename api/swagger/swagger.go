package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Records API",
        "description": "Student records, two-tier change requests and tutor assignment",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Authentication", "description": "Login for admins, students, staff and parents"},
        {"name": "Change Requests", "description": "Student record changes reviewed by admin2 then executed by admin1"},
        {"name": "Students", "description": "Student records, attendance and marks"},
        {"name": "Staff", "description": "Staff, head of department and subject allocation"},
        {"name": "Parents", "description": "Parent profiles linked to one student"},
        {"name": "Catalog", "description": "Departments and subjects"},
        {"name": "Assignments", "description": "Round robin tutor assignment"},
        {"name": "System", "description": "Persistence gateway status"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/change-requests": {
            "get": {
                "tags": ["Change Requests"],
                "summary": "List change requests",
                "description": "Students only see their own requests.",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "studentId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Change Requests"],
                "summary": "Submit a change request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitChangeRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/change-requests/{id}": {
            "get": {
                "tags": ["Change Requests"],
                "summary": "Get change request",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/change-requests/{id}/review": {
            "post": {
                "tags": ["Change Requests"],
                "summary": "First-tier review (admin2)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FirstTierReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid or stale state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/change-requests/{id}/reject": {
            "post": {
                "tags": ["Change Requests"],
                "summary": "Reject at first tier (admin2)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid or stale state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/change-requests/{id}/execute": {
            "post": {
                "tags": ["Change Requests"],
                "summary": "Second-tier execution (admin1)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid or stale state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "tutorId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Create or replace student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/students/{id}/attendance": {
            "post": {
                "tags": ["Students"],
                "summary": "Record attendance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttendanceRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{id}/marks": {
            "post": {
                "tags": ["Students"],
                "summary": "Record subject mark",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/staff": {
            "get": {
                "tags": ["Staff"],
                "summary": "List staff",
                "parameters": [{"name": "department", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Staff"],
                "summary": "Create staff member",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStaffRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/staff/{id}/hod": {
            "put": {
                "tags": ["Staff"],
                "summary": "Set head of department status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"isHod": {"type": "boolean"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/staff/{id}/allocation/review": {
            "post": {
                "tags": ["Staff"],
                "summary": "Verify or reject a pending allocation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"approve": {"type": "boolean"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List subjects",
                "parameters": [{"name": "department", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/tutor-assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign tutors",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/gateway/status": {
            "get": {
                "tags": ["System"],
                "summary": "Persistence gateway status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
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
        "SubmitChangeRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "field": {"type": "string", "enum": ["Name", "Contact", "Address", "DOB"]},
                "newValue": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["field", "newValue"]
        },
        "FirstTierReviewRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"}
            },
            "required": ["approve"]
        },
        "StudentRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "contactNumber": {"type": "string"},
                "address": {"type": "string"},
                "dob": {"type": "string", "format": "date"},
                "department": {"type": "string"},
                "section": {"type": "string"},
                "batch": {"type": "string"},
                "currentSemester": {"type": "integer"},
                "tutorId": {"type": "string"},
                "parentId": {"type": "string"},
                "verified": {"type": "boolean"},
                "backlogs": {"type": "array", "items": {"type": "string"}},
                "performanceReport": {"type": "string"}
            },
            "required": ["email", "name", "department"]
        },
        "AttendanceRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "subjectCode": {"type": "string"},
                "present": {"type": "boolean"}
            },
            "required": ["date", "present"]
        },
        "MarkRequest": {
            "type": "object",
            "properties": {
                "subjectCode": {"type": "string"},
                "subjectName": {"type": "string"},
                "semester": {"type": "integer"},
                "internal": {"type": "number"},
                "external": {"type": "number"},
                "grade": {"type": "string"}
            },
            "required": ["subjectCode", "semester"]
        },
        "CreateStaffRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "department": {"type": "string"},
                "designation": {"type": "string"},
                "isHod": {"type": "boolean"},
                "allocatedSubjects": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["name", "email", "department"]
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
