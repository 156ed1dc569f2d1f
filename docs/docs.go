// Package docs holds the OpenAPI description served at /docs.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Liveness and dependency check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/post": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create a post; polls and surveys carry their voting definition",
                "parameters": [
                    {"description": "post", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.NewPost"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.postResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            }
        },
        "/post/{postId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get a post with its current status",
                "parameters": [{"type": "string", "description": "post id", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.postResp"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Delete a post together with its votes",
                "parameters": [{"type": "string", "description": "post id", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.okResp"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.errorResp"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            }
        },
        "/post/{postId}/vote": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["voting"],
                "summary": "Vote on a poll or answer a survey question",
                "parameters": [
                    {"type": "string", "description": "post id", "name": "postId", "in": "path", "required": true},
                    {"description": "option for polls and multiple-choice, response or rating otherwise", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.voteReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.okResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResp"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResp"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            }
        },
        "/post/{postId}/results": {
            "get": {
                "produces": ["application/json"],
                "tags": ["voting"],
                "summary": "Aggregated results of a poll or survey",
                "parameters": [{"type": "string", "description": "post id", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.resultsResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResp"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            }
        },
        "/post/{postId}/live": {
            "get": {
                "tags": ["voting"],
                "summary": "Stream results of a poll or survey over a websocket",
                "description": "Sends a results snapshot on connect and again after every accepted vote.",
                "parameters": [{"type": "string", "description": "post id", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            }
        },
        "/users": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a username used to attribute votes",
                "parameters": [
                    {"description": "user", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/voting.NewUser"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.userResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResp"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            }
        },
        "/users/{userId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Delete a user and remove their votes, responses and ratings",
                "parameters": [{"type": "string", "description": "user id", "name": "userId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.purgeResp"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.errorResp"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResp"}}
                }
            }
        }
    },
    "definitions": {
        "domain.NewPost": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["general", "issue", "poll", "survey", "marketplace", "announcements"]},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "createdBy": {"type": "string"},
                "poll": {"type": "object"},
                "survey": {"type": "object"}
            }
        },
        "voting.NewUser": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "email": {"type": "string"}}
        },
        "http.voteReq": {
            "type": "object",
            "properties": {
                "postId": {"type": "string"},
                "userId": {"type": "string"},
                "option": {"type": "string"},
                "response": {"type": "string"},
                "rating": {"type": "integer", "minimum": 1, "maximum": 5},
                "questionIndex": {"type": "integer"}
            }
        },
        "http.okResp": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}}
        },
        "http.errorResp": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}}
        },
        "http.postResp": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "post": {"type": "object"}}
        },
        "http.userResp": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "user": {"type": "object"}}
        },
        "http.purgeResp": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "postsTouched": {"type": "integer"}}
        },
        "http.resultsResp": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "results": {"type": "object"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "TownSquare Voting API",
	Description:      "Poll and survey voting with per-user idempotent submissions and aggregated results.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
