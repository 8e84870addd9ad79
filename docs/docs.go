// Package docs is generated by swag from the handler annotations.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/apierror.Response"}}}
            }
        },
        "/api/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a medical store owner",
                "parameters": [{"description": "Owner account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.RegisterRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/apierror.Response"}}}
            }
        },
        "/api/auth/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/sales": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["sales"],
                "summary": "List sales",
                "parameters": [
                    {"type": "integer", "description": "Page (1-based)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 200)", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Atomically checks and decrements stock for every cart line, records the sale and its items, and attributes it to the caller.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sales"],
                "summary": "Create a sale",
                "parameters": [{"description": "Cart", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateSaleRequest"}}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierror.Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/apierror.Response"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/apierror.Response"}}
                }
            }
        },
        "/api/sales/{id}/invoice": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "tags": ["sales"],
                "summary": "Download the invoice PDF of a sale",
                "parameters": [{"type": "string", "description": "Sale ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apierror.Response"}}}
            }
        },
        "/api/products": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "List the store's batches, newest first",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Register a stock batch",
                "parameters": [{"description": "Batch", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateProductRequest"}}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/distributors": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["distributors"],
                "summary": "List distributors by total purchase",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distributors"],
                "summary": "Add a distributor to the store ledger",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/stores": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["stores"],
                "summary": "All stores with sales aggregates",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/stores/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["stores"],
                "summary": "The owner's store, or null",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stores"],
                "summary": "Create or update the owner's store",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/apierror.Response"}}}
            }
        }
    },
    "definitions": {
        "apierror.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "dto.RegisterRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string", "minLength": 6}}
        },
        "dto.SaleItemRequest": {
            "type": "object",
            "properties": {
                "productId": {"type": "string"},
                "name": {"type": "string"},
                "quantity": {"type": "number"},
                "price": {"type": "number"}
            }
        },
        "dto.CustomerRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "mobile": {"type": "string"},
                "address": {"type": "string"},
                "doctorName": {"type": "string"},
                "doctorMobile": {"type": "string"}
            }
        },
        "dto.CreateSaleRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/dto.SaleItemRequest"}},
                "paymentMethod": {"type": "string", "enum": ["CASH", "ONLINE"]},
                "customer": {"$ref": "#/definitions/dto.CustomerRequest"},
                "cashierId": {"type": "string"}
            }
        },
        "dto.CreateProductRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "batchNumber": {"type": "string"},
                "expiryDate": {"type": "string", "example": "2027-03-31"},
                "quantity": {"type": "number"},
                "costPrice": {"type": "number"},
                "mrp": {"type": "number"},
                "discount": {"type": "number"},
                "supplier": {"type": "string"},
                "reorderLevel": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "pharmapos API",
	Description:      "Pharmacy point-of-sale backend: inventory batches, sales, stores and users.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
