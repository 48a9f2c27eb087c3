// Package docs holds the swagger document served under /swagger. It is maintained by
// hand in the layout swag emits; keep it in step with the handler annotations.
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
        "/readyz": {
            "get": {
                "description": "Reports whether the database answers a ping. Returns 503 while it does not.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "System"
                ],
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/healthz": {
            "get": {
                "description": "Returns service status",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "System"
                ],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object"
                        }
                    }
                }
            }
        },
        "/api/v2/payment/webhook/stripe": {
            "post": {
                "description": "Receives Stripe events. The raw body is verified against the Stripe-Signature header with every configured environment secret.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Webhook"
                ],
                "summary": "Stripe Webhook",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Stripe signature header",
                        "name": "Stripe-Signature",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Stripe event envelope",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "string"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/response.WebhookAck"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/response.WebhookAck"
                        }
                    }
                }
            }
        },
        "/api/v1/documents/checkout": {
            "post": {
                "description": "Accepts a PDF, counts its pages, stores a draft document and opens a Stripe checkout session billed per page.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Documents"
                ],
                "summary": "Create Checkout",
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "type": "file",
                        "description": "PDF document",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Customer id",
                        "name": "user_id",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Customer display name",
                        "name": "client_name",
                        "in": "formData",
                        "required": false
                    },
                    {
                        "type": "string",
                        "description": "standard, certified or sworn",
                        "name": "document_type",
                        "in": "formData",
                        "required": false
                    },
                    {
                        "type": "string",
                        "description": "Source language",
                        "name": "source_language",
                        "in": "formData",
                        "required": false
                    },
                    {
                        "type": "string",
                        "description": "Target language",
                        "name": "target_language",
                        "in": "formData",
                        "required": false
                    },
                    {
                        "type": "string",
                        "description": "Source currency",
                        "name": "source_currency",
                        "in": "formData",
                        "required": false
                    },
                    {
                        "type": "string",
                        "description": "Target currency",
                        "name": "target_currency",
                        "in": "formData",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespCheckout"
                        }
                    }
                }
            }
        },
        "/api/v1/documents/missing_files": {
            "get": {
                "description": "Lists a customer's paid documents that have no stored file.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Documents"
                ],
                "summary": "List Missing Files",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Customer id",
                        "name": "user_id",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Offset",
                        "name": "from",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "description": "Page size",
                        "name": "size",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespMissingFiles"
                        }
                    }
                }
            }
        },
        "/api/v1/documents/{id}": {
            "get": {
                "description": "Returns a document and whether it is waiting for a file resubmission.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Documents"
                ],
                "summary": "Get Document",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Document id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespDocumentStatus"
                        }
                    }
                }
            }
        },
        "/api/v1/documents/{id}/retry_upload": {
            "post": {
                "description": "Resubmits the file of a paid document whose upload failed. The file must be a PDF with exactly the paid page count.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Documents"
                ],
                "summary": "Retry Upload",
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Document id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "file",
                        "description": "PDF document",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/recovery.RetryResult"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/recovery.RetryResult"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/recovery.RetryResult"
                        }
                    }
                }
            }
        },
        "/api/v1/storage/events": {
            "post": {
                "description": "Accepts a CloudEvent announcing a finalized object in the document bucket and forwards the document to the automation webhook once.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Webhook"
                ],
                "summary": "Storage Event",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "CloudEvent data (binary or structured mode)",
                        "name": "event",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/delivery.ObjectFinalized"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespDelivery"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/missing_files": {
            "post": {
                "description": "Lists every paid document without a stored file, with optional filters.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "List Missing Files (Admin)",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Filters and pagination",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/recovery.ListMissingRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespMissingFiles"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/list_payments": {
            "post": {
                "description": "Retrieves a paginated and filterable list of settled payments.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "List Payments (Admin)",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Filters, pagination and sorting",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/payment.ScanPaymentsRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespListPayments"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/statistics": {
            "post": {
                "description": "Computes the requested statistic items over a date window. Items are computed concurrently.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Payment and Delivery Statistics (Admin)",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Window, filters and data items",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/statistics.StatisticRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespStatistics"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/sweeper/report": {
            "post": {
                "description": "Lists abandoned drafts that a sweep would delete and the ones it would keep, with reasons.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Sweeper Report (Admin)",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/sweeper.Summary"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/sweeper/run": {
            "post": {
                "description": "Deletes abandoned drafts judged safe. At most one batch per call.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Sweeper Run (Admin)",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/sweeper.Summary"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/sweeper/sync": {
            "post": {
                "description": "Reconciles stale pending checkout sessions with Stripe.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Sweeper Session Sync (Admin)",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/sweeper.SyncSummary"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/action_logs": {
            "get": {
                "description": "Returns the audit lines of one document or payment session, oldest first.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Audit Trail (Admin)",
                "parameters": [
                    {
                        "type": "string",
                        "description": "document or payment_session",
                        "name": "entity_type",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Entity id",
                        "name": "entity_id",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespActionLogs"
                        }
                    }
                }
            }
        },
        "/api/v1/admin/stripe_events/{id}": {
            "get": {
                "description": "Returns the journal rows of one Stripe event.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Stripe Event Journal (Admin)",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Stripe event id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespStripeEvents"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "response.WebhookAck": {
            "type": "object",
            "properties": {
                "received": {
                    "type": "boolean"
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "recovery.RetryResult": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "fileUrl": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                },
                "documentId": {
                    "type": "string"
                }
            }
        },
        "recovery.ListMissingRequest": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "string"
                },
                "filters": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.CommonFilter"
                    }
                },
                "from": {
                    "type": "integer"
                },
                "size": {
                    "type": "integer"
                }
            }
        },
        "recovery.ListMissingResponse": {
            "type": "object",
            "properties": {
                "total": {
                    "type": "integer"
                },
                "documents": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/recovery.MissingFileDocument"
                    }
                }
            }
        },
        "recovery.MissingFileDocument": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "client_name": {
                    "type": "string"
                },
                "filename": {
                    "type": "string"
                },
                "original_filename": {
                    "type": "string"
                },
                "document_type": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "file_url": {
                    "type": "string"
                },
                "upload_failed_at": {
                    "type": "string"
                },
                "total_cost": {
                    "type": "string"
                },
                "source_language": {
                    "type": "string"
                },
                "target_language": {
                    "type": "string"
                },
                "source_currency": {
                    "type": "string"
                },
                "target_currency": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "pages": {
                    "type": "integer"
                },
                "upload_retry_count": {
                    "type": "integer"
                },
                "needs_recovery": {
                    "type": "boolean"
                }
            }
        },
        "types.CommonFilter": {
            "type": "object",
            "properties": {
                "field": {
                    "type": "string"
                },
                "operator": {
                    "type": "string"
                },
                "values": {
                    "type": "array",
                    "items": {}
                }
            }
        },
        "payment.ScanPaymentsRequest": {
            "type": "object",
            "properties": {
                "filters": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.CommonFilter"
                    }
                },
                "from": {
                    "type": "integer"
                },
                "size": {
                    "type": "integer"
                },
                "sort_by": {
                    "type": "string"
                },
                "sort_order": {
                    "type": "string"
                }
            }
        },
        "payment.ScanPaymentsResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Payment"
                    }
                },
                "total": {
                    "type": "integer"
                }
            }
        },
        "models.Payment": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "document_id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "session_id": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "payment_date": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "amount": {
                    "type": "integer"
                },
                "gross_amount": {
                    "type": "integer"
                },
                "fee_amount": {
                    "type": "integer"
                }
            }
        },
        "models.ActionLog": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "actor": {
                    "type": "string"
                },
                "action": {
                    "type": "string"
                },
                "entity_type": {
                    "type": "string"
                },
                "entity_id": {
                    "type": "string"
                },
                "trace_id": {
                    "type": "string"
                },
                "metadata": {
                    "type": "object"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "models.StripeEventLog": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "event_id": {
                    "type": "string"
                },
                "event_type": {
                    "type": "string"
                },
                "environment": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "payload": {
                    "type": "object"
                },
                "result": {
                    "type": "object"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "delivery.ObjectFinalized": {
            "type": "object",
            "properties": {
                "bucket": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "size": {
                    "type": "string"
                },
                "contentType": {
                    "type": "string"
                },
                "metadata": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "delivery.DeliveryResult": {
            "type": "object",
            "properties": {
                "sent": {
                    "type": "boolean"
                },
                "already_processed": {
                    "type": "boolean"
                },
                "status_code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "sweeper.ReportItem": {
            "type": "object",
            "properties": {
                "documentId": {
                    "type": "string"
                },
                "userId": {
                    "type": "string"
                },
                "filename": {
                    "type": "string"
                },
                "createdAt": {
                    "type": "string"
                },
                "sessionId": {
                    "type": "string"
                },
                "sessionStatus": {
                    "type": "string"
                },
                "reason": {
                    "type": "string"
                }
            }
        },
        "sweeper.Report": {
            "type": "object",
            "properties": {
                "documentsToCleanup": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/sweeper.ReportItem"
                    }
                },
                "documentsToKeep": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/sweeper.ReportItem"
                    }
                }
            }
        },
        "sweeper.Summary": {
            "type": "object",
            "properties": {
                "checked": {
                    "type": "integer"
                },
                "deleted": {
                    "type": "integer"
                },
                "storageDeleted": {
                    "type": "integer"
                },
                "sessionsDeleted": {
                    "type": "integer"
                },
                "errors": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "report": {
                    "$ref": "#/definitions/sweeper.Report"
                }
            }
        },
        "sweeper.SyncSummary": {
            "type": "object",
            "properties": {
                "checked": {
                    "type": "integer"
                },
                "skipped": {
                    "type": "integer"
                },
                "expired": {
                    "type": "integer"
                },
                "completed": {
                    "type": "integer"
                },
                "unchanged": {
                    "type": "integer"
                },
                "errors": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "handlers.CheckoutResponse": {
            "type": "object",
            "properties": {
                "document_id": {
                    "type": "string"
                },
                "session_id": {
                    "type": "string"
                },
                "checkout_url": {
                    "type": "string"
                },
                "pages": {
                    "type": "integer"
                },
                "total_cost": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "handlers.DocumentStatusResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "client_name": {
                    "type": "string"
                },
                "filename": {
                    "type": "string"
                },
                "original_filename": {
                    "type": "string"
                },
                "document_type": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "file_url": {
                    "type": "string"
                },
                "upload_failed_at": {
                    "type": "string"
                },
                "total_cost": {
                    "type": "string"
                },
                "source_language": {
                    "type": "string"
                },
                "target_language": {
                    "type": "string"
                },
                "source_currency": {
                    "type": "string"
                },
                "target_currency": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "pages": {
                    "type": "integer"
                },
                "upload_retry_count": {
                    "type": "integer"
                },
                "needs_recovery": {
                    "type": "boolean"
                }
            }
        },
        "handlers.RespCheckout": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/handlers.CheckoutResponse"
                }
            }
        },
        "handlers.RespDocumentStatus": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/handlers.DocumentStatusResponse"
                }
            }
        },
        "handlers.RespMissingFiles": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/recovery.ListMissingResponse"
                }
            }
        },
        "handlers.RespListPayments": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/payment.ScanPaymentsResponse"
                }
            }
        },
        "handlers.RespStatistics": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/statistics.StatisticResponse"
                }
            }
        },
        "statistics.StatisticRequest": {
            "type": "object",
            "properties": {
                "from": {
                    "type": "string"
                },
                "to": {
                    "type": "string"
                },
                "filters": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.CommonFilter"
                    }
                },
                "data_items": {
                    "type": "array",
                    "items": {
                        "type": "string",
                        "enum": [
                            "daily_payment_count",
                            "daily_revenue",
                            "total_revenue",
                            "document_status_count",
                            "missing_file_count"
                        ]
                    }
                }
            }
        },
        "statistics.StatisticResponse": {
            "type": "object",
            "properties": {
                "data_items": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "array",
                        "items": {
                            "$ref": "#/definitions/statistics.StatisticDataItem"
                        }
                    }
                }
            }
        },
        "statistics.StatisticDataItem": {
            "type": "object",
            "properties": {
                "date": {
                    "type": "string"
                },
                "label": {
                    "type": "string"
                },
                "value": {
                    "type": "integer"
                },
                "value2": {
                    "type": "integer"
                }
            }
        },
        "handlers.RespActionLogs": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.ActionLog"
                    }
                }
            }
        },
        "handlers.RespStripeEvents": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.StripeEventLog"
                    }
                }
            }
        },
        "handlers.RespDelivery": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/delivery.DeliveryResult"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8888",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "DocPay Backend API",
	Description:      "Payment-to-document delivery reconciliation: Stripe checkout, webhooks, file recovery and draft sweeping.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
