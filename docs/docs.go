// Package docs holds the OpenAPI description of the HTTP API.
// Regenerate with: swag init -g cmd/sercha-edu/main.go -d ./,./internal/adapters/driving/http
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
        "/documents": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stores the file under the upload directory and ingests it into the subject (admin only). With async=true the ingestion is queued and a task is returned.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Upload and ingest a document",
                "parameters": [
                    {"type": "file", "description": "PDF or plain text document", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Subject namespace", "name": "subject", "in": "formData", "required": true},
                    {"type": "string", "description": "Title override", "name": "title", "in": "formData"},
                    {"type": "string", "description": "Difficulty label", "name": "difficulty", "in": "formData"},
                    {"type": "boolean", "description": "Queue the ingestion", "name": "async", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.IngestResult"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/domain.Task"}},
                    "400": {"description": "Invalid upload", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Document is being ingested", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Unreadable or empty document", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Embedding service failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Vector index or task queue unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/tasks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the state of a queued ingestion (admin only)",
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Get ingestion task",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Task"}},
                    "404": {"description": "Task not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Task queue not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/subjects": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists every subject namespace held by the vector index",
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "List subjects",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SubjectsResponse"}},
                    "503": {"description": "Vector index unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/subjects/{subject}/titles": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists the distinct document titles of a subject in first-seen order",
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "List document titles",
                "parameters": [
                    {"type": "string", "description": "Subject", "name": "subject", "in": "path", "required": true},
                    {"type": "integer", "description": "Records scanned", "name": "top_k", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.TitlesResponse"}},
                    "400": {"description": "Invalid top_k", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Vector index unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/subjects/{subject}/documents/{title}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns every stored chunk of a document ordered by chunk index, plus the rebuilt text. An unknown title yields no passages.",
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "Fetch a document",
                "parameters": [
                    {"type": "string", "description": "Subject", "name": "subject", "in": "path", "required": true},
                    {"type": "string", "description": "Document title", "name": "title", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.DocumentResponse"}},
                    "503": {"description": "Vector index unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/search": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Embeds the query and returns the subject's chunks scoring at least the threshold",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "Semantic search",
                "parameters": [
                    {"description": "Search query", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.SearchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SearchResult"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Embedding service failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Vector index unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/grammar/check": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Splits English text into sentences and corrects each one",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Learning"],
                "summary": "Check grammar",
                "parameters": [
                    {"description": "Text to check", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.GrammarRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.GrammarReport"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Text is not English", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "LLM not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/answer/analyze": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Grades the answer against the subject's most relevant passages",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Learning"],
                "summary": "Validate an answer",
                "parameters": [
                    {"description": "Question and answer", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.AnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.AnswerValidation"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "No relevant context found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "LLM not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/generate/questions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Extracts the main topics of a stored document and writes questions about the first two",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Learning"],
                "summary": "Generate questions",
                "parameters": [
                    {"description": "Document and question options", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.QuestionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.GeneratedQuestions"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Not enough topics", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "LLM not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.AnswerValidation": {
            "type": "object",
            "properties": {
                "incorrect_facts": {"type": "array", "items": {"$ref": "#/definitions/domain.IncorrectFact"}},
                "is_correct": {"type": "boolean"},
                "score": {"type": "number"}
            }
        },
        "domain.GeneratedQuestions": {
            "type": "object",
            "properties": {
                "book": {"type": "string"},
                "main_topic": {"type": "string"},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/domain.Question"}},
                "subject": {"type": "string"},
                "subtopic": {"type": "string"}
            }
        },
        "domain.GrammarReport": {
            "type": "object",
            "properties": {
                "language": {"type": "string"},
                "sentences": {"type": "array", "items": {"$ref": "#/definitions/domain.GrammarResult"}}
            }
        },
        "domain.GrammarResult": {
            "type": "object",
            "properties": {
                "corrected_sentence": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "sentence": {"type": "string"}
            }
        },
        "domain.IncorrectFact": {
            "type": "object",
            "properties": {
                "explanation": {"type": "string"},
                "statement": {"type": "string"}
            }
        },
        "domain.IngestResult": {
            "type": "object",
            "properties": {
                "chunk_count": {"type": "integer"},
                "duration": {"type": "integer", "example": 1500000},
                "format": {"type": "string"},
                "record_ids": {"type": "array", "items": {"type": "string"}},
                "stale_removed": {"type": "integer"},
                "subject": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "domain.Match": {
            "type": "object",
            "properties": {
                "chunk_index": {"type": "integer"},
                "id": {"type": "string"},
                "score": {"type": "number"},
                "text": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "domain.Passage": {
            "type": "object",
            "properties": {
                "chunk_index": {"type": "integer"},
                "end_offset": {"type": "integer"},
                "start_offset": {"type": "integer"},
                "text": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "domain.Question": {
            "type": "object",
            "properties": {
                "answer": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "question": {"type": "string"},
                "type": {"type": "string", "enum": ["mcq", "true_false", "text_based", "fill_in_the_blank"]}
            }
        },
        "domain.QuestionRequest": {
            "type": "object",
            "properties": {
                "book": {"type": "string"},
                "num_questions": {"type": "integer"},
                "subject": {"type": "string"},
                "type": {"type": "string", "enum": ["mcq", "true_false", "text_based", "fill_in_the_blank"]}
            }
        },
        "domain.SearchResult": {
            "type": "object",
            "properties": {
                "matches": {"type": "array", "items": {"$ref": "#/definitions/domain.Match"}},
                "query": {"type": "string"},
                "subject": {"type": "string"},
                "threshold": {"type": "number"},
                "took": {"type": "integer", "example": 1500000}
            }
        },
        "domain.Task": {
            "type": "object",
            "properties": {
                "attempts": {"type": "integer"},
                "error": {"type": "string"},
                "id": {"type": "string"},
                "max_attempts": {"type": "integer"},
                "payload": {"type": "object", "additionalProperties": {"type": "string"}},
                "result": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string", "enum": ["pending", "processing", "completed", "failed"]},
                "type": {"type": "string"}
            }
        },
        "http.AnswerRequest": {
            "type": "object",
            "properties": {
                "answer": {"type": "string", "example": "The assassination of the archduke."},
                "question": {"type": "string", "example": "What caused World War 1?"},
                "subject": {"type": "string", "example": "history"}
            }
        },
        "http.DocumentResponse": {
            "type": "object",
            "properties": {
                "passages": {"type": "array", "items": {"$ref": "#/definitions/domain.Passage"}},
                "subject": {"type": "string"},
                "text": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "description": "API error response",
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"}
            }
        },
        "http.GrammarRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "She go to school every day."}
            }
        },
        "http.SearchRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string", "example": "What caused World War 1?"},
                "subject": {"type": "string", "example": "history"},
                "threshold": {"type": "number", "example": 0.45},
                "top_k": {"type": "integer", "example": 5}
            }
        },
        "http.SubjectsResponse": {
            "type": "object",
            "properties": {
                "subjects": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.TitlesResponse": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "titles": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Sercha Edu API",
	Description:      "Document ingestion, semantic retrieval and study tools over a hosted vector index.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
