package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports readiness per backing service
// @Description Readiness status per backing service
type ReadyResponse struct {
	Status   string            `json:"status" example:"ready"`
	Services map[string]string `json:"services"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// SearchRequest is the body of a semantic search
type SearchRequest struct {
	Query     string   `json:"query" example:"What caused World War 1?"`
	Subject   string   `json:"subject" example:"history"`
	TopK      int      `json:"top_k,omitempty" example:"5"`
	Threshold *float64 `json:"threshold,omitempty" example:"0.45"`
}

// GrammarRequest is the body of a grammar check
type GrammarRequest struct {
	Text string `json:"text" example:"She go to school every day."`
}

// AnswerRequest is the body of an answer validation
type AnswerRequest struct {
	Question string `json:"question" example:"What caused World War 1?"`
	Answer   string `json:"answer" example:"The assassination of the archduke."`
	Subject  string `json:"subject" example:"history"`
}

// SubjectsResponse lists the subjects held by the index
type SubjectsResponse struct {
	Subjects []string `json:"subjects"`
}

// TitlesResponse lists the document titles of one subject
type TitlesResponse struct {
	Subject string   `json:"subject"`
	Titles  []string `json:"titles"`
}

// DocumentResponse is a fetched document with its rebuilt text
type DocumentResponse struct {
	Subject  string           `json:"subject"`
	Title    string           `json:"title"`
	Passages []domain.Passage `json:"passages"`
	Text     string           `json:"text"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the embedding service, the vector index and the LLM
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
		return
	}

	services, ok := s.ready.Ready(r.Context())
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not ready", Services: services})
		return
	}
	writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Services: services})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "api documentation unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// Ingestion endpoints

// handleUploadDocument godoc
// @Summary      Upload and ingest a document
// @Description  Stores the file under the upload directory and ingests it into the subject (admin only). With async=true the ingestion is queued and a task is returned.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file        formData  file    true   "PDF or plain text document"
// @Param        subject     formData  string  true   "Subject namespace"
// @Param        title       formData  string  false  "Title override"
// @Param        difficulty  formData  string  false  "Difficulty label"
// @Param        async       formData  bool    false  "Queue the ingestion"
// @Success      201  {object}  domain.IngestResult
// @Success      202  {object}  domain.Task
// @Failure      400  {object}  ErrorResponse  "Invalid upload"
// @Failure      409  {object}  ErrorResponse  "Document is being ingested"
// @Failure      422  {object}  ErrorResponse  "Unreadable or empty document"
// @Failure      502  {object}  ErrorResponse  "Embedding service failed"
// @Failure      503  {object}  ErrorResponse  "Vector index or task queue unavailable"
// @Router       /documents [post]
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	subject := strings.TrimSpace(r.FormValue("subject"))
	if !validPathSegment(subject) {
		writeError(w, http.StatusBadRequest, "a subject without path separators is required")
		return
	}

	async := false
	if raw := r.FormValue("async"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "async must be a boolean")
			return
		}
		async = v
	}

	path, err := s.saveUpload(r, subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	req := driving.IngestRequest{
		Path:       path,
		Subject:    subject,
		Title:      strings.TrimSpace(r.FormValue("title")),
		Difficulty: strings.TrimSpace(r.FormValue("difficulty")),
	}

	if async {
		task, err := s.tasks.SubmitIngest(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, task)
		return
	}

	result, err := s.ingestion.Ingest(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// saveUpload writes the uploaded file to <upload dir>/<subject>/<file name>,
// replacing an earlier upload of the same name
func (s *Server) saveUpload(r *http.Request, subject string) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("%w: a file field is required", domain.ErrInvalidInput)
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !validPathSegment(name) {
		return "", fmt.Errorf("%w: invalid file name %q", domain.ErrInvalidInput, header.Filename)
	}

	dir := s.uploadDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "sercha-edu")
	}
	dir = filepath.Join(dir, subject)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// handleGetTask godoc
// @Summary      Get ingestion task
// @Description  Returns the state of a queued ingestion (admin only)
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Failure      503  {object}  ErrorResponse  "Task queue not configured"
// @Router       /tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Retrieval endpoints

// handleListSubjects godoc
// @Summary      List subjects
// @Description  Lists every subject namespace held by the vector index
// @Tags         Retrieval
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SubjectsResponse
// @Failure      503  {object}  ErrorResponse  "Vector index unavailable"
// @Router       /subjects [get]
func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.retrieval.ListSubjects(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubjectsResponse{Subjects: subjects})
}

// handleListTitles godoc
// @Summary      List document titles
// @Description  Lists the distinct document titles of a subject in first-seen order
// @Tags         Retrieval
// @Produce      json
// @Security     BearerAuth
// @Param        subject  path      string  true   "Subject"
// @Param        top_k    query     int     false  "Records scanned"
// @Success      200      {object}  TitlesResponse
// @Failure      400      {object}  ErrorResponse  "Invalid top_k"
// @Failure      503      {object}  ErrorResponse  "Vector index unavailable"
// @Router       /subjects/{subject}/titles [get]
func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")

	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "top_k must be a non-negative integer")
			return
		}
		topK = v
	}

	titles, err := s.retrieval.ListTitles(r.Context(), subject, topK)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TitlesResponse{Subject: subject, Titles: titles})
}

// handleFetchDocument godoc
// @Summary      Fetch a document
// @Description  Returns every stored chunk of a document ordered by chunk index, plus the rebuilt text. An unknown title yields no passages.
// @Tags         Retrieval
// @Produce      json
// @Security     BearerAuth
// @Param        subject  path      string  true  "Subject"
// @Param        title    path      string  true  "Document title"
// @Success      200      {object}  DocumentResponse
// @Failure      503      {object}  ErrorResponse  "Vector index unavailable"
// @Router       /subjects/{subject}/documents/{title} [get]
func (s *Server) handleFetchDocument(w http.ResponseWriter, r *http.Request) {
	subject, title := r.PathValue("subject"), r.PathValue("title")

	passages, err := s.retrieval.Fetch(r.Context(), subject, title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		Subject:  subject,
		Title:    title,
		Passages: passages,
		Text:     domain.ReconstructText(passages),
	})
}

// handleSearch godoc
// @Summary      Semantic search
// @Description  Embeds the query and returns the subject's chunks scoring at least the threshold
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      SearchRequest  true  "Search query"
// @Success      200      {object}  domain.SearchResult
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      502      {object}  ErrorResponse  "Embedding service failed"
// @Failure      503      {object}  ErrorResponse  "Vector index unavailable"
// @Router       /search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.retrieval.Search(r.Context(), req.Query, req.Subject, domain.SearchOptions{
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Learning endpoints

// handleGrammarCheck godoc
// @Summary      Check grammar
// @Description  Splits English text into sentences and corrects each one
// @Tags         Learning
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      GrammarRequest  true  "Text to check"
// @Success      200      {object}  domain.GrammarReport
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      422      {object}  ErrorResponse  "Text is not English"
// @Failure      503      {object}  ErrorResponse  "LLM not configured"
// @Router       /grammar/check [post]
func (s *Server) handleGrammarCheck(w http.ResponseWriter, r *http.Request) {
	var req GrammarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.grammar.Check(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAnalyzeAnswer godoc
// @Summary      Validate an answer
// @Description  Grades the answer against the subject's most relevant passages
// @Tags         Learning
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      AnswerRequest  true  "Question and answer"
// @Success      200      {object}  domain.AnswerValidation
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      404      {object}  ErrorResponse  "No relevant context found"
// @Failure      503      {object}  ErrorResponse  "LLM not configured"
// @Router       /answer/analyze [post]
func (s *Server) handleAnalyzeAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	validation, err := s.answer.Validate(r.Context(), req.Question, req.Answer, req.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validation)
}

// handleGenerateQuestions godoc
// @Summary      Generate questions
// @Description  Extracts the main topics of a stored document and writes questions about the first two
// @Tags         Learning
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.QuestionRequest  true  "Document and question options"
// @Success      200      {object}  domain.GeneratedQuestions
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Failure      422      {object}  ErrorResponse  "Not enough topics"
// @Failure      503      {object}  ErrorResponse  "LLM not configured"
// @Router       /generate/questions [post]
func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req domain.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	questions, err := s.questions.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// Helper functions

// validPathSegment rejects names that would escape their directory
func validPathSegment(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoRelevantContext):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIngestInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExtraction), errors.Is(err, domain.ErrNoContent),
		errors.Is(err, domain.ErrUnsupportedLanguage), errors.Is(err, domain.ErrNotEnoughTopics):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmbeddingFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrIndexUnavailable), errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
