package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// Mock services for testing

type mockIngestionService struct {
	ingestFn func(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error)
}

func (m *mockIngestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockTaskService struct {
	submitFn func(ctx context.Context, req driving.IngestRequest) (*domain.Task, error)
	getFn    func(ctx context.Context, id string) (*domain.Task, error)
}

func (m *mockTaskService) SubmitIngest(ctx context.Context, req driving.IngestRequest) (*domain.Task, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return nil, domain.ErrServiceUnavailable
}

func (m *mockTaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type mockRetrievalService struct {
	fetchFn    func(ctx context.Context, subject, title string) ([]domain.Passage, error)
	searchFn   func(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error)
	subjectsFn func(ctx context.Context) ([]string, error)
	titlesFn   func(ctx context.Context, subject string, topK int) ([]string, error)
}

func (m *mockRetrievalService) Fetch(ctx context.Context, subject, title string) ([]domain.Passage, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, subject, title)
	}
	return []domain.Passage{}, nil
}

func (m *mockRetrievalService) Search(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, subject, opts)
	}
	return &domain.SearchResult{Matches: []domain.Match{}}, nil
}

func (m *mockRetrievalService) ListSubjects(ctx context.Context) ([]string, error) {
	if m.subjectsFn != nil {
		return m.subjectsFn(ctx)
	}
	return []string{}, nil
}

func (m *mockRetrievalService) ListTitles(ctx context.Context, subject string, topK int) ([]string, error) {
	if m.titlesFn != nil {
		return m.titlesFn(ctx, subject, topK)
	}
	return []string{}, nil
}

type mockGrammarService struct {
	checkFn func(ctx context.Context, text string) (*domain.GrammarReport, error)
}

func (m *mockGrammarService) Check(ctx context.Context, text string) (*domain.GrammarReport, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, text)
	}
	return nil, domain.ErrServiceUnavailable
}

type mockAnswerService struct {
	validateFn func(ctx context.Context, question, answer, subject string) (*domain.AnswerValidation, error)
}

func (m *mockAnswerService) Validate(ctx context.Context, question, answer, subject string) (*domain.AnswerValidation, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, question, answer, subject)
	}
	return nil, domain.ErrServiceUnavailable
}

type mockQuestionService struct {
	generateFn func(ctx context.Context, req domain.QuestionRequest) (*domain.GeneratedQuestions, error)
}

func (m *mockQuestionService) Generate(ctx context.Context, req domain.QuestionRequest) (*domain.GeneratedQuestions, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, req)
	}
	return nil, domain.ErrServiceUnavailable
}

type mockReadiness struct {
	status map[string]string
	ok     bool
}

func (m *mockReadiness) Ready(ctx context.Context) (map[string]string, bool) {
	return m.status, m.ok
}

// testServices holds every mock so a test can set the hooks it needs
type testServices struct {
	ingestion *mockIngestionService
	tasks     *mockTaskService
	retrieval *mockRetrievalService
	grammar   *mockGrammarService
	answer    *mockAnswerService
	questions *mockQuestionService
}

func newTestServices() *testServices {
	return &testServices{
		ingestion: &mockIngestionService{},
		tasks:     &mockTaskService{},
		retrieval: &mockRetrievalService{},
		grammar:   &mockGrammarService{},
		answer:    &mockAnswerService{},
		questions: &mockQuestionService{},
	}
}

func (ts *testServices) server(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.UploadDir = t.TempDir()
	return NewServer(cfg, Services{
		Ingestion: ts.ingestion,
		Retrieval: ts.retrieval,
		Grammar:   ts.grammar,
		Answer:    ts.answer,
		Questions: ts.questions,
		Tasks:     ts.tasks,
	}, nil, nil, nil)
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

// Health endpoints

func TestHandleHealth(t *testing.T) {
	s := newTestServices().server(t)

	rec := doRequest(s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp StatusResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
}

func TestHandleVersion(t *testing.T) {
	s := newTestServices().server(t)

	rec := doRequest(s, http.MethodGet, "/version", nil)

	var resp VersionResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name       string
		readiness  *mockReadiness
		wantStatus int
	}{
		{"no checker", nil, http.StatusOK},
		{"ready", &mockReadiness{status: map[string]string{"index": "ok"}, ok: true}, http.StatusOK},
		{"not ready", &mockReadiness{status: map[string]string{"index": "index unavailable"}, ok: false}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServices()
			var ready ReadinessChecker
			if tt.readiness != nil {
				ready = tt.readiness
			}
			s := NewServer(DefaultConfig(), Services{Retrieval: ts.retrieval}, nil, ready, nil)

			rec := doRequest(s, http.MethodGet, "/ready", nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestHandleDocs(t *testing.T) {
	s := newTestServices().server(t)

	rec := doRequest(s, http.MethodGet, "/docs/doc.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var doc map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("expected paths in doc")
	}
	if _, ok := paths["/search"]; !ok {
		t.Error("expected /search to be documented")
	}
}

// Ingestion endpoints

func TestHandleUploadDocument_Sync(t *testing.T) {
	ts := newTestServices()
	var got driving.IngestRequest
	ts.ingestion.ingestFn = func(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
		got = req
		return &domain.IngestResult{Title: "Beginning of World War 1", Subject: req.Subject, ChunkCount: 4}, nil
	}
	s := ts.server(t)

	body, contentType := multipartUpload(t, map[string]string{
		"subject":    "history",
		"title":      "Beginning of World War 1",
		"difficulty": "easy",
	}, "ww1.txt", "What caused World War 1?")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Subject != "history" || got.Title != "Beginning of World War 1" || got.Difficulty != "easy" {
		t.Errorf("unexpected ingest request %+v", got)
	}
	if filepath.Base(filepath.Dir(got.Path)) != "history" || filepath.Base(got.Path) != "ww1.txt" {
		t.Errorf("expected upload under <dir>/history/ww1.txt, got %s", got.Path)
	}
	data, err := os.ReadFile(got.Path)
	if err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}
	if string(data) != "What caused World War 1?" {
		t.Errorf("unexpected uploaded content %q", data)
	}

	var result domain.IngestResult
	_ = json.NewDecoder(rec.Body).Decode(&result)
	if result.ChunkCount != 4 {
		t.Errorf("expected chunk_count 4, got %d", result.ChunkCount)
	}
}

func TestHandleUploadDocument_Async(t *testing.T) {
	ts := newTestServices()
	ts.ingestion.ingestFn = func(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
		t.Error("async upload must not ingest in-process")
		return nil, nil
	}
	ts.tasks.submitFn = func(ctx context.Context, req driving.IngestRequest) (*domain.Task, error) {
		return domain.NewIngestTask(req.Path, req.Subject, req.Title, req.Difficulty), nil
	}
	s := ts.server(t)

	body, contentType := multipartUpload(t, map[string]string{"subject": "history", "async": "true"}, "ww1.pdf", "%PDF")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var task domain.Task
	_ = json.NewDecoder(rec.Body).Decode(&task)
	if task.Status != domain.TaskStatusPending || task.PayloadValue("subject") != "history" {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestHandleUploadDocument_AsyncWithoutQueue(t *testing.T) {
	s := newTestServices().server(t)

	body, contentType := multipartUpload(t, map[string]string{"subject": "history", "async": "true"}, "ww1.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}

func TestHandleUploadDocument_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		fileName string
	}{
		{"missing subject", map[string]string{}, "ww1.txt"},
		{"subject with separator", map[string]string{"subject": "../etc"}, "ww1.txt"},
		{"missing file", map[string]string{"subject": "history"}, ""},
		{"bad async flag", map[string]string{"subject": "history", "async": "maybe"}, "ww1.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServices().server(t)

			body, contentType := multipartUpload(t, tt.fields, tt.fileName, "text")
			req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleUploadDocument_NotMultipart(t *testing.T) {
	s := newTestServices().server(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/documents", map[string]string{"subject": "history"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleUploadDocument_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("%w: unsupported format \"docx\"", domain.ErrExtraction), http.StatusUnprocessableEntity},
		{domain.ErrNoContent, http.StatusUnprocessableEntity},
		{domain.ErrIngestInProgress, http.StatusConflict},
		{fmt.Errorf("%w: timeout", domain.ErrEmbeddingFailure), http.StatusBadGateway},
		{domain.ErrIndexUnavailable, http.StatusServiceUnavailable},
		{domain.ErrDimensionMismatch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ts := newTestServices()
			ts.ingestion.ingestFn = func(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
				return nil, tt.err
			}
			s := ts.server(t)

			body, contentType := multipartUpload(t, map[string]string{"subject": "history"}, "ww1.docx", "text")
			req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestHandleGetTask(t *testing.T) {
	ts := newTestServices()
	ts.tasks.getFn = func(ctx context.Context, id string) (*domain.Task, error) {
		if id != "task-1" {
			return nil, domain.ErrNotFound
		}
		return &domain.Task{ID: id, Type: domain.TaskTypeIngestDocument, Status: domain.TaskStatusCompleted}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/tasks/task-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/tasks/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

// Retrieval endpoints

func TestHandleListSubjects(t *testing.T) {
	ts := newTestServices()
	ts.retrieval.subjectsFn = func(ctx context.Context) ([]string, error) {
		return []string{"geography", "history"}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp SubjectsResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if strings.Join(resp.Subjects, ",") != "geography,history" {
		t.Errorf("unexpected subjects %v", resp.Subjects)
	}
}

func TestHandleListSubjects_IndexDown(t *testing.T) {
	ts := newTestServices()
	ts.retrieval.subjectsFn = func(ctx context.Context) ([]string, error) {
		return nil, fmt.Errorf("%w: describe stats: connection refused", domain.ErrIndexUnavailable)
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}

func TestHandleListTitles(t *testing.T) {
	ts := newTestServices()
	var gotSubject string
	var gotTopK int
	ts.retrieval.titlesFn = func(ctx context.Context, subject string, topK int) ([]string, error) {
		gotSubject, gotTopK = subject, topK
		return []string{"Causes", "Battles"}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects/history/titles?top_k=50", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotSubject != "history" || gotTopK != 50 {
		t.Errorf("unexpected call subject=%q top_k=%d", gotSubject, gotTopK)
	}

	var resp TitlesResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Subject != "history" || len(resp.Titles) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/subjects/history/titles?top_k=lots", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid top_k, got %d", rec.Code)
	}
}

func TestHandleFetchDocument(t *testing.T) {
	ts := newTestServices()
	ts.retrieval.fetchFn = func(ctx context.Context, subject, title string) ([]domain.Passage, error) {
		if title != "Beginning of World War 1" {
			return []domain.Passage{}, nil
		}
		return []domain.Passage{
			{Title: title, Text: "abcdef", ChunkIndex: 0, StartOffset: 0, EndOffset: 6},
			{Title: title, Text: "efgh", ChunkIndex: 1, StartOffset: 4, EndOffset: 8},
		}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects/history/documents/Beginning%20of%20World%20War%201", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp DocumentResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Passages) != 2 {
		t.Errorf("expected 2 passages, got %d", len(resp.Passages))
	}
	if resp.Text != "abcdefgh" {
		t.Errorf("expected rebuilt text abcdefgh, got %q", resp.Text)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/subjects/history/documents/Unknown", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown title should not be an error, got %d", rec.Code)
	}
	resp = DocumentResponse{}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Passages == nil || len(resp.Passages) != 0 {
		t.Errorf("expected empty passages array, got %v", resp.Passages)
	}
}

func TestHandleSearch(t *testing.T) {
	ts := newTestServices()
	var gotOpts domain.SearchOptions
	ts.retrieval.searchFn = func(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error) {
		gotOpts = opts
		if query == "" || subject == "" {
			return nil, fmt.Errorf("%w: query and subject are required", domain.ErrInvalidInput)
		}
		return &domain.SearchResult{
			Query:     query,
			Subject:   subject,
			Threshold: 0.45,
			Matches:   []domain.Match{{ID: "Causes_0", Title: "Causes", Score: 0.82}},
		}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/search", SearchRequest{Query: "What caused World War 1?", Subject: "history", TopK: 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotOpts.TopK != 3 || gotOpts.Threshold != nil {
		t.Errorf("unexpected options %+v", gotOpts)
	}

	var result domain.SearchResult
	_ = json.NewDecoder(rec.Body).Decode(&result)
	if len(result.Matches) != 1 || result.Matches[0].ID != "Causes_0" {
		t.Errorf("unexpected matches %+v", result.Matches)
	}

	rec = doRequest(s, http.MethodPost, "/api/v1/search", SearchRequest{Subject: "history"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleSearch_ExplicitZeroThreshold(t *testing.T) {
	ts := newTestServices()
	var gotOpts domain.SearchOptions
	ts.retrieval.searchFn = func(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error) {
		gotOpts = opts
		return &domain.SearchResult{Query: query, Subject: subject}, nil
	}
	s := ts.server(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"query":"q","subject":"history","threshold":0}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotOpts.Threshold == nil || *gotOpts.Threshold != 0 {
		t.Errorf("expected explicit zero threshold, got %v", gotOpts.Threshold)
	}
}

func TestHandleSearch_InvalidBody(t *testing.T) {
	s := newTestServices().server(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "invalid request body" {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestHandleSearch_EmbeddingFailure(t *testing.T) {
	ts := newTestServices()
	ts.retrieval.searchFn = func(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error) {
		return nil, fmt.Errorf("%w: openai returned 500", domain.ErrEmbeddingFailure)
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/search", SearchRequest{Query: "q", Subject: "history"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}
}

// Learning endpoints

func TestHandleGrammarCheck(t *testing.T) {
	ts := newTestServices()
	ts.grammar.checkFn = func(ctx context.Context, text string) (*domain.GrammarReport, error) {
		if strings.HasPrefix(text, "Ella") {
			return nil, fmt.Errorf("%w: detected es", domain.ErrUnsupportedLanguage)
		}
		return &domain.GrammarReport{
			Language: "en",
			Sentences: []domain.GrammarResult{
				{Sentence: text, CorrectedSentence: "She goes to school every day.", Errors: []string{"subject-verb agreement"}},
			},
		}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/grammar/check", GrammarRequest{Text: "She go to school every day."})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var report domain.GrammarReport
	_ = json.NewDecoder(rec.Body).Decode(&report)
	if len(report.Sentences) != 1 || report.Sentences[0].CorrectedSentence != "She goes to school every day." {
		t.Errorf("unexpected report %+v", report)
	}

	rec = doRequest(s, http.MethodPost, "/api/v1/grammar/check", GrammarRequest{Text: "Ella va a la escuela todos los días."})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}
}

func TestHandleGrammarCheck_NoLLM(t *testing.T) {
	s := newTestServices().server(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/grammar/check", GrammarRequest{Text: "Hello there."})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}

func TestHandleAnalyzeAnswer(t *testing.T) {
	ts := newTestServices()
	ts.answer.validateFn = func(ctx context.Context, question, answer, subject string) (*domain.AnswerValidation, error) {
		if subject == "art" {
			return nil, fmt.Errorf("%w: no relevant context found for validation", domain.ErrNoRelevantContext)
		}
		return &domain.AnswerValidation{IsCorrect: true, Score: 1, IncorrectFacts: []domain.IncorrectFact{}}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/answer/analyze", AnswerRequest{
		Question: "What caused World War 1?",
		Answer:   "The assassination of the archduke.",
		Subject:  "history",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var validation domain.AnswerValidation
	_ = json.NewDecoder(rec.Body).Decode(&validation)
	if !validation.IsCorrect || validation.Score != 1 {
		t.Errorf("unexpected validation %+v", validation)
	}

	rec = doRequest(s, http.MethodPost, "/api/v1/answer/analyze", AnswerRequest{Question: "q", Answer: "a", Subject: "art"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleGenerateQuestions(t *testing.T) {
	ts := newTestServices()
	var got domain.QuestionRequest
	ts.questions.generateFn = func(ctx context.Context, req domain.QuestionRequest) (*domain.GeneratedQuestions, error) {
		got = req
		switch req.Title {
		case "Unknown":
			return nil, fmt.Errorf("%w: no stored text for %q", domain.ErrNotFound, req.Title)
		case "Pamphlet":
			return nil, domain.ErrNotEnoughTopics
		}
		return &domain.GeneratedQuestions{
			Title:     req.Title,
			Subject:   req.Subject,
			MainTopic: "Causes",
			Subtopic:  "Alliances",
			Questions: []domain.Question{{Type: req.Type, Question: "Who was assassinated?", Answer: "The archduke"}},
		}, nil
	}
	s := ts.server(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/generate/questions", map[string]any{
		"book":          "Beginning of World War 1",
		"subject":       "history",
		"num_questions": 3,
		"type":          "mcq",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got.Title != "Beginning of World War 1" || got.NumQuestions != 3 || got.Type != domain.QuestionType("mcq") {
		t.Errorf("unexpected request %+v", got)
	}

	rec = doRequest(s, http.MethodPost, "/api/v1/generate/questions", map[string]any{"book": "Unknown", "subject": "history"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/api/v1/generate/questions", map[string]any{"book": "Pamphlet", "subject": "history"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}
}

// Helpers

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrTokenInvalid, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrNoRelevantContext, http.StatusNotFound},
		{domain.ErrIngestInProgress, http.StatusConflict},
		{domain.ErrNotEnoughTopics, http.StatusUnprocessableEntity},
		{domain.ErrEmbeddingFailure, http.StatusBadGateway},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteServiceError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "internal server error" {
		t.Errorf("internal error leaked: %q", msg)
	}
}

func TestValidPathSegment(t *testing.T) {
	tests := map[string]bool{
		"history":        true,
		"world history":  true,
		"ww1.pdf":        true,
		"":               false,
		".":              false,
		"..":             false,
		"a/b":            false,
		`a\b`:            false,
		"../../etc/pass": false,
	}
	for name, want := range tests {
		if got := validPathSegment(name); got != want {
			t.Errorf("validPathSegment(%q) = %v, want %v", name, got, want)
		}
	}
}
