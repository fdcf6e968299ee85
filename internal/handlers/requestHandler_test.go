package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/akolanti/docuchat/internal/api"
	"github.com/akolanti/docuchat/internal/domain/commonModels"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
	"github.com/akolanti/docuchat/internal/rag"
)

type mockProducer struct {
	enqueued []jobModel.IngestionJob
	err      error
}

func (m *mockProducer) Enqueue(ctx context.Context, job jobModel.IngestionJob) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockRagService struct {
	answerFunc func(ctx context.Context, query string) (string, []commonModels.SearchHit, error)
}

func (m *mockRagService) IngestDocument(ctx context.Context, job jobModel.IngestionJob) error {
	return nil
}

func (m *mockRagService) Answer(ctx context.Context, query string) (string, []commonModels.SearchHit, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, query)
	}
	return "", nil, rag.ErrInvalidQuery
}

func TestChatHandler(t *testing.T) {
	t.Run("Returns answer with sources", func(t *testing.T) {
		ragSvc := &mockRagService{
			answerFunc: func(ctx context.Context, query string) (string, []commonModels.SearchHit, error) {
				hits := []commonModels.SearchHit{{
					Segment: commonModels.EnrichedSegment{
						TextSegment:  commonModels.TextSegment{SegmentIndex: 3, PageNumber: 2},
						StorageName:  "171234-report.pdf",
						OriginalName: "report.pdf",
					},
					Score: 0.8,
				}}
				return "the answer", hits, nil
			},
		}
		h := NewHandler(&mockProducer{}, ragSvc)

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"what is it?"}`))
		rec := httptest.NewRecorder()
		h.ChatHandler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var res api.ChatResponse
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("Could not decode response: %v", err)
		}
		if res.Query != "what is it?" || res.Answer != "the answer" {
			t.Errorf("Unexpected response body: %+v", res)
		}
		if len(res.Sources) != 1 {
			t.Fatalf("Expected 1 source, got %d", len(res.Sources))
		}
		src := res.Sources[0]
		if src.Filename != "171234-report.pdf" || src.PageNumber != 2 || src.ChunkIndex != 3 {
			t.Errorf("Source metadata mismatch: %+v", src)
		}
	})

	t.Run("Empty query is a 400", func(t *testing.T) {
		h := NewHandler(&mockProducer{}, &mockRagService{})

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":""}`))
		rec := httptest.NewRecorder()
		h.ChatHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("Retrieval failure is a 500 without internals", func(t *testing.T) {
		ragSvc := &mockRagService{
			answerFunc: func(ctx context.Context, query string) (string, []commonModels.SearchHit, error) {
				return "", nil, rag.ErrRetrievalFailed
			},
		}
		h := NewHandler(&mockProducer{}, ragSvc)

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"query":"q"}`))
		rec := httptest.NewRecorder()
		h.ChatHandler(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", rec.Code)
		}
		var res api.ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("Could not decode response: %v", err)
		}
		if res.Message != "Failed to retrieve relevant context" {
			t.Errorf("Unexpected error message: %q", res.Message)
		}
	})
}

func multipartPDFRequest(t *testing.T, fieldName string, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("Could not build multipart body: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 test bytes")); err != nil {
		t.Fatalf("Could not write multipart body: %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	t.Run("Stores file and queues ingestion", func(t *testing.T) {
		producer := &mockProducer{}
		h := NewHandler(producer, &mockRagService{})
		t.Cleanup(func() {
			for _, job := range producer.enqueued {
				_ = os.Remove(job.StoredPath)
			}
		})

		rec := httptest.NewRecorder()
		h.UploadHandler(rec, multipartPDFRequest(t, "pdf", "report.pdf"))

		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(producer.enqueued) != 1 {
			t.Fatalf("Expected 1 enqueued job, got %d", len(producer.enqueued))
		}

		job := producer.enqueued[0]
		if job.OriginalName != "report.pdf" || job.StoredPath == "" {
			t.Errorf("Job is missing upload metadata: %+v", job)
		}
		if !strings.HasSuffix(job.StorageName, "-report.pdf") {
			t.Errorf("Storage name should embed the original name: %q", job.StorageName)
		}

		var res api.UploadResponse
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("Could not decode response: %v", err)
		}
		if res.File.Filename != job.StorageName {
			t.Errorf("Response filename %q does not match the queued job %q", res.File.Filename, job.StorageName)
		}
	})

	t.Run("Missing file is a 400", func(t *testing.T) {
		h := NewHandler(&mockProducer{}, &mockRagService{})

		rec := httptest.NewRecorder()
		h.UploadHandler(rec, multipartPDFRequest(t, "document", "report.pdf"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("Non PDF is rejected", func(t *testing.T) {
		producer := &mockProducer{}
		h := NewHandler(producer, &mockRagService{})

		rec := httptest.NewRecorder()
		h.UploadHandler(rec, multipartPDFRequest(t, "pdf", "notes.exe"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}
		if len(producer.enqueued) != 0 {
			t.Errorf("Rejected upload must not be queued, got %d jobs", len(producer.enqueued))
		}
	})

	t.Run("Queue failure is a 500", func(t *testing.T) {
		producer := &mockProducer{err: context.DeadlineExceeded}
		h := NewHandler(producer, &mockRagService{})

		rec := httptest.NewRecorder()
		h.UploadHandler(rec, multipartPDFRequest(t, "pdf", "report.pdf"))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", rec.Code)
		}
	})
}
