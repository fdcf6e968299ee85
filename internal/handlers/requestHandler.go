package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/docuchat/internal/adapter"
	"github.com/akolanti/docuchat/internal/api"
	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
	"github.com/akolanti/docuchat/internal/rag"
	"github.com/akolanti/docuchat/pkg/logger_i"
)

type jobProducer interface {
	Enqueue(ctx context.Context, job jobModel.IngestionJob) error
}

type Handler struct {
	queue      jobProducer
	ragService rag.Service
	logger     *logger_i.Logger
}

func NewHandler(queue jobProducer, ragService rag.Service) *Handler {
	return &Handler{
		queue:      queue,
		ragService: ragService,
		logger:     logger_i.NewLogger("RequestHandler"),
	}
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// UploadHandler godoc
// @Summary      Upload a PDF for ingestion
// @Description  Receives a PDF via multipart/form-data, stores it, and queues an ingestion job. The document becomes searchable only after background processing finishes.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        pdf  formData  file  true  "The PDF file to upload"
// @Success      201  {object}  api.UploadResponse  "File stored and ingestion queued"
// @Failure      400  {object}  api.ErrorResponse   "Missing file, wrong type, or file too large"
// @Failure      500  {object}  api.ErrorResponse   "Storage or queue error"
// @Router       /upload [post]
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context(), h.logger) {
		h.logger.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		h.logger.Error("Couldn't get target directory :", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, errString)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("pdf")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "No PDF uploaded")
		return
	}
	defer fileReader.Close()

	if !isPDF(fileMetadata) {
		WriteErrorResponse(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	storageName := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fileMetadata.Filename))
	storedPath := filepath.Join(targetDir, storageName)
	destinationFileWriter, err := os.Create(storedPath)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}
	defer destinationFileWriter.Close()

	size, err := io.Copy(destinationFileWriter, fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "Write error")
		return
	}

	job := jobModel.IngestionJob{
		StoredPath:   storedPath,
		StorageName:  storageName,
		OriginalName: fileMetadata.Filename,
		Size:         size,
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		// the file stays on disk; without a queue entry nothing will ever
		// process it, so tell the caller instead of pretending
		h.logger.Error("Could not enqueue ingestion job", "storageName", storageName, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Could not queue document for processing")
		return
	}

	h.logger.Info("Queued document for ingestion", "storageName", storageName, "size", size)
	writeJsonResponse(w, http.StatusCreated, adapter.ToUploadResponse(fileMetadata.Filename, storageName, size, storedPath))
}

// ChatHandler godoc
// @Summary      Ask a question over the ingested documents
// @Description  Embeds the query, retrieves the most relevant segments, and returns a grounded answer with its sources.
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest   true  "User query"
// @Success      200      {object}  api.ChatResponse  "Answer with sources, best match first"
// @Failure      400      {object}  api.ErrorResponse "Missing or empty query"
// @Failure      500      {object}  api.ErrorResponse "Retrieval or generation failure"
// @Router       /chat [post]
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context(), h.logger) {
		h.logger.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			h.logger.Error("Couldn't close the Chat handler reader :", "error", err)
		}
	}(r.Body)

	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		h.logger.Warn("Bad Chat Request: ", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Query is required and must be a string")
		return
	}

	answer, hits, err := h.ragService.Answer(r.Context(), requestData.Query)
	if err != nil {
		if errors.Is(err, rag.ErrInvalidQuery) {
			WriteErrorResponse(w, http.StatusBadRequest, "Query is required and must be a string")
			return
		}
		h.logger.Error("Chat retrieval failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve relevant context")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToChatResponse(requestData.Query, answer, hits))
}
