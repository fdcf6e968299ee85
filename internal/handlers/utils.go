package handlers

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/docuchat/internal/adapter"
	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/pkg/logger_i"
)

var logU = logger_i.NewLogger("HandlerUtils")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logU.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.ToErrorResponse(message))
}

func validateContext(ctx context.Context, log *logger_i.Logger) bool {
	if ctx.Err() != nil {
		log.Warn("context error", "error", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		log.Warn("context cancelled")
		return false
	default:
		return true
	}
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, config.UploadDir)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

// isPDF trusts the declared content type and falls back to the extension;
// the extractor re-validates the actual bytes during ingestion.
func isPDF(header *multipart.FileHeader) bool {
	if header.Header.Get("Content-Type") == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(header.Filename), ".pdf")
}
