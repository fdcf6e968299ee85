package api

// SourceRef identifies where a retrieved segment came from. Sources are
// derived from index metadata, not from the generation service.
type SourceRef struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"pageNumber"`
	ChunkIndex int    `json:"chunkIndex"`
}

type ChatResponse struct {
	Query   string      `json:"query"`
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

type UploadedFile struct {
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
}

// UploadResponse reports that the document was queued, not that it is
// searchable; ingestion completes asynchronously.
type UploadResponse struct {
	Message string       `json:"message"`
	File    UploadedFile `json:"file"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// requests---------------------

type ChatRequest struct {
	Query string `json:"query" validate:"required"`
}
