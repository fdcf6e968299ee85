package jobModel

import "errors"

var ErrMissingStoredPath = errors.New("ingestion job is missing the stored file path")

// IngestionJob is the message the upload handler publishes for every stored
// document. The JSON field names are the wire contract with the producer and
// must not change. The job is read-only once enqueued; the same payload may be
// redelivered until the worker acknowledges it.
type IngestionJob struct {
	StoredPath   string `json:"path"`
	StorageName  string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size,omitempty"`
	UploadedAt   string `json:"uploadedAt"`
}

// Validate rejects payloads the worker cannot process. A job without a stored
// path must fail the message, never be acknowledged.
func (j IngestionJob) Validate() error {
	if j.StoredPath == "" {
		return ErrMissingStoredPath
	}
	return nil
}
