package adapter

import (
	"github.com/akolanti/docuchat/internal/api"
	"github.com/akolanti/docuchat/internal/domain/commonModels"
)

// ToChatResponse maps retrieval hits to wire sources. Order is preserved, best
// match first, so source numbering matches the context the model saw. The
// source filename is the storage-assigned name, the unique grouping key, not
// the display name.
func ToChatResponse(query string, answer string, hits []commonModels.SearchHit) api.ChatResponse {
	sources := make([]api.SourceRef, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, api.SourceRef{
			Filename:   hit.Segment.StorageName,
			PageNumber: hit.Segment.PageNumber,
			ChunkIndex: hit.Segment.SegmentIndex,
		})
	}

	return api.ChatResponse{
		Query:   query,
		Answer:  answer,
		Sources: sources,
	}
}

func ToUploadResponse(originalName string, storageName string, size int64, path string) api.UploadResponse {
	return api.UploadResponse{
		Message: "PDF uploaded successfully",
		File: api.UploadedFile{
			OriginalName: originalName,
			Filename:     storageName,
			Size:         size,
			Path:         path,
		},
	}
}

func ToErrorResponse(message string) api.ErrorResponse {
	return api.ErrorResponse{Message: message}
}
