package ingest

import (
	"errors"

	"github.com/akolanti/docuchat/internal/domain/commonModels"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
)

var ErrSplitFailed = errors.New("document split failed")

type RawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// SplitText cuts text into windows of at most chunkSize runes, each non-first
// window repeating the previous window's trailing chunkOverlap runes. The
// window arithmetic is fixed so a retried job reproduces byte-identical
// segments in the same order.
func SplitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - chunkOverlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// SplitDocument splits every page and assigns a single 0-based SegmentIndex
// sequence across the whole document in reading order. An empty document
// yields an empty sequence, not an error.
func SplitDocument(pages []RawPage, chunkSize int, chunkOverlap int) []commonModels.TextSegment {
	var segments []commonModels.TextSegment
	index := 0
	for _, page := range pages {
		for _, chunk := range SplitText(page.Content, chunkSize, chunkOverlap) {
			segments = append(segments, commonModels.TextSegment{
				Content:      chunk,
				SegmentIndex: index,
				PageNumber:   page.Number,
			})
			index++
		}
	}
	return segments
}

// EnrichSegments attaches job-level provenance to each segment. Pure mapping,
// no failure mode of its own.
func EnrichSegments(segments []commonModels.TextSegment, job jobModel.IngestionJob) []commonModels.EnrichedSegment {
	enriched := make([]commonModels.EnrichedSegment, 0, len(segments))
	for _, s := range segments {
		enriched = append(enriched, commonModels.EnrichedSegment{
			TextSegment:  s,
			StorageName:  job.StorageName,
			OriginalName: job.OriginalName,
			UploadedAt:   job.UploadedAt,
		})
	}
	return enriched
}
