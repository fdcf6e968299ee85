package commonModels

// TextSegment is one bounded slice of a document's text, the unit of embedding
// and retrieval. SegmentIndex is the 0-based position in reading order and is
// stable across retries because splitting is deterministic.
type TextSegment struct {
	Content      string `json:"content"`
	SegmentIndex int    `json:"segment_index"`
	PageNumber   int    `json:"page_num"`
}

// EnrichedSegment is a TextSegment plus job-level provenance. Immutable once
// built; ownership passes to the vector index on commit.
type EnrichedSegment struct {
	TextSegment
	StorageName  string `json:"storage_name"`
	OriginalName string `json:"original_name"`
	UploadedAt   string `json:"uploaded_at"`
}

// SearchHit is one retrieved segment with its relevance score.
type SearchHit struct {
	Segment EnrichedSegment
	Score   float32
}

type DocType string

var (
	PDF  DocType = "PDF"
	DOCX DocType = "DOCX"
	ERR  DocType = "ERROR"
)
