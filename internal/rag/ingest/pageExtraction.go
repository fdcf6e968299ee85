package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/docuchat/internal/domain/commonModels"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var logger = logger_i.NewLogger("Document Extraction")

// ExtractPages loads the stored document and returns its text page by page.
// Any extraction problem is a split failure: the message must stay
// unacknowledged so the broker can redeliver it. Safe for concurrent use,
// worker goroutines extract different documents at the same time.
func ExtractPages(path string) ([]RawPage, error) {
	switch docType(path) {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX:
		return extractDocxTxtRtf(path)
	default:
		return nil, fmt.Errorf("%w: unsupported document type %q", ErrSplitFailed, filepath.Ext(path))
	}
}

func docType(path string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".txt", ".rtf":
		return commonModels.DOCX
	default:
		return commonModels.ERR
	}
}

func extractPDF(path string) ([]RawPage, error) {
	logger.Debug("extractPDF", "attempting extraction", path)
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open pdf: %v", ErrSplitFailed, err)
	}

	var pages []RawPage
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// keep going, a single bad page should not poison the document
			logger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, RawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractDocxTxtRtf reads a .docx, .txt or .rtf file; the extractor has no
// page model so all content lands on page 1.
func extractDocxTxtRtf(path string) ([]RawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract document: %v", ErrSplitFailed, err)
	}

	return []RawPage{
		{
			Number:  1,
			Content: text,
		},
	}, nil
}

// protectExtract guards GetPlainText, which can hang on malformed pages.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		return "", fmt.Errorf("%w: page extraction timed out", ErrSplitFailed)
	}
}
