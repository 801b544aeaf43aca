// Package ingestion extracts document text, splits it into section-aware
// overlapping chunks, and streams the chunks into the vector store in
// memory-bounded batches.
package ingestion

import (
	"path/filepath"
	"strings"
)

// DocumentFormat enumerates the supported document file formats.
type DocumentFormat string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown DocumentFormat = ""
	// FormatPDF represents PDF documents.
	FormatPDF DocumentFormat = "pdf"
	// FormatDOCX represents Office Open XML word-processing documents.
	FormatDOCX DocumentFormat = "docx"
	// FormatText represents plain text documents.
	FormatText DocumentFormat = "txt"
)

// DetectFormat infers a document format from the path's extension.
func DetectFormat(path string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt", ".text":
		return FormatText
	default:
		return FormatUnknown
	}
}
