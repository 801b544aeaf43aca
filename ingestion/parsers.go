package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ReadDocument extracts the plain text of a PDF, DOCX, or TXT file. The rest
// of the pipeline only ever sees the returned string.
func ReadDocument(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("document file: %w", err)
	}

	switch DetectFormat(path) {
	case FormatPDF:
		return readPDF(path)
	case FormatDOCX:
		return readDOCX(path)
	case FormatText:
		return readText(path)
	default:
		return "", fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
	}
}

func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return normalizePlainText(buf.String()), nil
}

// docx files are zip archives; the document body lives in word/document.xml.
// Only the text runs are extracted, one line per paragraph.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

func readDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var data []byte
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open docx body: %w", err)
		}
		data, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		break
	}
	if data == nil {
		return "", fmt.Errorf("docx body not found in %s", filepath.Base(path))
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse docx body: %w", err)
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, paragraph := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range paragraph.Runs {
			for _, text := range run.Texts {
				sb.WriteString(text)
			}
		}
		lines = append(lines, sb.String())
	}

	return normalizePlainText(strings.Join(lines, "\n")), nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	return normalizePlainText(string(data)), nil
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
