package ingestion_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fabfab/policy-rag/ingestion"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]ingestion.DocumentFormat{
		"policy.pdf":      ingestion.FormatPDF,
		"POLICY.PDF":      ingestion.FormatPDF,
		"terms.docx":      ingestion.FormatDOCX,
		"notes.txt":       ingestion.FormatText,
		"picture.png":     ingestion.FormatUnknown,
		"no-extension":    ingestion.FormatUnknown,
		"dir/policy.docx": ingestion.FormatDOCX,
	}
	for path, want := range cases {
		if got := ingestion.DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestReadDocumentText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	raw := "1. COVERAGE  \r\nHospitalization is covered.\t\r\nAmbulance too."
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := ingestion.ReadDocument(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "1. COVERAGE\nHospitalization is covered.\nAmbulance too."
	if text != want {
		t.Fatalf("normalized text mismatch:\n got %q\nwant %q", text, want)
	}
}

func TestReadDocumentUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.png")
	if err := os.WriteFile(path, []byte("not actually an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ingestion.ReadDocument(path); err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}

func TestReadDocumentMissingFile(t *testing.T) {
	if _, err := ingestion.ReadDocument(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestReadDocumentDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.docx")
	writeMinimalDOCX(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t> there</w:t></w:r></w:p>
    <w:p><w:r><w:t>World</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := ingestion.ReadDocument(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello there\nWorld" {
		t.Fatalf("unexpected docx text: %q", text)
	}
}

func TestReadDocumentDOCXWithoutBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/styles.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("<styles/>")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = ingestion.ReadDocument(path)
	if err == nil || !strings.Contains(err.Error(), "docx body not found") {
		t.Fatalf("expected a missing-body error, got %v", err)
	}
}

func writeMinimalDOCX(t *testing.T, path, documentXML string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}
