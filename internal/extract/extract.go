// Package extract turns candidate documents into plain text. Extraction
// failures are deterministic: the same file fails the same way every time, so
// callers must not retry them.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Kind classifies an extraction failure.
type Kind string

const (
	// KindUnsupportedFormat means the file type is not handled.
	KindUnsupportedFormat Kind = "unsupported_format"
	// KindCorruptFile means the file was read but could not be parsed.
	KindCorruptFile Kind = "corrupt_file"
	// KindIOError means the file could not be read at all.
	KindIOError Kind = "io_error"
)

// Error is the typed failure returned by extraction.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return "", false
}

// Extractor converts one document reference into plain text.
type Extractor interface {
	Extract(ctx context.Context, sourceRef string) (string, error)
}

// FileExtractor reads documents from the local filesystem, dispatching on
// file extension: .pdf, .docx, and plain-text formats.
type FileExtractor struct{}

// NewFileExtractor creates the filesystem-backed extractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract implements Extractor.
func (e *FileExtractor) Extract(ctx context.Context, sourceRef string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var text string
	var err error

	switch strings.ToLower(filepath.Ext(sourceRef)) {
	case ".pdf":
		text, err = extractPDF(sourceRef)
	case ".docx":
		text, err = extractDOCX(sourceRef)
	case ".txt", ".md", ".text":
		text, err = extractPlain(sourceRef)
	default:
		return "", &Error{Kind: KindUnsupportedFormat, Detail: fmt.Sprintf("unsupported file type %q", filepath.Ext(sourceRef))}
	}

	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Error{Kind: KindCorruptFile, Detail: "no text content found"}
	}

	return text, nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Kind: KindIOError, Detail: "read file", Err: err}
	}
	return string(data), nil
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return "", &Error{Kind: KindIOError, Detail: "open pdf", Err: statErr}
		}
		return "", &Error{Kind: KindCorruptFile, Detail: "parse pdf", Err: err}
	}
	defer f.Close()

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages can fail individually; keep what the rest yields.
			continue
		}

		builder.WriteString(text)
		builder.WriteString("\n\n")
	}

	return builder.String(), nil
}

func extractDOCX(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Kind: KindIOError, Detail: "read docx", Err: err}
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &Error{Kind: KindCorruptFile, Detail: "open docx archive", Err: err}
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", &Error{Kind: KindCorruptFile, Detail: "document.xml not found"}
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", &Error{Kind: KindCorruptFile, Detail: "open document.xml", Err: err}
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", &Error{Kind: KindCorruptFile, Detail: "read document.xml", Err: err}
	}

	text, err := stripDocxXML(string(raw))
	if err != nil {
		return "", &Error{Kind: KindCorruptFile, Detail: "parse document.xml", Err: err}
	}

	return text, nil
}

// stripDocxXML walks document.xml and keeps character data, inserting
// newlines at paragraph and line-break boundaries.
func stripDocxXML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var builder strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			builder.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if builder.Len() > 0 {
					builder.WriteString("\n")
				}
			}
		}
	}
	return builder.String(), nil
}
