package knowledge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/freshkeep/hub/internal/corpus"
)

// ErrUnsupportedDocument is returned for a source file with no registered reader.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// DocumentReader extracts plain text from a source document.
type DocumentReader interface {
	ReadText(path string) (string, error)
}

// DocumentReaderFunc adapts a function to DocumentReader.
type DocumentReaderFunc func(path string) (string, error)

// ReadText calls f(path).
func (f DocumentReaderFunc) ReadText(path string) (string, error) {
	return f(path)
}

// DefaultReaders maps lower-case file extensions to readers.
func DefaultReaders() map[string]DocumentReader {
	return map[string]DocumentReader{
		".pdf": DocumentReaderFunc(ReadPDF),
		".txt": DocumentReaderFunc(ReadPlainText),
		".md":  DocumentReaderFunc(ReadPlainText),
	}
}

// ReadPDF extracts the plain text of every page of a PDF file.
func ReadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	textReader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}

	b, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}

	return string(b), nil
}

// ReadPlainText reads a text or Markdown file, detecting cp949 and UTF-8 like the recipe corpus.
func ReadPlainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text, _ := corpus.DecodeText(raw)

	return text, nil
}

func readerFor(readers map[string]DocumentReader, path string) (DocumentReader, error) {
	r, ok := readers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Base(path))
	}

	return r, nil
}
