package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/mcp-paper-parser/internal/pdf/pdftest"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestValidator_ValidateFile(t *testing.T) {
	validator := NewValidator(1024 * 1024) // 1MB limit
	dir := t.TempDir()

	doc := pdftest.New()
	doc.AddPage(612, 792).TextTop(pdftest.Regular, 12, 72, 72, "A valid page of text")

	validPath := writeFile(t, dir, "valid.pdf", doc.Bytes())
	corruptPath := writeFile(t, dir, "corrupt.pdf", []byte("not a pdf document"))
	emptyPath := writeFile(t, dir, "empty.pdf", nil)
	textPath := writeFile(t, dir, "notes.txt", []byte("hello"))

	tests := []struct {
		name        string
		path        string
		expectValid bool
		message     string
	}{
		{name: "empty path", path: "", message: "path cannot be empty"},
		{name: "non-existent file", path: filepath.Join(dir, "missing.pdf"), message: "file does not exist"},
		{name: "directory", path: dir, message: "path is a directory"},
		{name: "wrong extension", path: textPath, message: "file is not a PDF"},
		{name: "empty file", path: emptyPath, message: "file is empty"},
		{name: "corrupt file", path: corruptPath, message: "invalid PDF file"},
		{name: "valid file", path: validPath, expectValid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateFile(ValidateFileRequest{Path: tt.path})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil {
				t.Fatalf("result should not be nil")
			}
			if result.Valid != tt.expectValid {
				t.Errorf("expected Valid=%v but got %v (%s)", tt.expectValid, result.Valid, result.Message)
			}
			if result.Path != tt.path {
				t.Errorf("expected Path=%s but got %s", tt.path, result.Path)
			}
			if tt.message != "" && !strings.Contains(result.Message, tt.message) {
				t.Errorf("expected message containing %q, got %q", tt.message, result.Message)
			}
			if tt.expectValid && result.Pages != 1 {
				t.Errorf("expected 1 page, got %d", result.Pages)
			}
		})
	}
}

func TestValidator_MaxFileSize(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "large.pdf", make([]byte, 2048))

	validator := NewValidator(1024)
	res, err := validator.ValidateFile(ValidateFileRequest{Path: path})
	if err == nil && res.Valid {
		t.Errorf("expected oversized file to be rejected")
	}

	_, err = validator.ReadFile(path)
	if err == nil || !strings.Contains(err.Error(), "file too large") {
		t.Errorf("expected file too large error, got %v", err)
	}
}
