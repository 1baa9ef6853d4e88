package pdf

import (
	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Metadata holds the document information dictionary.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`
}

// HasAuthors reports whether the metadata names at least one author.
func (m Metadata) HasAuthors() bool {
	return m.Author != ""
}

// LoadedDocument is the owned, page-indexed content of one input. It
// belongs to a single parse and must not be shared between parses.
type LoadedDocument struct {
	Filename  string       `json:"filename"`
	Hash      string       `json:"hash"`
	PageCount int          `json:"page_count"`
	Pages     []model.Page `json:"pages"`
	Metadata  Metadata     `json:"metadata"`

	Errors *pdferrors.ErrorCollection `json:"-"`
}

// ValidateFileRequest represents a request to validate a PDF file
type ValidateFileRequest struct {
	Path string `json:"path"`
}

// ValidateFileResult represents the result of a PDF validation
type ValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	FromCache         bool       `json:"from_cache"`
	Truncated         bool       `json:"truncated"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
