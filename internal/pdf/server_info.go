package pdf

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-paper-parser/internal/descriptions"
)

// DirectoryCache provides TTL-based caching for directory scans
type DirectoryCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

type cacheEntry struct {
	result     ScanResult
	lastUpdate time.Time
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns a cached scan and its age when it is still valid.
func (c *DirectoryCache) Get(path string) (ScanResult, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	if !ok {
		return ScanResult{}, 0, false
	}
	age := time.Since(entry.lastUpdate)
	if age > c.ttl {
		return ScanResult{}, 0, false
	}
	return entry.result, age, true
}

// Set stores a scan result.
func (c *DirectoryCache) Set(path string, result ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{result: result, lastUpdate: time.Now()}
}

// ScanResult is the outcome of a directory scan
type ScanResult struct {
	Files        []FileInfo
	ScanTime     time.Duration
	FilesScanned int
	Truncated    bool
}

// DirectoryScanner finds PDF files below a root with depth, count and time limits
type DirectoryScanner struct {
	maxDepth   int
	fileLimit  int
	timeLimit  time.Duration
	skipHidden bool
}

// NewDirectoryScanner creates a scanner. Zero limits are unlimited.
func NewDirectoryScanner(maxDepth, fileLimit int, timeLimit time.Duration) *DirectoryScanner {
	return &DirectoryScanner{
		maxDepth:   maxDepth,
		fileLimit:  fileLimit,
		timeLimit:  timeLimit,
		skipHidden: true,
	}
}

var errScanLimit = errors.New("scan limit reached")

// Scan walks root and returns the PDF files found, sorted by path.
// Symlinks are not followed.
func (s *DirectoryScanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{}
	root = filepath.Clean(root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Skip entries we can't read
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if s.timeLimit > 0 && time.Since(start) > s.timeLimit {
			result.Truncated = true
			return errScanLimit
		}

		if path != root {
			result.FilesScanned++
			if s.skipHidden && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if s.maxDepth > 0 && path != root && depth(root, path) >= s.maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || !strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		result.Files = append(result.Files, FileInfo{
			Name:         d.Name(),
			Path:         path,
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		if s.fileLimit > 0 && len(result.Files) >= s.fileLimit {
			result.Truncated = true
			return errScanLimit
		}
		return nil
	})
	result.ScanTime = time.Since(start)
	if errors.Is(err, errScanLimit) {
		err = nil
	}
	return result, err
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// ServerInfo assembles the server_info tool response.
type ServerInfo struct {
	cache       *DirectoryCache
	scanner     *DirectoryScanner
	maxFileSize int64
}

// NewServerInfo creates a server info handler with a five-minute scan cache.
func NewServerInfo(maxFileSize int64) *ServerInfo {
	return &ServerInfo{
		cache:       NewDirectoryCache(5 * time.Minute),
		scanner:     NewDirectoryScanner(5, 100, 3*time.Second),
		maxFileSize: maxFileSize,
	}
}

// Scanner exposes the directory scanner shared with batch parsing.
func (p *ServerInfo) Scanner() *DirectoryScanner {
	return p.scanner
}

// GetServerInfo reports the server configuration and the PDFs in directory.
func (p *ServerInfo) GetServerInfo(ctx context.Context, serverName, version, directory string) (*ServerInfoResult, error) {
	result := &ServerInfoResult{
		ServerName:       serverName,
		Version:          version,
		DefaultDirectory: directory,
		MaxFileSize:      p.maxFileSize,
		AvailableTools:   availableTools(),
	}
	if directory == "" {
		return result, nil
	}

	if cached, _, ok := p.cache.Get(directory); ok {
		result.DirectoryContents = cached.Files
		result.Truncated = cached.Truncated
		result.FromCache = true
		return result, nil
	}

	scan, err := p.scanner.Scan(ctx, directory)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// An unreadable directory is reported as empty.
		scan = &ScanResult{}
	}
	p.cache.Set(directory, *scan)
	result.DirectoryContents = scan.Files
	result.Truncated = scan.Truncated
	return result, nil
}

func availableTools() []ToolInfo {
	names := descriptions.GetAllToolNames()
	tools := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		desc := descriptions.GetToolDescription(name)
		if i := strings.IndexByte(desc, '\n'); i > 0 {
			desc = desc[:i]
		}
		tools = append(tools, ToolInfo{Name: name, Description: desc})
	}
	return tools
}
