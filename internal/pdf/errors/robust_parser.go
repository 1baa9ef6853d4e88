package errors

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledongthuc/pdf"
)

// RobustParser opens a PDF byte stream with panic recovery and honours
// context cancellation while the cross-reference table is decoded.
type RobustParser struct {
	logger  *slog.Logger
	timeout time.Duration
}

// ParseResult contains the opened reader and what went wrong on the way
type ParseResult struct {
	Reader         *pdf.Reader      `json:"-"`
	Success        bool             `json:"success"`
	Errors         *ErrorCollection `json:"errors"`
	ProcessingTime time.Duration    `json:"processing_time"`
	TotalPages     int              `json:"total_pages"`
}

// NewRobustParser creates a parser. A zero timeout leaves the deadline to ctx.
func NewRobustParser(logger *slog.Logger, timeout time.Duration) *RobustParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobustParser{
		logger:  logger.With("component", "RobustParser"),
		timeout: timeout,
	}
}

// Open decodes data into a reader. Any failure is an InvalidInput error.
func (rp *RobustParser) Open(ctx context.Context, data []byte) (*ParseResult, error) {
	start := time.Now()
	result := &ParseResult{Errors: NewErrorCollection("")}

	if len(data) == 0 {
		return result, NewPDFError(ErrorTypeInvalidInput, "empty input")
	}

	if rp.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rp.timeout)
		defer cancel()
	}

	type opened struct {
		reader *pdf.Reader
		pages  int
		err    error
	}
	done := make(chan opened, 1)

	go func() {
		var out opened
		defer func() {
			if r := recover(); r != nil {
				out = opened{err: NewPDFError(ErrorTypeInvalidInput, fmt.Sprintf("parser panic: %v", r))}
			}
			done <- out
		}()

		reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			out.err = WrapError(ErrorTypeInvalidInput, err)
			return
		}
		out.reader = reader
		out.pages = reader.NumPage()
	}()

	select {
	case <-ctx.Done():
		return result, fmt.Errorf("opening PDF: %w", ctx.Err())
	case out := <-done:
		result.ProcessingTime = time.Since(start)
		if out.err != nil {
			rp.logger.Debug("open failed", "error", out.err)
			return result, out.err
		}
		result.Reader = out.reader
		result.TotalPages = out.pages
		result.Success = true
		return result, nil
	}
}
