package errors

import (
	"fmt"
	"log/slog"
)

// Recover runs fn and converts a panic or returned error into a
// DegradedDetection error tagged with stage and page. A nil result means fn
// completed normally. page is 1-based; zero means document-level.
func Recover(stage string, page int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPDFError(ErrorTypeDegradedDetection, fmt.Sprintf("panic: %v", r)).
				WithStage(stage).
				WithPage(page)
		}
	}()

	if ferr := fn(); ferr != nil {
		if pe, ok := ferr.(*PDFError); ok {
			return pe
		}
		return WrapError(ErrorTypeDegradedDetection, ferr).WithStage(stage).WithPage(page)
	}
	return nil
}

// Degrade records a detector fallback in the collection and logs it.
func Degrade(ec *ErrorCollection, log *slog.Logger, stage string, page int, format string, args ...any) {
	e := NewPDFError(ErrorTypeDegradedDetection, fmt.Sprintf(format, args...)).WithStage(stage).WithPage(page)
	if ec != nil {
		ec.Add(e)
	}
	if log != nil {
		log.Debug("detection degraded", "stage", stage, "page", page, "reason", e.Message)
	}
}
