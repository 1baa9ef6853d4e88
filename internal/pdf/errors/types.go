package errors

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"
)

// PDFError is a parse failure or degradation with enough context to report
// which stage and page produced it.
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Stage       string    `json:"stage,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	Err         error     `json:"-"`
}

// ErrorType is the parse error taxonomy.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidInput marks an unparseable byte stream. Fatal.
	ErrorTypeInvalidInput
	// ErrorTypeUnsupportedDocument marks a readable PDF the pipeline cannot use. Fatal.
	ErrorTypeUnsupportedDocument
	// ErrorTypeDegradedDetection marks a detector that fell back to its default.
	ErrorTypeDegradedDetection
	// ErrorTypeValidationWarning marks a missing required section group.
	ErrorTypeValidationWarning
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Sentinels matched by errors.Is against any PDFError of the same type.
var (
	ErrInvalidInput        = stderrors.New("invalid input")
	ErrUnsupportedDocument = stderrors.New("unsupported document")
	ErrDegradedDetection   = stderrors.New("degraded detection")
	ErrValidationWarning   = stderrors.New("validation warning")
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Type.String(), e.Stage, e.Message)
	}
	if e.PageNumber > 0 {
		msg += fmt.Sprintf(" (page %d)", e.PageNumber)
	}
	if e.Context != "" {
		msg += ": " + e.Context
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *PDFError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's type.
func (e *PDFError) Is(target error) bool {
	return target != nil && target == e.Type.Sentinel()
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeInvalidInput:
		return "INVALID_INPUT"
	case ErrorTypeUnsupportedDocument:
		return "UNSUPPORTED_DOCUMENT"
	case ErrorTypeDegradedDetection:
		return "DEGRADED_DETECTION"
	case ErrorTypeValidationWarning:
		return "VALIDATION_WARNING"
	default:
		return "UNKNOWN"
	}
}

// Sentinel returns the package-level sentinel for the type, or nil.
func (et ErrorType) Sentinel() error {
	switch et {
	case ErrorTypeInvalidInput:
		return ErrInvalidInput
	case ErrorTypeUnsupportedDocument:
		return ErrUnsupportedDocument
	case ErrorTypeDegradedDetection:
		return ErrDegradedDetection
	case ErrorTypeValidationWarning:
		return ErrValidationWarning
	default:
		return nil
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeInvalidInput, ErrorTypeUnsupportedDocument:
		return SeverityFatal
	case ErrorTypeDegradedDetection, ErrorTypeValidationWarning:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether the pipeline can continue past this error type.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeDegradedDetection, ErrorTypeValidationWarning:
		return true
	default:
		return false
	}
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// NewPDFErrorWithContext creates a new PDFError with additional context
func NewPDFErrorWithContext(errorType ErrorType, message, context string) *PDFError {
	e := NewPDFError(errorType, message)
	e.Context = context
	return e
}

// WrapError wraps a standard error as a PDFError
func WrapError(errorType ErrorType, err error) *PDFError {
	e := NewPDFError(errorType, err.Error())
	e.Err = err
	return e
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithPage adds a 1-based page number
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// WithStage records the pipeline stage that produced the error
func (e *PDFError) WithStage(stage string) *PDFError {
	e.Stage = stage
	return e
}

// GetSeverity returns the severity of this specific error
func (e *PDFError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsFatal returns true if the parse cannot continue
func (e *PDFError) IsFatal() bool {
	return e.GetSeverity() == SeverityFatal
}

// IsFatal reports whether err carries a fatal taxonomy type.
func IsFatal(err error) bool {
	var pe *PDFError
	if stderrors.As(err, &pe) {
		return pe.IsFatal()
	}
	return false
}

// ErrorCollection gathers the non-fatal errors of one parse.
type ErrorCollection struct {
	mu       sync.Mutex
	Errors   []*PDFError `json:"errors"`
	Warnings []*PDFError `json:"warnings"`
	FilePath string      `json:"file_path,omitempty"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection(filePath string) *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*PDFError, 0),
		Warnings: make([]*PDFError, 0),
		FilePath: filePath,
	}
}

// Add files an error by severity. A nil collection discards it.
func (ec *ErrorCollection) Add(err *PDFError) {
	if ec == nil || err == nil {
		return
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()

	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.Errors), len(ec.Warnings)
}

// HasFatal reports whether any collected error is fatal.
func (ec *ErrorCollection) HasFatal() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for _, err := range ec.Errors {
		if err.IsFatal() {
			return true
		}
	}
	return false
}

// Messages returns every collected error and warning as text, errors first.
func (ec *ErrorCollection) Messages() []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]string, 0, len(ec.Errors)+len(ec.Warnings))
	for _, e := range ec.Errors {
		out = append(out, e.Error())
	}
	for _, w := range ec.Warnings {
		out = append(out, w.Error())
	}
	return out
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
