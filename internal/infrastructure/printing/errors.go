package printing

import "errors"

// RenderError represents an error during report layout or PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for layout and rendering failures
const (
	// ErrCodeAssetLoad means the header image could not be fetched or decoded.
	// It is recovered locally: the document is generated without the image.
	ErrCodeAssetLoad = "ASSET_LOAD_FAILED"
	// ErrCodeMeasurement means text could not be measured (invalid UTF-8,
	// non-finite or non-positive font size or width). Fatal to the document.
	ErrCodeMeasurement = "MEASUREMENT_FAILED"
	// ErrCodeGenerationAborted wraps any unexpected failure while assembling
	// a document. Nothing is saved.
	ErrCodeGenerationAborted = "GENERATION_ABORTED"
	// ErrCodeRenderFailed means the PDF backend could not serialize the document
	ErrCodeRenderFailed = "RENDER_FAILED"
	// ErrCodeStorageFailed means a finished document could not be stored
	ErrCodeStorageFailed = "STORAGE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAssetLoadError creates an error for an unavailable header asset
func NewAssetLoadError(message string, cause error) *RenderError {
	return NewRenderError(ErrCodeAssetLoad, message, cause)
}

// NewMeasurementError creates an error for text that cannot be measured
func NewMeasurementError(message string, cause error) *RenderError {
	return NewRenderError(ErrCodeMeasurement, message, cause)
}

// NewGenerationAbortError creates an error for an aborted document generation
func NewGenerationAbortError(message string, cause error) *RenderError {
	return NewRenderError(ErrCodeGenerationAborted, message, cause)
}

// HasCode reports whether err is, or wraps, a RenderError with the given code
func HasCode(err error, code string) bool {
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Code == code
	}
	return false
}

// IsAssetLoadError reports whether err is a header asset failure
func IsAssetLoadError(err error) bool {
	return HasCode(err, ErrCodeAssetLoad)
}

// IsMeasurementError reports whether err is a text measurement failure
func IsMeasurementError(err error) bool {
	return HasCode(err, ErrCodeMeasurement)
}

// IsGenerationAbortError reports whether err aborted a document generation
func IsGenerationAbortError(err error) bool {
	return HasCode(err, ErrCodeGenerationAborted)
}
