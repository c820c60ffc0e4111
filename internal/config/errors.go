package config

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes reported by the loader. The CLI prints them as-is.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or schema unification failed

	// Element validation errors
	ErrCodeNoElements     = "E100" // No element blocks
	ErrCodeInvalidMode    = "E101" // Unknown mode name
	ErrCodeInvalidType    = "E102" // Forbidden value type (float, null)
	ErrCodeInvalidPayload = "E103" // Malformed payload
	ErrCodeInvalidOptions = "E104" // Malformed observer options
)

// LoadError is a loader failure with a code and, when CUE knows it, a position.
type LoadError struct {
	Code    string
	Element string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	prefix := e.Code
	if e.Element != "" {
		prefix = fmt.Sprintf("%s: element %s", e.Code, e.Element)
		if e.Field != "" {
			prefix += "." + e.Field
		}
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), prefix, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Code extracts the loader code from err, or ErrCodeGeneric.
func Code(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

// formatCUEError converts a CUE error into a LoadError carrying the first
// reported position.
func formatCUEError(code, element string, err error) *LoadError {
	le := &LoadError{Code: code, Element: element, Message: err.Error()}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	first := errs[0]
	le.Message = first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
