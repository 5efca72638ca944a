package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"      // bad test name, correction, grouping column, thresholds
	CodePlotConfigInvalid = "PLOT_CONFIG_INVALID" // bad PlotSpec: absent columns, unsupported overlay
	CodeDataInvalid       = "DATA_INVALID"        // load-time violations: ragged rows, non-numeric cells
	CodeInternalError     = "INTERNAL_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ConfigInvalidf(format string, args ...interface{}) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf(format, args...))
}

func PlotConfigInvalid(message string) *AppError {
	return New(CodePlotConfigInvalid, message)
}

func PlotConfigInvalidf(format string, args ...interface{}) *AppError {
	return New(CodePlotConfigInvalid, fmt.Sprintf(format, args...))
}

func DataInvalid(message string) *AppError {
	return New(CodeDataInvalid, message)
}

// IsConfiguration reports whether err is a configuration error
func IsConfiguration(err error) bool {
	return GetCode(err) == CodeConfigInvalid
}

// IsPlotConfiguration reports whether err is a plot configuration error
func IsPlotConfiguration(err error) bool {
	return GetCode(err) == CodePlotConfigInvalid
}

// IsDataInvalid reports whether err is a data validity error
func IsDataInvalid(err error) bool {
	return GetCode(err) == CodeDataInvalid
}
