// Package errors provides error handling utilities for keytyper
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrorType represents the type of error
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeValidation represents rejected user input (empty text, bad numbers)
	ErrorTypeValidation
	// ErrorTypeInjection represents key injection failures
	ErrorTypeInjection
	// ErrorTypeClipboard represents clipboard read/write/paste failures
	ErrorTypeClipboard
	// ErrorTypePersistence represents snippet store read/write failures
	ErrorTypePersistence
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig
	// ErrorTypeHotkey represents hotkey-related errors
	ErrorTypeHotkey
	// ErrorTypeUI represents UI-related errors
	ErrorTypeUI
)

var typeNames = map[ErrorType]string{
	ErrorTypeUnknown:     "unknown",
	ErrorTypeValidation:  "validation",
	ErrorTypeInjection:   "injection",
	ErrorTypeClipboard:   "clipboard",
	ErrorTypePersistence: "persistence",
	ErrorTypeConfig:      "config",
	ErrorTypeHotkey:      "hotkey",
	ErrorTypeUI:          "ui",
}

func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// Error represents an error with metadata
type Error struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

// NewError creates a new error with stack trace
func NewError(errType ErrorType, message string, err error) *Error {
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack[:n],
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Handler provides centralized error handling
type Handler struct {
	mu        sync.Mutex
	callbacks []func(*Error)
	logger    zerolog.Logger
}

// NewHandler creates a new error handler that logs through logger
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{
		logger: logger.With().Str("component", "errors").Logger(),
	}
}

// OnError registers a callback for error events
func (h *Handler) OnError(callback func(*Error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, callback)
}

// Handle logs err and notifies callbacks. Errors that are not *Error are
// wrapped as ErrorTypeUnknown.
func (h *Handler) Handle(err error) {
	if err == nil {
		return
	}

	var typed *Error
	if !stderrors.As(err, &typed) {
		typed = NewError(ErrorTypeUnknown, "error occurred", err)
	}

	h.mu.Lock()
	callbacks := make([]func(*Error), len(h.callbacks))
	copy(callbacks, h.callbacks)
	h.mu.Unlock()

	h.logger.Error().Err(err).Str("type", typed.Type.String()).Msg(typed.Message)

	for _, callback := range callbacks {
		go callback(typed)
	}
}

// IsType checks if err, or any error it wraps, is an *Error of errType
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == errType
	}
	return false
}

// Wrap wraps an error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	return NewError(errType, message, err)
}

// Validation returns a validation error wrapping err
func Validation(err error, message string) *Error {
	return NewError(ErrorTypeValidation, message, err)
}

// Common errors
var (
	ErrNotSupported  = fmt.Errorf("operation not supported")
	ErrNoTool        = fmt.Errorf("no input tool available")
	ErrEmptyText     = fmt.Errorf("nothing to type")
	ErrInvalidNumber = fmt.Errorf("not a valid number")
	ErrNegative      = fmt.Errorf("value must not be negative")
	ErrNotFound      = fmt.Errorf("not found")
	ErrEmptyName     = fmt.Errorf("name is empty")
	ErrBadShortcut   = fmt.Errorf("malformed key combination")
)
