package gpuerr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gpuguard/internal/logging"
)

// StructuredError is a classified GPU error
type StructuredError struct {
	Code             Code      `json:"code"`
	Message          string    `json:"message"`
	TechnicalDetails *string   `json:"technical_details"`
	DeviceID         *int32    `json:"device_id"`
	Timestamp        time.Time `json:"timestamp"`
}

// UserResponse is the user facing rendering of a StructuredError
type UserResponse struct {
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	Suggestion  string  `json:"suggestion"`
	DocLink     *string `json:"doc_link"`
	CanFallback bool    `json:"can_fallback"`
}

// New creates an error with the given code
func New(code Code, message string) *StructuredError {
	return &StructuredError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// FromMessage creates an error whose code is inferred with Classify.
func FromMessage(message string) *StructuredError {
	return New(Classify(message), message)
}

// FromError converts any error. Errors that already wrap a StructuredError
// are returned as is; others are classified by their message.
func FromError(err error) *StructuredError {
	if err == nil {
		return nil
	}
	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}
	return FromMessage(err.Error())
}

// WithDetails attaches technical details
func (e *StructuredError) WithDetails(details string) *StructuredError {
	e.TechnicalDetails = &details
	return e
}

// WithDeviceID attaches the device the error concerns
func (e *StructuredError) WithDeviceID(id int32) *StructuredError {
	e.DeviceID = &id
	return e
}

// Error renders "[CODE] description: message".
func (e *StructuredError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.Display(), e.Message)
}

// CanFallbackToCPU is false only for model load failures, which the CPU
// path would hit as well.
func (e *StructuredError) CanFallbackToCPU() bool {
	return e.Code != ModelLoadFailed
}

// UserResponse builds the response shown to users. An empty message falls
// back to the code description.
func (e *StructuredError) UserResponse() UserResponse {
	message := e.Message
	if strings.TrimSpace(message) == "" {
		message = e.Code.Description()
	}
	resp := UserResponse{
		Code:        e.Code.String(),
		Title:       e.Code.Description(),
		Message:     message,
		Suggestion:  e.Code.Suggestion(),
		CanFallback: e.CanFallbackToCPU(),
	}
	if link, ok := e.Code.DocLink(); ok {
		resp.DocLink = &link
	}
	return resp
}

// Log emits the error as a structured warning, with details at debug level.
func (e *StructuredError) Log(logger *logging.Logger) {
	payload := map[string]interface{}{
		"error_code": e.Code.String(),
		"message":    e.Message,
	}
	if e.DeviceID != nil {
		payload["device_id"] = *e.DeviceID
	}
	logger.Warn("gpu.error", e.Code.Description(), payload)

	if e.TechnicalDetails != nil {
		logger.Debug("gpu.error.details", "Technical details", map[string]interface{}{
			"error_code": e.Code.String(),
			"details":    *e.TechnicalDetails,
		})
	}
}
