package i18n

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrorCode represents an HTTP status code
type ErrorCode int

const (
	ErrorBadRequest     ErrorCode = http.StatusBadRequest
	ErrorUnauthorized   ErrorCode = http.StatusUnauthorized
	ErrorForbidden      ErrorCode = http.StatusForbidden
	ErrorNotFound       ErrorCode = http.StatusNotFound
	ErrorConflict       ErrorCode = http.StatusConflict
	ErrorGone           ErrorCode = http.StatusGone
	ErrorInternalServer ErrorCode = http.StatusInternalServerError
)

// I18nError represents an internationalized error
type I18nError struct {
	// MessageID is the key used for translation lookup
	MessageID string
	// DefaultMessage is used when translation is not available
	DefaultMessage string
	// Data holds template parameters for the message
	Data map[string]interface{}
}

// New creates a new I18nError with the given message ID
func New(messageID string) *I18nError {
	return NewWithMessage(messageID, messageID)
}

// NewWithMessage creates a new I18nError with a message ID and default message
func NewWithMessage(messageID, defaultMessage string) *I18nError {
	return &I18nError{
		MessageID:      messageID,
		DefaultMessage: defaultMessage,
		Data:           make(map[string]interface{}),
	}
}

// WithParam adds a single template parameter to the error
func (e *I18nError) WithParam(key string, value interface{}) *I18nError {
	e.Data[key] = value
	return e
}

// Error implements the error interface
func (e *I18nError) Error() string {
	if t := GetTranslator(); t != nil {
		if translated := t.Translate(e.MessageID, defaultLang, e.Data); translated != e.MessageID {
			return translated
		}
	}

	msg := e.DefaultMessage
	for k, v := range e.Data {
		msg = strings.ReplaceAll(msg, fmt.Sprintf("{{.%s}}", k), fmt.Sprintf("%v", v))
	}
	return msg
}

// TranslateByContext translates the error based on the context's language preference
func (e *I18nError) TranslateByContext(c *gin.Context) string {
	if t := GetTranslator(); t != nil {
		if translated := t.Translate(e.MessageID, contextLang(c), e.Data); translated != e.MessageID {
			return translated
		}
	}
	return e.Error()
}

// ErrorWithCode is an error with a code that can be used in API responses
type ErrorWithCode struct {
	*I18nError
	Code ErrorCode
}

// NewErrorWithCode creates a new error with a code
func NewErrorWithCode(messageID string, code ErrorCode) *ErrorWithCode {
	return &ErrorWithCode{
		I18nError: New(messageID),
		Code:      code,
	}
}

// newCodedError creates a sentinel error carrying an english fallback message
func newCodedError(messageID, defaultMessage string, code ErrorCode) *ErrorWithCode {
	return &ErrorWithCode{
		I18nError: NewWithMessage(messageID, defaultMessage),
		Code:      code,
	}
}

// GetCode returns the error code
func (e *ErrorWithCode) GetCode() ErrorCode {
	return e.Code
}

// Unwrap exposes the kind of error, so errors.Is(err, ErrNotFound) holds for every not-found error
func (e *ErrorWithCode) Unwrap() error {
	switch e.Code {
	case ErrorNotFound:
		if e != ErrNotFound {
			return ErrNotFound
		}
	case ErrorForbidden:
		if e != ErrForbidden {
			return ErrForbidden
		}
	case ErrorBadRequest, ErrorGone:
		if e != ErrValidation {
			return ErrValidation
		}
	case ErrorConflict:
		if e != ErrConflict {
			return ErrConflict
		}
	}
	return nil
}
