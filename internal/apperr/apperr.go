package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type Kind string

const (
	KindFileProcessing Kind = "file_processing"
	KindDatabase       Kind = "database"
	KindLLMConnection  Kind = "llm_connection"
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
)

// Error is a user-facing failure. Message is safe to show; Err stays in logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message, nil)
}

func FileProcessing(code, message string, err error) *Error {
	return New(KindFileProcessing, code, message, err)
}

func Database(code string, err error) *Error {
	return New(KindDatabase, code, "Lỗi kết nối database. Vui lòng thử lại.", err)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

type Category string

const (
	CategoryConnection Category = "connection"
	CategoryTimeout    Category = "timeout"
	CategoryRateLimit  Category = "rate_limit"
	CategoryAuth       Category = "auth"
	CategoryValidation Category = "validation"
	CategoryServer     Category = "server"
	CategoryUnknown    Category = "unknown"
)

var guidance = map[Category]string{
	CategoryConnection: "Không thể kết nối Local LLM. Kiểm tra LM Studio đang chạy.",
	CategoryTimeout:    "Kết nối Local LLM timeout. Model có thể quá lớn cho hệ thống.",
	CategoryRateLimit:  "API đã vượt giới hạn rate limit. Vui lòng chờ và thử lại.",
	CategoryAuth:       "API key không hợp lệ. Kiểm tra cấu hình.",
	CategoryValidation: "Yêu cầu không hợp lệ. Thử với câu hỏi đơn giản hơn.",
	CategoryServer:     "LLM server đang quá tải. Vui lòng chờ và thử lại.",
	CategoryUnknown:    "LLM không thể tạo phản hồi. Thử với câu hỏi đơn giản hơn.",
}

// LLMFailure describes why a completion call did not produce text.
type LLMFailure struct {
	Category Category
	Guidance string
	Err      error
}

func (f *LLMFailure) Error() string {
	return fmt.Sprintf("llm %s: %v", f.Category, f.Err)
}

func (f *LLMFailure) Unwrap() error { return f.Err }

func NewLLMFailure(err error) *LLMFailure {
	c := Classify(err)
	return &LLMFailure{Category: c, Guidance: guidance[c], Err: err}
}

func Guidance(c Category) string {
	if g, ok := guidance[c]; ok {
		return g
	}
	return guidance[CategoryUnknown]
}

// Retryable reports whether an error of category c may succeed on retry.
func (c Category) Retryable() bool {
	switch c {
	case CategoryConnection, CategoryTimeout, CategoryRateLimit, CategoryServer, CategoryUnknown:
		return true
	default:
		return false
	}
}

// Classify maps provider, network and context errors to a Category.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var f *LLMFailure
	if errors.As(err, &f) {
		return f.Category
	}
	if e, ok := As(err); ok && (e.Kind == KindValidation || e.Kind == KindAuthentication) {
		if e.Kind == KindValidation {
			return CategoryValidation
		}
		return CategoryAuth
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryConnection
	}
	return classifyMessage(err.Error())
}

// StatusError is returned by plain HTTP clients for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func classifyStatus(status int, err error) Category {
	switch {
	case status == http.StatusTooManyRequests:
		return CategoryRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CategoryAuth
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return CategoryValidation
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return CategoryTimeout
	case status >= 500:
		return CategoryServer
	case status == 0:
		return classifyMessage(err.Error())
	default:
		return CategoryUnknown
	}
}

func classifyMessage(msg string) Category {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "forbidden", "permission"):
		return CategoryAuth
	case containsAny(msg, "rate limit", "429", "quota", "capacity"):
		return CategoryRateLimit
	case containsAny(msg, "timeout", "timed out", "deadline"):
		return CategoryTimeout
	case containsAny(msg, "503", "502", "504", "unavailable"):
		return CategoryServer
	case containsAny(msg, "connection", "network", "refused", "no such host"):
		return CategoryConnection
	case containsAny(msg, "400", "invalid", "validation"):
		return CategoryValidation
	default:
		return CategoryUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
