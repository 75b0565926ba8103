package dashapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyName 创建自选列表时名称为空。
var ErrEmptyName = errors.New("watchlist name is required")

// APIError 是请求失败时返回给调用方的错误。Retryable 提示是否值得手动重试。
type APIError struct {
	Endpoint  string
	Status    int // 0 表示传输层错误
	Message   string
	Retryable bool
	Err       error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is an *APIError marked retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func transportError(endpoint string, err error) *APIError {
	return &APIError{Endpoint: endpoint, Message: err.Error(), Retryable: true, Err: err}
}

func statusError(endpoint string, status int, body []byte) *APIError {
	return &APIError{
		Endpoint:  endpoint,
		Status:    status,
		Message:   errorMessage(status, body),
		Retryable: retryableStatus(status),
	}
}

func errorMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		for _, raw := range []json.RawMessage{eb.Error, eb.Detail} {
			if len(raw) == 0 {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
			return string(raw)
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return msg
	}
	return http.StatusText(status)
}
