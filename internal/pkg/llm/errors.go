package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrEmptyResponse 模型没有返回任何内容
var ErrEmptyResponse = errors.New("模型返回内容为空")

// ErrNoImage 图像服务返回了文本而不是图片
var ErrNoImage = errors.New("图像服务未返回图片")

// ClientError 明确的客户端错误（请求非法、鉴权失败），不重试
type ClientError struct {
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("模型服务拒绝请求(status=%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("模型服务拒绝请求: %v", e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// TransientError 可重试的临时错误（超时、5xx、网络异常）
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsClientError 判断是否为不可重试的客户端错误
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

var statusCodePattern = regexp.MustCompile(`(?i)status(?: code)?[:= ]+(\d{3})`)

var clientErrorKeywords = []string{
	"invalid_request_error",
	"invalid api key",
	"incorrect api key",
	"unauthorized",
	"permission denied",
	"api key not valid",
}

// Classify 将底层错误归类为 ClientError 或 TransientError
// 只有 400/401/403 或明确的鉴权/请求错误视为客户端错误，其余一律可重试
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if isClientStatus(gerr.Code) {
			return &ClientError{StatusCode: gerr.Code, Err: err}
		}
		return &TransientError{Err: err}
	}

	msg := strings.ToLower(err.Error())
	if m := statusCodePattern.FindStringSubmatch(msg); len(m) == 2 {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil && isClientStatus(code) {
			return &ClientError{StatusCode: code, Err: err}
		}
	}
	for _, kw := range clientErrorKeywords {
		if strings.Contains(msg, kw) {
			return &ClientError{Err: err}
		}
	}
	return &TransientError{Err: err}
}

func isClientStatus(code int) bool {
	return code == 400 || code == 401 || code == 403
}

// statusCodeOf 提取错误中的 HTTP 状态码，没有时返回 0
func statusCodeOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	if m := statusCodePattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 0
}
