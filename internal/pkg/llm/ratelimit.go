package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxRateLimitWait 限流时单次等待上限
const maxRateLimitWait = time.Minute

var rateLimitKeywords = []string{
	"rate limit",
	"quota exceeded",
	"too many requests",
	"rate-limited",
	"resource_exhausted",
	"请求次数超过限制",
	"超过限制",
}

// 形如 "Try again in 20s" / "retry after 2m" / "retryDelay: 15s"
var retryAfterPattern = regexp.MustCompile(`(?i)(?:try again in|retry after|retrydelay[":\s]+)\s*(\d+(?:\.\d+)?)\s*(ms|s|m|h)`)

// IsRateLimitError 判断错误是否为限流
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCodeOf(err); code == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range rateLimitKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// RetryAfter 从限流错误中解析服务端建议的等待时间，解析不到返回 0
func RetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryAfterPattern.FindStringSubmatch(err.Error())
	if len(m) < 3 {
		return 0
	}
	n, parseErr := strconv.ParseFloat(m[1], 64)
	if parseErr != nil || n <= 0 {
		return 0
	}
	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "ms":
		unit = time.Millisecond
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	}
	d := time.Duration(n * float64(unit))
	if d > maxRateLimitWait {
		d = maxRateLimitWait
	}
	return d
}
