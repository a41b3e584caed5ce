package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"k8s.io/klog/v2"
)

// ParseError 模型文本无法解析出 JSON 对象
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("无法从模型响应中解析 JSON: %s", e.Snippet)
}

var fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")

// jsonExtractor 一种从文本中取出 JSON 对象的方式
type jsonExtractor struct {
	name    string
	extract func(content string) (string, bool)
}

// extractors 按顺序尝试，先命中者胜出
var extractors = []jsonExtractor{
	{name: "strict", extract: extractStrict},
	{name: "fenced", extract: extractFenced},
	{name: "brace", extract: extractFirstBraceSpan},
}

// ExtractJSON 从模型文本中取出 JSON 对象文本
// 依次尝试：整体即 JSON、代码块内 JSON、第一个配平的 {...} 片段
func ExtractJSON(content string) (string, error) {
	for _, ex := range extractors {
		if raw, ok := ex.extract(content); ok {
			klog.V(8).Infof("[ExtractJSON] 命中解析方式: %s", ex.name)
			return raw, nil
		}
	}
	return "", &ParseError{Snippet: snippet(content, 120)}
}

// ParseJSONObject 提取 JSON 对象并解码到 v
func ParseJSONObject(content string, v any) error {
	raw, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Snippet: snippet(err.Error()+": "+raw, 160)}
	}
	return nil
}

func isJSONObject(s string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

func extractStrict(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if isJSONObject(trimmed) {
		return trimmed, true
	}
	return "", false
}

func extractFenced(content string) (string, bool) {
	for _, m := range fencedBlockPattern.FindAllStringSubmatch(content, -1) {
		body := strings.TrimSpace(m[1])
		if isJSONObject(body) {
			return body, true
		}
	}
	return "", false
}

// extractFirstBraceSpan 只看第一个配平的 {...}，忽略字符串内的括号
func extractFirstBraceSpan(content string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				span := content[start : i+1]
				if isJSONObject(span) {
					return span, true
				}
				return "", false
			}
		}
	}
	return "", false
}

func snippet(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}

// Truncate 按字符截断文本
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func ToJSON(v any) string {
	jsonData, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("JSON序列化失败: %v", err)
		return ""
	}
	return string(jsonData)
}
