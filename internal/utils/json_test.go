package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractJSONStrict(t *testing.T) {
	raw, err := ExtractJSON("  {\"scene_type\": \"id_photo\"}\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != `{"scene_type": "id_photo"}` {
		t.Fatalf("unexpected raw: %s", raw)
	}
}

func TestExtractJSONFromCodeBlock(t *testing.T) {
	content := "好的，这是配置：\n```json\n{\"scene\": {\"name\": \"证件照\"}}\n```\n希望对你有帮助"
	raw, err := ExtractJSON(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(raw, "{\"scene\"") {
		t.Fatalf("unexpected raw: %s", raw)
	}
}

func TestExtractJSONSkipsNonJSONCodeBlock(t *testing.T) {
	content := "```\nnot json\n```\n说明\n```json\n{\"a\": 1}\n```"
	raw, err := ExtractJSON(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != `{"a": 1}` {
		t.Fatalf("unexpected raw: %s", raw)
	}
}

// 代码块与裸对象同时存在时，代码块优先
func TestExtractJSONFencedWinsOverBrace(t *testing.T) {
	content := "前缀 {\"from\": \"brace\"} 中间\n```json\n{\"from\": \"fenced\"}\n```"
	raw, err := ExtractJSON(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(raw, "fenced") {
		t.Fatalf("expected fenced block to win, got %s", raw)
	}
}

func TestExtractJSONFirstBraceSpan(t *testing.T) {
	content := "分析如下 {\"template\": \"保持{面部}特征\", \"n\": {\"x\": 1}} 然后 {\"second\": true}"
	raw, err := ExtractJSON(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != `{"template": "保持{面部}特征", "n": {"x": 1}}` {
		t.Fatalf("unexpected raw: %s", raw)
	}
}

func TestExtractJSONParseError(t *testing.T) {
	for _, content := range []string{"", "完全没有 JSON", "{ broken: json", "{\"a\": }"} {
		_, err := ExtractJSON(content)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError for %q, got %v", content, err)
		}
	}
}

func TestParseJSONObjectTypeMismatch(t *testing.T) {
	var v struct {
		Score float64 `json:"score"`
	}
	err := ParseJSONObject(`{"score": "high"}`, &v)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("证件照白色背景", 3); got != "证件照..." {
		t.Fatalf("unexpected truncate: %s", got)
	}
	if got := Truncate("短", 10); got != "短" {
		t.Fatalf("unexpected truncate: %s", got)
	}
}
