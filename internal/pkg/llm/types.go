package llm

import (
	"context"
	"time"
)

// Prompt 一次文本生成请求
type Prompt struct {
	System string
	User   string
}

// CompleteOptions 文本生成参数
type CompleteOptions struct {
	Stage       string // 仅用于日志与指标
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ImageOptions 图像生成参数
type ImageOptions struct {
	Stage          string
	AspectRatio    string // 1:1, 3:4 ...
	ReferenceImage []byte
	ReferenceMIME  string
	Timeout        time.Duration
}

// GeneratedImage 图像生成结果
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// TextClient 文本生成服务
type TextClient interface {
	Complete(ctx context.Context, prompt Prompt, opts CompleteOptions) (string, error)
}

// ImageClient 图像生成服务
type ImageClient interface {
	Generate(ctx context.Context, prompt string, opts ImageOptions) (*GeneratedImage, error)
}

// TextClientFunc 函数适配 TextClient
type TextClientFunc func(ctx context.Context, prompt Prompt, opts CompleteOptions) (string, error)

func (f TextClientFunc) Complete(ctx context.Context, prompt Prompt, opts CompleteOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// ImageClientFunc 函数适配 ImageClient
type ImageClientFunc func(ctx context.Context, prompt string, opts ImageOptions) (*GeneratedImage, error)

func (f ImageClientFunc) Generate(ctx context.Context, prompt string, opts ImageOptions) (*GeneratedImage, error) {
	return f(ctx, prompt, opts)
}
