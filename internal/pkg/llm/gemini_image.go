package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aiphoto/backend/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"k8s.io/klog/v2"
)

// GeminiImageClient 基于 Gemini 的图像生成客户端
type GeminiImageClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiImageClient 创建图像生成客户端
func NewGeminiImageClient(ctx context.Context, cfg *config.Config) (*GeminiImageClient, error) {
	if cfg.Image.APIKey == "" {
		return nil, fmt.Errorf("image api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Image.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiImageClient{client: client, modelName: cfg.Image.Model}, nil
}

// Generate 生成一张图片，服务只返回文本时报错
func (c *GeminiImageClient) Generate(ctx context.Context, prompt string, opts ImageOptions) (*GeneratedImage, error) {
	m := c.client.GenerativeModel(c.modelName)
	m.SetTemperature(0.8)

	text := prompt
	if opts.AspectRatio != "" {
		text = fmt.Sprintf("%s\n\n图片比例: %s", prompt, opts.AspectRatio)
	}
	parts := []genai.Part{genai.Text(text)}
	if len(opts.ReferenceImage) > 0 {
		format := strings.TrimPrefix(opts.ReferenceMIME, "image/")
		if format == "" {
			format = "jpeg"
		}
		parts = append(parts, genai.ImageData(format, opts.ReferenceImage))
	}

	klog.V(6).Infof("[LLM] 图像生成开始: stage=%s, model=%s, ratio=%s", opts.Stage, c.modelName, opts.AspectRatio)
	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, Classify(err)
	}
	return extractImage(resp)
}

// Close 释放底层连接
func (c *GeminiImageClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractImage(resp *genai.GenerateContentResponse) (*GeneratedImage, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &TransientError{Err: ErrEmptyResponse}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, &TransientError{Err: ErrEmptyResponse}
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Blob:
			if strings.HasPrefix(p.MIMEType, "image/") && len(p.Data) > 0 {
				return &GeneratedImage{Data: p.Data, MIMEType: p.MIMEType}, nil
			}
		case genai.Text:
			texts = append(texts, string(p))
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoImage, strings.Join(texts, ""))
}
