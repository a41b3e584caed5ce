package llm

import (
	"context"
	"strings"

	"github.com/aiphoto/backend/config"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"
)

// ChatTextClient 基于 Eino OpenAI ChatModel 的文本生成客户端
type ChatTextClient struct {
	chatModel    model.BaseChatModel
	defaultModel string
}

// NewChatTextClient 根据配置创建 OpenAI 兼容的文本客户端
func NewChatTextClient(cfg *config.Config) (*ChatTextClient, error) {
	klog.V(6).Infof("[LLM] 创建 OpenAI ChatModel: model=%s, baseURL=%s", cfg.LLM.Model, cfg.LLM.APIURL)

	chatCfg := &openai.ChatModelConfig{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.Model,
	}
	if cfg.LLM.APIURL != "" {
		chatCfg.BaseURL = cfg.LLM.APIURL
	}
	if cfg.LLM.MaxTokens > 0 {
		maxTokens := cfg.LLM.MaxTokens
		chatCfg.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(context.Background(), chatCfg)
	if err != nil {
		klog.Errorf("[LLM] 创建 ChatModel 失败: %v", err)
		return nil, err
	}
	return NewChatTextClientWithModel(chatModel, cfg.LLM.Model), nil
}

// NewChatTextClientWithModel 使用已有的 ChatModel 构造客户端
func NewChatTextClientWithModel(chatModel model.BaseChatModel, defaultModel string) *ChatTextClient {
	return &ChatTextClient{chatModel: chatModel, defaultModel: defaultModel}
}

// Complete 发送一次对话请求并返回文本
func (c *ChatTextClient) Complete(ctx context.Context, prompt Prompt, opts CompleteOptions) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if prompt.System != "" {
		messages = append(messages, schema.SystemMessage(prompt.System))
	}
	messages = append(messages, schema.UserMessage(prompt.User))

	var modelOpts []model.Option
	if opts.Model != "" && opts.Model != c.defaultModel {
		modelOpts = append(modelOpts, model.WithModel(opts.Model))
	}
	if opts.Temperature > 0 {
		modelOpts = append(modelOpts, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(opts.MaxTokens))
	}

	klog.V(6).Infof("[LLM] Complete 开始: stage=%s, promptLength=%d", opts.Stage, len(prompt.System)+len(prompt.User))
	klog.V(8).Infof("[LLM] Complete prompt: %s", prompt.User)

	resp, err := c.chatModel.Generate(ctx, messages, modelOpts...)
	if err != nil {
		return "", Classify(err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &TransientError{Err: ErrEmptyResponse}
	}

	klog.V(6).Infof("[LLM] Complete 完成: stage=%s, responseLength=%d", opts.Stage, len(resp.Content))
	return resp.Content, nil
}
