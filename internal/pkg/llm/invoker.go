package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aiphoto/backend/internal/pkg/metrics"
	"k8s.io/klog/v2"
)

// ErrImageClientUnavailable 未配置图像生成服务
var ErrImageClientUnavailable = errors.New("图像生成服务未配置")

// SleepFunc 重试等待，可在测试中替换
type SleepFunc func(ctx context.Context, d time.Duration) error

// Invoker 在 TextClient/ImageClient 之上提供统一的重试与超时
// 第 i 次失败后等待 BaseDelay*i，客户端错误立即返回
type Invoker struct {
	text        TextClient
	image       ImageClient
	maxAttempts int
	baseDelay   time.Duration
	sleep       SleepFunc
}

// InvokerOption Invoker 可选配置
type InvokerOption func(*Invoker)

// WithSleep 替换重试等待函数
func WithSleep(fn SleepFunc) InvokerOption {
	return func(i *Invoker) {
		i.sleep = fn
	}
}

// WithImageClient 设置图像客户端
func WithImageClient(client ImageClient) InvokerOption {
	return func(i *Invoker) {
		i.image = client
	}
}

// NewInvoker 创建调用器，maxAttempts 为总尝试次数，最小为 1
func NewInvoker(text TextClient, maxAttempts int, baseDelay time.Duration, opts ...InvokerOption) *Invoker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	inv := &Invoker{
		text:        text,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// HasImageClient 是否配置了图像生成服务
func (i *Invoker) HasImageClient() bool {
	return i.image != nil
}

// Complete 带重试的文本生成
func (i *Invoker) Complete(ctx context.Context, prompt Prompt, opts CompleteOptions) (string, error) {
	var out string
	err := i.retry(ctx, "complete", opts.Stage, opts.Timeout, func(attemptCtx context.Context) error {
		text, err := i.text.Complete(attemptCtx, prompt, opts)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

// GenerateImage 带重试的图像生成
func (i *Invoker) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*GeneratedImage, error) {
	if i.image == nil {
		return nil, ErrImageClientUnavailable
	}
	var out *GeneratedImage
	err := i.retry(ctx, "image", opts.Stage, opts.Timeout, func(attemptCtx context.Context) error {
		img, err := i.image.Generate(attemptCtx, prompt, opts)
		if err != nil {
			return err
		}
		out = img
		return nil
	})
	return out, err
}

func (i *Invoker) retry(ctx context.Context, operation, stage string, timeout time.Duration, call func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		err := i.attempt(ctx, timeout, call)
		if err == nil {
			metrics.ModelCalls.WithLabelValues(operation, "success").Inc()
			if attempt > 1 {
				klog.V(6).Infof("[Invoker] 第 %d 次尝试成功: operation=%s, stage=%s", attempt, operation, stage)
			}
			return nil
		}

		lastErr = Classify(err)
		if IsClientError(lastErr) {
			metrics.ModelCalls.WithLabelValues(operation, "client_error").Inc()
			klog.Errorf("[Invoker] 客户端错误，不再重试: operation=%s, stage=%s, error=%v", operation, stage, lastErr)
			return lastErr
		}
		if ctx.Err() != nil {
			metrics.ModelCalls.WithLabelValues(operation, "canceled").Inc()
			return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}
		if attempt == i.maxAttempts {
			break
		}

		delay := i.baseDelay * time.Duration(attempt)
		if IsRateLimitError(lastErr) {
			// 服务端给出的等待时间更长时以服务端为准
			if ra := RetryAfter(lastErr); ra > delay {
				delay = ra
			}
			klog.Warningf("[Invoker] 触发限流: operation=%s, stage=%s, wait=%v", operation, stage, delay)
		}
		metrics.ModelRetries.WithLabelValues(operation, stage).Inc()
		klog.Warningf("[Invoker] 第 %d/%d 次尝试失败，%v 后重试: operation=%s, stage=%s, error=%v",
			attempt, i.maxAttempts, delay, operation, stage, lastErr)
		if err := i.sleep(ctx, delay); err != nil {
			metrics.ModelCalls.WithLabelValues(operation, "canceled").Inc()
			return fmt.Errorf("%s canceled: %w", operation, err)
		}
	}

	metrics.ModelCalls.WithLabelValues(operation, "failure").Inc()
	klog.Errorf("[Invoker] 重试次数用尽: operation=%s, stage=%s, attempts=%d, error=%v", operation, stage, i.maxAttempts, lastErr)
	return lastErr
}

func (i *Invoker) attempt(ctx context.Context, timeout time.Duration, call func(context.Context) error) error {
	if timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(attemptCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
