package llm

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

type scriptedText struct {
	errs  []error
	reply string
	calls int
}

func (s *scriptedText) Complete(ctx context.Context, prompt Prompt, opts CompleteOptions) (string, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return "", s.errs[s.calls-1]
	}
	return s.reply, nil
}

type scriptedImage struct {
	err   error
	calls int
}

func (s *scriptedImage) Generate(ctx context.Context, prompt string, opts ImageOptions) (*GeneratedImage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &GeneratedImage{Data: []byte("png"), MIMEType: "image/png"}, nil
}

func recordSleeps(delays *[]time.Duration) InvokerOption {
	return WithSleep(func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestInvoker_RetriesTransientWithLinearBackoff(t *testing.T) {
	text := &scriptedText{
		errs:  []error{errors.New("status code: 503"), errors.New("connection reset")},
		reply: "ok",
	}
	var delays []time.Duration
	inv := NewInvoker(text, 3, time.Second, recordSleeps(&delays))

	out, err := inv.Complete(context.Background(), Prompt{User: "hi"}, CompleteOptions{Stage: "planner"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected reply: %q", out)
	}
	if text.calls != 3 {
		t.Fatalf("expected success on third call, got %d calls", text.calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !slices.Equal(delays, want) {
		t.Fatalf("delays = %v, want linear %v", delays, want)
	}
}

func TestInvoker_ReturnsLastErrorWhenExhausted(t *testing.T) {
	last := errors.New("upstream timeout 2")
	text := &scriptedText{errs: []error{errors.New("upstream timeout 1"), last}}
	var delays []time.Duration
	inv := NewInvoker(text, 2, 10*time.Millisecond, recordSleeps(&delays))

	_, err := inv.Complete(context.Background(), Prompt{User: "hi"}, CompleteOptions{})
	if !errors.Is(err, last) {
		t.Fatalf("expected last error, got %v", err)
	}
	if text.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", text.calls)
	}
	if len(delays) != 1 {
		t.Fatalf("no sleep after the final attempt, got %v", delays)
	}
}

func TestInvoker_ClientErrorIsNotRetried(t *testing.T) {
	text := &scriptedText{errs: []error{errors.New("error, status code: 401, status: 401 Unauthorized")}}
	var delays []time.Duration
	inv := NewInvoker(text, 3, time.Second, recordSleeps(&delays))

	_, err := inv.Complete(context.Background(), Prompt{User: "hi"}, CompleteOptions{})
	if !IsClientError(err) {
		t.Fatalf("expected client error, got %v", err)
	}
	if text.calls != 1 || len(delays) != 0 {
		t.Fatalf("client error should not be retried: calls=%d, delays=%v", text.calls, delays)
	}
}

func TestInvoker_MinimumOneAttempt(t *testing.T) {
	text := &scriptedText{errs: []error{errors.New("boom")}}
	inv := NewInvoker(text, 0, time.Second, WithSleep(func(context.Context, time.Duration) error { return nil }))

	if _, err := inv.Complete(context.Background(), Prompt{User: "hi"}, CompleteOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if text.calls != 1 {
		t.Fatalf("expected 1 call, got %d", text.calls)
	}
}

func TestInvoker_PerAttemptTimeout(t *testing.T) {
	var deadlines []bool
	text := TextClientFunc(func(ctx context.Context, prompt Prompt, opts CompleteOptions) (string, error) {
		_, ok := ctx.Deadline()
		deadlines = append(deadlines, ok)
		return "done", nil
	})
	inv := NewInvoker(text, 1, 0)

	if _, err := inv.Complete(context.Background(), Prompt{User: "hi"}, CompleteOptions{Timeout: time.Minute}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if len(deadlines) != 1 || !deadlines[0] {
		t.Fatalf("attempt should run with a deadline: %v", deadlines)
	}
}

func TestInvoker_SleepCanceled(t *testing.T) {
	text := &scriptedText{errs: []error{errors.New("boom"), errors.New("boom")}}
	inv := NewInvoker(text, 3, time.Second, WithSleep(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}))

	_, err := inv.Complete(context.Background(), Prompt{User: "hi"}, CompleteOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if text.calls != 1 {
		t.Fatalf("expected 1 call, got %d", text.calls)
	}
}

func TestInvoker_GenerateImage(t *testing.T) {
	t.Run("未配置图像客户端", func(t *testing.T) {
		inv := NewInvoker(&scriptedText{}, 3, 0)
		if inv.HasImageClient() {
			t.Fatalf("HasImageClient should be false")
		}
		if _, err := inv.GenerateImage(context.Background(), "cover", ImageOptions{}); !errors.Is(err, ErrImageClientUnavailable) {
			t.Fatalf("expected ErrImageClientUnavailable, got %v", err)
		}
	})

	t.Run("重试后失败", func(t *testing.T) {
		img := &scriptedImage{err: ErrNoImage}
		var delays []time.Duration
		inv := NewInvoker(&scriptedText{}, 2, time.Millisecond, WithImageClient(img), recordSleeps(&delays))
		if _, err := inv.GenerateImage(context.Background(), "cover", ImageOptions{Stage: "image"}); !errors.Is(err, ErrNoImage) {
			t.Fatalf("expected ErrNoImage, got %v", err)
		}
		if img.calls != 2 {
			t.Fatalf("expected 2 calls, got %d", img.calls)
		}
	})

	t.Run("成功", func(t *testing.T) {
		img := &scriptedImage{}
		inv := NewInvoker(&scriptedText{}, 2, time.Millisecond, WithImageClient(img))
		out, err := inv.GenerateImage(context.Background(), "cover", ImageOptions{})
		if err != nil {
			t.Fatalf("GenerateImage error: %v", err)
		}
		if out.MIMEType != "image/png" {
			t.Fatalf("unexpected mime type: %s", out.MIMEType)
		}
	})
}
