package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageInvokerFunc func(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error)

func (f imageInvokerFunc) GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error) {
	return f(ctx, prompt, opts)
}

type memoryStore struct {
	mu   sync.Mutex
	keys []string
}

func (m *memoryStore) Put(ctx context.Context, data []byte, key, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func imageContext(sceneName string) *StageContext {
	return &StageContext{
		TaskID: "task-1",
		Plan:   &model.Plan{SceneName: sceneName, StyleKeywords: []string{"清新", "自然"}},
		Config: &model.TemplateConfig{Scene: model.SceneInfo{Name: sceneName, Description: "测试场景"}},
	}
}

func TestImageGenerator_DenylistNeverCallsClient(t *testing.T) {
	for _, name := range []string{"皮卡丘主题写真", "Mickey 合影", "NSFW 写真", "血腥风格"} {
		t.Run(name, func(t *testing.T) {
			invoker := imageInvokerFunc(func(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error) {
				t.Fatalf("命中禁用词时不应调用图像服务")
				return nil, nil
			})
			gen := NewImageGenerator(invoker, &memoryStore{}, 0)

			result := gen.Execute(context.Background(), imageContext(name))
			assert.False(t, result.Success)
			assert.Nil(t, result.Data)
			assert.NotEmpty(t, result.Error)
		})
	}
}

func TestCheckContentSafety(t *testing.T) {
	err := CheckContentSafety("HELLO KITTY 下午茶")
	var pv *PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, "hello kitty", pv.Term)
	assert.Equal(t, "版权角色", pv.Category)

	assert.NoError(t, CheckContentSafety("证件照"))
}

func TestImageGenerator_BothSucceed(t *testing.T) {
	var mu sync.Mutex
	ratios := map[string]bool{}
	invoker := imageInvokerFunc(func(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error) {
		mu.Lock()
		ratios[opts.AspectRatio] = true
		mu.Unlock()
		assert.True(t, strings.HasPrefix(prompt, imageSafetyPreamble))
		return &llm.GeneratedImage{Data: []byte("img"), MIMEType: "image/jpeg"}, nil
	})
	store := &memoryStore{}
	gen := NewImageGenerator(invoker, store, 0)

	result := gen.Execute(context.Background(), imageContext("证件照"))
	require.True(t, result.Success, result.Error)
	images := result.Data.(*model.ImagesResult)
	require.NotNil(t, images.CoverImage)
	require.NotNil(t, images.ReferenceImage)
	assert.Contains(t, *images.CoverImage, "generated/cover_")
	assert.True(t, strings.HasSuffix(*images.CoverImage, ".jpg"))
	assert.Contains(t, *images.ReferenceImage, "generated/reference_")
	assert.Equal(t, map[string]bool{"1:1": true, "3:4": true}, ratios)
	assert.Len(t, store.keys, 2)
}

func TestImageGenerator_CoverFailsReferenceSucceeds(t *testing.T) {
	invoker := imageInvokerFunc(func(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error) {
		if opts.AspectRatio == "1:1" {
			return nil, llm.ErrNoImage
		}
		return &llm.GeneratedImage{Data: []byte("img"), MIMEType: "image/png"}, nil
	})
	gen := NewImageGenerator(invoker, &memoryStore{}, 0)

	result := gen.Execute(context.Background(), imageContext("证件照"))
	assert.False(t, result.Success)
	images := result.Data.(*model.ImagesResult)
	assert.Nil(t, images.CoverImage)
	require.NotNil(t, images.ReferenceImage)
	assert.True(t, strings.HasSuffix(*images.ReferenceImage, ".png"))
	require.Len(t, images.Errors, 1)
	assert.Contains(t, images.Errors[0], "封面图生成失败")
	assert.Contains(t, result.Error, "封面图生成失败")
}

func TestImageGenerator_BothFailReportsEach(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	invoker := imageInvokerFunc(func(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil, errors.New("upstream down")
	})
	gen := NewImageGenerator(invoker, &memoryStore{}, 0)

	result := gen.Execute(context.Background(), imageContext("证件照"))
	assert.False(t, result.Success)
	assert.Equal(t, 2, calls, "一张失败不应取消另一张")
	images := result.Data.(*model.ImagesResult)
	assert.Nil(t, images.CoverImage)
	assert.Nil(t, images.ReferenceImage)
	require.Len(t, images.Errors, 2)
	assert.Contains(t, images.Errors[0], "封面图生成失败")
	assert.Contains(t, images.Errors[1], "参考图生成失败")
}
