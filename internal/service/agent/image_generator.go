package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/aiphoto/backend/internal/pkg/metrics"
	"github.com/aiphoto/backend/internal/pkg/storage"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// 生成图片类型
const (
	ImageKindCover     = "cover"
	ImageKindReference = "reference"
)

const imageSafetyPreamble = "请生成原创、健康、适合所有年龄段的图片。不得包含真实公众人物的肖像、品牌标识、文字水印或受版权保护的角色。"

// ImageInvoker 图像生成入口，由 llm.Invoker 实现
type ImageInvoker interface {
	GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (*llm.GeneratedImage, error)
}

// ImageGenerator 生成封面图与参考图并上传
type ImageGenerator struct {
	invoker ImageInvoker
	store   storage.ObjectStore
	timeout time.Duration
	now     func() time.Time
}

// NewImageGenerator 创建图像生成阶段
func NewImageGenerator(invoker ImageInvoker, store storage.ObjectStore, timeout time.Duration) *ImageGenerator {
	return &ImageGenerator{invoker: invoker, store: store, timeout: timeout, now: time.Now}
}

type imageJob struct {
	kind   string
	ratio  string
	prompt string
	label  string
}

// Execute 先做内容安全检查，再独立生成两张图；任一失败时 Success=false 并返回已生成的部分
func (g *ImageGenerator) Execute(ctx context.Context, sc *StageContext) (result *model.AgentResult) {
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		metrics.ObserveStage(StageImageGenerator, result.Success, result.Duration)
	}()

	sceneName := imageSceneName(sc)
	if err := CheckContentSafety(sceneName); err != nil {
		klog.Warningf("[ImageGenerator] 内容安全检查未通过: taskID=%s, scene=%s, error=%v", sc.TaskID, sceneName, err)
		return &model.AgentResult{Error: err.Error()}
	}

	jobs := []imageJob{
		{kind: ImageKindCover, ratio: "1:1", label: "封面图", prompt: coverPrompt(sc)},
		{kind: ImageKindReference, ratio: "3:4", label: "参考图", prompt: referencePrompt(sc)},
	}
	urls := make([]*string, len(jobs))
	errs := make([]error, len(jobs))

	// 不使用 WithContext，一张失败不取消另一张
	var eg errgroup.Group
	for i, job := range jobs {
		eg.Go(func() error {
			url, err := g.generate(ctx, job)
			if err != nil {
				errs[i] = fmt.Errorf("%s生成失败: %w", job.label, err)
				klog.Errorf("[ImageGenerator] %v", errs[i])
				return errs[i]
			}
			urls[i] = &url
			return nil
		})
	}
	waitErr := eg.Wait()

	images := &model.ImagesResult{CoverImage: urls[0], ReferenceImage: urls[1]}
	if waitErr != nil {
		var msgs []string
		for _, err := range errs {
			if err != nil {
				msgs = append(msgs, err.Error())
			}
		}
		images.Errors = msgs
		return &model.AgentResult{Data: images, Error: strings.Join(msgs, "; ")}
	}
	klog.V(6).Infof("[ImageGenerator] 图片生成完成: taskID=%s", sc.TaskID)
	return &model.AgentResult{Success: true, Data: images}
}

func (g *ImageGenerator) generate(ctx context.Context, job imageJob) (string, error) {
	img, err := g.invoker.GenerateImage(ctx, job.prompt, llm.ImageOptions{
		Stage:       StageImageGenerator,
		AspectRatio: job.ratio,
		Timeout:     g.timeout,
	})
	if err != nil {
		return "", err
	}
	if img == nil || len(img.Data) == 0 {
		return "", errors.New("图片内容为空")
	}
	key := fmt.Sprintf("generated/%s_%d.%s", job.kind, g.now().UnixNano(), extensionFor(img.MIMEType))
	url, err := g.store.Put(ctx, img.Data, key, img.MIMEType)
	if err != nil {
		return "", fmt.Errorf("上传失败: %w", err)
	}
	return url, nil
}

func imageSceneName(sc *StageContext) string {
	if sc.Config != nil && sc.Config.Scene.Name != "" {
		return sc.Config.Scene.Name
	}
	if sc.Plan != nil {
		return sc.Plan.SceneName
	}
	return ""
}

func styleText(sc *StageContext) string {
	if sc.Plan == nil || len(sc.Plan.StyleKeywords) == 0 {
		return "自然写实"
	}
	return strings.Join(sc.Plan.StyleKeywords, "，")
}

func coverPrompt(sc *StageContext) string {
	desc := ""
	if sc.Config != nil {
		desc = sc.Config.Scene.Description
	}
	return fmt.Sprintf("%s\n为「%s」场景生成一张 1:1 正方形封面图。%s。风格：%s。构图简洁，主体居中，色彩明亮，适合作为小程序入口卡片。",
		imageSafetyPreamble, imageSceneName(sc), desc, styleText(sc))
}

func referencePrompt(sc *StageContext) string {
	return fmt.Sprintf("%s\n为「%s」场景生成一张 3:4 竖版人像参考效果图，展示使用该模板后的成片效果。风格：%s。人物为虚构形象，面部清晰自然，半身构图。",
		imageSafetyPreamble, imageSceneName(sc), styleText(sc))
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
