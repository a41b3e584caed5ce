package agent

import (
	"fmt"
	"strings"

	"github.com/aiphoto/backend/internal/model"
)

// 模板修复用到的固定文案
const (
	FaceClause            = "保持人物面部特征与原图一致，五官清晰自然"
	DefaultNegativePrompt = "低质量, 模糊, 变形, 多余的手指, 畸形, 水印, 文字"
	FaceSourceRole        = "face_source"
	ReferenceRole         = "reference"
	uploadStepTitle       = "上传照片"
	defaultComponentType  = model.ComponentTags
)

var faceWords = []string{"脸", "面部", "五官", "人脸", "面容", "容貌"}

// RepairInput 修复配置时参考的上下文
type RepairInput struct {
	Description string
	Plan        *model.Plan
	Categories  []model.Category
}

// RepairConfig 对模型生成的配置做结构修复，结果确定且幂等
func RepairConfig(cfg *model.TemplateConfig, in RepairInput) *model.TemplateConfig {
	if cfg == nil {
		cfg = &model.TemplateConfig{}
	}
	repairScene(cfg, in.Plan)
	cfg.Steps = ensureUploadFirst(cfg.Steps)
	normalizeSteps(cfg.Steps)
	repairPromptTemplate(cfg)
	cfg.UserImageConfig = normalizeUserImageConfig(cfg.UserImageConfig)

	rec := RecommendCategory(categoryText(cfg, in), in.Categories)
	cfg.RecommendedCategory = rec
	if rec != nil {
		cfg.Scene.CategoryID = rec.ID
		cfg.Scene.CategoryName = rec.Name
	}
	return cfg
}

func repairScene(cfg *model.TemplateConfig, plan *model.Plan) {
	cfg.Scene.Name = strings.TrimSpace(cfg.Scene.Name)
	if cfg.Scene.Name == "" {
		if plan != nil && plan.SceneName != "" {
			cfg.Scene.Name = plan.SceneName
		} else {
			cfg.Scene.Name = DefaultSceneName
		}
	}
	if cfg.Scene.Description == "" && plan != nil {
		cfg.Scene.Description = plan.Theme
	}
	if cfg.Scene.PointsCost <= 0 {
		if plan != nil && plan.PointsCost > 0 {
			cfg.Scene.PointsCost = plan.PointsCost
		} else {
			cfg.Scene.PointsCost = DefaultPointsCost
		}
	}
}

func isUploadStep(s model.TemplateStep) bool {
	return s.ComponentType == model.ComponentImageUpload
}

// ensureUploadFirst 第一个步骤必须是图片上传；已有上传步骤则移到最前，否则插入
func ensureUploadFirst(steps []model.TemplateStep) []model.TemplateStep {
	if len(steps) > 0 && isUploadStep(steps[0]) {
		return steps
	}
	idx := -1
	for i, s := range steps {
		if isUploadStep(s) || strings.TrimSpace(s.StepKey) == model.UploadStepKey {
			idx = i
			break
		}
	}

	out := make([]model.TemplateStep, 0, len(steps)+1)
	if idx >= 0 {
		upload := steps[idx]
		upload.ComponentType = model.ComponentImageUpload
		out = append(out, upload)
		out = append(out, steps[:idx]...)
		out = append(out, steps[idx+1:]...)
		return out
	}

	out = append(out, model.TemplateStep{
		StepKey:       model.UploadStepKey,
		Title:         uploadStepTitle,
		ComponentType: model.ComponentImageUpload,
		IsRequired:    true,
		Options:       []model.StepOption{},
	})
	return append(out, steps...)
}

func normalizeSteps(steps []model.TemplateStep) {
	used := make(map[string]struct{}, len(steps))
	for i := range steps {
		s := &steps[i]

		s.StepKey = strings.TrimSpace(s.StepKey)
		if s.StepKey == "" {
			if i == 0 && isUploadStep(*s) {
				s.StepKey = model.UploadStepKey
			} else {
				s.StepKey = fmt.Sprintf("step_%d", i+1)
			}
		}
		if _, dup := used[s.StepKey]; dup {
			base := s.StepKey
			for n := i + 1; ; n++ {
				candidate := fmt.Sprintf("%s_%d", base, n)
				if _, taken := used[candidate]; !taken {
					s.StepKey = candidate
					break
				}
			}
		}
		used[s.StepKey] = struct{}{}

		if s.ComponentType == "" {
			s.ComponentType = defaultComponentType
		}
		if strings.TrimSpace(s.Title) == "" {
			if isUploadStep(*s) {
				s.Title = uploadStepTitle
			} else {
				s.Title = s.StepKey
			}
		}
		s.StepOrder = i + 1
		s.Options = normalizeOptions(s.Options)
	}
}

func normalizeOptions(options []model.StepOption) []model.StepOption {
	if options == nil {
		return []model.StepOption{}
	}
	hasDefault := false
	for i := range options {
		o := &options[i]
		o.Label = strings.TrimSpace(o.Label)
		o.Value = strings.TrimSpace(o.Value)
		if o.Label == "" {
			if o.Value != "" {
				o.Label = o.Value
			} else {
				o.Label = fmt.Sprintf("选项%d", i+1)
			}
		}
		if o.Value == "" {
			o.Value = o.Label
		}
		if strings.TrimSpace(o.PromptText) == "" {
			o.PromptText = o.Label
		}
		if o.IsDefault {
			hasDefault = true
		}
	}
	if !hasDefault && len(options) > 0 {
		options[0].IsDefault = true
	}
	return options
}

// Placeholder 返回步骤在模板中的占位符
func Placeholder(stepKey string) string {
	return "{{" + stepKey + "}}"
}

func repairPromptTemplate(cfg *model.TemplateConfig) {
	pt := &cfg.PromptTemplate
	if strings.TrimSpace(pt.Template) == "" {
		pt.Template = synthesizeTemplate(cfg.Steps)
	}
	pt.Template = appendMissingPlaceholders(pt.Template, cfg.Steps)
	if !containsFaceWord(pt.Template) {
		pt.Template = FaceClause + "。" + pt.Template
	}
	if strings.TrimSpace(pt.NegativePrompt) == "" {
		pt.NegativePrompt = DefaultNegativePrompt
	}
}

func synthesizeTemplate(steps []model.TemplateStep) string {
	parts := []string{FaceClause}
	for _, s := range steps {
		if !isUploadStep(s) {
			parts = append(parts, Placeholder(s.StepKey))
		}
	}
	return strings.Join(parts, "，")
}

// appendMissingPlaceholders 只在末尾追加缺失的占位符，不改写已有内容
func appendMissingPlaceholders(template string, steps []model.TemplateStep) string {
	for _, s := range steps {
		if isUploadStep(s) {
			continue
		}
		ph := Placeholder(s.StepKey)
		if !strings.Contains(template, ph) {
			template += "，" + ph
		}
	}
	return template
}

func containsFaceWord(text string) bool {
	for _, w := range faceWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func normalizeUserImageConfig(uic *model.UserImageConfig) *model.UserImageConfig {
	if uic == nil {
		return &model.UserImageConfig{
			MaxCount: 1,
			MinCount: 1,
			Slots: []model.ImageSlot{
				{Index: 0, Role: FaceSourceRole, Label: "人像照片", Required: true},
			},
		}
	}
	if uic.MaxCount < 1 {
		uic.MaxCount = len(uic.Slots)
		if uic.MaxCount < 1 {
			uic.MaxCount = 1
		}
	}
	if uic.MinCount < 0 {
		uic.MinCount = 0
	}
	if uic.MinCount > uic.MaxCount {
		uic.MinCount = uic.MaxCount
	}
	if len(uic.Slots) > uic.MaxCount {
		uic.Slots = uic.Slots[:uic.MaxCount]
	}
	for len(uic.Slots) < uic.MaxCount {
		i := len(uic.Slots)
		slot := model.ImageSlot{Role: ReferenceRole, Label: fmt.Sprintf("图片%d", i+1), Required: i < uic.MinCount}
		if i == 0 {
			slot.Role = FaceSourceRole
			slot.Label = "人像照片"
		}
		uic.Slots = append(uic.Slots, slot)
	}
	for i := range uic.Slots {
		uic.Slots[i].Index = i
		if strings.TrimSpace(uic.Slots[i].Role) == "" {
			if i == 0 {
				uic.Slots[i].Role = FaceSourceRole
			} else {
				uic.Slots[i].Role = ReferenceRole
			}
		}
	}
	return uic
}

func categoryText(cfg *model.TemplateConfig, in RepairInput) string {
	parts := []string{in.Description, cfg.Scene.Name}
	if in.Plan != nil {
		parts = append(parts, in.Plan.StyleKeywords...)
	}
	return strings.Join(parts, " ")
}
