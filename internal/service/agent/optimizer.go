package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/aiphoto/backend/internal/utils"
	"k8s.io/klog/v2"
)

const optimizerSystemPrompt = `你是一名模板配置优化专家。根据评审意见修复模板配置，保持未被指出问题的部分不变。
只输出修复后的完整 JSON 对象，结构与输入一致（scene、steps、prompt_template、user_image_config）。
第一个步骤必须是 image_upload，prompt_template.template 必须引用每个非上传步骤的 {{step_key}}。`

// NewOptimizer 优化阶段：根据评审结果修复配置
func NewOptimizer(opts Options) *Stage {
	return &Stage{
		Name:          StageOptimizer,
		Options:       opts,
		BuildPrompt:   buildOptimizerPrompt,
		ParseResponse: parseOptimizerResponse,
	}
}

func buildOptimizerPrompt(sc *StageContext) (llm.Prompt, error) {
	if sc.Config == nil || sc.Review == nil {
		return llm.Prompt{}, fmt.Errorf("缺少待优化的配置或评审结果")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "用户需求：%s\n\n当前配置：\n%s\n\n评审得分：%.1f\n", sc.Description, utils.ToJSON(sc.Config), sc.Review.Score)
	if len(sc.Review.CriticalIssues) > 0 {
		b.WriteString("\n必须修复的问题：\n")
		for _, issue := range sc.Review.CriticalIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	for _, dim := range ReviewDimensions {
		d, ok := sc.Review.Dimensions[dim]
		if !ok || len(d.Issues) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s（%.0f 分）：\n", dim, d.Score)
		for _, issue := range d.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	if len(sc.Review.Suggestions) > 0 {
		b.WriteString("\n改进建议：\n")
		for _, s := range sc.Review.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return llm.Prompt{System: optimizerSystemPrompt, User: b.String()}, nil
}

func parseOptimizerResponse(raw string, sc *StageContext) (any, error) {
	body, err := utils.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, &utils.ParseError{Snippet: utils.Truncate(err.Error(), 160)}
	}
	return MergeOptimized(sc.Config, fields, repairInput(sc)), nil
}

// MergeOptimized 以原配置为底，采用优化结果中可解析的部分，再做结构修复
func MergeOptimized(original *model.TemplateConfig, fields map[string]json.RawMessage, in RepairInput) *model.TemplateConfig {
	out := cloneConfig(original)

	var scene model.SceneInfo
	if decodeField(fields, "scene", &scene) {
		out.Scene = scene
	}
	var steps []model.TemplateStep
	if decodeField(fields, "steps", &steps) && len(steps) > 0 {
		out.Steps = steps
	}
	var pt model.PromptTemplate
	if decodeField(fields, "prompt_template", &pt) {
		out.PromptTemplate = pt
	}
	var uic model.UserImageConfig
	if decodeField(fields, "user_image_config", &uic) {
		out.UserImageConfig = &uic
	}
	return RepairConfig(out, in)
}

// decodeField 字段缺失、为 null 或类型不符时返回 false
func decodeField(fields map[string]json.RawMessage, key string, v any) bool {
	raw, ok := fields[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		klog.Warningf("[Optimizer] 字段 %s 解析失败，沿用原值: %v", key, err)
		return false
	}
	return true
}

func cloneConfig(cfg *model.TemplateConfig) *model.TemplateConfig {
	if cfg == nil {
		return &model.TemplateConfig{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return &model.TemplateConfig{}
	}
	var out model.TemplateConfig
	if err := json.Unmarshal(data, &out); err != nil {
		return &model.TemplateConfig{}
	}
	return &out
}
