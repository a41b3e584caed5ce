package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/aiphoto/backend/internal/utils"
	"github.com/xeipuuv/gojsonschema"
)

// 每类知识最多带入提示词的条数
const knowledgeExcerptsPerCategory = 2

// configSchema 只约束顶层形状，字段缺失交给修复逻辑
var configSchema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "required": ["steps"],
  "properties": {
    "scene": {"type": "object"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "step_key": {"type": "string"},
          "title": {"type": "string"},
          "component_type": {"type": "string"},
          "options": {"type": ["array", "null"], "items": {"type": "object"}}
        }
      }
    },
    "prompt_template": {"type": ["object", "null"]},
    "user_image_config": {"type": ["object", "null"]}
  }
}`)

const configSystemPrompt = `你是一名 AI 写真小程序的模板配置工程师。根据规划生成完整的模板配置，只输出一个 JSON 对象：
{
  "scene": {"name": "场景名称", "description": "场景描述", "points_cost": 10},
  "steps": [
    {"step_key": "upload", "title": "上传照片", "component_type": "image_upload", "is_required": true, "options": []},
    {"step_key": "英文标识", "title": "步骤标题", "description": "说明", "component_type": "tags", "is_required": true,
     "options": [{"label": "选项名", "value": "英文值", "prompt_text": "该选项对应的提示词片段", "is_default": true}]}
  ],
  "prompt_template": {"template": "包含 {{step_key}} 占位符的提示词", "negative_prompt": "负面提示词"},
  "user_image_config": {"max_count": 1, "min_count": 1, "slots": [{"index": 0, "role": "face_source", "label": "人像照片", "required": true}]}
}
要求：
1. 第一个步骤必须是 image_upload；
2. 除上传外每个步骤至少 2 个选项，step_key 不可重复；
3. prompt_template.template 必须引用每个非上传步骤的 {{step_key}}，并强调保持人物面部特征。`

// NewConfigGenerator 配置生成阶段：根据 Plan 与知识生成模板配置
func NewConfigGenerator(opts Options) *Stage {
	return &Stage{
		Name:          StageConfigGenerator,
		Options:       opts,
		BuildPrompt:   buildConfigPrompt,
		ParseResponse: parseConfigResponse,
	}
}

func buildConfigPrompt(sc *StageContext) (llm.Prompt, error) {
	if sc.Plan == nil {
		return llm.Prompt{}, fmt.Errorf("缺少规划结果")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "用户需求：%s\n\n规划：\n%s\n", sc.Description, utils.ToJSON(sc.Plan))

	if sc.Knowledge != nil {
		writeExcerpts(&b, "参考场景模板", sc.Knowledge.Templates)
		writeExcerpts(&b, "提示词模式", sc.Knowledge.PromptPatterns)
		writeExcerpts(&b, "最佳实践", sc.Knowledge.BestPractices)
	}
	return llm.Prompt{System: configSystemPrompt, User: b.String()}, nil
}

func writeExcerpts(b *strings.Builder, title string, entries []model.KnowledgeEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s：\n", title)
	for i, e := range entries {
		if i >= knowledgeExcerptsPerCategory {
			break
		}
		fmt.Fprintf(b, "- %s：%s\n", e.Name, utils.Truncate(e.Content, knowledgeExcerptLen))
	}
}

func parseConfigResponse(raw string, sc *StageContext) (any, error) {
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}
	return RepairConfig(cfg, repairInput(sc)), nil
}

// decodeConfig 提取 JSON、校验形状并解码
func decodeConfig(raw string) (*model.TemplateConfig, error) {
	body, err := utils.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := validateShape(body); err != nil {
		return nil, err
	}
	var cfg model.TemplateConfig
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		return nil, &utils.ParseError{Snippet: utils.Truncate(err.Error(), 160)}
	}
	return &cfg, nil
}

func validateShape(body string) error {
	result, err := gojsonschema.Validate(configSchema, gojsonschema.NewStringLoader(body))
	if err != nil {
		return &utils.ParseError{Snippet: utils.Truncate(err.Error(), 160)}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("配置结构不合法: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func repairInput(sc *StageContext) RepairInput {
	return RepairInput{Description: sc.Description, Plan: sc.Plan, Categories: sc.Categories}
}
