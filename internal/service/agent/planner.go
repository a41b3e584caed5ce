package agent

import (
	"fmt"
	"strings"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/aiphoto/backend/internal/utils"
)

// 规划结果的默认值
const (
	DefaultSceneType    = "custom"
	DefaultSceneName    = "自定义场景"
	DefaultComplexity   = "medium"
	DefaultPointsCost   = 10
	knowledgeExcerptLen = 800
)

var defaultRequiredSteps = []string{model.UploadStepKey, "gender"}

const plannerSystemPrompt = `你是一名 AI 写真小程序的产品策划，负责把用户的一句话需求拆解为模板规划。
只输出一个 JSON 对象，不要输出任何解释，字段如下：
{
  "scene_type": "场景类型英文标识，如 id_photo、hanfu_portrait",
  "scene_name": "场景中文名称",
  "theme": "一句话主题",
  "required_steps": ["upload", "其余步骤的英文 step_key"],
  "style_keywords": ["风格关键词"],
  "estimated_complexity": "low | medium | high",
  "points_cost": 10,
  "special_requirements": ["特殊要求"]
}
required_steps 的第一个元素必须是 upload。`

// NewPlanner 规划阶段：把用户描述解析为 Plan
func NewPlanner(opts Options) *Stage {
	return &Stage{
		Name:          StagePlanner,
		Options:       opts,
		BuildPrompt:   buildPlannerPrompt,
		ParseResponse: parsePlannerResponse,
	}
}

func buildPlannerPrompt(sc *StageContext) (llm.Prompt, error) {
	if strings.TrimSpace(sc.Description) == "" {
		return llm.Prompt{}, fmt.Errorf("用户描述为空")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "用户需求：%s\n", sc.Description)
	if sc.Knowledge != nil && len(sc.Knowledge.Templates) > 0 {
		b.WriteString("\n可参考的已有场景模板：\n")
		for i, t := range sc.Knowledge.Templates {
			if i >= knowledgeExcerptsPerCategory {
				break
			}
			fmt.Fprintf(&b, "- %s（标签：%s）\n%s\n", t.Name, t.Tags, utils.Truncate(t.Content, knowledgeExcerptLen))
		}
	}
	return llm.Prompt{System: plannerSystemPrompt, User: b.String()}, nil
}

func parsePlannerResponse(raw string, sc *StageContext) (any, error) {
	var m map[string]any
	if err := utils.ParseJSONObject(raw, &m); err != nil {
		return nil, err
	}
	plan := &model.Plan{
		SceneType:           stringField(m, "scene_type"),
		SceneName:           stringField(m, "scene_name"),
		Theme:               stringField(m, "theme"),
		RequiredSteps:       stringSliceField(m, "required_steps"),
		StyleKeywords:       stringSliceField(m, "style_keywords"),
		EstimatedComplexity: strings.ToLower(stringField(m, "estimated_complexity")),
		PointsCost:          intField(m, "points_cost"),
		SpecialRequirements: stringSliceField(m, "special_requirements"),
	}
	BackfillPlan(plan)
	return plan, nil
}

// BackfillPlan 为缺失或非法的字段补默认值，保证 Plan 始终可用
func BackfillPlan(plan *model.Plan) {
	if plan.SceneType == "" {
		plan.SceneType = DefaultSceneType
	}
	if plan.SceneName == "" {
		plan.SceneName = DefaultSceneName
	}
	if len(plan.RequiredSteps) == 0 {
		plan.RequiredSteps = append([]string(nil), defaultRequiredSteps...)
	}
	if plan.RequiredSteps[0] != model.UploadStepKey {
		steps := make([]string, 0, len(plan.RequiredSteps)+1)
		steps = append(steps, model.UploadStepKey)
		for _, s := range plan.RequiredSteps {
			if s != model.UploadStepKey {
				steps = append(steps, s)
			}
		}
		plan.RequiredSteps = steps
	}
	if plan.StyleKeywords == nil {
		plan.StyleKeywords = []string{}
	}
	if plan.SpecialRequirements == nil {
		plan.SpecialRequirements = []string{}
	}
	switch plan.EstimatedComplexity {
	case "low", "medium", "high":
	default:
		plan.EstimatedComplexity = DefaultComplexity
	}
	if plan.PointsCost <= 0 {
		plan.PointsCost = DefaultPointsCost
	}
}
