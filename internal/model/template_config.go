package model

import "time"

// 步骤组件类型
const (
	ComponentImageUpload = "image_upload"
	ComponentTags        = "tags"
	ComponentRadio       = "radio"
	ComponentSelect      = "select"

	// UploadStepKey 保留的上传步骤标识
	UploadStepKey = "upload"
)

// Plan 规划阶段对用户描述的结构化理解
type Plan struct {
	SceneType           string   `json:"scene_type"`
	SceneName           string   `json:"scene_name"`
	Theme               string   `json:"theme"`
	RequiredSteps       []string `json:"required_steps"`
	StyleKeywords       []string `json:"style_keywords"`
	EstimatedComplexity string   `json:"estimated_complexity"` // low, medium, high
	PointsCost          int      `json:"points_cost"`
	SpecialRequirements []string `json:"special_requirements"`
}

// SceneInfo 场景基础信息
type SceneInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	PointsCost   int    `json:"points_cost"`
	CategoryID   uint   `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
}

// StepOption 步骤中的单个选项
type StepOption struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	PromptText string `json:"prompt_text"`
	IsDefault  bool   `json:"is_default"`
	Image      string `json:"image,omitempty"`
}

// TemplateStep 用户输入步骤
type TemplateStep struct {
	StepKey       string       `json:"step_key"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	ComponentType string       `json:"component_type"`
	StepOrder     int          `json:"step_order"`
	IsRequired    bool         `json:"is_required"`
	Options       []StepOption `json:"options"`
}

// PromptTemplate 提示词模板，template 中以 {{step_key}} 引用步骤
type PromptTemplate struct {
	Template       string         `json:"template"`
	NegativePrompt string         `json:"negative_prompt"`
	ModelConfig    map[string]any `json:"model_config,omitempty"`
}

// ImageSlot 用户上传图片的槽位
type ImageSlot struct {
	Index       int    `json:"index"`
	Role        string `json:"role"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// UserImageConfig 用户上传图片要求
type UserImageConfig struct {
	MaxCount int         `json:"max_count"`
	MinCount int         `json:"min_count"`
	Slots    []ImageSlot `json:"slots"`
}

// Category 内容分类（由外部分类表提供）
type Category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CategoryRecommendation 推荐的内容分类
type CategoryRecommendation struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// TemplateConfig 流水线最终产出的模板配置
type TemplateConfig struct {
	Scene               SceneInfo               `json:"scene"`
	Steps               []TemplateStep          `json:"steps"`
	PromptTemplate      PromptTemplate          `json:"prompt_template"`
	UserImageConfig     *UserImageConfig        `json:"user_image_config"`
	RecommendedCategory *CategoryRecommendation `json:"recommended_category,omitempty"`
}

// DimensionScore 单个评审维度
type DimensionScore struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}

// ReviewResult 评审结论；存在 critical issue 时 passed 必为 false
type ReviewResult struct {
	Passed         bool                      `json:"passed"`
	Score          float64                   `json:"score"`
	Dimensions     map[string]DimensionScore `json:"dimensions"`
	CriticalIssues []string                  `json:"critical_issues"`
	Suggestions    []string                  `json:"suggestions"`
}

// ImagesResult 图片生成结果，失败的一项为 nil
type ImagesResult struct {
	CoverImage     *string  `json:"cover_image"`
	ReferenceImage *string  `json:"reference_image"`
	Errors         []string `json:"errors,omitempty"`
}

// AgentResult 每个阶段统一的返回结构
type AgentResult struct {
	Success  bool          `json:"success"`
	Data     any           `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// TaskResult 一次流水线运行的最终返回
type TaskResult struct {
	Success       bool                `json:"success"`
	TaskID        string              `json:"task_id"`
	Config        *TemplateConfig     `json:"config"`
	Images        *ImagesResult       `json:"images"`
	Review        *ReviewResult       `json:"review"`
	Iterations    int                 `json:"iterations"`
	DurationMs    int64               `json:"duration_ms"`
	KnowledgeUsed []uint              `json:"knowledge_used"`
	Error         string              `json:"error,omitempty"`
	ExecutionLog  []ExecutionLogEntry `json:"execution_log"`
}
