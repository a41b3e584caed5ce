package model

import "time"

// KnowledgeCategory 知识条目分类
type KnowledgeCategory string

const (
	CategorySceneTemplate  KnowledgeCategory = "scene_template"
	CategoryPromptPattern  KnowledgeCategory = "prompt_pattern"
	CategoryStyleReference KnowledgeCategory = "style_reference"
	CategoryBestPractice   KnowledgeCategory = "best_practice"
)

// Valid 判断分类是否合法
func (c KnowledgeCategory) Valid() bool {
	switch c {
	case CategorySceneTemplate, CategoryPromptPattern, CategoryStyleReference, CategoryBestPractice:
		return true
	}
	return false
}

// KnowledgeEntry 可复用的生成知识（场景模板、提示词模式、最佳实践等）
type KnowledgeEntry struct {
	ID           uint              `json:"id" gorm:"primaryKey"`
	Category     KnowledgeCategory `json:"category" gorm:"size:50;index;not null" validate:"required,oneof=scene_template prompt_pattern style_reference best_practice"`
	Name         string            `json:"name" gorm:"size:255;not null" validate:"required,max=255"`
	Content      string            `json:"content" gorm:"type:text" validate:"required"`
	Tags         string            `json:"tags" gorm:"size:1000"` // 逗号分隔
	UsageCount   int64             `json:"usage_count" gorm:"default:0"`
	QualityScore float64           `json:"quality_score" gorm:"index" validate:"gte=0,lte=1"`
	IsActive     bool              `json:"is_active" gorm:"index"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TableName 指定表名
func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}
