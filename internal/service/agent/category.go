package agent

import (
	"strings"

	"github.com/aiphoto/backend/internal/model"
)

// CatchAllCategory 无法判断时使用的兜底分类
const CatchAllCategory = "其他"

// DefaultCategories 调用方未提供分类表时使用
var DefaultCategories = []model.Category{
	{ID: 1, Name: "证件照"},
	{ID: 2, Name: "写真"},
	{ID: 3, Name: "古风"},
	{ID: 4, Name: "婚纱"},
	{ID: 5, Name: "儿童"},
	{ID: 6, Name: "职业"},
	{ID: 7, Name: "创意"},
	{ID: 8, Name: "节日"},
	{ID: 99, Name: CatchAllCategory},
}

// 分类名称到关键词的固定词典
var categoryKeywords = map[string][]string{
	"证件照": {"证件", "一寸", "二寸", "签证", "白底", "蓝底", "红底"},
	"写真":  {"写真", "艺术照", "时尚", "杂志", "胶片"},
	"古风":  {"古风", "汉服", "国风", "古装"},
	"婚纱":  {"婚纱", "结婚", "新娘", "婚礼"},
	"儿童":  {"儿童", "宝宝", "小孩", "童趣"},
	"职业":  {"职业", "商务", "形象照", "简历", "正装"},
	"创意":  {"动漫", "二次元", "油画", "赛博", "漫画", "卡通"},
	"节日":  {"春节", "新年", "圣诞", "中秋", "节日"},
}

// RecommendCategory 按关键词命中数为每个分类打分，唯一最高分胜出
// 并列或全部为零时返回兜底分类，没有兜底分类则返回第一个
func RecommendCategory(text string, categories []model.Category) *model.CategoryRecommendation {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	text = strings.ToLower(text)

	bestIdx, bestScore, tie := -1, 0, false
	for i, c := range categories {
		score := scoreCategory(text, c.Name)
		switch {
		case score > bestScore:
			bestIdx, bestScore, tie = i, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}
	if bestIdx >= 0 && !tie {
		c := categories[bestIdx]
		return &model.CategoryRecommendation{ID: c.ID, Name: c.Name, Score: bestScore}
	}

	for _, c := range categories {
		if c.Name == CatchAllCategory {
			return &model.CategoryRecommendation{ID: c.ID, Name: c.Name, Score: bestScore}
		}
	}
	c := categories[0]
	return &model.CategoryRecommendation{ID: c.ID, Name: c.Name, Score: bestScore}
}

func scoreCategory(text, name string) int {
	keywords, ok := categoryKeywords[name]
	if !ok {
		keywords = []string{strings.ToLower(name)}
	}
	score := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			score++
		}
	}
	return score
}
