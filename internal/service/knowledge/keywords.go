package knowledge

import (
	"regexp"
	"strings"
)

type keywordRule struct {
	terms     []string
	canonical []string
}

// 领域词典：命中任一词条即加入对应的规范关键词
var keywordDictionary = []keywordRule{
	{[]string{"证件照", "一寸", "二寸", "签证照", "身份证照"}, []string{"证件照"}},
	{[]string{"白底", "白色背景"}, []string{"白底"}},
	{[]string{"蓝底", "蓝色背景"}, []string{"蓝底"}},
	{[]string{"红底", "红色背景"}, []string{"红底"}},
	{[]string{"婚纱", "结婚照"}, []string{"婚纱照"}},
	{[]string{"古风", "汉服", "国风"}, []string{"古风", "汉服"}},
	{[]string{"写真", "艺术照"}, []string{"写真"}},
	{[]string{"职业照", "形象照", "商务", "简历照"}, []string{"职业照"}},
	{[]string{"儿童", "宝宝", "小孩"}, []string{"儿童"}},
	{[]string{"毕业照", "学士服"}, []string{"毕业照"}},
	{[]string{"情侣"}, []string{"情侣"}},
	{[]string{"全家福", "家庭合照"}, []string{"全家福"}},
	{[]string{"动漫", "二次元", "漫画"}, []string{"动漫"}},
	{[]string{"油画"}, []string{"油画"}},
	{[]string{"复古", "胶片", "老照片"}, []string{"复古"}},
	{[]string{"春节", "新年", "节日", "圣诞"}, []string{"节日"}},
	{[]string{"宠物", "猫", "狗"}, []string{"宠物"}},
	{[]string{"发型", "换发型"}, []string{"发型"}},
	{[]string{"换装", "服装", "穿搭"}, []string{"换装"}},
}

var hanRunPattern = regexp.MustCompile(`\p{Han}{2,4}`)

const fallbackKeywordCount = 5

// ExtractKeywords 按词典提取关键词，未命中时取前五个 2-4 字的汉字串
func ExtractKeywords(description string) []string {
	text := strings.ToLower(description)
	seen := make(map[string]struct{})
	var keywords []string
	add := func(kw string) {
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	for _, rule := range keywordDictionary {
		for _, term := range rule.terms {
			if strings.Contains(text, term) {
				for _, c := range rule.canonical {
					add(c)
				}
				break
			}
		}
	}
	if len(keywords) > 0 {
		return keywords
	}

	for _, run := range hanRunPattern.FindAllString(description, fallbackKeywordCount) {
		add(run)
	}
	return keywords
}
