package agent

import (
	"fmt"
	"strings"
)

// PolicyViolationError 场景命中内容安全禁用词
type PolicyViolationError struct {
	Term     string
	Category string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("场景名称包含禁止内容（%s）: %s", e.Category, e.Term)
}

type denyGroup struct {
	category string
	terms    []string
}

var denylist = []denyGroup{
	{"版权角色", []string{"米老鼠", "mickey", "迪士尼", "disney", "皮卡丘", "pikachu", "宝可梦", "pokemon", "漫威", "marvel", "钢铁侠", "蜘蛛侠", "spider-man", "spiderman", "哈利波特", "harry potter", "hello kitty", "奥特曼", "火影忍者"}},
	{"真实公众人物", []string{"明星同款脸", "明星脸", "名人换脸", "celebrity", "总统", "主席"}},
	{"色情低俗", []string{"色情", "裸体", "裸照", "全裸", "半裸", "情趣", "nude", "naked", "nsfw", "porn", "sexy lingerie"}},
	{"暴力血腥", []string{"血腥", "暴力", "杀人", "枪杀", "斩首", "自残", "恐怖袭击", "gore", "violence"}},
	{"违法违规", []string{"毒品", "吸毒", "赌博", "纳粹", "nazi", "邪教", "证件伪造", "假证"}},
}

// CheckContentSafety 大小写不敏感地匹配禁用词
func CheckContentSafety(text string) error {
	lower := strings.ToLower(text)
	for _, g := range denylist {
		for _, term := range g.terms {
			if strings.Contains(lower, term) {
				return &PolicyViolationError{Term: term, Category: g.category}
			}
		}
	}
	return nil
}
