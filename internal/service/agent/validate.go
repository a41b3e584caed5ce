package agent

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aiphoto/backend/internal/model"
)

// 本地校验阈值
const (
	minSteps          = 2
	maxSteps          = 8
	minOptions        = 2
	minTemplateLength = 50
	// LocalIssueScoreCap 本地校验发现问题时评分上限
	LocalIssueScoreCap = 60
)

// ValidateConfig 不依赖模型的确定性校验，返回发现的问题
func ValidateConfig(cfg *model.TemplateConfig) []string {
	if cfg == nil {
		return []string{"配置为空"}
	}
	var issues []string
	if strings.TrimSpace(cfg.Scene.Name) == "" {
		issues = append(issues, "场景名称为空")
	}

	if len(cfg.Steps) == 0 {
		issues = append(issues, "至少需要一个步骤")
	} else if !isUploadStep(cfg.Steps[0]) {
		issues = append(issues, "第一个步骤必须是图片上传（image_upload）")
	}
	if n := len(cfg.Steps); n < minSteps || n > maxSteps {
		issues = append(issues, fmt.Sprintf("步骤数量应在 %d 到 %d 之间，当前为 %d", minSteps, maxSteps, n))
	}

	for i, s := range cfg.Steps {
		if strings.TrimSpace(s.StepKey) == "" || strings.TrimSpace(s.Title) == "" {
			issues = append(issues, fmt.Sprintf("第 %d 个步骤缺少 step_key 或 title", i+1))
		}
		if !isUploadStep(s) && len(s.Options) < minOptions {
			issues = append(issues, fmt.Sprintf("步骤 %s 的选项少于 %d 个", s.StepKey, minOptions))
		}
	}

	template := strings.TrimSpace(cfg.PromptTemplate.Template)
	if utf8.RuneCountInString(template) < minTemplateLength {
		issues = append(issues, fmt.Sprintf("Prompt 模板为空或过短（少于 %d 字符）", minTemplateLength))
	}
	for _, s := range cfg.Steps {
		if isUploadStep(s) || s.StepKey == "" {
			continue
		}
		if !strings.Contains(template, Placeholder(s.StepKey)) {
			issues = append(issues, fmt.Sprintf("Prompt 模板未引用步骤变量 %s", Placeholder(s.StepKey)))
		}
	}
	return issues
}
