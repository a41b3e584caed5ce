package agent

import (
	"fmt"
	"math"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/pkg/llm"
	"github.com/aiphoto/backend/internal/utils"
	"k8s.io/klog/v2"
)

// 评审维度
var ReviewDimensions = []string{"structure", "step_design", "option_quality", "prompt_quality", "user_experience"}

// PassScore 模型未给出结论时的通过线
const PassScore = 70

const reviewerSystemPrompt = `你是一名严格的模板评审专家。请从以下五个维度为模板配置打分（0-100），并列出问题：
structure（结构完整性）、step_design（步骤设计）、option_quality（选项质量）、prompt_quality（提示词质量）、user_experience（用户体验）。
只输出一个 JSON 对象：
{
  "passed": true,
  "score": 85,
  "dimensions": {"structure": {"score": 90, "issues": []}, "...": {}},
  "critical_issues": ["必须修复的问题"],
  "suggestions": ["改进建议"]
}
存在任何 critical_issues 时 passed 必须为 false。`

type remoteReview struct {
	Passed         *bool                           `json:"passed"`
	Score          *float64                        `json:"score"`
	Dimensions     map[string]model.DimensionScore `json:"dimensions"`
	CriticalIssues []string                        `json:"critical_issues"`
	Suggestions    []string                        `json:"suggestions"`
}

// NewReviewer 评审阶段：模型评审与本地校验合并
func NewReviewer(opts Options) *Stage {
	return &Stage{
		Name:          StageReviewer,
		Options:       opts,
		BuildPrompt:   buildReviewerPrompt,
		ParseResponse: parseReviewerResponse,
	}
}

func buildReviewerPrompt(sc *StageContext) (llm.Prompt, error) {
	if sc.Config == nil {
		return llm.Prompt{}, fmt.Errorf("缺少待评审的配置")
	}
	user := fmt.Sprintf("用户需求：%s\n\n待评审的模板配置：\n%s", sc.Description, utils.ToJSON(sc.Config))
	return llm.Prompt{System: reviewerSystemPrompt, User: user}, nil
}

func parseReviewerResponse(raw string, sc *StageContext) (any, error) {
	var remote remoteReview
	if err := utils.ParseJSONObject(raw, &remote); err != nil {
		return nil, err
	}
	review := combineReview(remote, ValidateConfig(sc.Config))
	klog.V(6).Infof("[Reviewer] 评审结果: passed=%v, score=%.1f, critical=%d", review.Passed, review.Score, len(review.CriticalIssues))
	return review, nil
}

// combineReview 合并模型评审与本地校验，本地问题只会让结论更严格
func combineReview(remote remoteReview, localIssues []string) *model.ReviewResult {
	review := &model.ReviewResult{
		Dimensions:     make(map[string]model.DimensionScore),
		CriticalIssues: append([]string{}, remote.CriticalIssues...),
		Suggestions:    append([]string{}, remote.Suggestions...),
	}

	var sum float64
	var n int
	for _, dim := range ReviewDimensions {
		d, ok := remote.Dimensions[dim]
		if !ok {
			continue
		}
		d.Score = clampScore(d.Score)
		if d.Issues == nil {
			d.Issues = []string{}
		}
		review.Dimensions[dim] = d
		sum += d.Score
		n++
	}
	switch {
	case n > 0:
		review.Score = math.Round(sum/float64(n)*10) / 10
	case remote.Score != nil:
		review.Score = clampScore(*remote.Score)
	}

	if remote.Passed != nil {
		review.Passed = *remote.Passed
	} else {
		review.Passed = review.Score >= PassScore
	}
	if len(review.CriticalIssues) > 0 {
		review.Passed = false
	}

	if len(localIssues) > 0 {
		review.CriticalIssues = append(review.CriticalIssues, localIssues...)
		review.Passed = false
		if review.Score > LocalIssueScoreCap {
			review.Score = LocalIssueScoreCap
		}
	}
	return review
}

func clampScore(s float64) float64 {
	return math.Max(0, math.Min(100, s))
}
