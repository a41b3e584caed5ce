// Package knowledge 知识库检索与维护
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/repository"
	"github.com/go-playground/validator/v10"
	"k8s.io/klog/v2"
)

var (
	ErrEntryNotFound   = errors.New("knowledge entry not found")
	ErrInvalidCategory = errors.New("invalid knowledge category")
)

const defaultSearchLimit = 10

// SearchOptions 检索参数
type SearchOptions struct {
	Category   model.KnowledgeCategory
	Limit      int
	MinScore   float64
	OnlyActive bool
}

// SmartSearchResult 按描述智能检索的结果
type SmartSearchResult struct {
	Templates      []model.KnowledgeEntry `json:"templates"`
	PromptPatterns []model.KnowledgeEntry `json:"prompt_patterns"`
	BestPractices  []model.KnowledgeEntry `json:"best_practices"`
	Keywords       []string               `json:"keywords"`
}

// IDs 返回所有命中条目的 ID（按出现顺序去重）
func (r *SmartSearchResult) IDs() []uint {
	if r == nil {
		return nil
	}
	seen := make(map[uint]struct{})
	var ids []uint
	for _, group := range [][]model.KnowledgeEntry{r.Templates, r.PromptPatterns, r.BestPractices} {
		for _, e := range group {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Total 命中条目数
func (r *SmartSearchResult) Total() int {
	if r == nil {
		return 0
	}
	return len(r.Templates) + len(r.PromptPatterns) + len(r.BestPractices)
}

// EntryUpdate 知识条目的部分更新
type EntryUpdate struct {
	Name         *string  `json:"name" validate:"omitempty,max=255"`
	Content      *string  `json:"content"`
	Tags         *string  `json:"tags"`
	QualityScore *float64 `json:"quality_score" validate:"omitempty,gte=0,lte=1"`
	IsActive     *bool    `json:"is_active"`
}

// Store 知识库服务，进程启动时创建一次并注入各阶段
type Store struct {
	repo         repository.KnowledgeRepository
	validate     *validator.Validate
	perCategory  int
	keywordLimit int
}

// NewStore 创建知识库服务，perCategory 为智能检索每类返回上限
func NewStore(repo repository.KnowledgeRepository, perCategory int) *Store {
	if perCategory <= 0 {
		perCategory = 5
	}
	return &Store{
		repo:         repo,
		validate:     validator.New(),
		perCategory:  perCategory,
		keywordLimit: 3,
	}
}

// Search 关键词检索，按 quality_score、usage_count 降序
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]model.KnowledgeEntry, error) {
	if opts.Category != "" && !opts.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	entries, err := s.repo.Search(ctx, query, repository.KnowledgeFilter{
		Category:   opts.Category,
		Limit:      limit,
		MinScore:   opts.MinScore,
		OnlyActive: opts.OnlyActive,
	})
	if err != nil {
		klog.Errorf("[Knowledge] 检索失败: query=%s, error=%v", query, err)
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	return entries, nil
}

// GetByCategory 获取某分类下的启用条目
func (s *Store) GetByCategory(ctx context.Context, category model.KnowledgeCategory, limit int) ([]model.KnowledgeEntry, error) {
	return s.Search(ctx, "", SearchOptions{Category: category, Limit: limit, OnlyActive: true})
}

// GetByID 按 ID 获取条目
func (s *Store) GetByID(ctx context.Context, id uint) (*model.KnowledgeEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Add 新增条目
func (s *Store) Add(ctx context.Context, entry *model.KnowledgeEntry) error {
	entry.Name = strings.TrimSpace(entry.Name)
	if err := s.validate.Struct(entry); err != nil {
		return fmt.Errorf("invalid knowledge entry: %w", err)
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("create knowledge entry: %w", err)
	}
	klog.V(6).Infof("[Knowledge] 新增条目: id=%d, category=%s, name=%s", entry.ID, entry.Category, entry.Name)
	return nil
}

// Update 部分更新条目
func (s *Store) Update(ctx context.Context, id uint, upd EntryUpdate) (*model.KnowledgeEntry, error) {
	if err := s.validate.Struct(upd); err != nil {
		return nil, fmt.Errorf("invalid knowledge update: %w", err)
	}
	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		entry.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Content != nil {
		entry.Content = *upd.Content
	}
	if upd.Tags != nil {
		entry.Tags = *upd.Tags
	}
	if upd.QualityScore != nil {
		entry.QualityScore = *upd.QualityScore
	}
	if upd.IsActive != nil {
		entry.IsActive = *upd.IsActive
	}
	if err := s.validate.Struct(entry); err != nil {
		return nil, fmt.Errorf("invalid knowledge entry: %w", err)
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("save knowledge entry: %w", err)
	}
	return entry, nil
}

// SmartSearch 从描述中提取关键词，分别检索模板、提示词模式和最佳实践
func (s *Store) SmartSearch(ctx context.Context, description string) (*SmartSearchResult, error) {
	keywords := ExtractKeywords(description)
	result := &SmartSearchResult{Keywords: keywords}
	klog.V(6).Infof("[Knowledge] 智能检索: keywords=%v", keywords)

	groups := []struct {
		category model.KnowledgeCategory
		target   *[]model.KnowledgeEntry
	}{
		{model.CategorySceneTemplate, &result.Templates},
		{model.CategoryPromptPattern, &result.PromptPatterns},
		{model.CategoryBestPractice, &result.BestPractices},
	}

	for _, g := range groups {
		var collected []model.KnowledgeEntry
		for _, kw := range keywords {
			entries, err := s.repo.Search(ctx, kw, repository.KnowledgeFilter{
				Category:   g.category,
				Limit:      s.keywordLimit,
				OnlyActive: true,
			})
			if err != nil {
				return nil, fmt.Errorf("smart search %s: %w", g.category, err)
			}
			collected = append(collected, entries...)
		}
		*g.target = rankEntries(dedupeEntries(collected), s.perCategory)
	}

	klog.V(6).Infof("[Knowledge] 智能检索完成: templates=%d, patterns=%d, practices=%d",
		len(result.Templates), len(result.PromptPatterns), len(result.BestPractices))
	return result, nil
}

// IncrementUsageCount 使用次数加一
func (s *Store) IncrementUsageCount(ctx context.Context, id uint) error {
	return s.repo.IncrementUsage(ctx, id)
}

// IncrementUsageCounts 批量累加使用次数，单条失败只记录日志
func (s *Store) IncrementUsageCounts(ctx context.Context, ids []uint) int {
	updated := 0
	for _, id := range ids {
		if err := s.repo.IncrementUsage(ctx, id); err != nil {
			klog.Warningf("[Knowledge] 累加使用次数失败: id=%d, error=%v", id, err)
			continue
		}
		updated++
	}
	return updated
}


// dedupeEntries 按 ID 去重，保留首次出现
func dedupeEntries(entries []model.KnowledgeEntry) []model.KnowledgeEntry {
	seen := make(map[uint]struct{}, len(entries))
	out := make([]model.KnowledgeEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// rankEntries 稳定排序：quality_score 降序，usage_count 降序
func rankEntries(entries []model.KnowledgeEntry, limit int) []model.KnowledgeEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].QualityScore != entries[j].QualityScore {
			return entries[i].QualityScore > entries[j].QualityScore
		}
		return entries[i].UsageCount > entries[j].UsageCount
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
