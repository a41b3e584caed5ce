package knowledge

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/aiphoto/backend/internal/model"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

//go:embed seed/default_knowledge.yaml
var defaultSeed []byte

type seedFile struct {
	Entries []seedEntry `yaml:"entries"`
}

type seedEntry struct {
	Category     model.KnowledgeCategory `yaml:"category"`
	Name         string                  `yaml:"name"`
	Content      string                  `yaml:"content"`
	Tags         string                  `yaml:"tags"`
	QualityScore float64                 `yaml:"quality_score"`
	IsActive     *bool                   `yaml:"is_active"`
}

// SeedDefaults 知识库为空时写入内置条目
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	return s.SeedIfEmpty(ctx, "")
}

// SeedIfEmpty 知识库为空时从 path 导入，path 为空时使用内置数据
func (s *Store) SeedIfEmpty(ctx context.Context, path string) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		klog.V(6).Infof("[Knowledge] 知识库已有 %d 条数据，跳过初始化", count)
		return 0, nil
	}
	return s.SeedFromFile(ctx, path)
}

// SeedFromFile 从 YAML 文件导入条目，path 为空时使用内置数据。
// 同分类同名的条目已存在时跳过，重复执行不会产生重复数据。
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		return s.seed(ctx, defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	return s.seed(ctx, data)
}

func (s *Store) seed(ctx context.Context, data []byte) (int, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	created, skipped := 0, 0
	for i, item := range file.Entries {
		exists, err := s.repo.Exists(ctx, item.Category, item.Name)
		if err != nil {
			return created, fmt.Errorf("seed entry %d (%s): %w", i, item.Name, err)
		}
		if exists {
			skipped++
			continue
		}
		entry := &model.KnowledgeEntry{
			Category:     item.Category,
			Name:         item.Name,
			Content:      item.Content,
			Tags:         item.Tags,
			QualityScore: item.QualityScore,
			IsActive:     item.IsActive == nil || *item.IsActive,
		}
		if err := s.Add(ctx, entry); err != nil {
			return created, fmt.Errorf("seed entry %d (%s): %w", i, item.Name, err)
		}
		created++
	}
	klog.Infof("[Knowledge] 导入知识条目 %d 条，跳过已存在 %d 条", created, skipped)
	return created, nil
}
