package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/aiphoto/backend/internal/model"
	"gorm.io/gorm"
)

type knowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建知识条目仓储
func NewKnowledgeRepository(db *gorm.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

func (r *knowledgeRepository) Create(ctx context.Context, entry *model.KnowledgeEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *knowledgeRepository) Get(ctx context.Context, id uint) (*model.KnowledgeEntry, error) {
	var entry model.KnowledgeEntry
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *knowledgeRepository) Save(ctx context.Context, entry *model.KnowledgeEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// Search 关键词同时匹配名称、内容与标签
func (r *knowledgeRepository) Search(ctx context.Context, keyword string, filter KnowledgeFilter) ([]model.KnowledgeEntry, error) {
	var entries []model.KnowledgeEntry

	tx := r.db.WithContext(ctx).Model(&model.KnowledgeEntry{})
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}
	if filter.OnlyActive {
		tx = tx.Where("is_active = ?", true)
	}
	if filter.MinScore > 0 {
		tx = tx.Where("quality_score >= ?", filter.MinScore)
	}
	if kw := strings.TrimSpace(keyword); kw != "" {
		pat := "%" + kw + "%"
		tx = tx.Where(r.db.Where("name LIKE ?", pat).
			Or("content LIKE ?", pat).
			Or("tags LIKE ?", pat))
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	err := tx.Order("quality_score DESC").Order("usage_count DESC").Order("id").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// IncrementUsage 使用 SQL 表达式自增，并发下允许丢失更新
func (r *knowledgeRepository) IncrementUsage(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.KnowledgeEntry{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}

func (r *knowledgeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).Count(&count).Error
	return count, err
}

func (r *knowledgeRepository) Exists(ctx context.Context, category model.KnowledgeCategory, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.KnowledgeEntry{}).
		Where("category = ? AND name = ?", category, name).
		Count(&count).Error
	return count > 0, err
}
