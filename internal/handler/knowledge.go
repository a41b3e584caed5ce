package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aiphoto/backend/internal/model"
	"github.com/aiphoto/backend/internal/service/knowledge"
	"github.com/gin-gonic/gin"
)

// KnowledgeService 由 knowledge.Store 实现
type KnowledgeService interface {
	Search(ctx context.Context, query string, opts knowledge.SearchOptions) ([]model.KnowledgeEntry, error)
	SmartSearch(ctx context.Context, description string) (*knowledge.SmartSearchResult, error)
	GetByID(ctx context.Context, id uint) (*model.KnowledgeEntry, error)
	Add(ctx context.Context, entry *model.KnowledgeEntry) error
	Update(ctx context.Context, id uint, upd knowledge.EntryUpdate) (*model.KnowledgeEntry, error)
}

type KnowledgeHandler struct {
	service KnowledgeService
}

func NewKnowledgeHandler(service KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{service: service}
}

// Search GET /api/knowledge?q=&category=&limit=&min_score=
func (h *KnowledgeHandler) Search(c *gin.Context) {
	opts := knowledge.SearchOptions{
		Category:   model.KnowledgeCategory(c.Query("category")),
		OnlyActive: c.Query("include_inactive") != "true",
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		opts.Limit = limit
	}
	if v := c.Query("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_score"})
			return
		}
		opts.MinScore = score
	}

	entries, err := h.service.Search(c.Request.Context(), c.Query("q"), opts)
	if err != nil {
		if errors.Is(err, knowledge.ErrInvalidCategory) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *KnowledgeHandler) SmartSearch(c *gin.Context) {
	var req SmartSearchRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SmartSearch(c.Request.Context(), req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *KnowledgeHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	entry, err := h.service.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, knowledge.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "knowledge entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Create 新增条目，is_active 未传时默认启用
func (h *KnowledgeHandler) Create(c *gin.Context) {
	var req struct {
		model.KnowledgeEntry
		IsActive *bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := req.KnowledgeEntry
	entry.ID = 0
	entry.UsageCount = 0
	entry.IsActive = req.IsActive == nil || *req.IsActive
	if err := h.service.Add(c.Request.Context(), &entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *KnowledgeHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var upd knowledge.EntryUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.service.Update(c.Request.Context(), uint(id), upd)
	if err != nil {
		switch {
		case errors.Is(err, knowledge.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "knowledge entry not found"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, entry)
}
