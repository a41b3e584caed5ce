package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aiphoto/backend/internal/pkg/storage"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

const staticPrefix = "/static"

// setupStatic 通过对象存储对外提供生成的图片，与存储的 public_base_url 默认值对应
func setupStatic(r *gin.Engine, objects storage.ObjectReader) {
	r.GET(staticPrefix+"/*key", func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		data, contentType, err := objects.Get(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				c.Status(http.StatusNotFound)
				return
			}
			klog.Warningf("[Static] 读取对象失败: key=%s, error=%v", key, err)
			c.Status(http.StatusBadRequest)
			return
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, contentType, data)
	})
}
