package admin

import (
	"strconv"
	"strings"

	"github.com/dispatch-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AdminListCities 城市列表（派单前地址解析用）
func (h *Handler) AdminListCities(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	cities, total, err := h.CityRepo.List(strings.TrimSpace(c.Query("keyword")), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "city list failed", err)
		return
	}

	response.SuccessWithPage(c, cities, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
