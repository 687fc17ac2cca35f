package api

import (
	"errors"
	"net/http"

	"lingxing-analyst/internal/config"
	"lingxing-analyst/internal/services"
	"lingxing-analyst/internal/services/lingxing"

	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	analysis *services.AnalysisService
	products *services.ProductService
}

func SetupRoutes(r *gin.RouterGroup, analysis *services.AnalysisService, products *services.ProductService) *APIHandler {
	handler := &APIHandler{
		analysis: analysis,
		products: products,
	}

	stores := r.Group("/stores")
	{
		stores.GET("", handler.ListStores)
		stores.POST("/analyze", handler.AnalyzeStores)
	}

	productsGroup := r.Group("/products")
	{
		productsGroup.POST("/status", handler.CheckProductStatus)
		productsGroup.POST("/performance", handler.GetProductPerformance)
	}

	return handler
}

func (h *APIHandler) ListStores(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stores": config.StoreNames()})
}

type analyzeRequest struct {
	StoreName string `json:"store_name" binding:"required"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

func (h *APIHandler) AnalyzeStores(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.analysis.AnalyzeStores(c.Request.Context(), req.StoreName, req.Year, req.Month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type statusRequest struct {
	MSKU         string `json:"msku" binding:"required"`
	StoreName    string `json:"store_name"`
	IsProcessing bool   `json:"is_processing"`
}

func (h *APIHandler) CheckProductStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.products.CheckProductStatus(c.Request.Context(), req.MSKU, req.StoreName, req.IsProcessing)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type performanceRequest struct {
	MSKU      string `json:"msku" binding:"required"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *APIHandler) GetProductPerformance(c *gin.Context) {
	var req performanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.products.GetProductPerformance(c.Request.Context(), req.MSKU, req.StartDate, req.EndDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondError 把内部错误分类映射到 HTTP 状态码：
// 找不到店铺/数据是 404，上游接口异常是 502，其余 500。
func respondError(c *gin.Context, err error) {
	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Message})
		return
	}

	var lookup *services.PerformanceLookupError
	if errors.As(err, &lookup) {
		c.JSON(http.StatusNotFound, lookup)
		return
	}

	var apiErr *lingxing.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
