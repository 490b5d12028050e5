// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// DocumentRouteHandler defines the interface for document handlers.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	ReplaceLines(c *gin.Context)
	GetLines(c *gin.Context)
	GetLine(c *gin.Context)
	History(c *gin.Context)
}

// RegisterDocumentRoutes registers the standard routes for one document kind.
//
// Usage:
//
//	repo := document_repo.NewSalesInvoiceRepo(cfg.TxManager)
//	handler := handlers.NewDocumentHandler(base, document.NewService(repo, ...), document.NewReader(repo, ...))
//	RegisterDocumentRoutes(documents.Group("/sales-invoices"), handler)
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
	group.PUT("/:id/lines", handler.ReplaceLines)
	group.GET("/:id/lines", handler.GetLines)
	group.GET("/:id/lines/:lineId", handler.GetLine)
	group.GET("/:id/history", handler.History)
}
