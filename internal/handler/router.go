package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Search    *SearchHandler
	Chat      *ChatHandler
	Upload    *UploadHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Documents.Health)
	api.POST("/documents", deps.Documents.Create)
	api.POST("/chunks", deps.Documents.AddChunk)
	api.POST("/embed-and-chunk", deps.Documents.EmbedAndAddChunk)
	api.DELETE("/reset-database", deps.Documents.Reset)

	api.POST("/search", deps.Search.Search)
	api.POST("/search-text", deps.Search.SearchText)
	api.POST("/ask", deps.Search.Ask)
	api.POST("/ask-debug", deps.Search.AskDebug)

	api.POST("/chat", deps.Chat.Add)
	api.GET("/chat/:session_id", deps.Chat.History)

	api.POST("/upload-pdf", deps.Upload.UploadPDF)
}
