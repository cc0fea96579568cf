package api

import "github.com/gin-gonic/gin"

// NewRouter mounts the console routes. The facade listens on loopback for the
// rendering layer only; there is no auth middleware here.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", h.Health)

	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.GET("/:userId/messages", h.ListMessages)
		sessions.POST("/:userId/messages/text", h.SendText)
		sessions.POST("/:userId/messages/image", h.SendImage)
		sessions.POST("/:userId/messages/file", h.SendFile)
		sessions.POST("/:userId/messages/resend", h.Resend)
		sessions.POST("/:userId/focus", h.Focus)
		sessions.POST("/:userId/pin", h.Pin)
	}

	r.POST("/focus/hide", h.HideFocused)
	r.POST("/attachments", h.UploadAttachment)

	transfers := r.Group("/transfers")
	{
		transfers.POST("", h.CreateTransfer)
		transfers.POST("/answer", h.AnswerTransfer)
	}

	return r
}
