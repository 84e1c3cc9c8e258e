package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.POST("", auth.RequireRole(auth.RoleInvestor, auth.RoleAdmin), h.Create)
		group.GET("/:id", h.Get)
		group.PATCH("/:id/status", h.UpdateStatus)
		group.PUT("/:id/recording", auth.RequireRole(auth.RoleAnalyst, auth.RoleAdmin), h.AttachRecording)
	}
}
