package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	bookings := g.Group("/bookings")
	bookings.Use(authMiddleware)
	{
		bookings.POST("/:id/feedback", auth.RequireRole(auth.RoleInvestor), h.SubmitFeedback)
		bookings.POST("/:id/notes", h.AddNote)
		bookings.GET("/:id/notes", h.ListNotes)
	}

	admin := g.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/feedback/backfill", h.Backfill)
	}
}
