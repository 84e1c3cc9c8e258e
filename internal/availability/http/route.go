package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	manage := auth.RequireRole(auth.RoleAnalyst, auth.RoleAdmin)

	analysts := g.Group("/analysts")
	analysts.Use(authMiddleware, manage)
	{
		analysts.GET("/:id/availability", h.List)
		analysts.POST("/:id/availability", h.Create)
	}

	rules := g.Group("/availability")
	rules.Use(authMiddleware, manage)
	{
		rules.PATCH("/:id", h.Update)
	}
}
