package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	analysts := g.Group("/analysts")
	analysts.Use(authMiddleware)
	{
		analysts.GET("/:id/slots", h.AvailableSlots)
		analysts.GET("/:id/bookings", auth.RequireRole(auth.RoleAnalyst, auth.RoleAdmin), h.ListForAnalyst)
	}

	investors := g.Group("/investors")
	investors.Use(authMiddleware, auth.RequireRole(auth.RoleInvestor, auth.RoleAdmin))
	{
		investors.GET("/:id/bookings", h.ListForInvestor)
	}

	bookings := g.Group("/bookings")
	bookings.Use(authMiddleware)
	{
		bookings.GET("/upcoming", h.ListUpcoming)
	}
}
