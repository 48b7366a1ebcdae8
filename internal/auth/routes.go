package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers auth routes
func RegisterRoutes(rg *gin.RouterGroup, handler *Handler) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.GET("/me", RequireAuth(handler.Service), handler.Me)
	}
}
