package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Krish-Depani/auth-session-client/controllers"
)

func SetupRoutes(router *gin.Engine, authController *controllers.AuthController, userController *controllers.UserController) {
	requireAuth := authController.AuthMiddleware()

	auth := router.Group("/auth")
	{
		auth.POST("/signup", authController.Signup)
		auth.POST("/login", authController.Login)
		auth.GET("/refresh", authController.Refresh)
		auth.GET("/logout", authController.Logout)

		auth.GET("/profile", requireAuth, userController.GetProfile)
		auth.PATCH("", requireAuth, userController.UpdateProfile)
		auth.GET("/sessions", requireAuth, userController.GetActiveSessions)
		auth.POST("/revoke", requireAuth, userController.RevokeSessions)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
