package routes

import (
	"net/http"
	"os"

	"github.com/esmmarket/esmmarket-golang/internal/handlers"
	"github.com/esmmarket/esmmarket-golang/internal/middleware"
	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the frontend origin to call the API with the headers
// we actually use (Authorization for bearer tokens).
func CORSMiddleware() gin.HandlerFunc {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()
	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Public Routes ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		v1.POST("/register/buyer", h.RegisterBuyer)
		v1.POST("/register/seller", h.RegisterSeller)
		v1.POST("/login", h.Login)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.DB))
		{
			// Notifications
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// Orders. Static segments (me, search) must be registered
			// alongside the :id parameter routes.
			ordersGroup := auth.Group("/orders")
			{
				ordersGroup.POST("", middleware.RequireRole(models.RoleBuyer), h.CreateOrder)
				ordersGroup.GET("/me", middleware.RequireRole(models.RoleBuyer, models.RoleSeller), h.GetMyOrders)
				ordersGroup.GET("/search", h.SearchOrders)
				ordersGroup.GET("/:id", h.GetOrder)
				ordersGroup.PATCH("/:id/status", h.UpdateOrderStatus)
				ordersGroup.POST("/:id/cancel", h.CancelOrder)
				ordersGroup.PATCH("/:id/payment", middleware.RequireRole(models.RoleAdmin), h.UpdateOrderPayment)
			}

			// Buyer dashboard
			buyer := auth.Group("/buyer")
			buyer.Use(middleware.RequireRole(models.RoleBuyer))
			{
				buyer.GET("/dashboard-stats", h.GetBuyerStats)
			}

			// --- Seller-Only Routes ---
			seller := auth.Group("/seller")
			seller.Use(middleware.RequireRole(models.RoleSeller))
			{
				seller.GET("/profile", h.GetMySellerProfile)
				seller.POST("/documents", h.SubmitSellerDocuments)

				seller.POST("/catalog", h.CreateCatalogItem)
				seller.GET("/catalog", h.GetMyCatalogItems)
				seller.PUT("/catalog/:id", h.UpdateCatalogItem)
				seller.POST("/catalog/:id/submit", h.SubmitCatalogItem)
				seller.DELETE("/catalog/:id", h.DeleteCatalogItem)

				seller.GET("/dashboard-stats", h.GetSellerStats)
			}

			// --- Admin-Only Routes ---
			admin := auth.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/approvals", h.ListPendingApprovals)
				admin.GET("/approvals/stats", h.GetApprovalStats)
				admin.POST("/approvals/:id/approve", h.ApproveRequest)
				admin.POST("/approvals/:id/reject", h.RejectRequest)

				admin.GET("/dashboard-stats", h.GetAdminStats)
			}
		}
	}

	return router
}
