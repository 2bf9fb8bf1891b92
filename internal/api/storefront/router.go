package storefront

import (
	"github.com/Conversly/storefront/internal/app"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the storefront API on router. A configured access
// key guards every route in the group.
func RegisterRoutes(router *gin.RouterGroup, a *app.App) {
	cfg := a.Config
	if cfg.AccessKey != "" {
		router.Use(RequireAccessKey(cfg.AccessKey))
	}
	if cfg.RateLimitRPS > 0 {
		router.Use(NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Limit())
	}

	controller := NewController(a)

	cart := router.Group("/cart")
	cart.GET("", controller.GetCart)
	cart.DELETE("", controller.ClearCart)
	cart.POST("/items", controller.AddItem)
	cart.PUT("/items/:id", controller.UpdateItem)
	cart.DELETE("/items/:id", controller.RemoveItem)

	products := router.Group("/products")
	products.GET("", controller.ListProducts)
	products.GET("/bestsellers", controller.BestSellers)
	products.GET("/categories", controller.CategoryLinks)
	products.GET("/:id", controller.GetProduct)
	products.GET("/:id/related", controller.RelatedProducts)

	categories := router.Group("/categories")
	categories.GET("", controller.CategoryTree)
	categories.GET("/flat", controller.CategoryFlat)
	categories.GET("/picker", controller.CategoryPicker)

	session := router.Group("/session")
	session.GET("", controller.Me)
	session.POST("/login", controller.Login)
	session.POST("/register", controller.Register)
	session.POST("/logout", controller.Logout)

	checkout := router.Group("/checkout")
	checkout.GET("/summary", controller.Summary)
	checkout.POST("/coupon", controller.ApplyCoupon)
	checkout.DELETE("/coupon", controller.RemoveCoupon)
	checkout.POST("/payment", controller.CreatePayment)
	checkout.POST("/orders", controller.PlaceOrder)
	checkout.GET("/orders", controller.Orders)
	checkout.GET("/addresses", controller.Addresses)

	router.GET("/notifications", controller.Notices)

	seller := router.Group("/seller", RequireSeller(a.Session))
	seller.GET("/categories/report", controller.CategoryReport)
	seller.POST("/categories/refresh", controller.RefreshCategories)
	seller.POST("/categories", controller.AddCategory)
	seller.PUT("/categories/:id", controller.EditCategory)
	seller.DELETE("/categories/:id", controller.DeleteCategory)
	seller.POST("/products/refresh", controller.RefreshProducts)
}

// NewEngine builds the gin engine with the storefront routes under /api/v1.
func NewEngine(a *app.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), Logger())
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	RegisterRoutes(engine.Group("/api/v1"), a)
	return engine
}
