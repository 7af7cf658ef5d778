package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"storefront/internal/handlers"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Categories *handlers.CategoryHandler
	Products   *handlers.ProductHandler
	Cart       *handlers.CartHandler
	Orders     *handlers.OrderHandler
	Health     *handlers.HealthHandler
}

// Guards are the authentication middlewares. Admin must be chained after
// SignIn.
type Guards struct {
	SignIn gin.HandlerFunc
	Admin  gin.HandlerFunc
}

// NewEngine returns a gin engine with recovery, request ids, access logs
// and, when m is non-nil, request metrics.
func NewEngine(logger *slog.Logger, m *metrics.HTTP) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))
	if m != nil {
		router.Use(middleware.Metrics(m))
	}
	return router
}

func RegisterRoutes(router *gin.Engine, h Handlers, g Guards) {
	router.GET("/health", h.Health.Health)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
		authGroup.GET("/user-auth", g.SignIn, h.Auth.Check)
		authGroup.GET("/admin-auth", g.SignIn, g.Admin, h.Auth.Check)
		authGroup.PUT("/profile", g.SignIn, h.Auth.UpdateProfile)
	}

	categories := v1.Group("/categories")
	{
		categories.GET("", h.Categories.List)
		categories.GET("/slug/:slug", h.Categories.GetBySlug)
		categories.POST("", g.SignIn, g.Admin, h.Categories.Create)
		categories.PUT("/:id", g.SignIn, g.Admin, h.Categories.Update)
		categories.DELETE("/:id", g.SignIn, g.Admin, h.Categories.Delete)
	}

	products := v1.Group("/products")
	{
		products.GET("", h.Products.ListProducts)
		products.GET("/count", h.Products.CountProducts)
		products.GET("/slug/:slug", h.Products.GetProduct)
		products.GET("/search/:keyword", h.Products.SearchProducts)
		products.GET("/category/:slug", h.Products.ProductsByCategory)
		products.GET("/:id/photo", h.Products.GetPhoto)
		products.GET("/:id/related", h.Products.RelatedProducts)
		products.POST("/filters", h.Products.FilterProducts)
		products.POST("", g.SignIn, g.Admin, h.Products.CreateProduct)
		products.PUT("/:id", g.SignIn, g.Admin, h.Products.UpdateProduct)
		products.DELETE("/:id", g.SignIn, g.Admin, h.Products.DeleteProduct)
	}

	cart := v1.Group("/cart", g.SignIn)
	{
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.PUT("/items/:productId", h.Cart.SetItem)
		cart.DELETE("/items/:productId", h.Cart.RemoveItem)
	}

	orders := v1.Group("/orders", g.SignIn)
	{
		orders.POST("", h.Orders.PlaceOrder)
		orders.GET("", h.Orders.ListMyOrders)
		orders.GET("/all", g.Admin, h.Orders.ListAllOrders)
		orders.PUT("/:id/status", g.Admin, h.Orders.UpdateOrderStatus)
	}
}
