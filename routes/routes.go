package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"food-delivery-backend/auth"
	"food-delivery-backend/handlers"
	"food-delivery-backend/middleware"
	"food-delivery-backend/models"
)

type Options struct {
	Log            *zap.Logger
	Tokens         *auth.TokenManager
	Registry       *prometheus.Registry
	AllowedOrigins []string
	AuthLimiter    *middleware.IPRateLimiter
	RequestTimeout time.Duration
}

// NewRouter builds the engine with the shared middleware chain, the ops
// endpoints and every API route.
func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(opts.Log),
		middleware.Recovery(opts.Log),
		middleware.Metrics(middleware.NewHTTPMetrics(opts.Registry)),
		cors.New(corsConfig(opts.AllowedOrigins)),
	)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.RequestTimeout(opts.RequestTimeout))
	}

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))

	SetupRoutes(r, h, opts.Tokens, opts.AuthLimiter)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler, tokens *auth.TokenManager, limiter *middleware.IPRateLimiter) {
	authed := middleware.AuthRequired(tokens)
	can := middleware.CapabilityRequired

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// State machine info (great for docs/Postman)
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Auth ───────────────────────────────────────────────────────
	authGroup := r.Group("/api/auth")
	{
		signup := authGroup.Group("")
		if limiter != nil {
			signup.Use(middleware.RateLimit(limiter))
		}
		signup.POST("/signup", h.Signup)
		signup.POST("/login", h.Login)
		signup.POST("/business/signup", h.SignupBusiness)
		signup.POST("/delivery/signup", h.SignupDelivery)
		signup.POST("/admin/signup", h.SignupAdmin)

		authGroup.POST("/logout", authed, h.Logout)
		authGroup.GET("/me", authed, h.Me)
	}

	// ── Any authenticated user ─────────────────────────────────────
	user := r.Group("/api/user")
	user.Use(authed)
	{
		user.GET("/profile", h.GetProfile)
		user.PUT("/profile", h.UpdateProfile)
		user.PUT("/change-password", h.ChangePassword)
	}

	addresses := r.Group("/api/addresses")
	addresses.Use(authed, can(models.CapManageAddresses))
	{
		addresses.POST("", h.CreateAddress)
		addresses.GET("", h.ListAddresses)
		addresses.GET("/default", h.DefaultAddress)
		addresses.GET("/:id", h.GetAddress)
		addresses.PUT("/:id", h.UpdateAddress)
		addresses.PUT("/:id/set-default", h.SetDefaultAddress)
		addresses.DELETE("/:id", h.DeleteAddress)
	}

	// ── Catalog and ratings ────────────────────────────────────────
	products := r.Group("/api/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/categories", h.ListCategories)
		products.GET("/search", h.SearchProducts)
		products.GET("/business/:businessId", h.GetBusinessProducts)
		products.GET("/:id", h.GetProduct)

		products.POST("", authed, can(models.CapManageCatalog), h.AddProduct)
		products.PUT("/:id", authed, can(models.CapManageCatalog), h.UpdateProduct)
		products.DELETE("/:id", authed, can(models.CapManageCatalog), h.DeleteProduct)

		products.GET("/:id/ratings", h.ListRatings)
		products.GET("/:id/rating-stats", h.RatingStats)
		products.POST("/:id/rate", authed, can(models.CapRateProduct), h.RateProduct)
		products.GET("/:id/ratings/my", authed, can(models.CapRateProduct), h.MyRating)
		products.PUT("/:id/ratings/my", authed, can(models.CapRateProduct), h.UpdateMyRating)
		products.DELETE("/:id/ratings/my", authed, can(models.CapRateProduct), h.DeleteMyRating)
		products.POST("/:id/ratings/:ratingId/helpful", authed, h.MarkHelpful)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/orders")
	customer.Use(authed, can(models.CapPlaceOrder))
	{
		customer.POST("", h.PlaceOrder)
		customer.GET("/history", h.GetMyOrders)
		customer.GET("/:id/track", h.TrackOrder)
		customer.PUT("/:id/cancel", h.CancelOrder)
	}

	// ── Business owner routes ──────────────────────────────────────
	business := r.Group("/api/business")
	business.Use(authed, can(models.CapManageCatalog, models.CapFulfilOrders))
	{
		business.GET("/profile", h.GetBusinessProfile)
		business.PUT("/profile", h.UpdateBusinessProfile)

		// Menu management
		business.GET("/menu", h.GetMenu)
		business.POST("/products", h.AddProduct)
		business.PUT("/products/:id", h.UpdateProduct)
		business.DELETE("/products/:id", h.DeleteProduct)

		// Order management
		business.GET("/orders", h.GetBusinessOrders)
		business.GET("/orders/history", h.GetBusinessOrderHistory)
		business.PUT("/orders/:id/status", h.UpdateOrderStatus)
	}

	// ── Delivery partner routes ────────────────────────────────────
	delivery := r.Group("/api/delivery")
	delivery.Use(authed, can(models.CapDeliverOrders))
	{
		delivery.GET("/profile", h.GetDeliveryProfile)
		delivery.PUT("/profile", h.UpdateDeliveryProfile)
		delivery.GET("/assigned-orders", h.GetAssignedOrders)
		delivery.PUT("/orders/:id/status", h.UpdateDeliveryStatus)
		delivery.GET("/history", h.GetDeliveryHistory)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(authed, can(models.CapAdminister))
	{
		admin.GET("/users", h.AdminGetAllUsers)
		admin.GET("/businesses", h.AdminGetAllBusinesses)
		admin.DELETE("/businesses/:id", h.AdminDeleteBusiness)
		admin.GET("/delivery-partners", h.AdminGetAllDeliveryPartners)
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.POST("/orders/assign", h.AdminAssignOrder)
		admin.PUT("/orders/:id/status", h.AdminForceOrderStatus)
	}
}
