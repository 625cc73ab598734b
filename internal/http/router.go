package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/donationsvc/internal/http/handlers"
	"github.com/you/donationsvc/internal/http/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth      *handlers.AuthHandlers
	Donations *handlers.DonationHandlers
	Webhooks  *handlers.WebhookHandlers
	Policies  *handlers.PolicyHandlers
	Health    *handlers.HealthHandlers
}

// Middleware groups the cross-cutting handlers
type Middleware struct {
	JWT            *middleware.AuthMW
	Casbin         *middleware.CasbinMW
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
}

func BuildRouter(h Handlers, mw Middleware, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger), middleware.CORS(mw.AllowedOrigins...))

	r.GET("/health", h.Health.Health)

	// PayPal retries on its own schedule, so webhooks skip the client rate limit
	r.POST("/webhooks/paypal", h.Webhooks.PayPal)

	api := r.Group("/")
	if mw.RateLimiter != nil {
		api.Use(mw.RateLimiter.Middleware())
	}

	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.POST("/otp/send", h.Auth.SendOTP)
	api.POST("/otp/verify", h.Auth.VerifyOTP)

	v := api.Group("/", mw.JWT.WithJWT(), mw.Casbin.Enforce())
	v.GET("/me", h.Auth.Me)

	d := v.Group("/donations")
	d.POST("/create-order", h.Donations.CreateOrder)
	d.POST("/capture-order", h.Donations.CaptureOrder)
	d.GET("/my-donations", h.Donations.MyDonations)
	d.GET("/verify/:order_id", h.Donations.VerifyOrder)
	d.GET("/:id", h.Donations.Get)

	adm := v.Group("/admin")
	adm.GET("/policies", h.Policies.List)
	adm.POST("/policies", h.Policies.Add)
	adm.DELETE("/policies", h.Policies.Remove)
	adm.GET("/donations", h.Donations.ListRecent)

	return r
}
