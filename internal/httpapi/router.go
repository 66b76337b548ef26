package httpapi

import (
	"net/http"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BasePath is where every route is mounted.
const BasePath = "/api/v_1"

// Options configures NewRouter.
type Options struct {
	// AllowOrigins lists the frontend origins allowed to send credentials.
	AllowOrigins []string
	Logger       *zap.Logger
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
}

// NewRouter builds the gin engine for auth.
func NewRouter(auth AuthService, opts Options) *gin.Engine {
	registerValidations()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{auth: auth, logger: logger.Named("http")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.logger))
	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(securityHeaders())
	r.Use(middleware.RequestContext())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	r.NoRoute(func(c *gin.Context) {
		middleware.Fail(c, http.StatusNotFound, middleware.MsgNotFound)
	})

	api := r.Group(BasePath)

	public := api.Group("/auth")
	{
		public.POST("/send-otp", h.sendOTP)
		public.POST("/verify-otp", h.verifyOTP)
		public.POST("/signup", h.signup)
		public.POST("/verify-login", h.login)
		public.POST("/google-auth", h.googleAuth)
		public.POST("/forgot-password", h.forgotPassword)
		public.POST("/reset-password", h.resetPassword)
		public.POST("/refresh-token", h.refreshToken)
	}

	logout := []gin.HandlerFunc{middleware.DecodeToken(auth), middleware.BlockStatus(auth), h.logout}
	api.POST("/_cl/client/logout", logout...)
	api.POST("/_ve/vendor/logout", logout...)
	api.POST("/_ad/admin/logout", logout...)

	admin := api.Group("/_ad/admin",
		middleware.VerifyAuth(auth),
		middleware.BlockStatus(auth),
		middleware.AuthorizeRole(craveAuth.RoleAdmin),
	)
	{
		admin.PATCH("/users/:role/:userId/status", h.setStatus)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			logger.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Debug("request", fields...)
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}
