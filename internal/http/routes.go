package http

import (
	"net/http"
	"time"

	_ "github.com/JM-Mushraf/TownSquare-sub000/docs"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/security"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

type RouterOptions struct {
	Service     string
	Tracing     bool
	CORSOrigins []string
	// JWTSecret enables HS256 bearer auth on write routes; the token subject becomes the voter.
	JWTSecret string
	// Verifier takes precedence over JWTSecret, e.g. a JWKS-backed RS256 check.
	Verifier security.Verifier
	Limiter  Limiter
}

func NewRouter(h *Handler, opt RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	if opt.Tracing {
		r.Use(gintrace.Middleware(opt.Service))
	}
	r.Use(Logger(), Metrics())
	if len(opt.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opt.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limiter := opt.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(30, time.Minute)
	}
	verifier := opt.Verifier
	if verifier == nil && opt.JWTSecret != "" {
		verifier = security.HS256(opt.JWTSecret)
	}
	var write []gin.HandlerFunc
	if verifier != nil {
		write = append(write, AuthJWT(verifier))
	}
	vote := chain(write, RateLimit(limiter))

	post := r.Group("/post")
	{
		post.POST("", chain(write, h.CreatePost)...)
		post.POST("/vote", chain(vote, h.Vote)...)
		post.POST("/results", h.Results)
		post.GET("/:postId", h.GetPost)
		post.DELETE("/:postId", chain(write, h.DeletePost)...)
		post.POST("/:postId/vote", chain(vote, h.Vote)...)
		post.GET("/:postId/results", h.Results)
		post.POST("/:postId/results", h.Results)
		post.GET("/:postId/live", h.Live)
	}

	users := r.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.DELETE("/:userId", chain(write, h.DeleteUser)...)
	}
	return r
}

func chain(mw []gin.HandlerFunc, h ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+len(h))
	return append(append(out, mw...), h...)
}
