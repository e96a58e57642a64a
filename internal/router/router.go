package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkov/sonet/internal/config"
	"github.com/avolkov/sonet/internal/handler"
	"github.com/avolkov/sonet/internal/middleware"
	"github.com/avolkov/sonet/internal/service"
)

// HealthFunc probes one dependency
type HealthFunc func(ctx context.Context) error

// Deps carries everything the router wires together
type Deps struct {
	Users   *handler.UserHandler
	Posts   *handler.PostHandler
	Friends *handler.FriendHandler
	Dialogs *handler.DialogHandler

	TokenValidator service.TokenValidator

	HealthChecks map[string]HealthFunc
}

// New builds the gin engine with the full middleware chain and route table.
// Every route except register, login, health and metrics requires a bearer
// token.
func New(cfg *config.HTTPConfig, deps Deps) *gin.Engine {
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.PrometheusMetrics(),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)

	engine.POST("/user/register", deps.Users.Register)
	engine.POST("/login", deps.Users.Login)

	engine.GET("/health", healthHandler(deps.HealthChecks))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := engine.Group("", middleware.Auth(deps.TokenValidator))
	{
		authed.GET("/user", deps.Users.List)
		authed.GET("/user/get/:id", deps.Users.Get)
		authed.GET("/user/search", deps.Users.Search)

		authed.PUT("/friend/set/:uid", deps.Friends.Set)
		authed.PUT("/friend/delete/:uid", deps.Friends.Delete)

		authed.GET("/post/feed", deps.Posts.Feed)
		authed.POST("/post/create", deps.Posts.Create)
		authed.GET("/post/get/:id", deps.Posts.Get)
		authed.PUT("/post/update/:id", deps.Posts.Update)
		authed.DELETE("/post/delete/:id", deps.Posts.Delete)

		authed.POST("/dialog/:uid/send", deps.Dialogs.Send)
		authed.GET("/dialog/:uid/list", deps.Dialogs.List)
	}

	return engine
}

func healthHandler(checks map[string]HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		report := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}

		c.JSON(status, report)
	}
}
