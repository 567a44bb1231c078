package connection

import (
	"context"
	"fmt"
	"log"
	"strings"

	"teamdash/backend"
	"teamdash/config"
	"teamdash/controller"
	authcontroller "teamdash/controller/auth"
	"teamdash/controller/invite"
	"teamdash/controller/notification"
	"teamdash/controller/session"
	"teamdash/controller/subtask"
	"teamdash/controller/task"
	"teamdash/controller/team"
	"teamdash/controller/user"
	"teamdash/middleware"
	"teamdash/ratelimit"
	"teamdash/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func StartServer(cfg *config.Config) error {
	ctx := context.Background()

	var fb *Firebase
	if cfg.App.Backend == "firestore" || cfg.Auth.Mode == "firebase" {
		var err error
		fb, err = FBConnection(ctx, cfg.Firebase)
		if err != nil {
			return fmt.Errorf("failed to initialize Firebase: %w", err)
		}
		defer fb.Close()
	}

	d := &controller.Deps{
		Config:   cfg,
		Throttle: rate.NewLimiter(rate.Limit(cfg.App.CascadeDeletesPerS), 1),
	}

	switch cfg.App.Backend {
	case "firestore":
		d.DB = backend.NewFirestore(fb.Firestore)
	default:
		log.Println("Using in-memory backend; data is lost on restart")
		d.DB = backend.NewMemory()
	}

	switch cfg.Auth.Mode {
	case "firebase":
		d.Auth = middleware.FirebaseAuth(fb.Auth)
		d.Identity = services.NewFirebaseIdentity(fb.Auth)
	default:
		log.Println("Using dev token auth")
		d.Auth = middleware.DevTokenAuth([]byte(cfg.Auth.JWTSecret))
		d.Identity = services.NewMemoryIdentity()
	}

	if cfg.Redis.URL != "" {
		rl, err := ratelimit.NewRateLimiter(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		defer rl.Close()
		d.Limiter = rl
	} else {
		log.Println("REDIS_URL not set, rate limiting disabled")
	}

	router := SetupRouter(d)
	log.Printf("Server starting on port %s", cfg.Server.Port)
	return router.Run(":" + cfg.Server.Port)
}

// SetupRouter registers every area controller on a new engine.
func SetupRouter(d *controller.Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}
	router.Use(corsMiddleware(d.Config.Server.CORSOrigins))

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Api is running!"})
	})

	task.TaskController(router, d)
	team.TeamController(router, d)
	invite.InviteController(router, d)
	subtask.SubTaskController(router, d)
	notification.NotificationController(router, d)
	user.UserController(router, d)
	session.SessionController(router, d, session.NewHub())
	if d.Config.Auth.Mode == "dev" {
		authcontroller.DevTokenController(router, d)
	}

	return router
}

func corsMiddleware(origins string) gin.HandlerFunc {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	if origins == "" || origins == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = strings.Split(origins, ",")
		c.AllowCredentials = true
	}
	return cors.New(c)
}
