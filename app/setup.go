package app

import (
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/pyq-archive/api"
	"github.com/sahilchouksey/pyq-archive/config"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/router"
	"github.com/sahilchouksey/pyq-archive/utils/cache"
	"github.com/sahilchouksey/pyq-archive/utils/metrics"
	"github.com/sahilchouksey/pyq-archive/utils/middleware"
	"github.com/sahilchouksey/pyq-archive/views"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM(getEnv)
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Redis is optional; without it the search filters are computed on every request
	opts := router.Options{MaxImportRecords: getEnv.IMPORT_MAX_RECORDS}
	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v. Filter caching will be disabled.", err)
		} else {
			opts.Cache = redisCache
		}
	}

	// Defer Closing DB and cache
	defer func() {
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), views.New())
	app := server.GetEngine()

	// Attach Middleware
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    getEnv.ALLOWED_ORIGINS,
		RateLimitRequests: getEnv.RATE_LIMIT_REQUESTS,
		RateLimitWindow:   time.Minute,
	})
	app.Use(metrics.RequestDuration())

	// Setup Routes
	router.SetupRoutes(app, store, opts)

	// Get the PORT & Start the Server
	return server.Run()

}
