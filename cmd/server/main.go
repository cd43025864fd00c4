package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Oluwablin/photography/internal/config"
	"github.com/Oluwablin/photography/internal/database"
	"github.com/Oluwablin/photography/internal/handler"
	"github.com/Oluwablin/photography/internal/queue"
	"github.com/Oluwablin/photography/internal/repository"
	"github.com/Oluwablin/photography/internal/router"
	queue_publisher "github.com/Oluwablin/photography/internal/service"
	"github.com/Oluwablin/photography/internal/storage"
	"github.com/Oluwablin/photography/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	// Redis is optional: without it logout revocation, rate limiting and
	// the photo-list cache are disabled, the rest of the API still works.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, continuing without denylist/limiter/cache")
	}
	deny := &utils.Denylist{RDB: rdb}

	store, err := storage.NewMinioClient(context.Background(), cfg.Minio)
	if err != nil {
		log.Fatalf("minio: %v", err)
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	products := repository.NewProductRepo(db)
	requests := repository.NewRequestRepo(db)
	photos := repository.NewPhotoRepo(db)

	var notify handler.Notifier = queue_publisher.Publisher{}

	h := router.Handlers{
		Auth:     &handler.AuthHandler{Cfg: cfg, Users: users, Roles: roles, Deny: deny, Notify: notify},
		Products: &handler.ProductHandler{Products: products},
		Requests: &handler.RequestHandler{Products: products, Requests: requests},
		Photos: &handler.PhotoHandler{
			Products: products,
			Requests: requests,
			Photos:   photos,
			Users:    users,
			Store:    store,
			Notify:   notify,
		},
		Health: &handler.HealthHandler{DB: db},
	}

	// The notification consumer runs in-process and reconnects on its own;
	// a broker outage only delays mail, it never blocks the API.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg, deny, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
