package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/rudrakv/storefront-api/internal/checkout"
	"github.com/rudrakv/storefront-api/internal/config"
	"github.com/rudrakv/storefront-api/internal/database"
	"github.com/rudrakv/storefront-api/internal/handler"
	"github.com/rudrakv/storefront-api/internal/queue"
	"github.com/rudrakv/storefront-api/internal/repository"
	"github.com/rudrakv/storefront-api/internal/router"
)

func main() {
	// .env is optional; real deployments set variables directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	addresses := repository.NewAddressRepo(db)
	products := repository.NewProductRepo(db)
	orders := repository.NewOrderRepo(db)

	validator := checkout.NewValidator(products, checkout.Policy{MinOrderPaise: cfg.MinOrderPaise})
	committer := checkout.NewCommitter(db, orders, products, addresses, users)

	authH := handler.NewAuthHandler(cfg, users)
	addressH := handler.NewAddressHandler(db, addresses, users)
	catalogH := handler.NewCatalogHandler(products)
	orderH := handler.NewOrderHandler(validator, committer, orders, addresses)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, users, cfg.AuthSecret, rdb)
	router.RegisterCatalog(e, catalogH, rdb)
	router.RegisterAccount(e, addressH, users, cfg.AuthSecret)
	router.RegisterOrders(e, orderH, users, cfg.AuthSecret, rdb)

	// Background consumer keeps its own reconnect loop; a broker outage
	// never takes the API down.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
