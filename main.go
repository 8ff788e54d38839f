package main

import (
	"context"
	"log"
	"os"

	"Gin_postgres_redis_gear_inventory/app"
	"Gin_postgres_redis_gear_inventory/config"
	"Gin_postgres_redis_gear_inventory/db"
	"Gin_postgres_redis_gear_inventory/routes"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	app.BootstrapFirstAdmin(context.Background(), application.Config, db.NewRepo(application.DB))

	r := application.Router

	// Health
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(200, app.H{"ok": true}) })

	routes.RegisterRoutes(r, application)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	log.Printf("listening on :%s", port)
	_ = r.Run(":" + port)
}
