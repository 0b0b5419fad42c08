package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mcardona/storefront-orders/docs"
	"github.com/mcardona/storefront-orders/internal/config"
	"github.com/mcardona/storefront-orders/internal/httpx"
	ord "github.com/mcardona/storefront-orders/internal/order"
)

// @title       Storefront Orders API
// @version     1.0
// @description Order lifecycle service: checkout, payment confirmation, order history.
// @BasePath    /
func main() {
	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("pgx pool: %v", err)
	}
	defer pool.Close()

	ext := ord.NewExt(cfg.CatalogBaseURL, cfg.IdentityBaseURL, cfg.ClientTO)
	svc := ord.NewService(ord.NewPGRepo(pool), ext, ext)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := r.Group("/", httpx.Auth(identityAdapter{ident: ext}))
	auth.POST("/orders", createOrderHandler(svc))
	auth.GET("/orders", listOrdersHandler(svc))
	auth.GET("/orders/:id", getOrderHandler(svc))
	auth.PUT("/orders/:id/payment", confirmPaymentHandler(svc))

	log.Printf("order-service listening on %s", cfg.OrderSvcAddr)
	log.Fatal(r.Run(cfg.OrderSvcAddr))
}
