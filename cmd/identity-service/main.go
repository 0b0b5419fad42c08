package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcardona/storefront-orders/internal/config"
	"github.com/mcardona/storefront-orders/internal/httpx"
	usr "github.com/mcardona/storefront-orders/internal/user"
)

func main() {
	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("pgx pool: %v", err)
	}
	defer pool.Close()

	repo := usr.NewPGRepo(pool)
	tokens := usr.Tokens{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL}

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/auth/register", registerHandler(repo))
	r.POST("/auth/login", loginHandler(repo, tokens))
	r.GET("/auth/me", meHandler(repo, tokens))
	r.GET("/users/:id", getUserHandler(repo))

	log.Printf("identity-service listening on %s", cfg.IdentitySvcAddr)
	log.Fatal(r.Run(cfg.IdentitySvcAddr))
}
