package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	prod "github.com/mcardona/storefront-orders/internal/product"
)

type createProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Image       string `json:"image"`
}

type updateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       *string `json:"price"`
	Stock       *int    `json:"stock"`
	StockDelta  *int    `json:"stockDelta"`
	Image       string  `json:"image"`
}

func validPrice(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && !d.IsNegative()
}

func listProductsHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		out, err := repo.List(c.Request.Context(), prod.Query{
			Q:      c.Query("q"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if out == nil {
			out = []prod.Product{}
		}
		c.JSON(http.StatusOK, out)
	}
}

func getProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func createProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if req.Name == "" || !validPrice(req.Price) || req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, non-negative price and stock required"})
			return
		}
		p := &prod.Product{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			Image:       req.Image,
		}
		if err := repo.Create(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// updateProductHandler also serves the order core's stock reserve/restock:
// PUT with {"stockDelta": n} applies the change atomically, so concurrent
// checkouts can't both win the same units.
func updateProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}

		cur, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		if req.StockDelta != nil {
			if err := repo.AdjustStock(c.Request.Context(), cur.ID, *req.StockDelta); err != nil {
				switch {
				case errors.Is(err, prod.ErrInsufficientStock):
					c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock"})
				case errors.Is(err, prod.ErrNotFound):
					c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				default:
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				}
				return
			}
			out, err := repo.GetByID(c.Request.Context(), cur.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, out)
			return
		}

		updatePrice := false
		p := &prod.Product{
			ID:          cur.ID,
			Name:        req.Name,
			Description: req.Description,
			Image:       req.Image,
			Stock:       cur.Stock,
		}
		if req.Price != nil {
			if !validPrice(*req.Price) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "price must be non-negative"})
				return
			}
			p.Price = *req.Price
			updatePrice = true
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be non-negative"})
				return
			}
			p.Stock = *req.Stock
		}

		if err := repo.Update(c.Request.Context(), p, updatePrice); err != nil {
			if errors.Is(err, prod.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		out, err := repo.GetByID(c.Request.Context(), cur.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
