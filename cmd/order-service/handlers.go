package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcardona/storefront-orders/internal/httpx"
	ord "github.com/mcardona/storefront-orders/internal/order"
)

// identityAdapter lets the order package's identity client satisfy the
// middleware's Resolver without the middleware importing the order package.
type identityAdapter struct{ ident ord.IdentityResolver }

func (a identityAdapter) Resolve(ctx context.Context, token string) (*httpx.Caller, error) {
	id, err := a.ident.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return &httpx.Caller{ID: id.ID, Name: id.Name, Email: id.Email}, nil
}

func callerID(c *gin.Context) string {
	caller, ok := httpx.CallerFrom(c)
	if !ok {
		return ""
	}
	return caller.ID
}

// errStatus maps the service error taxonomy to HTTP.
func errStatus(err error) int {
	switch {
	case errors.Is(err, ord.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ord.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ord.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ord.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ord.ErrInsufficientStock), errors.Is(err, ord.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ord.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// createOrderHandler godoc
// @Summary  Create an order from the caller's cart
// @Accept   json
// @Produce  json
// @Param    order body ord.CreateRequest true "cart"
// @Success  201 {object} ord.Order
// @Router   /orders [post]
func createOrderHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, err := svc.CreateOrder(c.Request.Context(), callerID(c), req)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

// getOrderHandler godoc
// @Summary  Fetch one of the caller's orders, owner profile joined
// @Produce  json
// @Param    id path string true "order id"
// @Success  200 {object} ord.Detail
// @Router   /orders/{id} [get]
func getOrderHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.GetOrder(c.Request.Context(), callerID(c), c.Param("id"))
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// confirmPaymentHandler godoc
// @Summary  Record a gateway payment confirmation (idempotent)
// @Accept   json
// @Produce  json
// @Param    id path string true "order id"
// @Param    confirmation body ord.Confirmation true "gateway payload"
// @Success  200 {object} ord.Order
// @Router   /orders/{id}/payment [put]
func confirmPaymentHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var conf ord.Confirmation
		if err := c.ShouldBindJSON(&conf); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, err := svc.ConfirmPayment(c.Request.Context(), callerID(c), c.Param("id"), conf)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// listOrdersHandler godoc
// @Summary  List the caller's orders, newest first
// @Produce  json
// @Success  200 {array} ord.Order
// @Router   /orders [get]
func listOrdersHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.ListOrders(c.Request.Context(), callerID(c))
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
