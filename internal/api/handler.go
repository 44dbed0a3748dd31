package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"foodhub/internal/cart"
	"foodhub/internal/catalog"
	"foodhub/internal/checkout"
	"foodhub/internal/models"
	"foodhub/internal/service"
	"foodhub/internal/util"
	"foodhub/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Response is the envelope of every API reply
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// Handler contains HTTP handlers
type Handler struct {
	catalog         *catalog.Catalog
	cartService     *service.CartService
	checkoutService *service.CheckoutService
	feed            *worker.Feed
	ready           func() error
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler. ready reports whether the backing
// store is reachable; nil means always ready.
func NewHandler(
	catalog *catalog.Catalog,
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	feed *worker.Feed,
	ready func() error,
) *Handler {
	return &Handler{
		catalog:         catalog,
		cartService:     cartService,
		checkoutService: checkoutService,
		feed:            feed,
		ready:           ready,
		logger:          util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/menu", h.listMenu)
		v1.GET("/menu/:id", h.getMenuItem)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addItem)
		v1.PUT("/cart/items/:id", h.setQuantity)
		v1.DELETE("/cart/items/:id", h.removeItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.submitCheckout)
		v1.GET("/checkout/state", h.checkoutState)
		v1.POST("/checkout/acknowledge", h.acknowledgeCheckout)

		v1.GET("/notifications", h.notifications)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"details": err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listMenu(c *gin.Context) {
	var items []models.MenuItem
	switch {
	case c.Query("q") != "":
		items = h.catalog.Search(c.Query("q"))
	case c.Query("featured") == "true":
		items = h.catalog.Featured()
	default:
		items = h.catalog.List(c.Query("category"))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"items":      items,
		"categories": h.catalog.Categories(),
	}})
}

func (h *Handler) getMenuItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.catalog.Lookup(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: item})
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.cartService.View()})
}

func (h *Handler) addItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.AddItem(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "Item added to cart!", Data: view})
}

func (h *Handler) setQuantity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.SetQuantity(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "Cart updated", Data: view})
}

func (h *Handler) removeItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	view, err := h.cartService.RemoveItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "Item removed from cart!", Data: view})
}

func (h *Handler) clearCart(c *gin.Context) {
	view, err := h.cartService.Clear(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "Cart cleared", Data: view})
}

func (h *Handler) submitCheckout(c *gin.Context) {
	var details models.CustomerDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.checkoutService.Submit(c.Request.Context(), &details)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Message: "Order placed successfully!", Data: resp})
}

func (h *Handler) checkoutState(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"state": h.checkoutService.State()}})
}

func (h *Handler) acknowledgeCheckout(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"state": h.checkoutService.Acknowledge()}})
}

func (h *Handler) notifications(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.feed.Recent()})
}

// respondError maps domain errors to a status and a customer-facing message
func (h *Handler) respondError(c *gin.Context, err error) {
	var vErr *checkout.ValidationError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusConflict, Response{Message: "Your cart is empty!"})
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, Response{Message: "Your order is already being processed"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, Response{Message: "Please correct the highlighted fields", Errors: vErr.Fields})
	case errors.Is(err, catalog.ErrItemNotFound):
		c.JSON(http.StatusNotFound, Response{Message: "Menu item not found"})
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Message: "Something went wrong, please try again"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Message: "Invalid request body", Errors: err.Error()})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: "Invalid item ID"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
