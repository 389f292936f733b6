package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/floramart/floramart/floramart/auction"
	"github.com/floramart/floramart/floramart/auth"
	"github.com/floramart/floramart/floramart/chat"
	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/order"
	"github.com/floramart/floramart/floramart/product"
)

// Server is the HTTP surface over the marketplace services.
type Server struct {
	manager  *auction.Manager
	products *product.Service
	orders   *order.Service
	auth     *auth.Service
	chat     *chat.Service
	hub      *Hub
	limiter  *rateLimiter
	validate *validator.Validate

	httpServer *http.Server
}

type Config struct {
	Addr            string
	RateLimit       int64
	RateLimitWindow time.Duration
}

func NewServer(
	cfg Config,
	manager *auction.Manager,
	products *product.Service,
	orders *order.Service,
	authService *auth.Service,
	chatService *chat.Service,
	hub *Hub,
) *Server {
	s := &Server{
		manager:  manager,
		products: products,
		orders:   orders,
		auth:     authService,
		chat:     chatService,
		hub:      hub,
		limiter:  newRateLimiter(cfg.RateLimit, cfg.RateLimitWindow),
		validate: validator.New(),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(s.limiter.middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Get("/products", s.handleListProducts)
	r.Get("/products/{productID}", s.handleGetProduct)

	r.Get("/auctions", s.handleListAuctions)
	r.Get("/auctions/{auctionID}", s.handleGetAuction)
	r.Get("/auctions/{auctionID}/participants", s.handleParticipants)
	r.Get("/auctions/{auctionID}/winners", s.handleWinners)
	r.Get("/auctions/{auctionID}/leaderboard", s.handleLeaderboard)
	r.Get("/auctions/{auctionID}/bids", s.handleBidHistory)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.With(requireRole(models.UserRoleSeller)).Post("/products", s.handleCreateProduct)
		r.Patch("/products/{productID}", s.handleUpdateProduct)
		r.Delete("/products/{productID}", s.handleDeleteProduct)
		r.Post("/products/{productID}/image", s.handleUploadProductImage)

		r.With(requireRole(models.UserRoleSeller)).Post("/auctions", s.handleCreateAuction)
		r.Patch("/auctions/{auctionID}", s.handleUpdateAuction)
		r.Delete("/auctions/{auctionID}", s.handleDeleteAuction)

		r.Post("/bids", s.handlePlaceBid)
		r.Delete("/bids/{bidID}", s.handleRetractBid)

		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{orderID}", s.handleGetOrder)
		r.Patch("/orders/{orderID}/status", s.handleUpdateOrderStatus)

		if s.chat != nil {
			r.Post("/auctions/{auctionID}/messages", s.handleSendMessage)
			r.Get("/auctions/{auctionID}/messages", s.handleChatHistory)
		}

		r.Get("/ws", s.hub.ServeWS)
	})

	return r
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
