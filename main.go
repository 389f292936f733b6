package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/floramart/floramart/floramart"
	"github.com/floramart/floramart/floramart/auction"
	"github.com/floramart/floramart/floramart/auth"
	"github.com/floramart/floramart/floramart/chat"
	"github.com/floramart/floramart/floramart/database"
	"github.com/floramart/floramart/floramart/database/repositories"
	"github.com/floramart/floramart/floramart/logger"
	"github.com/floramart/floramart/floramart/order"
	"github.com/floramart/floramart/floramart/product"
	"github.com/floramart/floramart/floramart/storage"
	"github.com/floramart/floramart/floramart/web"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler("floramart")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting FloraMart marketplace",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := floramart.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	customHandler.SetLevel(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	slog.Info("Initializing database connection...")
	dbStart := time.Now()
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Database connection failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStart)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Schema initialization failed", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("type", "db"),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStart)))

	bunDB := db.BunDB()
	txManager := repositories.NewTxManager(bunDB)
	auctionRepo := repositories.NewAuctionRepository(bunDB)
	bidRepo := repositories.NewBidRepository(bunDB)
	productRepo := repositories.NewProductRepository(bunDB)
	userRepo := repositories.NewUserRepository(bunDB)
	orderRepo := repositories.NewOrderRepository(bunDB)

	hub := web.NewHub()
	manager := auction.NewManager(txManager, auctionRepo, bidRepo, productRepo, hub)
	sweeper := auction.NewSweeper(manager, cfg.Auction.SweepInterval(), cfg.Auction.BatchSize())

	var imageStore product.ImageStore
	if cfg.Spaces.Key != "" {
		spaces, err := storage.NewSpacesService(cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region, cfg.Spaces.Bucket, cfg.Spaces.MediaRoot)
		if err != nil {
			slog.Error("Spaces initialization failed", slog.Any("error", err))
			os.Exit(-1)
		}
		imageStore = spaces
	}

	var chatService *chat.Service
	if cfg.Mongo.URI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			slog.Error("Mongo connection failed", slog.Any("error", err))
			os.Exit(-1)
		}
		defer mongoClient.Disconnect(context.Background())
		chatService = chat.NewService(chat.NewMongoStore(mongoClient.Database(cfg.Mongo.Database)), auctionRepo, bidRepo)
	}

	productService := product.NewService(productRepo, imageStore)
	orderService := order.NewService(txManager, orderRepo, auctionRepo, bidRepo)
	authService := auth.NewService(userRepo, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Hour)

	server := web.NewServer(web.Config{
		Addr:            cfg.Server.Addr,
		RateLimit:       int64(cfg.Server.RateLimit),
		RateLimitWindow: time.Duration(cfg.Server.RateLimitWindow) * time.Second,
	}, manager, productService, orderService, authService, chatService, hub)

	sweeper.Start()
	defer sweeper.Shutdown()

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		slog.Info("HTTP server listening",
			slog.String("type", "http"),
			slog.String("addr", cfg.Server.Addr))
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server exited with error", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Shutdown complete")
}
