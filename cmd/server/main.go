// Command recipebox-server starts the RecipeBook gRPC and HTTP servers.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/recipebox/internal/bookmarks"
	"github.com/and161185/recipebox/internal/config"
	pkgcrypto "github.com/and161185/recipebox/internal/crypto"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/imaging"
	"github.com/and161185/recipebox/internal/importer"
	"github.com/and161185/recipebox/internal/limiter"
	"github.com/and161185/recipebox/internal/migrate"
	"github.com/and161185/recipebox/internal/objectstore"
	"github.com/and161185/recipebox/internal/repository/postgres"
	"github.com/and161185/recipebox/internal/rpc"
	grpcserver "github.com/and161185/recipebox/internal/server/grpc"
	httpserver "github.com/and161185/recipebox/internal/server/http"
	"github.com/and161185/recipebox/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func newLogger(dev bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if dev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func openStore(ctx context.Context, cfg config.Storage) (objectstore.Store, func(), error) {
	if cfg.Backend == "gcs" {
		g, err := objectstore.NewGCS(ctx, objectstore.GCSConfig{
			Bucket:            cfg.Bucket,
			BaseURL:           cfg.PublicBaseURL,
			CredentialsBase64: cfg.CredentialsBase64,
		})
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	}
	fs, err := objectstore.NewFS(cfg.Dir, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

// main loads configuration, runs migrations, and serves gRPC and HTTP until
// SIGINT or SIGTERM.
func main() {
	cfgPath := flag.String("config", "", "path to YAML config")
	dotenv := flag.String("env-file", ".env", "optional .env file")
	dev := flag.Bool("dev", false, "development logging and gRPC reflection")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *dotenv)
	if err != nil {
		newLogger(*dev).Fatal("load config", zap.Error(err))
	}
	if *dev {
		cfg.Dev = true
	}

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("grpc", cfg.GRPC.Addr),
		zap.String("http", cfg.HTTP.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver, err := migrate.Up(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema ready", zap.Int64("version", ver))

	db, err := postgres.New(ctx, postgres.Config{DSN: cfg.Database.DSN, MaxConns: cfg.Database.MaxConns})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("open object store", zap.Error(err))
	}
	defer closeStore()

	// Repositories
	recipeRepo := postgres.NewRecipeRepo(db)
	bookmarkRepo := postgres.NewBookmarkRepo(db)
	profileRepo := postgres.NewProfileRepo(db)

	lim := limiter.NewPG(db.Pool, limiter.Policy{
		Window:   cfg.Auth.Window,
		MaxFails: cfg.Auth.MaxFails,
		BlockFor: cfg.Auth.BlockFor,
	})

	// Services
	key := []byte(cfg.Auth.JWTKey)
	verifier := identity.NewVerifier(key)
	authSvc := service.NewAuthService(profileRepo, pkgcrypto.NewHasher(pkgcrypto.DefaultParams),
		identity.NewIssuer(key, cfg.Auth.AccessTTL), lim, logger.Named("auth"))
	images := service.NewImageService(imaging.New(logger.Named("imaging")), store, logger.Named("images"))
	recipes := service.NewRecipeService(recipeRepo, images, logger.Named("recipes"))
	marks := bookmarks.NewService(bookmarks.NewRepoStore(bookmarkRepo), bookmarks.NewHub(),
		bookmarks.UserScope, logger.Named("bookmarks"))
	imp := importer.New(&http.Client{Timeout: cfg.Import.Timeout}, logger.Named("import"))

	// gRPC
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.AuthUnary(verifier),
			grpcserver.LoggingUnary(logger),
		),
		grpc.ChainStreamInterceptor(
			grpcserver.RecoverStream(logger),
			grpcserver.AuthStream(verifier),
			grpcserver.LoggingStream(logger),
		),
	}
	if cfg.GRPC.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.GRPC.TLSCert, cfg.GRPC.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}
	gs := grpc.NewServer(opts...)
	rpc.RegisterRecipeBookServer(gs, grpcserver.New(grpcserver.Deps{
		Auth:      authSvc,
		Recipes:   recipes,
		Bookmarks: marks,
		Images:    images,
		Importer:  imp,
		Log:       logger.Named("grpc"),
	}))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if cfg.Dev {
		reflection.Register(gs)
	}

	// HTTP
	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	mediaDir := ""
	if cfg.Storage.Backend == "fs" {
		mediaDir = cfg.Storage.Dir
	}
	hsrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpserver.New(httpserver.Deps{
			Auth:      authSvc,
			Recipes:   recipes,
			Bookmarks: marks,
			Images:    images,
			Importer:  imp,
			Verifier:  verifier,
			Log:       logger.Named("http"),
		}, httpserver.Options{
			CORSOrigins: cfg.HTTP.CORSOrigins,
			MediaDir:    mediaDir,
			MaxUpload:   cfg.HTTP.MaxUpload,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
		go func() {
			logger.Info("grpc listening", zap.String("addr", cfg.GRPC.Addr), zap.Bool("tls", cfg.GRPC.TLSCert != ""))
			errCh <- gs.Serve(lis)
		}()
	}
	if cfg.HTTP.Addr != "" {
		go func() {
			logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
			if err := hsrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hsrv.Shutdown(shutdownCtx)

		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			gs.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
