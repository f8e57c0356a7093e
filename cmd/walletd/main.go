package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/adapters/chain"
	"github.com/parkview-app/walletcore/adapters/events"
	"github.com/parkview-app/walletcore/adapters/launcher"
	"github.com/parkview-app/walletcore/adapters/notify"
	"github.com/parkview-app/walletcore/adapters/relay"
	"github.com/parkview-app/walletcore/adapters/static"
	"github.com/parkview-app/walletcore/adapters/store"
	"github.com/parkview-app/walletcore/config"
	"github.com/parkview-app/walletcore/core"
	"github.com/parkview-app/walletcore/deeplink"
	"github.com/parkview-app/walletcore/ports"
	"github.com/parkview-app/walletcore/service"
	httptransport "github.com/parkview-app/walletcore/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs both the session store and the lifecycle event stream
	// when configured; without it everything stays in-process.
	var (
		sessionStore ports.SessionStore
		eventPub     ports.EventPublisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to parse redis url", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			logger.Fatal("failed to create redis publisher", zap.Error(err))
		}

		sessionStore = store.NewRedisStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		sessionStore = store.NewMemoryStore()
		eventPub = events.NewChannelPublisher(16)
	}

	reader, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		logger.Fatal("failed to dial chain rpc", zap.Error(err))
	}
	defer reader.Close()

	transport, err := buildTransport(cfg, sessionStore, logger)
	if err != nil {
		logger.Fatal("failed to build transport", zap.Error(err))
	}

	wallet := service.NewWalletService(
		service.Config{
			Chains:          []string{core.ChainRef(core.NamespaceEIP155, cfg.ChainID)},
			Wallet:          deeplink.SupportedWallets[0],
			DefaultChainID:  cfg.ChainID,
			ApprovalTimeout: cfg.ApprovalTimeout,
		},
		transport,
		deeplink.NewDispatcher(launcher.NewExecLauncher(), logger),
		reader,
		eventPub,
		notify.NewLogNotifier(logger),
		logger,
	)
	defer func() { _ = wallet.Close() }()

	if err := wallet.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize wallet service", zap.Error(err))
	}

	router := httptransport.SetupRouter(wallet, logger)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
}

func buildTransport(cfg config.Config, sessionStore ports.SessionStore, logger *zap.Logger) (ports.SignTransport, error) {
	if cfg.StaticMode {
		return static.New(sessionStore, logger), nil
	}

	authKey, err := loadAuthKey(cfg.RelayAuthKey)
	if err != nil {
		return nil, fmt.Errorf("relay auth key: %w", err)
	}

	return relay.New(relay.Config{
		RelayURL:  cfg.RelayURL,
		ProjectID: cfg.ProjectID,
		AuthKey:   authKey,
		Metadata: relay.Metadata{
			Name:        "ParkView",
			Description: "ParkView wallet connection service",
			URL:         "https://parkview.app",
		},
	}, sessionStore, logger), nil
}

// loadAuthKey decodes a hex-encoded EC private key, or generates an
// ephemeral one when none is configured.
func loadAuthKey(raw string) (*ecdsa.PrivateKey, error) {
	if raw == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	der, err := hex.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return x509.ParseECPrivateKey(der)
}
