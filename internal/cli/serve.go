package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"iot-ingest-backend/internal/api"
	"iot-ingest-backend/internal/auth"
	"iot-ingest-backend/internal/cache"
	"iot-ingest-backend/internal/config"
	"iot-ingest-backend/internal/db"
	"iot-ingest-backend/internal/ingest"
	k "iot-ingest-backend/internal/kafka"
	"iot-ingest-backend/internal/memstore"
	"iot-ingest-backend/internal/ownership"
	"iot-ingest-backend/internal/processors/lastvalue"
	"iot-ingest-backend/internal/registry"
	"iot-ingest-backend/internal/stock"
	"iot-ingest-backend/internal/timeline"
	"iot-ingest-backend/internal/users"
)

const brokerPollInterval = 2 * time.Second

// storage is everything the services need from a backend. Both *db.DB and
// *memstore.Store provide it.
type storage interface {
	CreateDevice(ctx context.Context, d db.Device) (db.Device, bool, error)
	GetDevice(ctx context.Context, deviceID string) (db.Device, error)
	GetDeviceBySerial(ctx context.Context, serialNumber string) (db.Device, error)
	ListDevices(ctx context.Context, offset, limit int) ([]db.Device, error)
	CountDevices(ctx context.Context) (int, error)
	ListDevicesByUser(ctx context.Context, userID string) ([]db.Device, error)
	UpdateDeviceName(ctx context.Context, deviceID, name string) (db.Device, error)
	UpdateDeviceSerial(ctx context.Context, deviceID, serialNumber string) (db.Device, error)
	UpdateDeviceValue(ctx context.Context, deviceID string, value float64, at time.Time) (db.Device, error)
	UpdateDeviceUnit(ctx context.Context, deviceID, unit string, at time.Time) (db.Device, error)
	UpdateLastReading(ctx context.Context, deviceID string, r db.Reading) (bool, error)
	AssignOwner(ctx context.Context, deviceID, userID string) (db.Device, error)
	UnassignOwner(ctx context.Context, deviceID string) (db.Device, error)
	DeleteDevice(ctx context.Context, serialNumber string) error

	WithDeviceLock(ctx context.Context, deviceID string, fn func(tx db.ReadingTx) error) error
	LatestReading(ctx context.Context, deviceID string) (*db.Reading, error)
	ListReadings(ctx context.Context, deviceID string) ([]db.Reading, error)

	CreateUser(ctx context.Context, u db.User) (db.User, error)
	GetUser(ctx context.Context, id string) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	ListUsers(ctx context.Context) ([]db.User, error)
	UpdateUser(ctx context.Context, id, name, email string) (db.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateStockDevice(ctx context.Context, s db.StockDevice) (db.StockDevice, error)
	ListStockDevices(ctx context.Context) ([]db.StockDevice, error)
	GetStockDevice(ctx context.Context, serialNumber string) (db.StockDevice, error)
	GetStockDeviceByDeviceID(ctx context.Context, deviceID string) (db.StockDevice, error)
	UpdateStockDevice(ctx context.Context, serialNumber string, lotNo, companyName *string) (db.StockDevice, error)
	DeleteStockDevice(ctx context.Context, serialNumber string) error
}

var (
	_ storage = (*db.DB)(nil)
	_ storage = (*memstore.Store)(nil)
)

// pingers reports healthy only when every dependency answers.
type pingers []func(ctx context.Context) error

func (p pingers) Ping(ctx context.Context) error {
	for _, ping := range p {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return serve(cmd.Context(), cfg)
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.InfoContext(ctx, "Starting service...")

	var checks pingers
	var store storage
	if cfg.DatabaseEnabled() {
		d, err := db.Init(ctx, db.Config{
			ConnString:     cfg.Database.URL,
			MigrationsPath: cfg.Database.MigrationsPath,
			MaxConns:       cfg.Database.MaxConns,
		})
		if err != nil {
			return err
		}
		defer d.Close()
		store = d
		checks = append(checks, d.Ping)
	} else {
		slog.WarnContext(ctx, "No database configured, using in-memory store")
		store = memstore.New()
	}

	var latest cache.Cache
	if cfg.RedisEnabled() {
		client := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := cache.Ping(ctx, client); err != nil {
			return err
		}
		latest = cache.NewRedisCache(cache.Config{KV: cache.NewRedisKVStore(client), TTL: cfg.Redis.TTL})
		checks = append(checks, func(ctx context.Context) error { return cache.Ping(ctx, client) })
	} else {
		latest = cache.NewMemoryCache()
	}

	ingestCfg := ingest.Config{Store: store, Cache: latest}
	var wg sync.WaitGroup
	if cfg.KafkaEnabled() {
		if err := k.WaitForBroker(ctx, cfg.Kafka.Brokers[0], cfg.Kafka.WaitTimeout, brokerPollInterval); err != nil {
			return err
		}
		publisher := k.NewPublisher(k.PublisherConfig{
			Writer: k.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.ReadingsTopic),
		})
		defer func() {
			closeCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer stop()
			publisher.Close(closeCtx)
		}()
		ingestCfg.Publisher = publisher

		lv := lastvalue.New(lastvalue.Config{
			Reader: k.NewReader(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.ReadingsTopic),
			Store:  store,
		})
		wg.Go(func() {
			lv.Run(ctx)
		})
		defer lv.Close(ctx)
	}

	tokens := auth.NewJWT(auth.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	apiCfg := api.Config{
		Registry:  registry.New(registry.Config{Store: store, MaxPageSize: cfg.Devices.MaxPageSize, Cache: latest}),
		Ingester:  ingest.New(ingestCfg),
		Timeline:  timeline.New(timeline.Config{Store: store, Cache: latest}),
		Ownership: ownership.New(ownership.Config{Store: store}),
		Users: users.New(users.Config{
			Store:  store,
			Hasher: auth.NewHasher(cfg.Auth.BcryptCost),
			Tokens: tokens,
		}),
		Stock:         stock.New(stock.Config{Store: store}),
		Auth:          tokens,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		SecureCookies: cfg.HTTP.SecureCookies,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	}
	if len(checks) > 0 {
		apiCfg.Health = checks
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.New(apiCfg).Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	slog.InfoContext(ctx, "Shutting down...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "HTTP shutdown failed", "error", err)
	}
	wg.Wait()
	return runErr
}
