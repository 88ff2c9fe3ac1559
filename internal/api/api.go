// Package api exposes the HTTP surface. Handlers translate requests into
// service calls and service errors into the JSON envelope.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"iot-ingest-backend/internal/auth"
	"iot-ingest-backend/internal/db"
	"iot-ingest-backend/internal/ingest"
	"iot-ingest-backend/internal/registry"
	"iot-ingest-backend/internal/users"
)

const refreshCookie = "refreshToken"

type deviceRegistry interface {
	Register(ctx context.Context, in registry.RegisterInput) (db.Device, bool, error)
	FindBySerial(ctx context.Context, serialNumber string) (db.Device, error)
	Rename(ctx context.Context, deviceID, name string) (db.Device, error)
	ChangeSerial(ctx context.Context, deviceID, serialNumber string) (db.Device, error)
	UpdateLastValue(ctx context.Context, deviceID string, value float64) (db.Device, error)
	UpdateUnit(ctx context.Context, deviceID, unit string) (db.Device, error)
	ListPage(ctx context.Context, page, pageSize int) (registry.Page, error)
	Delete(ctx context.Context, serialNumber string) error
}

type readingIngester interface {
	IngestBatch(ctx context.Context, serialNumber string, candidates []ingest.Candidate) (int, error)
	IngestOne(ctx context.Context, serialNumber string, c ingest.Candidate) (db.Reading, bool, error)
}

type readingTimeline interface {
	Latest(ctx context.Context, serialNumber string) (*db.Reading, error)
	Records(ctx context.Context, serialNumber string) ([]db.Reading, error)
}

type ownershipLedger interface {
	Assign(ctx context.Context, deviceID, userID string) (db.Device, error)
	Unassign(ctx context.Context, deviceID string) (db.Device, error)
	DevicesForUser(ctx context.Context, userID string) ([]db.Device, error)
	OwnerOf(ctx context.Context, deviceID string) (*db.User, error)
}

type userService interface {
	Create(ctx context.Context, in users.CreateInput) (db.User, auth.Tokens, error)
	Login(ctx context.Context, email, password string) (db.User, auth.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error)
	Get(ctx context.Context, id string) (db.User, error)
	List(ctx context.Context) ([]db.User, error)
	Update(ctx context.Context, id, name, email string) (db.User, error)
	Delete(ctx context.Context, id string) error
}

type stockService interface {
	Create(ctx context.Context, in db.StockDevice) (db.StockDevice, error)
	List(ctx context.Context) ([]db.StockDevice, error)
	Get(ctx context.Context, serialNumber string) (db.StockDevice, error)
	GetByDeviceID(ctx context.Context, deviceID string) (db.StockDevice, error)
	Update(ctx context.Context, serialNumber string, lotNo, companyName *string) (db.StockDevice, error)
	Delete(ctx context.Context, serialNumber string) error
}

// healthChecker reports whether a backing dependency is reachable.
type healthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Registry  deviceRegistry
	Ingester  readingIngester
	Timeline  readingTimeline
	Ownership ownershipLedger
	Users     userService
	Stock     stockService
	Auth      auth.Authenticator

	// Optional. Nil reports healthy.
	Health healthChecker

	CORSOrigins   []string
	SecureCookies bool
	RefreshTTL    time.Duration
}

type API struct {
	registry      deviceRegistry
	ingester      readingIngester
	timeline      readingTimeline
	ownership     ownershipLedger
	users         userService
	stock         stockService
	auth          auth.Authenticator
	health        healthChecker
	corsOrigins   []string
	secureCookies bool
	refreshTTL    time.Duration
	now           func() time.Time
}

func New(cfg Config) *API {
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = auth.DefaultRefreshTTL
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &API{
		registry:      cfg.Registry,
		ingester:      cfg.Ingester,
		timeline:      cfg.Timeline,
		ownership:     cfg.Ownership,
		users:         cfg.Users,
		stock:         cfg.Stock,
		auth:          cfg.Auth,
		health:        cfg.Health,
		corsOrigins:   origins,
		secureCookies: cfg.SecureCookies,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", a.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.Login)
		r.Post("/refresh-token", a.RefreshToken)
		r.Post("/logout", a.Logout)
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/", a.CreateUser)
		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Get("/", a.ListUsers)
			r.Get("/{id}", a.GetUser)
			r.Put("/{id}", a.UpdateUser)
			r.Delete("/{id}", a.DeleteUser)
		})
	})

	r.Route("/device", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Post("/register", a.RegisterDevice)
		r.Get("/", a.ListDevices)
		r.Get("/serial/{serialNumber}", a.GetDeviceBySerial)
		r.Delete("/{serialNumber}", a.DeleteDevice)
		r.Post("/updateName/{deviceId}", a.UpdateDeviceName)
		r.Post("/updateSerialNumber/{deviceId}", a.UpdateDeviceSerial)
		r.Post("/updateLastValue/{deviceId}", a.UpdateDeviceLastValue)
		r.Post("/updateDeviceUnit/{deviceId}", a.UpdateDeviceUnit)
		r.Post("/data", a.IngestOne)
		r.Post("/data/bulk", a.IngestBatch)
		r.Get("/{serialNumber}/lastedRecord", a.GetLatestRecord)
		r.Get("/{serialNumber}/records", a.GetRecords)
	})

	r.Route("/device-user", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Post("/assign", a.AssignDevice)
		r.Delete("/unassign/{deviceId}", a.UnassignDevice)
		r.Get("/user/{userId}/devices", a.GetUserDevices)
		r.Get("/device/{deviceId}/user", a.GetDeviceOwner)
	})

	r.Route("/stock-device", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Post("/", a.CreateStockDevice)
		r.Get("/", a.ListStockDevices)
		r.Get("/device/{deviceId}", a.GetStockDeviceByDeviceID)
		r.Get("/{serialNumber}", a.GetStockDevice)
		r.Put("/{serialNumber}", a.UpdateStockDevice)
		r.Delete("/{serialNumber}", a.DeleteStockDevice)
	})

	r.With(a.requireAuth).Get("/calculations/analysis/{val}", a.Analyze)

	return r
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.health.Ping(ctx); err != nil {
			respond(w, http.StatusServiceUnavailable, "Unavailable", map[string]string{"status": "down"})
			return
		}
	}
	respond(w, http.StatusOK, "OK", map[string]string{"status": "ok"})
}
