// Package httpapi is the HTTP surface of the server: a chi router with
// access logging, CORS, bearer-token sessions, route guards and JSON
// envelope responses.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
	"github.com/dmitrijs2005/gophadmin/internal/server/guard"
	"github.com/dmitrijs2005/gophadmin/internal/server/identity"
	"github.com/dmitrijs2005/gophadmin/internal/server/metrics"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
	"github.com/dmitrijs2005/gophadmin/internal/server/upload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// IdentityService is what the handlers need from identity.Service.
type IdentityService interface {
	Register(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	Login(ctx context.Context, email, password string) (string, *models.Identity, error)
	EnsureExternal(ctx context.Context, ext *models.Identity) (*models.Identity, error)
	Get(ctx context.Context, id string) (*models.Identity, error)
	UpdateProfile(ctx context.Context, id string, upd identity.ProfileUpdate) (*models.Identity, error)
	SetRoles(ctx context.Context, id string, roles []string) (*models.Identity, error)
	List(ctx context.Context, q models.QueryOptions) ([]models.Identity, int64, error)
	RegisterDevice(ctx context.Context, userID, token, platform string) (*models.DeviceToken, error)
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
}

// UploadService is what the handlers need from upload.Service.
type UploadService interface {
	Validate(f *upload.File) upload.ValidationResult
	Compress(f *upload.File, maxWidth int, quality float64) *upload.File
	Upload(ctx context.Context, f *upload.File, dir string) (models.UploadResult, error)
	UploadMultiple(ctx context.Context, files []*upload.File, dir string) ([]models.UploadResult, error)
	Remove(ctx context.Context, rawURL string) error
}

// Deps are the collaborators of the API. Events and Metrics may be nil.
type Deps struct {
	Config     *config.Config
	Logger     logging.Logger
	Verifier   auth.Verifier
	Identities IdentityService
	Uploads    UploadService
	Dispatcher push.Dispatcher
	Events     push.EventPublisher
	Metrics    *metrics.Metrics
}

// API holds the handlers.
type API struct {
	cfg        *config.Config
	logger     logging.Logger
	identities IdentityService
	uploads    UploadService
	dispatcher push.Dispatcher
	events     push.EventPublisher
}

// Routes guarded by role.
var (
	authenticatedRoute = guard.Route{}
	uploaderRoute      = guard.Route{Roles: []string{common.RoleAdmin, common.RoleEditor}}
	adminRoute         = guard.Route{Roles: []string{common.RoleAdmin}, Permissions: []string{"users.read", "users.write"}}
)

// NewRouter wires the full HTTP surface.
func NewRouter(d Deps) http.Handler {
	a := &API{
		cfg:        d.Config,
		logger:     d.Logger.With("module", "http"),
		identities: d.Identities,
		uploads:    d.Uploads,
		dispatcher: d.Dispatcher,
		events:     d.Events,
	}

	var (
		obs      httpObserver
		recorder guard.Recorder
	)
	if d.Metrics != nil {
		obs, recorder = d.Metrics, d.Metrics
	}
	g := guard.New(d.Config.SignInPath, d.Config.UnauthorizedPath, recorder)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDHeader)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.logger, obs))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", common.AuthorizationHeaderName, "Content-Type", common.RequestIDHeaderName},
		ExposedHeaders:   []string{common.RequestIDHeaderName},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(auth.Authenticate(d.Verifier, a.logger))

	r.Get("/health", a.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	r.Get("/config", a.clientConfig)
	r.Get(d.Config.SignInPath, a.signIn)
	r.Get(d.Config.UnauthorizedPath, a.unauthorized)

	r.Post("/auth/register", a.register)
	r.Post("/auth/login", a.login)

	r.Group(func(r chi.Router) {
		r.Use(g.Require(authenticatedRoute))
		r.Use(a.provisionExternal)
		r.Get("/me", a.me)
		r.Patch("/me/profile", a.updateProfile)
		r.Post("/notifications/devices", a.registerDevice)
		r.Post("/notifications/clicks", a.notificationClick)
	})

	r.Route("/uploads", func(r chi.Router) {
		r.Use(g.Require(uploaderRoute))
		r.Use(a.provisionExternal)
		r.Use(newRateLimiter(d.Config.UploadRatePerMinute).middleware)
		r.Post("/", a.createUpload)
		r.Delete("/", a.deleteUpload)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(g.Require(adminRoute))
		r.Use(a.provisionExternal)
		r.Get("/users", a.listUsers)
		r.Put("/users/{id}/roles", a.setRoles)
		r.Post("/notifications", a.sendNotification)
	})

	return r
}

// requestIDHeader echoes the request id assigned by middleware.RequestID.
func requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(common.RequestIDHeaderName, id)
		}
		next.ServeHTTP(w, r)
	})
}

func currentIdentity(r *http.Request) *models.Identity {
	return auth.SessionFrom(r.Context()).Identity
}
