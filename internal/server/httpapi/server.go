// Package httpapi exposes the session, donation and request use cases over
// a chi router with a JSON envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/logging"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/dmitrijs2005/donationhub/internal/server/ratelimit"
	"github.com/dmitrijs2005/donationhub/internal/server/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type SessionService interface {
	SignIn(ctx context.Context, role models.Role, email, password string) (*services.AuthResult, error)
	SignUp(ctx context.Context, role models.Role, in services.SignUpInput) (*services.AuthResult, error)
	SignOut(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

type DonationService interface {
	ListDonations(ctx context.Context, page services.PageRequest, filter services.DonationFilter) (*services.Page[services.DonationListing], error)
	CreateDonation(ctx context.Context, userID string, in services.NewDonation) (*services.CreatedDonation, error)
}

type RequestService interface {
	CreateRequest(ctx context.Context, userID string, in services.NewRequest) (*models.Request, error)
	ListRequests(ctx context.Context, userID string, page services.PageRequest) (*services.Page[models.Request], error)
}

type ReferenceData interface {
	Entries(table models.LookupTable) []models.LookupEntry
}

// Options tunes cookies and the auth rate limit. A nil Limiter or a
// non-positive AuthRateLimit disables rate limiting.
type Options struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Limiter         ratelimit.Limiter
	AuthRateLimit   int
	AuthRateWindow  time.Duration
}

type HTTPServer struct {
	address   string
	sessions  SessionService
	donations DonationService
	requests  RequestService
	reference ReferenceData
	opts      Options
	logger    logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, ss SessionService, ds DonationService, rs RequestService,
	ref ReferenceData, opts Options) *HTTPServer {
	if opts.AuthRateWindow <= 0 {
		opts.AuthRateWindow = time.Minute
	}
	return &HTTPServer{
		address:   address,
		sessions:  ss,
		donations: ds,
		requests:  rs,
		reference: ref,
		opts:      opts,
		logger:    l.With("module", "http_server"),
	}
}

// Router builds the route tree.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "ok", nil, nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/sign-in/{role}", s.signIn)
			r.Post("/sign-up/{role}", s.signUp)
			r.Post("/sign-out", s.signOut)
			r.Post("/refresh", s.refresh)
		})

		r.Get("/categories", s.listReference(models.TableCategories))
		r.Get("/collection-centers", s.listReference(models.TableCollectionCenters))

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccessToken)
			r.Get("/donations", s.listDonations)
			r.Post("/donations", s.createDonation)
			r.Get("/requests", s.listRequests)
			r.Post("/requests", s.createRequest)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
