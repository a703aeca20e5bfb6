// Package api exposes the sweep trigger, the admin notification relay and
// the proposal endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"venuebook/internal/models"
	"venuebook/internal/notify"
	"venuebook/internal/proposals"
	"venuebook/internal/sweeper"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Sweeper interface {
	Run(ctx context.Context) (sweeper.Summary, error)
}

type ProposalService interface {
	Propose(ctx context.Context, in proposals.ProposeInput) (*models.Booking, *models.ProposedSlot, error)
	Validate(ctx context.Context, slotID string, choice models.SlotChoice, therapistID string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID string) (*models.Booking, error)
}

type VenueStore interface {
	UpsertVenue(ctx context.Context, v *models.Venue) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Deps wires the handlers. Nil optional fields disable their routes or checks.
type Deps struct {
	Sweeper   Sweeper
	Proposals ProposalService
	Venues    VenueStore

	// Relay serves POST /functions/trigger-admin-notification when set.
	Relay    notify.Dispatcher
	RelayKey string

	Store Pinger
	Redis RedisPinger

	Gatherer prometheus.Gatherer
}

type handler struct {
	deps   Deps
	logger zerolog.Logger
}

// NewRouter builds the gin engine with every route the deps allow.
func NewRouter(deps Deps, logger *zerolog.Logger) *gin.Engine {
	h := &handler{deps: deps, logger: logger.With().Str("component", "api").Logger()}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", requestIDHeader},
		ExposeHeaders:   []string{requestIDHeader},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(RequestID())
	r.Use(Logger(&h.logger))

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	functions := r.Group("/functions")
	if deps.Sweeper != nil {
		functions.Any("/check-expired-slots", h.checkExpiredSlots)
	}
	if deps.Relay != nil {
		functions.POST("/trigger-admin-notification", BearerAuth(deps.RelayKey), h.triggerAdminNotification)
	}

	if deps.Proposals != nil {
		r.POST("/bookings/proposals", h.createProposal)
		r.POST("/bookings/:id/cancel", h.cancelBooking)
		r.POST("/proposals/:id/validate", h.validateProposal)
	}
	if deps.Venues != nil {
		r.POST("/venues", h.upsertVenue)
	}

	return r
}

// Server runs an http.Server until its context ends.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

func NewServer(addr string, readTimeout, writeTimeout time.Duration, handler http.Handler, logger *zerolog.Logger) *Server {
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout <= 0 {
		// a sweep answers only after every notification was attempted
		writeTimeout = 3 * time.Minute
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		logger: logger.With().Str("component", "http").Logger(),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("http server stopped")
	return <-errCh
}
