package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nanumlink/nanumlink-backend/api/controllers"
	"github.com/nanumlink/nanumlink-backend/api/middleware"
	"github.com/nanumlink/nanumlink-backend/internal/auth"
	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/internal/matches"
	"github.com/nanumlink/nanumlink-backend/internal/notifications"
	"github.com/nanumlink/nanumlink-backend/internal/organizations"
	"github.com/nanumlink/nanumlink-backend/internal/pickups"
	"github.com/nanumlink/nanumlink-backend/internal/quotes"
	"github.com/nanumlink/nanumlink-backend/internal/receipts"
	"github.com/nanumlink/nanumlink-backend/pkg/auth/session"
	"github.com/nanumlink/nanumlink-backend/pkg/config"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/metrics"
	"github.com/nanumlink/nanumlink-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs wired in.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	SessionManager session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics

	AuthService         auth.Service
	OrganizationService organizations.Service
	DonationService     donations.Service
	MatchService        matches.Service
	QuoteService        quotes.Service
	PickupService       pickups.Service
	ReceiptService      receipts.Service
	NotificationService notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).
			Post("/login", controllers.Login(d.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(signupPolicy, d.Redis, logg),
			middleware.Idempotency(d.Redis, logg),
		).Post("/signup", controllers.Signup(d.AuthService, logg))
	})

	// Organization registration is open: applicants have no account yet.
	r.With(middleware.Idempotency(d.Redis, logg)).
		Post("/api/v1/organizations", controllers.OrganizationRegister(d.OrganizationService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.SessionManager, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Get("/organizations/{orgID}", controllers.OrganizationGet(d.OrganizationService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(d.NotificationService, logg))
			r.Post("/{notificationID}/read", controllers.NotificationMarkRead(d.NotificationService, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(d.NotificationService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, "business", "admin"))
			r.Get("/donations", controllers.DonationList(d.DonationService, logg))
			r.Get("/donations/{donationID}", controllers.DonationGet(d.DonationService, logg))
			r.Get("/donations/{donationID}/matches", controllers.DonationMatchList(d.MatchService, logg))
			r.Get("/donations/{donationID}/remaining", controllers.DonationRemainingQuantity(d.MatchService, logg))
			r.Get("/donations/{donationID}/quotes", controllers.DonationQuoteList(d.QuoteService, logg))
			r.Get("/donations/{donationID}/pickups/latest", controllers.DonationPickupLatest(d.PickupService, logg))
			r.Get("/quotes/{quoteID}", controllers.QuoteGet(d.QuoteService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("business", logg))
			r.Post("/donations", controllers.DonationCreate(d.DonationService, logg))
			r.Post("/donations/{donationID}/pickups", controllers.DonationPickupSchedule(d.PickupService, logg))
			r.Post("/quotes/{quoteID}/respond", controllers.QuoteRespond(d.QuoteService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("beneficiary", logg))
			r.Get("/matches", controllers.MatchList(d.MatchService, logg))
			r.Post("/matches/{matchID}/respond", controllers.MatchRespond(d.MatchService, logg))
			r.Post("/matches/{matchID}/receive", controllers.MatchReceive(d.MatchService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/organizations", controllers.AdminOrganizationList(d.OrganizationService, logg))
			r.Post("/organizations/{orgID}/review", controllers.AdminOrganizationReview(d.OrganizationService, logg))
			r.Route("/donations/{donationID}", func(r chi.Router) {
				r.Post("/reject", controllers.AdminDonationReject(d.DonationService, logg))
				r.Post("/complete", controllers.AdminDonationComplete(d.DonationService, logg))
				r.Post("/matches", controllers.AdminMatchPropose(d.MatchService, logg))
				r.Post("/quotes", controllers.AdminQuoteIssue(d.QuoteService, logg))
				r.Post("/pickups", controllers.AdminPickupSchedule(d.PickupService, logg))
			})
			r.Post("/matches/{matchID}/receipt", controllers.AdminReceiptIssue(d.ReceiptService, logg))
		})
	})

	return r
}
