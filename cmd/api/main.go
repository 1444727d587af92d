//go:generate swag init -g cmd/api/main.go -o docs --parseInternal

// @title        Library Core API
// @version      1.0
// @description  Multi-tenant library platform: staff, members, copies, circulation and invitations.
// @BasePath     /api/v1
// @securityDefinitions.apikey ActorID
// @in header
// @name X-Actor-ID
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fkhayef/librarycore/docs"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/catalog"
	"github.com/fkhayef/librarycore/internal/circulation"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/config"
	"github.com/fkhayef/librarycore/internal/database"
	"github.com/fkhayef/librarycore/internal/inventory"
	"github.com/fkhayef/librarycore/internal/invitation"
	"github.com/fkhayef/librarycore/internal/library"
	"github.com/fkhayef/librarycore/internal/logger"
	"github.com/fkhayef/librarycore/internal/member"
	"github.com/fkhayef/librarycore/internal/notification"
	"github.com/fkhayef/librarycore/internal/softdelete"
	"github.com/fkhayef/librarycore/internal/staff"
	mw "github.com/fkhayef/librarycore/pkg/middleware"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "librarycore",
		Short:         "Multi-tenant library platform API",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "No %s file found, using environment variables\n", envFile)
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")

	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply the schema and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: cmd.OutOrStdout()})
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: cmd.OutOrStdout()})

			db, err := open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

// open connects to the configured database and applies the schema
func open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sql.DB, error) {
	db, dialect, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Str("driver", string(dialect)).Msg("connected to database")
	return db, nil
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	clk := clock.System{}
	engine := authz.NewEngine(authz.NewRepository(db), log)

	// Notification feature
	notificationService := notification.NewService(notification.NewRepository(db), clk, log)
	notificationHandler := notification.NewHandler(notificationService)

	// Staff feature
	staffService := staff.NewService(db, staff.NewRepository(db), engine, clk, log)
	staffHandler := staff.NewHandler(staffService)

	// Library feature
	defaults := library.Settings{
		LoanPeriodDays: cfg.DefaultLoanPeriodDays,
		MaxRenewals:    cfg.DefaultMaxRenewals,
		LateFeeRate:    cfg.DefaultLateFeeRate,
	}
	libraryService := library.NewService(db, library.NewRepository(db), staffService, engine, defaults, clk, log)
	libraryHandler := library.NewHandler(libraryService)

	// Member feature
	memberService := member.NewService(member.NewRepository(db), engine, clk, log)
	memberHandler := member.NewHandler(memberService)

	// Catalog feature
	editionRepo := catalog.NewRepository(db)
	catalogHandler := catalog.NewHandler(catalog.NewService(db, editionRepo, engine, clk, log))

	// Inventory feature
	inventoryHandler := inventory.NewHandler(inventory.NewService(db, inventory.NewRepository(db), editionRepo, engine, clk, log))

	// Soft delete and restore across staff, members and copies
	softdeleteHandler := softdelete.NewHandler(softdelete.NewService(db, softdelete.NewRepository(db), engine, clk, log))

	// Circulation feature
	circulationHandler := circulation.NewHandler(circulation.NewService(db, circulation.NewRepository(db), engine, notificationService, clk, log))

	// Invitation feature
	invitationService := invitation.NewService(db, invitation.NewRepository(db), staffService, memberService, engine, notificationService, cfg.InvitationTTL, clk, log)
	invitationHandler := invitation.NewHandler(invitationService)

	authzHandler := authz.NewHandler(engine, mw.GetActor)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(mw.ActorMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Invitation lookups are open to anyone holding the token
		r.Get("/invitations/{token}", invitationHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireActor)

			r.Route("/libraries", func(r chi.Router) {
				libraryHandler.Register(r)

				staffRoutes := staffHandler.Routes()
				softdeleteHandler.Mount(staffRoutes, softdelete.CollectionStaff)
				r.Mount("/{libraryId}/staff", staffRoutes)

				memberRoutes := memberHandler.Routes()
				softdeleteHandler.Mount(memberRoutes, softdelete.CollectionMembers)
				r.Mount("/{libraryId}/members", memberRoutes)

				copyRoutes := inventoryHandler.Routes()
				softdeleteHandler.Mount(copyRoutes, softdelete.CollectionCopies)
				r.Mount("/{libraryId}/copies", copyRoutes)

				r.Mount("/{libraryId}/transactions", circulationHandler.LibraryRoutes())
				r.Mount("/{libraryId}/invitations", invitationHandler.LibraryRoutes())
			})

			r.Mount("/me", authzHandler.Routes())
			r.Mount("/editions", catalogHandler.Routes())
			r.Mount("/transactions", circulationHandler.Routes())
			r.Post("/invitations/{token}/accept", invitationHandler.Accept)
			r.Post("/invitations/{token}/decline", invitationHandler.Decline)
			r.Mount("/notifications", notificationHandler.Routes())
		})
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
