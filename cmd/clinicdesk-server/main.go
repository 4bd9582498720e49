package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/internal/domain/booking"
	"github.com/clinicdesk/clinicdesk/internal/domain/directory"
	"github.com/clinicdesk/clinicdesk/internal/domain/reporting"
	"github.com/clinicdesk/clinicdesk/internal/domain/token"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/internal/platform/jobs"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
)

// ApptSourceAdapter adapts an appointment.Repository to the
// availability.AppointmentSource interface, avoiding a circular import
// between the availability and appointment packages.
type ApptSourceAdapter struct {
	repo appointment.Repository
}

func NewApptSourceAdapter(repo appointment.Repository) *ApptSourceAdapter {
	return &ApptSourceAdapter{repo: repo}
}

// ListActiveIntervals implements availability.AppointmentSource.
func (a *ApptSourceAdapter) ListActiveIntervals(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]availability.BookedInterval, error) {
	appts, err := a.repo.ListActiveIntervals(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]availability.BookedInterval, 0, len(appts))
	for _, ap := range appts {
		out = append(out, availability.BookedInterval{
			AppointmentID: ap.ID,
			Start:         ap.StartTime,
			End:           ap.EndTime,
			Status:        string(ap.Status),
		})
	}
	return out, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicdesk-server",
		Short: "Clinic appointment scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(noShowSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func noShowSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "noshow-sweep",
		Short: "Mark overdue appointments as no-shows and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			tokenSvc := token.NewService(token.NewRepoPG(pool))
			apptSvc := appointment.NewService(appointment.NewRepoPG(pool), tokenSvc, cfg.CancelLeadTime())
			sweeper := jobs.NewNoShowSweeper(apptSvc, cfg.NoShowGrace())

			swept, err := sweeper.RunNow(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Swept %d appointment(s) to no-show.\n", swept)
			return nil
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repositories
	directoryRepo := directory.NewRepoPG(pool)
	windowRepo := availability.NewWindowRepoPG(pool)
	timeOffRepo := availability.NewTimeOffRepoPG(pool)
	apptRepo := appointment.NewRepoPG(pool)
	tokenRepo := token.NewRepoPG(pool)

	// Services
	tokenSvc := token.NewService(tokenRepo)
	apptSvc := appointment.NewService(apptRepo, tokenSvc, cfg.CancelLeadTime())
	availSvc := availability.NewService(windowRepo, timeOffRepo, NewApptSourceAdapter(apptRepo), cfg.Location())
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	bookingSvc := booking.NewService(directoryRepo, availSvc, apptRepo, apptSvc, tokenSvc, runTx)
	reportingSvc := reporting.NewService(apptRepo, cfg.Location())

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Route surfaces: the patient-facing group is open, the staff group
	// resolves an actor from the JWT (or a dev actor outside production),
	// and the self-service group authenticates by action token alone.
	publicAPI := e.Group("/api/v1")
	staffAPI := e.Group("/api/v1")
	if cfg.IsDev() {
		staffAPI.Use(auth.DevAuthMiddleware())
	} else {
		staffAPI.Use(auth.JWTMiddleware([]byte(cfg.JWTSecret)))
	}
	selfService := e.Group("/self-service")

	// Handlers
	availability.NewHandler(availSvc).RegisterRoutes(staffAPI)
	appointment.NewHandler(apptSvc).RegisterRoutes(staffAPI)
	booking.NewHandler(bookingSvc).RegisterRoutes(publicAPI, staffAPI, selfService)
	reporting.NewHandler(reportingSvc).RegisterRoutes(staffAPI)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/ready", db.ReadyHandler(pool))

	// Optional no-show sweeper
	if cfg.NoShowSweepCron != "" {
		sweeper := jobs.NewNoShowSweeper(apptSvc, cfg.NoShowGrace())
		if err := sweeper.Start(cfg.NoShowSweepCron); err != nil {
			logger.Fatal().Err(err).Msg("failed to start no-show sweeper")
		}
		defer sweeper.Stop()
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
