package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fieldops/internal/auth"
	"fieldops/internal/config"
	"fieldops/internal/httpapi"
	"fieldops/internal/logging"
	"fieldops/internal/mailer"
	"fieldops/internal/models"
	"fieldops/internal/store"
	"fieldops/internal/store/postgres"
	"fieldops/internal/telemetry"
	"fieldops/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	cfg    config.Config
	logger *zap.Logger

	adminEmail      string
	adminName       string
	adminEmployeeID string
	adminPassword   string
	adminContact    string
)

var rootCmd = &cobra.Command{
	Use:           "fieldops",
	Short:         "Field operations backend: customers, cards, claims and camps",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Config{
			Development: cfg.IsDevelopment(),
			Level:       cfg.LogLevel,
			Encoding:    cfg.LogEncoding,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()
		applied, err := migrations.Apply(cmd.Context(), pool)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", zap.Strings("files", applied))
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := store.CreateUserInput{
			EmployeeID: strings.TrimSpace(adminEmployeeID),
			Name:       strings.TrimSpace(adminName),
			Email:      strings.TrimSpace(adminEmail),
			Contact:    strings.TrimSpace(adminContact),
			Password:   adminPassword,
			Role:       models.RoleAdmin,
		}
		if input.EmployeeID == "" || input.Name == "" || input.Email == "" {
			return errors.New("--employee-id, --name and --email are required")
		}
		if len(input.Password) < 8 {
			return errors.New("--password must be at least 8 characters")
		}

		pool, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()
		st := postgres.NewStore(pool)
		defer st.Close()

		user, err := st.CreateUser(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		logger.Info("admin created", zap.String("user_id", user.UserID), zap.String("email", user.Email))
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Admin display name (required)")
	createAdminCmd.Flags().StringVar(&adminEmployeeID, "employee-id", "", "Admin employee id (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Initial password, at least 8 characters")
	createAdminCmd.Flags().StringVar(&adminContact, "contact", "", "Contact number")

	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

const serverWriteTimeout = 10 * time.Second

// mailDeadline caps emails sent inside a request so the handler can still
// answer before the write deadline.
func mailDeadline(mailerTimeout, writeTimeout time.Duration) time.Duration {
	limit := writeTimeout - 2*time.Second
	if mailerTimeout > 0 && mailerTimeout < limit {
		return mailerTimeout
	}
	return limit
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DB_DSN is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return pool, nil
}

func serve(ctx context.Context) error {
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	defer st.Close()

	shutdownTracing := telemetry.Setup("fieldops", cfg.AppEnv, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown error", zap.Error(err))
		}
	}()

	sender := mailer.New(mailer.Config{
		Provider: cfg.MailerProvider,
		Command:  cfg.MailerCommand,
		From:     cfg.MailerFrom,
		Timeout:  cfg.MailerTimeout,
	}, logger)

	handler := httpapi.NewHandler(st, issuer, sender, logger, httpapi.Options{
		ResetTokenTTL: cfg.ResetTokenTTL,
		AppBaseURL:    cfg.AppBaseURL,
		MailTimeout:   mailDeadline(cfg.MailerTimeout, serverWriteTimeout),
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:       cfg.RateLimitPerMinute,
		IPBurst:           cfg.RateLimitBurst,
		LoginPerMinute:    cfg.LoginRateLimitPerMinute,
		LoginBurst:        cfg.LoginRateLimitBurst,
		TrustForwardedFor: cfg.TrustProxyHeaders,
	})

	var routes http.Handler = httpapi.AuthMiddleware(issuer, st, handler.Routes())
	routes = httpapi.LoggingMiddleware(logger, routes)
	routes = limiter.Middleware(routes)
	routes = httpapi.CORSMiddleware(cfg.CORSAllowedOrigins, routes)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(routes, "fieldops"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("fieldops listening", zap.String("addr", server.Addr), zap.String("mailer", cfg.MailerProvider))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	handler.Wait()
	logger.Info("fieldops stopped")
	return nil
}
