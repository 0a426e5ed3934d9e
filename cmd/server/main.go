package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/carealert/internal/config"
	"github.com/Skufu/carealert/internal/emergency"
	"github.com/Skufu/carealert/internal/server"
	"github.com/Skufu/carealert/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "carealert",
		Short:        "Medical emergency detection service",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return runServer(cfg, newLogger(cfg, os.Stdout))
		},
	}
}

type detectOptions struct {
	symptoms   []string
	disease    string
	confidence float64
	severity   string
	rulesFile  string
	ambulance  string
}

func detectCmd() *cobra.Command {
	var opts detectOptions
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Assess symptoms once and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			withPrediction := opts.disease != "" || opts.severity != "" || cmd.Flags().Changed("confidence")
			return runDetect(cmd.Context(), cmd.OutOrStdout(), opts, withPrediction)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.symptoms, "symptom", "s", nil, "Reported symptom (repeatable or comma separated)")
	cmd.Flags().StringVar(&opts.disease, "disease", "", "Predicted disease")
	cmd.Flags().Float64Var(&opts.confidence, "confidence", 0, "Prediction confidence in [0,1]")
	cmd.Flags().StringVar(&opts.severity, "severity", "", "Prediction severity (Low, Medium, High)")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "YAML file with extra emergency rules")
	cmd.Flags().StringVar(&opts.ambulance, "ambulance-number", "911", "Ambulance contact number")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for the rules endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return runToken(cmd.OutOrStdout(), []byte(cfg.AdminJWTSecret), subject, ttl)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		logger = logger.Level(lvl)
	}
	return logger
}

// buildDetector assembles the rule set and contact book. sink may be nil.
func buildDetector(rulesFile, ambulanceNumber string, sink emergency.LogSink, logger zerolog.Logger) (*emergency.Detector, error) {
	rules := emergency.NewRuleSet(nil)
	if rulesFile != "" {
		rf, err := emergency.LoadRulesFile(rulesFile)
		if err != nil {
			return nil, err
		}
		if err := rf.Apply(rules); err != nil {
			return nil, err
		}
		logger.Info().Str("file", rulesFile).Msg("loaded extra emergency rules")
	}

	contacts := emergency.DefaultContacts()
	if ambulanceNumber != "" {
		contacts[emergency.AmbulanceContact] = ambulanceNumber
	}

	return emergency.NewDetector(emergency.Config{
		Rules:    rules,
		Contacts: contacts,
		Sink:     sink,
		Logger:   logger,
	}), nil
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	opts := server.Options{
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AdminSecret:    []byte(cfg.AdminJWTSecret),
	}

	var sink emergency.LogSink
	if cfg.EnableDB {
		db, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()
		logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")
		sink, opts.DB, opts.History = db, db, db
	}

	detector, err := buildDetector(cfg.RulesFile, cfg.AmbulanceNumber, sink, logger)
	if err != nil {
		return err
	}
	opts.Detector = detector
	if !cfg.AdminEnabled() {
		logger.Info().Msg("ADMIN_JWT_SECRET not set; rule administration disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("server listening")
	return waitForShutdown(srv, errCh, logger)
}

func waitForShutdown(srv *http.Server, errCh <-chan error, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func runDetect(ctx context.Context, w io.Writer, opts detectOptions, withPrediction bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	detector, err := buildDetector(opts.rulesFile, opts.ambulance, nil, zerolog.Nop())
	if err != nil {
		return err
	}

	var prediction *emergency.Prediction
	if withPrediction {
		prediction = &emergency.Prediction{
			Disease:    opts.disease,
			Confidence: opts.confidence,
			Severity:   opts.severity,
		}
	}

	resp := detector.AssessWithPrediction(ctx, opts.symptoms, prediction)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runToken(w io.Writer, secret []byte, subject string, ttl time.Duration) error {
	tok, err := server.MintAdminToken(secret, subject, ttl)
	if err != nil {
		if errors.Is(err, server.ErrMissingSecret) {
			return fmt.Errorf("ADMIN_JWT_SECRET must be set to mint tokens")
		}
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}
