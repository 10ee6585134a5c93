package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MyBusinesspace/MBP-sub007/internal/assignment"
	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/config"
	"github.com/MyBusinesspace/MBP-sub007/internal/httpapi"
	"github.com/MyBusinesspace/MBP-sub007/internal/logging"
	"github.com/MyBusinesspace/MBP-sub007/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the attendance HTTP API until interrupted.

Callers authenticate with a bearer token signed with auth.jwt_secret, or,
when server.trust_actor_header is set, with the actor header (X-Actor-ID
by default). Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logging.New(cfg.Log))
	},
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	st, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer st.Close()

	tracker, err := buildTracker(cfg.Assignments, log)
	if err != nil {
		return err
	}

	metrics := attendance.NewMetrics()
	svc := attendance.New(st,
		attendance.WithLogger(log),
		attendance.WithMetrics(metrics),
		attendance.WithTracker(tracker),
		attendance.WithTracer(telemetry.Tracer()),
		attendance.WithPolicy(policyFrom(cfg.Policy)),
	)

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("path", cfg.Storage.Path).
		Bool("strict_approval", cfg.Policy.StrictApproval).
		Msg("starting timeclock api")

	handler := httpapi.NewHandler(svc, resolver, log, metrics.Handler())
	return httpapi.NewServer(cfg.Server.Addr, handler, log).ListenAndServe(ctx)
}

// buildResolver chains the bearer token and header resolvers that the
// config enables. At least one must be enabled.
func buildResolver(cfg config.Config) (auth.Resolver, error) {
	directory := auth.NewDirectory(cfg.Auth.Privileged())

	var chain auth.Chain
	if cfg.Auth.JWTSecret != "" {
		chain = append(chain, auth.TokenResolver{
			Secret:    []byte(cfg.Auth.JWTSecret),
			Issuer:    cfg.Auth.JWTIssuer,
			Directory: directory,
		})
	}
	if cfg.Server.TrustActorHeader {
		chain = append(chain, auth.HeaderResolver{Header: cfg.Server.ActorHeader, Directory: directory})
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no authentication configured: set auth.jwt_secret or server.trust_actor_header")
	}
	return chain, nil
}

func buildTracker(cfg config.AssignmentsConfig, log zerolog.Logger) (assignment.Tracker, error) {
	if cfg.StatusURL == "" {
		return assignment.Noop{}, nil
	}
	tracker, err := assignment.NewHTTPTracker(cfg.StatusURL, assignment.Options{
		Timeout:  cfg.Timeout.Std(),
		RetryMax: cfg.RetryMax,
		Logger:   &log,
	})
	if err != nil {
		return nil, err
	}
	return tracker, nil
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
