package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/boltstore"
	"github.com/MyBusinesspace/MBP-sub007/internal/config"
	"github.com/MyBusinesspace/MBP-sub007/internal/db"
	"github.com/MyBusinesspace/MBP-sub007/internal/logging"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	actAs      string
)

var rootCmd = &cobra.Command{
	Use:   "timeclock",
	Short: "Employee attendance from the terminal",
	Long: `timeclock records work sessions: clock in and out, switch between
assignments during the day, attach location samples and run the
edit-request approval workflow. "timeclock serve" exposes the same
operations over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	store  store.SessionStore
	svc    *attendance.Service
	caller auth.Actor
}

func (a *app) Close() error {
	return a.store.Close()
}

// openStore opens the backend named by cfg.Driver.
func openStore(cfg config.StorageConfig) (store.SessionStore, error) {
	if cfg.Driver == config.DriverBolt {
		st, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := db.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func policyFrom(cfg config.PolicyConfig) attendance.Policy {
	return attendance.Policy{
		StrictApproval:      cfg.StrictApproval,
		AllowPrivilegedEdit: cfg.AllowPrivilegedEdit,
		MaxTrackingPoints:   cfg.MaxTrackingPoints,
	}
}

// localActor picks who the CLI acts as: --as, then cli.actor, then $USER.
func localActor(cfg config.Config) string {
	if actAs != "" {
		return actAs
	}
	if cfg.CLI.Actor != "" {
		return cfg.CLI.Actor
	}
	return os.Getenv("USER")
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log)

	st, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	tracker, err := buildTracker(cfg.Assignments, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	svc := attendance.New(st,
		attendance.WithLogger(log),
		attendance.WithTracker(tracker),
		attendance.WithPolicy(policyFrom(cfg.Policy)),
	)
	directory := auth.NewDirectory(cfg.Auth.Privileged())

	return &app{
		cfg:    cfg,
		log:    log,
		store:  st,
		svc:    svc,
		caller: directory.Lookup(localActor(cfg)),
	}, nil
}

// withApp wraps a command function to load config and open storage first
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "timeclock %s (commit %s, built %s)\n", version, commit, date)
	},
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.timeclock/config.toml)")
	rootCmd.PersistentFlags().StringVar(&actAs, "as", "", "Act as this actor id (default cli.actor or $USER)")

	rootCmd.AddCommand(clockInCmd)
	rootCmd.AddCommand(clockOutCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(pointsCmd)
	rootCmd.AddCommand(timesheetCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.SetHelpCommand(helpCmd)
	rootCmd.AddCommand(versionCmd)
}
