// Command crm manages CRM records from the shell, either against a running
// crmd (CRM_ADDR or --addr) or directly on the data directory.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/localcrm/internal/config"
	"github.com/celerix-dev/localcrm/internal/logging"
	"github.com/celerix-dev/localcrm/pkg/sdk"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// v holds flags, environment and file settings.
	v = config.New()

	// cfg is resolved in PersistentPreRunE.
	cfg config.Config

	// logger writes diagnostics to stderr.
	logger *slog.Logger

	// out is where command results go.
	out io.Writer = os.Stdout
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crm",
	Short: "crm manages leads, users and activities",
	Long: `crm reads and writes the localcrm collections. With --addr it talks to a
running crmd; otherwise it opens the data directory in-process.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configFile)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./crm.yaml when present)")
	rootCmd.PersistentFlags().String("addr", "", "address of a running crmd (default: embedded mode)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory for embedded mode")
	rootCmd.PersistentFlags().String("backend", "", "storage backend for embedded mode (json, sqlite, memory)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	bindFlag(config.KeyAddr, "addr")
	bindFlag(config.KeyDataDir, "data-dir")
	bindFlag(config.KeyBackend, "backend")
	bindFlag(config.KeyLogLevel, "log-level")

	rootCmd.AddCommand(listCmd, getCmd, addCmd, updateCmd, deleteCmd, activitiesCmd)
	rootCmd.AddCommand(loginCmd, pingCmd, migrateCmd)
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// openCRM connects to crmd or opens the store in-process.
func openCRM() (sdk.CRM, error) {
	return sdk.New(sdk.Options{
		Addr:    cfg.Addr,
		Backend: cfg.Backend,
		DataDir: cfg.DataDir,
		Admin:   cfg.Admin(),
		Logger:  logger,
	})
}

// withCRM runs fn against an open CRM and closes it afterwards.
func withCRM(fn func(sdk.CRM) error) error {
	c, err := openCRM()
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printJSON(val any) error {
	b, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
