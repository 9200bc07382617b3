package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/localcrm/internal/engine"
	"github.com/celerix-dev/localcrm/pkg/sdk"
)

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Check credentials and print the matching user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCRM(func(c sdk.CRM) error {
			user, err := c.Login(args[0], args[1])
			if errors.Is(err, sdk.ErrUnauthorized) {
				return errors.New("invalid credentials")
			}
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			return printJSON(user)
		})
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the store answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCRM(func(c sdk.CRM) error {
			if err := c.Ping(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(out, "PONG")
			return err
		})
	},
}

var (
	migrateFrom string
	migrateTo   string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy every collection from one backend to another",
	Long: `Migrate copies leads, users and activities between storage backends in
the data directory, replacing what the destination held.

Example:
  crm migrate --from json --to sqlite
  crm migrate --from sqlite --to json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateFrom == migrateTo {
			return fmt.Errorf("source and destination are both %q", migrateFrom)
		}
		src, err := engine.NewPersister(migrateFrom, cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer src.Close()
		dst, err := engine.NewPersister(migrateTo, cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open destination: %w", err)
		}
		defer dst.Close()

		n, err := engine.Migrate(src, dst, engine.CollectionNames())
		if err != nil {
			return err
		}
		logger.Info("migration complete", "from", migrateFrom, "to", migrateTo, "records", n)
		_, err = fmt.Fprintf(out, "Migrated %d records from %s to %s\n", n, migrateFrom, migrateTo)
		return err
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", engine.BackendJSON, "source backend")
	migrateCmd.Flags().StringVar(&migrateTo, "to", engine.BackendSQLite, "destination backend")
}
