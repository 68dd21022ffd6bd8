package main

import (
	"fmt"
	"os"

	"collections-backend/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "collections-api",
		Short:         "Loan collections service",
		Long:          `Loan collections API: payments, mora, refinancing and write-offs serialised per loan by database-backed locks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), v)
		},
	}

	f := root.PersistentFlags()
	f.String("db-driver", "", "Database driver (mysql, sqlite)")
	f.String("sqlite-path", "", "SQLite database file")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("log-format", "", "Log format (json, console)")
	root.Flags().String("port", "", "HTTP port")
	// unchanged flags fall through to env, config file and defaults
	_ = v.BindPFlag("db.driver", f.Lookup("db-driver"))
	_ = v.BindPFlag("sqlite.path", f.Lookup("sqlite-path"))
	_ = v.BindPFlag("log.level", f.Lookup("log-level"))
	_ = v.BindPFlag("log.format", f.Lookup("log-format"))
	_ = v.BindPFlag("app.port", root.Flags().Lookup("port"))

	root.AddCommand(newMigrateCmd(v), newSweepCmd(v), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Commit:  %s\n", commit)
			fmt.Fprintf(out, "Built:   %s\n", date)
		},
	}
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(v)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSweepCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Release every expired lock once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(v)
			if err != nil {
				return err
			}
			defer a.close()
			n, err := a.sweeper().RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reclaimed %d expired lock(s)\n", n)
			return nil
		},
	}
}
