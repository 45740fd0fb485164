// Command bagfactory serves the bag inventory and talks to a running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// configFile is set by the --config flag.
	configFile string

	// flagJSON makes client commands print raw JSON.
	flagJSON bool

	// cfg is loaded by PersistentPreRunE before any command runs.
	cfg *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bagfactory",
		Short: "Bag Factory inventory manager",
		Long: `bagfactory keeps an inventory of bags (type, color, material and
quantity). "bagfactory serve" starts the web interface and RPC API; the
"bags" commands call the API of a running server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML)")
	root.PersistentFlags().String(config.KeyServerURL, "http://localhost:8080", "server base URL used by client commands")
	root.PersistentFlags().String(config.KeyToken, "", "bearer token used by client commands")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newBagsCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// addStorageFlags registers the flags selecting and locating the backend.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyBackend, config.BackendSQLite, "storage backend: sqlite, postgres or mongo")
	cmd.Flags().String(config.KeySQLitePath, "bagfactory.sqlite3", "SQLite database path")
	cmd.Flags().String(config.KeyPostgresDSN, "", "PostgreSQL connection string")
	cmd.Flags().String(config.KeyMongoURI, "mongodb://localhost:27017", "MongoDB URI")
	cmd.Flags().String(config.KeyMongoDatabase, "bagfactory", "MongoDB database")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bagfactory version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "bagfactory", version)
		},
	}
}
