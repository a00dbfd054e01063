// file: cmd/root.go
// version: 2.0.0
// guid: 493c903a-8793-4a05-a3ed-1953b96592c0

package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/config"
	"github.com/jdfalk/audiobook-catalog/internal/covers"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/metadata"
	"github.com/jdfalk/audiobook-catalog/internal/scanner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var rootDir string
var databasePath string
var databaseType string
var enableSQLite bool
var coverDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audiobook-catalog",
	Short: "Catalog, rate and track audiobooks in a local library",
	Long: `Audiobook Catalog scans a library of audiobook files and folders,
lets you review what it found, and commits the reviewed books into a
persistent catalog. Books can then be queried, rated (book and narrator),
tracked by listening status and aggregated by series.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.audiobook-catalog.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "dir", "", "library root directory")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "catalog.pebble", "path to the catalog database")
	rootCmd.PersistentFlags().StringVar(&databaseType, "db-type", "pebble", "database type: pebble (default) or sqlite")
	rootCmd.PersistentFlags().BoolVar(&enableSQLite, "enable-sqlite3-i-know-the-risks", false, "enable SQLite3 database (WARNING: cross-compilation issues, PebbleDB recommended)")
	rootCmd.PersistentFlags().StringVar(&coverDir, "covers", "", "directory that receives covers/<id>.jpg (default: next to the database)")

	_ = viper.BindPFlag("root_dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("database_type", rootCmd.PersistentFlags().Lookup("db-type"))
	_ = viper.BindPFlag("enable_sqlite3_i_know_the_risks", rootCmd.PersistentFlags().Lookup("enable-sqlite3-i-know-the-risks"))
	_ = viper.BindPFlag("cover_dir", rootCmd.PersistentFlags().Lookup("covers"))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".audiobook-catalog")
	}

	viper.SetEnvPrefix("ABCAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Printf("[INFO] config: using config file %s", viper.ConfigFileUsed())
	}

	// Ensure database directory exists
	if databasePath != "" {
		dbDir := filepath.Dir(databasePath)
		if dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o755); err != nil {
				log.Printf("[ERROR] config: creating database directory: %v", err)
			}
		}
	}

	config.InitConfig()
	if err := config.LoadConfigFromFile(); err != nil {
		log.Printf("[WARN] config: %v", err)
	}
}

// openStore opens the configured record store. The returned func closes it.
func openStore() (database.Store, func(), error) {
	if err := database.InitializeStore(
		config.AppConfig.DatabaseType,
		config.AppConfig.DatabasePath,
		config.AppConfig.EnableSQLite,
	); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	closer := func() {
		if err := database.CloseStore(); err != nil {
			log.Printf("[WARN] database: close: %v", err)
		}
	}
	return database.GlobalStore, closer, nil
}

// builderConfig maps the configured scan settings onto the candidate builder
func builderConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.Classifier = config.Classifier()
	cfg.Workers = config.AppConfig.Scan.ExtractWorkers
	cfg.ShortDurationSeconds = config.AppConfig.Scan.ShortDurationSeconds
	cfg.SmallFileBytes = config.AppConfig.Scan.SmallFileBytes
	if p := scanner.SourcePolicy(config.AppConfig.Scan.SourcePolicy); p == scanner.SourceFirst || p == scanner.SourceLargest {
		cfg.SourcePolicy = p
	}
	return cfg
}

func scanOptions() scanner.Options {
	return scanner.Options{
		Recursive:      config.AppConfig.Scan.Recursive,
		MaxDepth:       config.AppConfig.Scan.MaxDepth,
		SplitRootFiles: config.AppConfig.Scan.SplitRootFiles,
	}
}

func newScanner() *scanner.Scanner {
	return scanner.New(metadata.NewTagExtractor(), builderConfig())
}

// newCommitter wires cover extraction through the tag reader and the
// configured cover root.
func newCommitter(store database.Store, sc *scanner.Scanner) *catalog.Committer {
	return catalog.NewCommitter(store, sc.Builder(), metadata.NewTagExtractor(), covers.NewFileWriter(config.CoverRoot()))
}

// libraryRoot picks the positional root argument over the configured one
func libraryRoot(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if config.AppConfig.RootDir == "" {
		return "", fmt.Errorf("root directory not specified (pass it as an argument or set --dir)")
	}
	return config.AppConfig.RootDir, nil
}
