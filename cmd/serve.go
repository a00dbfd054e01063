// file: cmd/serve.go
// version: 1.0.0
// guid: ace5db6d-3f00-4e19-afbf-b7412d340e5c

package cmd

import (
	"fmt"
	"log"

	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/config"
	"github.com/jdfalk/audiobook-catalog/internal/realtime"
	"github.com/jdfalk/audiobook-catalog/internal/server"
	"github.com/jdfalk/audiobook-catalog/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	Long: `Start the HTTP API over the catalog. With --watch the library root is
monitored and /api/v1/status reports the catalog as stale after audio files
change, until the next commit. Catalog changes are streamed as Server-Sent
Events from /api/v1/events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		cfg := server.GetDefaultServerConfig()
		cfg.Host = config.AppConfig.Server.Host
		cfg.Port = config.AppConfig.Server.Port

		sc := newScanner()
		events := realtime.NewHub()
		deps := server.Deps{
			Events:             events,
			Store:              store,
			Scanner:            sc,
			Committer:          newCommitter(store, sc),
			Service:            catalog.NewService(store),
			ScanOptions:        scanOptions(),
			Root:               config.AppConfig.RootDir,
			CoverRoot:          config.CoverRoot(),
			DatabaseType:       config.AppConfig.DatabaseType,
			SnapshotTTL:        config.AppConfig.Server.SnapshotTTL,
			RateLimitPerMinute: config.AppConfig.Server.RateLimitPerMinute,
		}

		if config.AppConfig.Watch {
			if config.AppConfig.RootDir == "" {
				return fmt.Errorf("--watch needs a library root (--dir)")
			}
			w := watcher.New(config.Classifier(), func(root string) {
				events.Publish(realtime.EventLibraryStale, "", map[string]any{"root": root})
			}, 0)
			if err := w.Start(config.AppConfig.RootDir); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer w.Stop()
			deps.Watcher = w
		}

		log.Printf("[INFO] serve: database %s (%s)", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)
		return server.NewServer(deps).Start(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "host to bind the API server to")
	serveCmd.Flags().Int("port", 8484, "port to run the API server on")
	serveCmd.Flags().Bool("watch", false, "watch the library root and report when the catalog is stale")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("watch", serveCmd.Flags().Lookup("watch"))
}
