package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tweetty/crud"
	"tweetty/database"
	"tweetty/domain"
	"tweetty/errs"
	"tweetty/http"
	"tweetty/storage"
)

// main is the app's entry point.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// app holds what all commands share: the flags of the root command and
// the viper instance the configuration is loaded with.
type app struct {
	v          *viper.Viper
	configFile string
	isProd     bool
}

// newRootCmd builds the tweetty command tree.
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "tweetty",
		Short:         "tweetty is a small microblogging backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// The "--prod" flag means that we're running in production. In that case the
	// config file is required and the app won't start if no file is found.
	root.PersistentFlags().BoolVar(&a.isProd, "prod", false, "Provide this flag in production to ensure that a config file is provided before the application starts.")
	root.PersistentFlags().StringVar(&a.configFile, "config", ".config.json", "Path of the json config file.")

	root.AddCommand(a.serveCmd(), a.migrateCmd(), a.usersCmd())
	return root
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the http api",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration from a config file if present, otherwise use the default dev setup.
			config, err := a.loadConfig()
			if err != nil {
				return err
			}

			// Open a database connection and execute migrations.
			db, err := openDB(config)
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := database.AutoMigrate(db); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Set up the media store and start the crud services.
			store, err := newMediaStore(ctx, config.Media)
			if err != nil {
				return err
			}
			services, err := crud.NewServices(
				db.Gorm,
				crud.WithUser(config.APIKeyPrefix, store),
				crud.WithTweet(store),
				crud.WithFollow(),
				crud.WithLike(),
				crud.WithMedia(store, crud.MediaConfig{
					MinSize:           config.Media.MinSize,
					MaxSize:           config.Media.MaxSize,
					InsertRetryBudget: config.Media.InsertRetryBudget,
				}),
			)
			if err != nil {
				return err
			}

			// Set up a webserver.
			serverConfig := http.Config{
				IsProd:         config.IsProd(),
				MaxUploadSize:  config.Media.MaxSize,
				MediaURLPrefix: config.Media.URLPrefix,
				RateLimit:      config.RateLimit.Requests,
				RateWindow:     config.RateLimit.Window,
			}
			if config.Media.Backend != "s3" {
				serverConfig.MediaRoot = config.Media.Root
			}
			server := http.NewServer(services, serverConfig)

			// Serve the app until SIGINT or SIGTERM.
			return server.Run(ctx, config.Port)
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(config)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if reset {
				if err := database.DestructiveReset(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
				return nil
			}
			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database migrated.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop all tables before migrating. All data is lost.")
	return cmd
}

// loadConfig loads the configuration and sets up logging accordingly.
func (a *app) loadConfig() (Config, error) {
	config, err := LoadConfig(a.v, a.configFile, a.isProd)
	if err != nil {
		return Config{}, err
	}
	if err := setupLogging(config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// openDB opens the database connection described by the config.
func openDB(config Config) (*database.DB, error) {
	db := database.NewDB(config.Database)
	if err := database.Open(db, config.IsProd()); err != nil {
		return nil, err
	}
	return db, nil
}

// newMediaStore returns the media store of the configured backend.
func newMediaStore(ctx context.Context, config MediaConfig) (domain.MediaStore, error) {
	switch config.Backend {
	case "", "disk":
		return storage.NewDiskStore(storage.DiskConfig{
			Root:         config.Root,
			URLPrefix:    config.URLPrefix,
			WriteRetries: config.WriteRetries,
		}), nil
	case "s3":
		logrus.WithField("bucket", config.S3.Bucket).Info("storing medias in s3")
		return storage.NewS3Store(ctx, config.S3)
	default:
		return nil, fmt.Errorf("unknown media backend %q", config.Backend)
	}
}

// errorMessage returns the message of app errors and the full error otherwise.
func errorMessage(err error) string {
	if errs.ErrorCode(err) != errs.EINTERNAL {
		return errs.ErrorMessage(err)
	}
	return err.Error()
}
