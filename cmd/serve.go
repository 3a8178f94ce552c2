package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/logger"
	"github.com/spigell/cv-builder/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the CV generation HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	serveCmd.Flags().Duration("request-timeout", 0, "maximum duration of one generation request (default 90s)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("server.request-timeout", serveCmd.Flags().Lookup("request-timeout"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-builder server", zap.String("version", version))

	p, err := newPipeline(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("preparing the generation pipeline", zap.Error(err))
	}

	if len(p.missing) > 0 {
		logger.Warn("model api key is not configured, generation requests will fail",
			zap.Strings("missing", p.missing),
			zap.String("hint", "set the variables in the environment or in a .env file"),
		)
	} else {
		logger.Info("generation pipeline ready",
			zap.String("provider", p.provider),
			zap.Strings("models", p.models.IDs()),
		)
	}

	var generator server.Generator
	if p.builder != nil {
		generator = p.builder
	}

	srv := server.New(server.Config{
		Listen:         config.Server.Listen,
		RequestTimeout: config.Server.RequestTimeout,
		MissingEnv:     p.missing,
	}, generator, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("running the server", zap.Error(err))
	}

	logger.Info("server stopped")
}
