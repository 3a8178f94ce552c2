package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-builder/internal/cv"
	"github.com/spigell/cv-builder/internal/logger"
	"github.com/spigell/cv-builder/internal/server"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a CV from a description and print it as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		generate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("prompt", "p", "", "free-text description of the person; asked interactively when empty")
	generateCmd.Flags().String("language", "", "output language (default English)")
	generateCmd.Flags().String("job-title", "", "target job title")
	generateCmd.Flags().String("industry", "", "target industry")
}

func generate(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	req := cv.GenerationRequest{
		Prompt:         flagValue(cmd, "prompt"),
		Language:       flagValue(cmd, "language"),
		TargetJobTitle: flagValue(cmd, "job-title"),
		TargetIndustry: flagValue(cmd, "industry"),
	}

	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt, err = askPrompt()
		if err != nil {
			logger.Fatal("reading the description", zap.Error(err))
		}
	}

	p, err := newPipeline(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("preparing the generation pipeline", zap.Error(err))
	}
	if len(p.missing) > 0 {
		logger.Fatal("model api key is not configured", zap.Strings("missing", p.missing))
	}

	timeout := config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = server.DefaultRequestTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := p.builder.Build(ctx, req)
	if !result.OK() {
		logger.Fatal("generating the cv",
			zap.String("stage", string(result.Err.Stage)),
			zap.String("reason", result.Err.Message),
		)
	}

	pretty, err := json.MarshalIndent(result.Document, "", "  ")
	if err != nil {
		logger.Fatal("encoding the cv", zap.Error(err))
	}

	fmt.Println(string(pretty))
}

func flagValue(cmd *cobra.Command, name string) string {
	flag := cmd.Flag(name)
	if flag == nil {
		return ""
	}
	return flag.Value.String()
}

func askPrompt() (string, error) {
	prompt := promptui.Prompt{
		Label: "Describe the person and the CV you need",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("description is required")
			}
			return nil
		},
	}

	return prompt.Run()
}
