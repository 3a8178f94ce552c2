package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "cv-builder"
)

type Config struct {
	AI     *AIConfig     `mapstructure:"ai"`
	Server *ServerConfig `mapstructure:"server"`
}

type AIConfig struct {
	Provider        string        `mapstructure:"provider"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max-output-tokens"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
	Models          []string      `mapstructure:"models"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
	OpenAI          *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
}

type ServerConfig struct {
	Listen         string        `mapstructure:"listen"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-builder generates structured CVs from a free-text description with a language model",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.openai.api-key":      "OPENAI_API_KEY",
		"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"ai.openai.base-url":     "OPENAI_BASE_URL",
		"ai.provider":            "CV_BUILDER_AI_PROVIDER",
		"server.listen":          "CV_BUILDER_LISTEN",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.max-output-tokens", 4096)
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.request-timeout", "90s")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-builder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless given explicitly: defaults and the
	// environment are enough to run.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.AI.OpenAI == nil {
		config.AI.OpenAI = &OpenAIConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
