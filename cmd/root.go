package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-picker"
)

type Config struct {
	Inference  *InferenceConfig  `mapstructure:"inference"`
	Processing *ProcessingConfig `mapstructure:"processing"`
}

type InferenceConfig struct {
	Provider     string        `mapstructure:"provider"`
	Address      string        `mapstructure:"address"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type ProcessingConfig struct {
	Workers       int           `mapstructure:"workers"`
	RetryAttempts int           `mapstructure:"retry-attempts"`
	Backoff       time.Duration `mapstructure:"backoff"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-picker is a cli for evaluating a batch of resumes against a job description with a local inference service",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("inference.address", "OLLAMA_HOST"); err != nil {
		log.Fatalf("binding OLLAMA_HOST environment variable: %v", err)
	}
	if err := viper.BindEnv("inference.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is "+app+".yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("inference.provider", "ollama")
	viper.SetDefault("inference.timeout", pipeline.DefaultCallTimeout)
	viper.SetDefault("processing.workers", pipeline.DefaultWorkers)
	viper.SetDefault("processing.retry-attempts", pipeline.DefaultRetryAttempts)
	viper.SetDefault("processing.backoff", pipeline.DefaultBackoff)
}

func initConfig() {
	// Config needed only for the run command.
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, but when present it must parse cleanly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
