package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/skill-gap/internal/assistant"
	"github.com/spigell/skill-gap/internal/filtering"
)

const (
	app = "skill-gap"
)

type Config struct {
	CVFile    string                  `mapstructure:"cv-file"`
	AI        *AIConfig               `mapstructure:"ai"`
	Embedding *EmbeddingConfig        `mapstructure:"embedding"`
	Prompts   assistant.TemplateFiles `mapstructure:"prompts"`
	Analysis  *AnalysisConfig         `mapstructure:"analysis"`
	Postings  *PostingsConfig         `mapstructure:"postings"`
	Filters   filtering.Config        `mapstructure:"filters"`
}

type AIConfig struct {
	Provider     string         `mapstructure:"provider"`
	OnFailure    string         `mapstructure:"on-failure"`
	MaxLogLength int            `mapstructure:"max-log-length"`
	Gemini       *BackendConfig `mapstructure:"gemini"`
	OpenAI       *BackendConfig `mapstructure:"openai"`
	Anthropic    *BackendConfig `mapstructure:"anthropic"`
}

// BackendConfig is shared by completion and embedding backends. Not every
// backend reads every field: Project and Location are Vertex AI only, BaseURL
// is for OpenAI-compatible and Anthropic endpoints.
type BackendConfig struct {
	APIKey      string        `mapstructure:"api-key"`
	APIKeyFile  string        `mapstructure:"api-key-file"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base-url"`
	Project     string        `mapstructure:"project"`
	Location    string        `mapstructure:"location"`
	Temperature *float64      `mapstructure:"temperature"`
	MaxTokens   int64         `mapstructure:"max-tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	Provider string         `mapstructure:"provider"`
	Gemini   *BackendConfig `mapstructure:"gemini"`
	OpenAI   *BackendConfig `mapstructure:"openai"`
	Hashing  *struct {
		Dimension int `mapstructure:"dimension"`
	} `mapstructure:"hashing"`
}

type AnalysisConfig struct {
	Workers int `mapstructure:"workers"`
}

type PostingsConfig struct {
	Files []string     `mapstructure:"files"`
	URLs  []string     `mapstructure:"urls"`
	Fetch *FetchConfig `mapstructure:"fetch"`
}

type FetchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Delay       time.Duration `mapstructure:"delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user-agent"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skill-gap finds the job postings closest to your target role and tells what your CV is missing for them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"cv-file":                   "SKILL_GAP_CV_FILE",
		"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
		"ai.openai.api-key-file":    "OPENAI_API_KEY_FILE",
		"ai.anthropic.api-key-file": "ANTHROPIC_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skill-gap.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("cv", "", "a file with the CV text")
	rootCmd.PersistentFlags().StringSlice("postings", nil, "posting files (yaml, json or csv)")
	rootCmd.PersistentFlags().StringSlice("url", nil, "posting page urls to fetch")
	rootCmd.PersistentFlags().StringSlice("skip-filter", nil, "filters to skip (dedupe, companies, locations)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("cv-file", rootCmd.PersistentFlags().Lookup("cv"))
	viper.BindPFlag("postings.files", rootCmd.PersistentFlags().Lookup("postings"))
	viper.BindPFlag("postings.urls", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("filters.skip", rootCmd.PersistentFlags().Lookup("skip-filter"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless given explicitly; a broken one is fatal.
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
	if config.Embedding == nil {
		config.Embedding = &EmbeddingConfig{}
	}
	if config.Analysis == nil {
		config.Analysis = &AnalysisConfig{}
	}
	if config.Postings == nil {
		config.Postings = &PostingsConfig{}
	}
	if config.Postings.Fetch == nil {
		config.Postings.Fetch = &FetchConfig{}
	}

	return config, nil
}
