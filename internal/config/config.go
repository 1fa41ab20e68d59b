// Package config assembles runtime settings from defaults, an optional
// TOML file, QUIZ_TAPPER_* environment variables and command-line flags,
// each layer overriding the previous one.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "QUIZ_TAPPER_"

// Providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds every setting.
type Config struct {
	LogLevel  string
	LogFormat string

	ADB    string
	Device string

	Provider       string
	APIURL         string
	APIModel       string
	APIKey         string
	CostInput      float64
	CostOutput     float64
	RequestTimeout time.Duration

	MatchRetries int
	RetryDelay   time.Duration
	AnswerDelay  time.Duration
	MaxQuestions int

	OCRHint     bool
	OCRLanguage string

	DebugDir       string
	AzureAccount   string
	AzureKey       string
	AzureContainer string
	AzureEndpoint  string

	Listen string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		ADB:            "adb",
		Provider:       ProviderOpenAI,
		CostInput:      1.5,
		CostOutput:     4.5,
		RequestTimeout: 60 * time.Second,
		MatchRetries:   10,
		RetryDelay:     300 * time.Millisecond,
		AnswerDelay:    2 * time.Second,
		OCRLanguage:    "chi_sim",
		Listen:         "127.0.0.1:8080",
	}
}

type field struct {
	key   string
	env   string
	flag  string
	usage string
	// boolean flags may be given without a value.
	boolean bool
}

var fields = []field{
	{"log_level", "LOG_LEVEL", "log-level", "log level: trace, debug, info, warn, error", false},
	{"log_format", "LOG_FORMAT", "log-format", "log format: text or json", false},
	{"adb", "ADB", "adb", "adb binary", false},
	{"device", "DEVICE", "device", "device serial (default: first authorized device)", false},
	{"provider", "PROVIDER", "provider", "answer provider: openai or gemini", false},
	{"api_url", "API_URL", "api-url", "chat-completions URL (openai)", false},
	{"api_model", "API_MODEL", "api-model", "model name", false},
	{"api_key", "API_KEY", "api-key", "API key", false},
	{"api_cost_input", "API_COST_INPUT_PER_MILLION_TOKENS", "api-cost-input", "price per million prompt tokens", false},
	{"api_cost_output", "API_COST_OUTPUT_PER_MILLION_TOKENS", "api-cost-output", "price per million completion tokens", false},
	{"request_timeout", "REQUEST_TIMEOUT", "request-timeout", "timeout for one model request", false},
	{"match_retries", "MATCH_RETRIES", "match-retries", "screenshots to try before giving up on a question", false},
	{"retry_delay", "RETRY_DELAY", "retry-delay", "wait between detection attempts", false},
	{"answer_delay", "ANSWER_DELAY", "answer-delay", "wait after tapping an answer", false},
	{"max_questions", "MAX_QUESTIONS", "max-questions", "stop after this many questions (0 = no limit)", false},
	{"ocr_hint", "OCR_HINT", "ocr-hint", "add OCR text of the question to the prompt", true},
	{"ocr_language", "OCR_LANGUAGE", "ocr-language", "tesseract languages, '+' separated", false},
	{"debug_dir", "DEBUG_DIR", "debug-dir", "directory for failure overlays and crops", false},
	{"azure_account", "AZURE_ACCOUNT", "", "", false},
	{"azure_key", "AZURE_KEY", "", "", false},
	{"azure_container", "AZURE_CONTAINER", "", "", false},
	{"azure_endpoint", "AZURE_ENDPOINT", "", "", false},
	{"listen", "LISTEN", "listen", "HTTP listen address", false},
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "adb":
		c.ADB = value
	case "device":
		c.Device = value
	case "provider":
		c.Provider = strings.ToLower(value)
	case "api_url":
		c.APIURL = value
	case "api_model":
		c.APIModel = value
	case "api_key":
		c.APIKey = value
	case "api_cost_input":
		c.CostInput, err = strconv.ParseFloat(value, 64)
	case "api_cost_output":
		c.CostOutput, err = strconv.ParseFloat(value, 64)
	case "request_timeout":
		c.RequestTimeout, err = time.ParseDuration(value)
	case "match_retries":
		c.MatchRetries, err = strconv.Atoi(value)
	case "retry_delay":
		c.RetryDelay, err = time.ParseDuration(value)
	case "answer_delay":
		c.AnswerDelay, err = time.ParseDuration(value)
	case "max_questions":
		c.MaxQuestions, err = strconv.Atoi(value)
	case "ocr_hint":
		c.OCRHint, err = strconv.ParseBool(value)
	case "ocr_language":
		c.OCRLanguage = value
	case "debug_dir":
		c.DebugDir = value
	case "azure_account":
		c.AzureAccount = value
	case "azure_key":
		c.AzureKey = value
	case "azure_container":
		c.AzureContainer = value
	case "azure_endpoint":
		c.AzureEndpoint = value
	case "listen":
		c.Listen = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return nil
}

// LoadFile applies a TOML file on top of c.
func (c *Config) LoadFile(path string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var value string
		switch v := raw[k].(type) {
		case string:
			value = v
		case int64, float64, bool:
			value = fmt.Sprint(v)
		default:
			return fmt.Errorf("config %s: %s must be a string, number or bool", path, k)
		}
		if err := c.set(k, value); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
	}
	return nil
}

// LookupFunc reads an environment variable.
type LookupFunc func(string) (string, bool)

// ApplyEnv applies QUIZ_TAPPER_* variables on top of c.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, f := range fields {
		if v, ok := lookup(EnvPrefix + f.env); ok {
			if err := c.set(f.key, v); err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, f.env, err)
			}
		}
	}
	return nil
}

// Load registers the shared flags plus --config on fs, parses args and
// resolves the layered configuration. Extra flags the caller registered on
// fs beforehand are parsed too; positional arguments remain in fs.Args().
func Load(fs *flag.FlagSet, args []string, lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	path := fs.String("config", "", "TOML config file")

	type pending struct{ key, value string }
	var fromFlags []pending
	for _, f := range fields {
		if f.flag == "" {
			continue
		}
		key := f.key
		record := func(v string) error {
			if err := Default().set(key, v); err != nil {
				return err
			}
			fromFlags = append(fromFlags, pending{key, v})
			return nil
		}
		if f.boolean {
			fs.BoolFunc(f.flag, f.usage, record)
		} else {
			fs.Func(f.flag, f.usage, record)
		}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c := Default()
	if *path != "" {
		if err := c.LoadFile(*path); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	for _, p := range fromFlags {
		if err := c.set(p.key, p.value); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// OCRLanguages splits OCRLanguage on '+'.
func (c *Config) OCRLanguages() []string {
	var out []string
	for _, l := range strings.Split(c.OCRLanguage, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// AzureEnabled reports whether diagnostic frames go to blob storage.
func (c *Config) AzureEnabled() bool {
	return c.AzureAccount != "" && c.AzureContainer != ""
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	switch {
	case c.MatchRetries < 1:
		return errors.New("match_retries must be at least 1")
	case c.RetryDelay < 0:
		return errors.New("retry_delay must not be negative")
	case c.AnswerDelay < 0:
		return errors.New("answer_delay must not be negative")
	case c.MaxQuestions < 0:
		return errors.New("max_questions must not be negative")
	case c.RequestTimeout <= 0:
		return errors.New("request_timeout must be positive")
	case c.CostInput < 0 || c.CostOutput < 0:
		return errors.New("api costs must not be negative")
	case c.AzureEnabled() && c.AzureKey == "":
		return errors.New("azure_key is required when azure_account is set")
	}
	return nil
}

// ValidateAnswerer checks the settings the run command needs on top of
// Validate.
func (c *Config) ValidateAnswerer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIURL == "" {
			return errors.New("api_url is required for the openai provider")
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q: want openai or gemini", c.Provider)
	}
	if c.APIModel == "" {
		return errors.New("api_model is required")
	}
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}
