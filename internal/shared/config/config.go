package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"atsbeaters-backend/internal/shared/telemetry"
)

const defaultCollaboratorTimeout = 120 * time.Second

// Config holds application configuration.
type Config struct {
	Port                string
	CORSAllowOrigin     []string
	Env                 string
	LLMProvider         string
	AnalysisModel       string
	RewriteModel        string
	CoverLetterModel    string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	GoogleAPIKey        string
	CollaboratorTimeout time.Duration
	MailProvider        string
	SendGridAPIKey      string
	FromEmail           string
	SupportEmail        string
	OutputStoreType     string
	OutputDir           string
	AWSRegion           string
	S3Bucket            string
	S3Prefix            string
	SSEKMSKeyID         string
	RunQueueURL         string
	WorkerConcurrency   int
	DatabaseURL         string
	AutoMigrate         bool
	LogFile             string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	provider := normalizeProvider(getEnv("LLM_PROVIDER", "gemini"))

	googleKey := getEnv("API_KEY", os.Getenv("GOOGLE_API_KEY"))

	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:                 env,
		LLMProvider:         provider,
		AnalysisModel:       getEnv("ANALYSIS_MODEL", defaultAnalysisModel(provider)),
		RewriteModel:        getEnv("REWRITE_MODEL", defaultRewriteModel(provider)),
		CoverLetterModel:    getEnv("COVER_LETTER_MODEL", defaultAnalysisModel(provider)),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		GoogleAPIKey:        googleKey,
		CollaboratorTimeout: envSeconds("COLLABORATOR_TIMEOUT_SECONDS", defaultCollaboratorTimeout),
		MailProvider:        normalizeMailProvider(getEnv("MAIL_PROVIDER", "sendgrid")),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		FromEmail:           getEnv("FROM_EMAIL", "reports@atsbeaters.ai"),
		SupportEmail:        getEnv("SUPPORT_EMAIL", "support@atsbeaters.ai"),
		OutputStoreType:     normalizeStoreType(getEnv("OUTPUT_STORE", "local")),
		OutputDir:           getEnv("OUTPUT_DIR", "generated_outputs"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		RunQueueURL:         strings.TrimSpace(getEnv("RUN_QUEUE_URL", "")),
		WorkerConcurrency:   envInt("WORKER_CONCURRENCY", 4),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AutoMigrate:         envBool("AUTO_MIGRATE", false),
		LogFile:             getEnv("LOG_FILE", ""),
	}

	if env == "production" {
		if err := cfg.Validate(); err != nil {
			telemetry.Warn("config.invalid", map[string]any{"err": err.Error()})
		}
	}
	return cfg
}

// Validate reports missing credentials for the selected providers.
func (c Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case "openai":
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for LLM_PROVIDER=openai"))
		}
	case "gemini":
		if strings.TrimSpace(c.GoogleAPIKey) == "" {
			errs = append(errs, errors.New("API_KEY is required for LLM_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.MailProvider == "sendgrid" && strings.TrimSpace(c.SendGridAPIKey) == "" {
		errs = append(errs, errors.New("SENDGRID_API_KEY is required for MAIL_PROVIDER=sendgrid"))
	}
	if c.OutputStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		errs = append(errs, errors.New("S3_BUCKET is required for OUTPUT_STORE=s3"))
	}
	if c.CollaboratorTimeout <= 0 {
		errs = append(errs, errors.New("COLLABORATOR_TIMEOUT_SECONDS must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func envSeconds(key string, def time.Duration) time.Duration {
	secs := envInt(key, 0)
	if secs == 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google", "":
		return "gemini"
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

func normalizeMailProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "log", "dryrun", "dry-run":
		return "log"
	default:
		return "sendgrid"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func defaultAnalysisModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o-mini"
	}
	return "gemini-3-flash-preview"
}

func defaultRewriteModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o"
	}
	return "gemini-3-pro-preview"
}
