package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"atsbeaters-backend/internal/analysis"
	"atsbeaters-backend/internal/coverletter"
	"atsbeaters-backend/internal/llm"
	"atsbeaters-backend/internal/llm/gemini"
	"atsbeaters-backend/internal/llm/openai"
	"atsbeaters-backend/internal/mail"
	"atsbeaters-backend/internal/mail/sendgrid"
	"atsbeaters-backend/internal/pipeline"
	"atsbeaters-backend/internal/queue"
	"atsbeaters-backend/internal/rewrite"
	"atsbeaters-backend/internal/runs"
	"atsbeaters-backend/internal/services/health"
	"atsbeaters-backend/internal/shared/config"
	"atsbeaters-backend/internal/shared/server"
	"atsbeaters-backend/internal/shared/storage/db"
	"atsbeaters-backend/internal/shared/storage/object"
	localstore "atsbeaters-backend/internal/shared/storage/object/local"
	s3store "atsbeaters-backend/internal/shared/storage/object/s3"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/internal/workerproc"
	"atsbeaters-backend/resume/render"
)

// App holds shared, immutable collaborators. Per-run stages are built by NewPipeline.
type App struct {
	Config      config.Config
	DB          *sql.DB
	Runs        runs.Repo
	Store       object.ObjectStore
	Mailer      mail.Mailer
	Queue       queue.Client
	AnalysisGen llm.Generator
	RewriteGen  llm.Generator
	LetterGen   llm.Generator
	Router      *gin.Engine
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	analysisGen, err := buildGenerator(ctx, cfg, cfg.AnalysisModel, true)
	if err != nil {
		return nil, err
	}
	rewriteGen, err := buildGenerator(ctx, cfg, cfg.RewriteModel, false)
	if err != nil {
		return nil, err
	}
	letterGen, err := buildGenerator(ctx, cfg, cfg.CoverLetterModel, false)
	if err != nil {
		return nil, err
	}

	mailer, err := buildMailer(cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var runRepo runs.Repo = runs.NewMemoryRepo()
	if sqlDB != nil {
		runRepo = &runs.PGRepo{DB: sqlDB}
	}

	app := &App{
		Config:      cfg,
		DB:          sqlDB,
		Runs:        runRepo,
		Store:       store,
		Mailer:      mailer,
		Queue:       queueClient,
		AnalysisGen: analysisGen,
		RewriteGen:  rewriteGen,
		LetterGen:   letterGen,
	}

	runsHandler := runs.NewHandler(func() runs.Runner { return app.NewPipeline() }, queueClient, runRepo)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		RunsHandler: runsHandler,
		Health:      health.NewService(sqlDB),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"llm_provider": cfg.LLMProvider,
		"store":        cfg.OutputStoreType,
		"mail":         cfg.MailProvider,
		"queue":        queueClient != nil,
		"run_history":  sqlDB != nil,
	})
	return app, nil
}

// NewPipeline builds fresh stages for one run over the shared collaborators.
func (a *App) NewPipeline() *pipeline.Orchestrator {
	return pipeline.New(pipeline.Deps{
		Analyzer: analysis.NewStage(a.AnalysisGen),
		Rewriter: rewrite.NewStage(a.RewriteGen),
		Renderer: render.NewRenderer(a.Store),
		Letters:  coverletter.NewStage(a.LetterGen),
		Store:    a.Store,
		Mailer:   a.Mailer,
	})
}

// NewRecordedRunner is NewPipeline with run history recorded, as used by the workers.
func (a *App) NewRecordedRunner() workerproc.Runner {
	return runs.NewRecorder(a.NewPipeline(), a.Runs)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		telemetry.Info("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
		return nil, nil
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RuntimeProfile())
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "err": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, err
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.OutputStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.OutputDir), nil
	}
}

func buildGenerator(ctx context.Context, cfg config.Config, model string, jsonMode bool) (llm.Generator, error) {
	var (
		gen llm.Generator
		err error
	)
	switch cfg.LLMProvider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm.placeholder", map[string]any{"provider": cfg.LLMProvider, "model": model})
			return llm.PlaceholderGenerator{}, nil
		}
		opts := []openai.Option{
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithHTTPTimeout(cfg.CollaboratorTimeout),
		}
		if jsonMode {
			opts = append(opts, openai.WithJSONResponse())
		}
		gen, err = openai.NewClient(cfg.OpenAIAPIKey, model, opts...)
	case "gemini":
		if strings.TrimSpace(cfg.GoogleAPIKey) == "" && isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm.placeholder", map[string]any{"provider": cfg.LLMProvider, "model": model})
			return llm.PlaceholderGenerator{}, nil
		}
		var opts []gemini.Option
		if jsonMode {
			opts = append(opts, gemini.WithJSONResponse())
		}
		gen, err = gemini.NewClient(ctx, cfg.GoogleAPIKey, model, opts...)
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s generator: %w", cfg.LLMProvider, err)
	}
	return llm.WithTimeout(gen, cfg.CollaboratorTimeout), nil
}

func buildMailer(cfg config.Config) (mail.Mailer, error) {
	if cfg.MailProvider == "log" {
		return mail.LogMailer{}, nil
	}
	if strings.TrimSpace(cfg.SendGridAPIKey) == "" && isDevLike(cfg.Env) {
		telemetry.Warn("bootstrap.mail.log_fallback", map[string]any{"provider": cfg.MailProvider})
		return mail.LogMailer{}, nil
	}
	client, err := sendgrid.NewClient(cfg.SendGridAPIKey, cfg.FromEmail, cfg.SupportEmail, cfg.CollaboratorTimeout)
	if err != nil {
		return nil, fmt.Errorf("build mailer: %w", err)
	}
	return client, nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.RunQueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.RunQueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
