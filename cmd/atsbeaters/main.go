package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"atsbeaters-backend/internal/bootstrap"
	"atsbeaters-backend/internal/extract"
	"atsbeaters-backend/internal/pipeline"
	"atsbeaters-backend/internal/shared/config"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/internal/shared/util"
)

const usage = "Usage: atsbeaters <email> <resume_file> [job_description_file]"

// runner is satisfied by *pipeline.Orchestrator.
type runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

func main() {
	cfg := config.Load()
	if cfg.LogFile != "" {
		sink, err := telemetry.OpenFileSink(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer sink.Close()
	}

	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, func() (runner, error) {
		app, err := bootstrap.Build(cfg)
		if err != nil {
			return nil, err
		}
		return app.NewPipeline(), nil
	}))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, build func() (runner, error)) int {
	if len(args) < 2 {
		fmt.Fprintln(stderr, usage)
		return 1
	}
	email := strings.TrimSpace(args[0])

	resumeText, err := extract.ExtractFile(ctx, args[1])
	if err != nil {
		fmt.Fprintf(stderr, "read resume: %v\n", err)
		return 1
	}

	var jobDescription string
	if len(args) > 2 {
		raw, err := os.ReadFile(args[2])
		if err != nil {
			fmt.Fprintf(stderr, "read job description: %v\n", err)
			return 1
		}
		jobDescription = string(raw)
	}

	p, err := build()
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}

	runID := "cli-" + util.HashUserKey(email)[:12]
	res, err := p.Run(pipeline.WithTrace(ctx, pipeline.Trace{Source: "cli"}), pipeline.Request{
		RunID:          runID,
		Email:          email,
		ResumeText:     resumeText,
		JobDescription: jobDescription,
		DocumentID:     util.HashUserKey(email)[:12],
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrAnalysisFailed) {
			fmt.Fprintf(stderr, "Analysis failed: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "run failed: %v\n", err)
		}
		return 1
	}

	if res.CoverLetter != "" {
		fmt.Fprintln(stdout, res.CoverLetter)
		fmt.Fprintln(stdout)
	}
	fmt.Fprintln(stdout, "Optimization Complete. Check your logs and email.")
	return 0
}
