package main

// Run a single prompt against the configured provider without rendering or email:
//   go run ./cmd/prompttest -resume ./resume.pdf -stage analysis

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"atsbeaters-backend/internal/analysis"
	"atsbeaters-backend/internal/bootstrap"
	"atsbeaters-backend/internal/coverletter"
	"atsbeaters-backend/internal/extract"
	"atsbeaters-backend/internal/rewrite"
	"atsbeaters-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to resume file (txt, pdf or docx)")
	jdPath := flag.String("jd", "", "Path to job description file (cover-letter stage)")
	stage := flag.String("stage", "analysis", "Stage to run: analysis, rewrite or cover-letter")
	outPath := flag.String("out", "", "Path to write output (optional)")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}

	ctx := context.Background()
	resumeText, err := extract.ExtractFile(ctx, *resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		exitErr(fmt.Sprintf("bootstrap: %v", err))
	}

	var out []byte
	switch strings.TrimSpace(*stage) {
	case "analysis":
		report, err := analysis.NewStage(app.AnalysisGen).Analyze(ctx, resumeText)
		if err != nil {
			exitErr(err.Error())
		}
		out, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			exitErr(fmt.Sprintf("format json: %v", err))
		}
	case "rewrite":
		markdown, ok := rewrite.NewStage(app.RewriteGen).Rewrite(ctx, resumeText, nil)
		if !ok {
			exitErr("rewrite failed")
		}
		out = []byte(markdown)
	case "cover-letter":
		if strings.TrimSpace(*jdPath) == "" {
			exitErr("jd path is required for cover-letter")
		}
		jd, err := os.ReadFile(*jdPath)
		if err != nil {
			exitErr(fmt.Sprintf("read job description: %v", err))
		}
		out = []byte(coverletter.NewStage(app.LetterGen).Generate(ctx, coverletter.Highlights(resumeText), string(jd)))
	default:
		exitErr(fmt.Sprintf("unsupported stage: %s", *stage))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, out, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	if _, err := os.Stdout.Write(out); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
