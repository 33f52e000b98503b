package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/agent"
	"github.com/chaditya95/agentic-resume-picker/internal/extract"
	"github.com/chaditya95/agentic-resume-picker/internal/inference"
	"github.com/chaditya95/agentic-resume-picker/internal/inference/gemini"
	"github.com/chaditya95/agentic-resume-picker/internal/inference/ollama"
	applog "github.com/chaditya95/agentic-resume-picker/internal/logger"
	"github.com/chaditya95/agentic-resume-picker/internal/pipeline"
	"github.com/chaditya95/agentic-resume-picker/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptReportByRecommendation = "Report by recommendation"
	PromptReportToFile           = "Dump report to file"
	PromptExit                   = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptReportByRecommendation, PromptReportToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a batch of resumes against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("jd", "", "file with the job description (required)")
	runCmd.Flags().StringSlice("resume", nil, "resume file to evaluate, repeatable")
	runCmd.Flags().String("dir", "", "directory with resume files to evaluate")
	runCmd.Flags().StringP("output", "o", "", "write the ranked report to this file")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not prompt after the run finishes")

	runCmd.MarkFlagRequired("jd")
}

// backend is the full contract a provider must satisfy to serve a run.
type backend interface {
	inference.Generator
	inference.HealthChecker
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := applog.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-picker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil || config.Inference == nil || config.Processing == nil {
		logger.Fatal("inference and processing configuration is required")
	}

	cfg := pipeline.Config{
		Workers:       config.Processing.Workers,
		RetryAttempts: config.Processing.RetryAttempts,
		CallTimeout:   config.Inference.Timeout,
		Backoff:       config.Processing.Backoff,
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid processing configuration", zap.Error(err))
	}

	jobDescription, err := readJobDescription(cmd.Flag("jd").Value.String())
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	sourceRefs, err := collectSourceRefs(cmd)
	if err != nil {
		logger.Fatal("collecting resumes", zap.Error(err))
	}

	logger.Info("collected resumes", zap.Int("count", len(sourceRefs)))

	generator, err := newBackend(ctx, config.Inference, logger)
	if err != nil {
		logger.Fatal("building the inference backend", zap.Error(err))
	}

	if err := generator.CheckHealth(ctx); err != nil {
		logger.Fatal("inference service is not ready",
			append(applog.CommonFields(config.Inference.Provider, generator.Model()), zap.Error(err))...,
		)
	}

	maxLogLength := config.Inference.MaxLogLength
	executor := pipeline.NewExecutor(cfg,
		extract.NewFileExtractor(),
		agent.NewParser(generator, logger, maxLogLength),
		agent.NewScorer(generator, logger, maxLogLength),
		agent.NewQuestionWriter(generator, logger, maxLogLength),
		logger,
	)

	orchestrator, err := pipeline.NewOrchestrator(cfg, executor, logger)
	if err != nil {
		logger.Fatal("building the orchestrator", zap.Error(err))
	}

	batch := pipeline.NewBatch(jobDescription, sourceRefs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range orchestrator.Events() {
			logger.Info("candidate progress",
				zap.String(applog.FieldCandidate, event.CandidateID),
				zap.String("source", event.SourceRef),
				zap.String("from", string(event.From)),
				zap.String("to", string(event.To)),
				zap.Int("completed", event.Counts.Completed),
				zap.Int("failed", event.Counts.Failed),
				zap.Int("total", event.Counts.Total),
			)
		}
	}()

	orchestrator.Run(ctx, batch)
	<-done

	interrupted := ctx.Err() != nil
	if interrupted {
		logger.Warn("batch interrupted, report covers finished candidates only")
	}

	report := pipeline.BuildReport(batch, generator.Model(), time.Now())
	printSummary(logger, report)

	if output := cmd.Flag("output").Value.String(); output != "" {
		if err := report.WriteFile(output); err != nil {
			logger.Fatal("writing the report", zap.Error(err))
		}
		logger.Info("report written", zap.String("filename", output))
	}

	if cmd.Flag("auto-approve").Value.String() == "true" || interrupted {
		return
	}

	// Restore default signal handling for the interactive prompt.
	stop()

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, report); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, report *pipeline.Report) error {
	switch action {
	case PromptReportByRecommendation:
		pretty, _ := json.MarshalIndent(report.ByRecommendation(), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates", len(report.Results)))
		return nil
	case PromptReportToFile:
		filename, err := report.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func newBackend(ctx context.Context, cfg *InferenceConfig, logger *zap.Logger) (backend, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", "ollama":
		if strings.TrimSpace(cfg.Model) == "" {
			return nil, errors.New("inference.model is required")
		}
		return ollama.New(cfg.Address, cfg.Model, cfg.Timeout, logger), nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini configuration is required when the gemini provider is selected")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set inference.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		return gemini.New(ctx, apiKey, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", cfg.Provider)
	}
}

func readJobDescription(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	jd := strings.TrimSpace(string(data))
	if jd == "" {
		return "", fmt.Errorf("job description file %q is empty", path)
	}

	return jd, nil
}

// collectSourceRefs merges the --resume flags with the contents of --dir,
// keeping input order for explicit files and lexical order for the directory.
func collectSourceRefs(cmd *cobra.Command) ([]string, error) {
	refs, err := cmd.Flags().GetStringSlice("resume")
	if err != nil {
		return nil, err
	}

	dir := cmd.Flag("dir").Value.String()
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading resume directory: %w", err)
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !supportedResume(entry.Name()) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			refs = append(refs, filepath.Join(dir, name))
		}
	}

	if len(refs) == 0 {
		return nil, errors.New("no resumes given, use --resume or --dir")
	}

	return refs, nil
}

func supportedResume(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".txt", ".md":
		return true
	default:
		return false
	}
}

func printSummary(logger *zap.Logger, report *pipeline.Report) {
	logger.Info("report summary",
		zap.Int("total", report.Metadata.TotalCandidates),
		zap.Int("completed", report.Metadata.Completed),
		zap.Int("failed", report.Metadata.Failed),
		zap.Int("cancelled", report.Metadata.Cancelled),
		zap.String(applog.FieldModel, report.Metadata.Model),
	)

	for i, rec := range report.Results {
		if !rec.Scored() {
			logger.Info(fmt.Sprintf("%2d. %s", i+1, rec.SourceRef),
				zap.String("state", string(rec.State)),
			)
			continue
		}

		name := rec.SourceRef
		if rec.Profile != nil && rec.Profile.Name != "" {
			name = rec.Profile.Name
		}

		logger.Info(fmt.Sprintf("%2d. %s", i+1, name),
			zap.Float64("score", rec.Result.Score),
			zap.String("recommendation", rec.Result.Recommendation),
		)
	}
}
