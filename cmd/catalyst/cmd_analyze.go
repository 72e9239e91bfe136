package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"catalyst/internal/catalog"
	"catalyst/internal/config"
	"catalyst/internal/llm"
	"catalyst/internal/logging"
	"catalyst/internal/pipeline"
	"catalyst/internal/question"
	"catalyst/internal/research"
	"catalyst/internal/store"
	"catalyst/internal/summary"
)

var analyzeFlags struct {
	configPath    string
	dbPath        string
	limit         int
	batchSize     int
	forceRefresh  bool
	researchOnly  bool
	questionsOnly bool
	metricsAddr   string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [project-slug ...]",
	Short: "Analyze projects through the full evaluation pipeline",
	Long: `Analyze runs the evaluation pipeline over the named projects, or over the
catalog listing when no projects are given.

Each project goes through: catalog enrichment, general research, six parallel
diagnostic question evaluations (cached per project and question), score
aggregation, and verdict synthesis. Projects with a verdict fresher than the
freshness window are skipped unless --force-refresh is given.

The cloud API key is read from the ` + config.EnvCloudAPIKey + ` environment variable.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.configPath, "config", "", "Path to YAML config file (defaults apply when omitted)")
	f.StringVar(&analyzeFlags.dbPath, "db", "", "Analysis DB path (overrides config)")
	f.IntVar(&analyzeFlags.limit, "limit", 0, "Max projects to pull from the catalog listing (0 = all)")
	f.IntVar(&analyzeFlags.batchSize, "parallel", 0, "Projects analyzed concurrently per batch (overrides config)")
	f.BoolVar(&analyzeFlags.forceRefresh, "force-refresh", false, "Re-analyze even when a fresh verdict exists")
	f.BoolVar(&analyzeFlags.researchOnly, "research-only", false, "Stop after the research stage")
	f.BoolVar(&analyzeFlags.questionsOnly, "questions-only", false, "Stop after the question stage, skip synthesis")
	f.StringVar(&analyzeFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(analyzeFlags.configPath)
	if err != nil {
		return err
	}
	if analyzeFlags.dbPath != "" {
		cfg.DBPath = analyzeFlags.dbPath
	}
	if analyzeFlags.batchSize > 0 {
		cfg.Batch.Size = analyzeFlags.batchSize
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	guidance, err := cfg.LoadGuidance()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	st, err := store.OpenWithRetry(cfg.DBPath, store.RetryPolicy{
		Attempts:  cfg.Retry.Attempts,
		BaseDelay: cfg.Retry.BaseDelay,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client, err := llm.NewClient(&cfg)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	})

	if analyzeFlags.metricsAddr != "" {
		go serveMetrics(analyzeFlags.metricsAddr)
	}

	ctx := cmd.Context()
	projects, err := resolveProjects(cmd, catalogClient, args)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects to analyze.")
		return nil
	}

	orch := pipeline.New(
		st,
		catalogClient,
		research.NewAgent(client, st, cfg.Timeouts.Research),
		question.NewEvaluator(client, st, guidance, question.Options{
			Freshness:          cfg.Freshness,
			ResearchTimeout:    cfg.Timeouts.Research,
			AnalysisTimeout:    cfg.Timeouts.Analysis,
			MaxResearchContext: cfg.MaxResearchContext,
			MaxAnalysisContext: cfg.MaxAnalysisContext,
		}),
		summary.NewSynthesizer(client, cfg.Timeouts.Summary),
		pipeline.Options{
			Freshness:       cfg.Freshness,
			QuestionTimeout: cfg.Timeouts.Question,
			ForceRefresh:    analyzeFlags.forceRefresh,
			ResearchOnly:    analyzeFlags.researchOnly,
			QuestionsOnly:   analyzeFlags.questionsOnly,
		},
	)

	results := orch.RunBatch(ctx, projects, pipeline.BatchOptions{
		Size:            cfg.Batch.Size,
		ProjectDelay:    cfg.Batch.ProjectDelay,
		InterBatchDelay: cfg.Batch.InterBatchDelay,
		ProjectTimeout:  cfg.Batch.ProjectTimeout,
	})

	out := cmd.OutOrStdout()
	var totalCost float64
	counts := map[pipeline.State]int{}
	for _, r := range results {
		counts[r.State]++
		totalCost += r.Cost
		switch r.State {
		case pipeline.StatePersisted:
			fmt.Fprintf(out, "%-30s %+d/6  %s\n", r.Project, r.Verdict.TotalScore, r.Verdict.Recommendation)
		case pipeline.StateSkipped:
			fmt.Fprintf(out, "%-30s skipped (fresh verdict)\n", r.Project)
		case pipeline.StateFailed:
			fmt.Fprintf(out, "%-30s FAILED: %v\n", r.Project, r.Err)
		default:
			fmt.Fprintf(out, "%-30s %s\n", r.Project, r.State)
		}
	}
	fmt.Fprintf(out, "\n%d analyzed, %d skipped, %d failed. Total cost: $%.4f\n",
		counts[pipeline.StatePersisted]+counts[pipeline.StateResearched]+counts[pipeline.StateQuestionsDone],
		counts[pipeline.StateSkipped], counts[pipeline.StateFailed], totalCost)
	return nil
}

// resolveProjects turns CLI args into pipeline projects, falling back to the
// catalog listing when no args are given.
func resolveProjects(cmd *cobra.Command, c *catalog.Client, args []string) ([]pipeline.Project, error) {
	slugs := args
	if len(slugs) == 0 {
		var err error
		slugs, err = c.ListSlugs(cmd.Context(), analyzeFlags.limit)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog listing: %w", err)
		}
	} else if analyzeFlags.limit > 0 && analyzeFlags.limit < len(slugs) {
		slugs = slugs[:analyzeFlags.limit]
	}

	projects := make([]pipeline.Project, 0, len(slugs))
	for _, slug := range slugs {
		name := slug
		if detail, err := c.GetProject(cmd.Context(), slug); err == nil {
			name = detail.Name()
		}
		projects = append(projects, pipeline.Project{Name: name, Slug: slug})
	}
	return projects, nil
}

func serveMetrics(addr string) {
	logger := logging.New("metrics")
	logger.Info("serving metrics", "addr", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
