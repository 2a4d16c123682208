// Command build-knowledge rebuilds the waste-disposal knowledge base file from source documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/freshkeep/hub/internal/aiprovider"
	"github.com/freshkeep/hub/internal/config"
	"github.com/freshkeep/hub/internal/knowledge"
	"github.com/freshkeep/hub/internal/observability"
	"github.com/freshkeep/hub/pkg/httpretry"
)

var errNoCredential = errors.New("no credential for the configured AI provider; set GEMINI_API_KEY or OPENAI_API_KEY")

type buildOptions struct {
	sourceDir       string
	outputPath      string
	rateLimit       float64
	chunkSize       int
	overlap         int
	checkpointEvery int
	jsonOutput      bool
	verbose         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build-knowledge",
		Short: "Rebuild the waste-disposal knowledge base",
		Long: `Chunk every PDF, TXT and MD document in the source directory, embed the chunks and
write the knowledge base JSON file.

Chunks already present in the output file with unchanged text keep their embedding, so only new
or edited documents are sent to the embedding API. Progress is checkpointed; an interrupted run
resumes from the last checkpoint.

Flags default to the KNOWLEDGE_SOURCE_DIR, KNOWLEDGE_BASE_PATH, EMBEDDING_RATE_LIMIT,
CHUNK_MAX_CHARS, CHUNK_OVERLAP and CHECKPOINT_EVERY environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			applyDefaults(cmd, &opts, cfg)

			return runBuild(cmd, opts, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.sourceDir, "source", "s", "", "directory with source documents")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "knowledge base JSON file to write")
	flags.Float64Var(&opts.rateLimit, "rate", 0, "maximum embedding requests per second")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "maximum characters per chunk")
	flags.IntVar(&opts.overlap, "overlap", -1, "characters shared by consecutive chunks")
	flags.IntVar(&opts.checkpointEvery, "checkpoint-every", 0, "newly embedded chunks between checkpoint writes")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print the summary as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	return cmd
}

// applyDefaults fills every flag the user did not set from configuration.
func applyDefaults(cmd *cobra.Command, opts *buildOptions, cfg *config.Config) {
	flags := cmd.Flags()

	if !flags.Changed("source") {
		opts.sourceDir = cfg.KnowledgeSourceDir
	}

	if !flags.Changed("output") {
		opts.outputPath = cfg.KnowledgeBasePath
	}

	if !flags.Changed("rate") {
		opts.rateLimit = cfg.EmbeddingRateLimit
	}

	if !flags.Changed("chunk-size") {
		opts.chunkSize = cfg.ChunkMaxChars
	}

	if !flags.Changed("overlap") {
		opts.overlap = cfg.ChunkOverlap
	}

	if !flags.Changed("checkpoint-every") {
		opts.checkpointEvery = cfg.CheckpointEvery
	}
}

func runBuild(cmd *cobra.Command, opts buildOptions, cfg *config.Config) error {
	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	}

	logger := observability.NewLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)

	ctx := cmd.Context()

	httpClient := httpretry.NewClient(httpretry.Options{Timeout: cfg.GenerationTimeout, Logger: logger})

	client, err := aiprovider.New(ctx, cfg, httpClient)
	if err != nil {
		return err
	}

	if client == nil {
		return errNoCredential
	}

	var limiter *rate.Limiter
	if opts.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rateLimit), 1)
	}

	builder, err := knowledge.NewBuilder(knowledge.BuilderParams{
		SourceDir:       opts.sourceDir,
		OutputPath:      opts.outputPath,
		Embedder:        client,
		Limiter:         limiter,
		MaxChars:        opts.chunkSize,
		Overlap:         opts.overlap,
		CheckpointEvery: opts.checkpointEvery,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	summary, err := builder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild knowledge base: %w", err)
	}

	out := cmd.OutOrStdout()

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		return nil
	}

	_, err = fmt.Fprintf(out,
		"Wrote %s: %d chunks from %d sources (%d embedded, %d reused, %d pruned, %d unreadable)\n",
		opts.outputPath, summary.Chunks, summary.Sources, summary.Embedded, summary.Reused, summary.Pruned,
		summary.Unreadable,
	)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}
