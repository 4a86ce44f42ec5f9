package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/contentforge/ragpipe/internal/app"
	"github.com/contentforge/ragpipe/internal/config"
	"github.com/contentforge/ragpipe/internal/models"
	"github.com/contentforge/ragpipe/internal/processor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, processor.ErrInterrupted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		contentType   string
		limit         int
		since         string
		resume        bool
		checkpointDir string
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "ragpipe",
		Short: "Ingest source content into the retrieval knowledge base",
		Long: `ragpipe loads unprocessed source records (videos, audio, external
content, documents, social posts), builds the document/section/chunk
hierarchy with summaries and embeddings, and persists it for retrieval.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
			}

			var sinceTime *time.Time
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q, want YYYY-MM-DD: %w", since, err)
				}
				sinceTime = &t
			}

			st := models.SourceType(contentType)
			if contentType != "all" && !st.Valid() {
				return fmt.Errorf("invalid --content-type %q, want one of %v or all", contentType, models.AllSourceTypes)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.LoadConfig()
			application, err := app.NewApp(ctx, cfg, app.Options{CheckpointDir: checkpointDir})
			if err != nil {
				return fmt.Errorf("startup failed: %w", err)
			}
			defer application.Close()

			var items []models.ContentItem
			if contentType == "all" {
				items, err = application.Loader.LoadAll(ctx, limit, sinceTime)
			} else {
				items, err = application.Loader.LoadItems(ctx, st, limit, sinceTime)
			}
			if err != nil {
				return err
			}

			if len(items) == 0 {
				log.Println("nothing to process")
				return nil
			}

			stats, err := application.Pipeline.Run(ctx, items, resume)
			if errors.Is(err, processor.ErrInterrupted) {
				log.Println("interrupted; checkpoint saved, rerun with --resume to continue")
			}
			if err != nil {
				return err
			}

			fmt.Printf("Processed %d documents (%d failed), %d sections, %d chunks, $%.6f in %s\n",
				stats.DocumentsProcessed, stats.DocumentsFailed, stats.SectionsCreated,
				stats.ChunksCreated, stats.TotalCost, stats.Elapsed().Round(time.Millisecond))

			if stats.DocumentsProcessed == 0 && stats.DocumentsFailed > 0 {
				return fmt.Errorf("all %d items failed", stats.DocumentsFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "all", "source type to process (video, audio, external_content, document, social_post, all)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records per source type (0 = no limit)")
	cmd.Flags().StringVar(&since, "since", "", "only records created on or after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the last checkpoint")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "checkpoint directory (default from CHECKPOINT_DIR)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	return cmd
}
