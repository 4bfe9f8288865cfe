package main

import (
	"bufio"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/convocatorias-pro/search-service/internal/search"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run searches for every query in a file",
	Long:  "Reads newline-delimited queries from a file and runs them concurrently. Blank lines and lines starting with # are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queries, err := readQueryFile(batchFile)
		if err != nil {
			return err
		}
		if len(queries) == 0 {
			return eris.Errorf("no queries in %s", batchFile)
		}

		env, err := initSearch(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.MaxConcurrentSearches
		}

		zap.L().Info("batch started",
			zap.Int("queries", len(queries)),
			zap.Int("concurrency", concurrency),
		)
		start := time.Now()

		var completed, failed, results atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, q := range queries {
			g.Go(func() error {
				resp, err := env.Service.Search(gctx, search.SearchRequest{Query: q})
				if err != nil {
					failed.Add(1)
					zap.L().Warn("batch query failed",
						zap.String("query", q),
						zap.Error(err),
					)
					// Input and internal errors only affect this query.
					return nil
				}
				completed.Add(1)
				results.Add(int64(resp.ResultsCount))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch run")
		}

		zap.L().Info("batch finished",
			zap.Int64("completed", completed.Load()),
			zap.Int64("failed", failed.Load()),
			zap.Int64("results", results.Load()),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	},
}

func readQueryFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open query file")
	}
	defer f.Close()

	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read query file")
	}
	return queries, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "newline-delimited query file (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent searches (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
