package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/search"
)

var (
	searchQuery        string
	searchSector       string
	searchLocation     string
	searchMinAmount    float64
	searchMaxAmount    float64
	searchDeadlineFrom string
	searchDeadlineTo   string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a single search and print the results as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initSearch(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Service.Search(ctx, search.SearchRequest{
			Query: searchQuery,
			Parameters: model.SearchParameters{
				Sector:       searchSector,
				Location:     searchLocation,
				MinAmount:    searchMinAmount,
				MaxAmount:    searchMaxAmount,
				DeadlineFrom: searchDeadlineFrom,
				DeadlineTo:   searchDeadlineTo,
			},
		})
		if err != nil {
			return eris.Wrap(err, "search")
		}

		zap.L().Info("search complete",
			zap.String("search_id", resp.SearchID),
			zap.Int("results", resp.ResultsCount),
			zap.String("method", string(resp.ProcessingInfo.ExtractionMethod)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchQuery, "query", "", "search text (required)")
	searchCmd.Flags().StringVar(&searchSector, "sector", "", "sector filter")
	searchCmd.Flags().StringVar(&searchLocation, "location", "", "location filter")
	searchCmd.Flags().Float64Var(&searchMinAmount, "min-amount", 0, "minimum amount filter")
	searchCmd.Flags().Float64Var(&searchMaxAmount, "max-amount", 0, "maximum amount filter")
	searchCmd.Flags().StringVar(&searchDeadlineFrom, "deadline-from", "", "deadline lower bound (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchDeadlineTo, "deadline-to", "", "deadline upper bound (YYYY-MM-DD)")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}
