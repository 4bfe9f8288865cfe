package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/monitoring"
	"github.com/convocatorias-pro/search-service/internal/store"
)

var (
	metricsLookback int
	metricsPublish  bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Aggregate search metrics over a lookback window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := monitoring.NewCollector(st).Collect(ctx, metricsLookback)
		if err != nil {
			return eris.Wrap(err, "collect metrics")
		}

		if metricsPublish {
			pg, ok := st.(*store.PostgresStore)
			if !ok {
				return eris.New("metrics publishing requires the postgres store driver")
			}
			if err := monitoring.PublishDaily(ctx, pg.Pool(), snap); err != nil {
				return eris.Wrap(err, "publish metrics")
			}
			zap.L().Info("daily metrics published",
				zap.Int("searches", snap.SearchTotal),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	metricsCmd.Flags().IntVar(&metricsLookback, "lookback", 24, "lookback window in hours")
	metricsCmd.Flags().BoolVar(&metricsPublish, "publish", false, "upsert the snapshot into search_metrics_daily (postgres only)")
	rootCmd.AddCommand(metricsCmd)
}
