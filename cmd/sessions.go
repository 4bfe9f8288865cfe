package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/store"
)

var (
	sessionsStatus string
	sessionsLimit  int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent search sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.ListSessions(ctx, store.SessionFilter{
			Status: model.SessionStatus(sessionsStatus),
			Limit:  sessionsLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "filter by status (processing|completed|failed)")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "max sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
