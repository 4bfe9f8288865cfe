package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/convocatorias-pro/search-service/internal/validate"
)

var (
	rulesPath     string
	rulesCheckURL string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate and inspect a fabrication rule set",
	Long:  "Compiles a fabrication rule set file and prints a summary. Without --path the embedded default is inspected.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := validate.LoadRules(rulesPath)
		if err != nil {
			return err
		}

		source := rulesPath
		if source == "" {
			source = "(embedded default)"
		}

		fmt.Printf("rule set: %s\n", source)
		fmt.Printf("version: %d\n", rs.Version)
		fmt.Printf("signatures: %d\n", len(rs.Signatures))
		fmt.Printf("suspicious amounts: %d\n", len(rs.SuspiciousAmounts))
		fmt.Printf("suspicious deadlines: %d\n", len(rs.SuspiciousDeadlines))
		fmt.Printf("denied URLs: %d\n", len(rs.URLDenyList))

		if rulesCheckURL != "" {
			fmt.Printf("url %q denied: %t\n", rulesCheckURL, rs.Denied(rulesCheckURL))
		}
		return nil
	},
}

func init() {
	rulesCmd.Flags().StringVar(&rulesPath, "path", "", "rule set YAML file (default: embedded rules)")
	rulesCmd.Flags().StringVar(&rulesCheckURL, "check-url", "", "test a URL against the deny list")
	rootCmd.AddCommand(rulesCmd)
}
