package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "salesetl",
	Short: "Sales ETL with a daily data-quality gate",
	Long: `Sales ETL Unified CLI

Excel 워크북을 읽어 PostgreSQL 로 적재하고, 당일 품질 검증을 수행합니다.
파이프라인 흐름: EXTRACT → TRANSFORM → LOAD → QUALITY

Usage:
  go run ./cmd/salesetl [command]

Examples:
  go run ./cmd/salesetl run
  go run ./cmd/salesetl transform --limit 5
  go run ./cmd/salesetl quality history
  go run ./cmd/salesetl scheduler start
  go run ./cmd/salesetl api`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
