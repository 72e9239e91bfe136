package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	dbPath string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show analysis database statistics",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.dbPath, "db", "", "analysis database path (default "+defaultDBHint+")")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	st, err := openStoreAt(statusFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Projects researched:  %d\n", stats.Projects)
	fmt.Fprintf(out, "Verdicts stored:      %d\n", stats.Verdicts)
	fmt.Fprintf(out, "Question results:     %d\n", stats.QuestionRes)
	fmt.Fprintf(out, "Cache blobs:          %d\n", stats.CacheBlobs)
	return nil
}
