package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"catalyst/internal/scoring"
)

var listFlags struct {
	dbPath string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored verdicts, best score first",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listFlags.dbPath, "db", "", "analysis database path (default "+defaultDBHint+")")
}

func runList(cmd *cobra.Command, _ []string) error {
	st, err := openStoreAt(listFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	verdicts, err := st.ListVerdicts()
	if err != nil {
		return fmt.Errorf("list verdicts: %w", err)
	}
	if len(verdicts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No verdicts stored yet. Run 'catalyst analyze' first.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tSCORE\tTIER\tOK\tUPDATED")
	for _, v := range verdicts {
		ok := "yes"
		if !v.Success {
			ok = "degraded"
		}
		fmt.Fprintf(w, "%s\t%+d/6\t%s\t%s\t%s\n",
			v.Project, v.TotalScore, scoring.TierFor(v.TotalScore), ok, v.UpdatedAt)
	}
	return w.Flush()
}
