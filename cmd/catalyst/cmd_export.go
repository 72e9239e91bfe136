package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"catalyst/internal/store"
)

var exportFlags struct {
	dbPath string
	out    string
}

var exportCmd = &cobra.Command{
	Use:   "export [project...]",
	Short: "Export stored analysis as JSON (all projects when none are named)",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.dbPath, "db", "", "analysis database path (default "+defaultDBHint+")")
	exportCmd.Flags().StringVarP(&exportFlags.out, "output", "o", "", "write JSON to this file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := openStoreAt(exportFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	names := args
	if len(names) == 0 {
		names, err = st.Projects()
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
	}

	exports := make([]*store.Export, 0, len(names))
	for _, name := range names {
		ex, err := st.ExportProject(name)
		if err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		exports = append(exports, ex)
	}

	data, err := json.MarshalIndent(exports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	data = append(data, '\n')

	if exportFlags.out != "" {
		if err := os.WriteFile(exportFlags.out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportFlags.out, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d project(s) to %s\n", len(exports), exportFlags.out)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
