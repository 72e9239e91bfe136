package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearFlags struct {
	dbPath string
	all    bool
}

var clearCmd = &cobra.Command{
	Use:   "clear [project...]",
	Short: "Remove cached analysis for the named projects, or everything with --all",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().StringVar(&clearFlags.dbPath, "db", "", "analysis database path (default "+defaultDBHint+")")
	clearCmd.Flags().BoolVar(&clearFlags.all, "all", false, "clear all stored projects and cache entries")
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearFlags.all && len(args) == 0 {
		return errors.New("name at least one project, or pass --all")
	}
	if clearFlags.all && len(args) > 0 {
		return errors.New("--all cannot be combined with project names")
	}

	st, err := openStoreAt(clearFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if clearFlags.all {
		if err := st.ClearAll(); err != nil {
			return fmt.Errorf("clear all: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared all stored analysis data.")
		return nil
	}

	missing, err := st.ClearProjects(args)
	if err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d project(s).\n", len(args)-len(missing))
	if len(missing) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Not found: %s\n", strings.Join(missing, ", "))
	}
	return nil
}
