package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marksheet-extractor/internal/export"
	"github.com/joseph-ayodele/marksheet-extractor/internal/repository"
)

var (
	runsLimit int
	runsXLSX  string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect extraction runs recorded in the store",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		runs, err := repo.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tMODEL\tERROR\tELAPSED_MS\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				r.ID, r.Filename, r.Status, r.Model, r.ErrorKind, r.ElapsedMS, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent runs to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runsXLSX == "" {
			return fmt.Errorf("--xlsx is required")
		}
		repo, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		b, err := export.NewService(repo, logger).RunsXLSX(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if err := os.WriteFile(runsXLSX, b, 0644); err != nil {
			return fmt.Errorf("write %s: %w", runsXLSX, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", runsXLSX)
		return nil
	},
}

func openStore(cmd *cobra.Command) (repository.ExtractionRepository, error) {
	repo, err := repository.Open(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("no store configured: set database.driver to postgres or sqlite")
	}
	return repo, nil
}

func init() {
	runsCmd.PersistentFlags().IntVar(&runsLimit, "limit", 50, "maximum number of runs")
	runsExportCmd.Flags().StringVar(&runsXLSX, "xlsx", "", "output workbook path")
	runsCmd.AddCommand(runsListCmd, runsExportCmd)
}
