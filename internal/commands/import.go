package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/importer"
)

func newImportCommand(g *globalFlags) *cobra.Command {
	var repoDir string
	var output string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import pending statement files from the import directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(repoDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			configPath := filepath.Join(absDir, g.configPath)
			if cmd.Flags().Changed("config") {
				configPath = g.configPath
			}
			return runImport(cmd, g, absDir, configPath, output)
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "export format (default from config)")

	return cmd
}

func runImport(cmd *cobra.Command, g *globalFlags, repoRoot, configPath, output string) error {
	cfg, log, err := g.load(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, err := importer.NewService(repoRoot, cfg, output, log)
	if err != nil {
		return err
	}

	summary, err := svc.Run(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range summary.Imported {
		fmt.Fprintf(out, "imported %s (%s): %d statement(s), %d transaction(s) -> %s\n",
			r.File.Name, r.Format, r.Statements, r.Transactions, r.Output)
	}
	for _, f := range summary.Skipped {
		fmt.Fprintf(out, "skipped %s: unknown statement format\n", f.Name)
	}
	if summary.Commit != "" {
		fmt.Fprintf(out, "committed %s\n", summary.Commit)
	}
	if len(summary.Imported) == 0 && len(summary.Skipped) == 0 {
		fmt.Fprintln(out, "nothing to import")
	}
	return nil
}
