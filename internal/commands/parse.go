package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/export"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

type parseOptions struct {
	format      string
	output      string
	validate    bool
	diagnostics bool
}

func newParseCommand(g *globalFlags) *cobra.Command {
	opts := parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse a statement file and write normalized statements to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, g, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "", "statement format: auto, bai2, mt940, camt053 (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "output format: json, yaml, csv, xlsx, cbor")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "check balance continuity and fail on mismatch")
	cmd.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "include dropped input in the output")

	return cmd
}

func runParse(cmd *cobra.Command, g *globalFlags, args []string, opts parseOptions) error {
	cfg, log, err := g.load(g.configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	ctx := context.Background()

	enc, err := export.DefaultRegistry().Lookup(opts.output)
	if err != nil {
		return err
	}

	content, source, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	format := opts.format
	if format == "" {
		format = cfg.Parse.DefaultFormat
	}

	res, err := statement.ParseWithDiagnostics(content, format)
	if err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		log.Warn(ctx, "Dropped statement input",
			"file", source,
			"line", d.Line,
			"record", d.Record,
			"reason", d.Reason,
		)
	}

	var validation []statement.ValidationError
	if opts.validate || cfg.Parse.ValidateBalances {
		validation = statement.Validate(res.Statements)
	}

	doc := export.NewDocument(res, validation)
	if !opts.diagnostics {
		doc.Diagnostics = nil
	}
	if err := enc.Encode(cmd.OutOrStdout(), doc); err != nil {
		return err
	}

	if len(validation) > 0 {
		return fmt.Errorf("%d statement(s) failed validation: %s", len(validation), validation[0].Error())
	}
	return nil
}
