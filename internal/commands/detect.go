package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file|-]",
		Short: "Print the format of a statement file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			format := statement.Detect(content)
			fmt.Fprintln(cmd.OutOrStdout(), format)
			if format == model.FormatUnknown {
				return &statement.FormatError{}
			}
			return nil
		},
	}
}
