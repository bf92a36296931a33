package cli

import (
	"fmt"

	"github.com/mvp-joe/ruumba/internal/erb"
	"github.com/mvp-joe/ruumba/internal/templates"
	"github.com/spf13/cobra"
)

var (
	markerFlag string
	noTrimFlag bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <template>",
	Short: "Print the Ruby projection of a template",
	Long: `Print the Ruby code embedded in an ERB template, blanking everything else
so each piece of code stays on its original line and column.

With --marker every tag is framed by numbered marker lines instead, which is
what the analyzer sees when auto-correcting.

Examples:
  ruumba extract app/views/home.html.erb
  ruumba extract --marker debug app/views/home.html.erb`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&markerFlag, "marker", "m", "", "Frame tags with markers derived from this seed")
	extractCmd.Flags().BoolVar(&noTrimFlag, "no-trim", false, "Keep trailing blanks on projected lines")
}

func runExtract(cmd *cobra.Command, args []string) error {
	var (
		doc templates.Document
		err error
	)
	if args[0] == "-" {
		doc, err = templates.StdinSource("-", cmd.InOrStdin())
	} else {
		doc, err = templates.Load(args[0])
	}
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), project(doc.Contents, markerFlag, !noTrimFlag))
	return nil
}

// project returns the direct projection of text, or the marked one when seed
// is set. Trimming only applies to direct projections.
func project(text, seed string, trim bool) string {
	if seed != "" {
		return erb.Extract(text, erb.NewMarker(seed))
	}
	projection := erb.Extract(text, "")
	if trim {
		projection = erb.TrimTrailingSpace(projection)
	}
	return projection
}

