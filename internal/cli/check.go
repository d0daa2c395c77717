package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lightbench/litctl/internal/schedule"
)

var checkCmd = &cobra.Command{
	Use:   "check <schedule-file>",
	Short: "Validate a schedule file and print its rows",
	Long: `check loads a CSV or XLSX schedule file the same way run does and
prints the parsed rows, including the delay until each row's successor.
It exits non-zero if the file cannot be loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	seq, err := schedule.LoadFile(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROW\tTIME_MS\tSET_POINT\tDELTA_MS")
	for i, row := range seq {
		fmt.Fprintf(w, "%d\t%d\t%g\t%d\n", i, row.TimeMs, row.SetPoint, seq.DeltaToNext(i).Milliseconds())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d rows, duration %s\n", len(seq), seq.Duration())
	return nil
}
