package cmd

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/pyrite-lang/pyrite/fixture"
	"github.com/pyrite-lang/pyrite/internal/log"
	"github.com/spf13/cobra"
)

// VerifyCmd runs conformance fixtures through the engines and renders a
// verdict per query. It is a developer tool: the checker's user-facing
// surface lives outside this repository.
var VerifyCmd = &cobra.Command{
	Use:          "verify fixture.yaml [more.yaml...]",
	Short:        "Run conformance fixtures against the type engines",
	RunE:         runVerify,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var logLevel *int

func init() {
	logLevel = VerifyCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

func runVerify(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*logLevel))

	failedTotal := 0
	for _, path := range args {
		suite, err := fixture.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		results := suite.Run()

		pterm.DefaultSection.Println(path)
		table := pterm.TableData{{"kind", "query", "got", "verdict"}}
		for _, res := range results {
			verdict := pterm.Green("ok")
			switch {
			case res.Err != nil:
				verdict = pterm.Red("error: " + res.Err.Error())
				failedTotal++
			case !res.Pass:
				verdict = pterm.Red("want " + res.Query.Expect)
				failedTotal++
			}
			table = append(table, []string{
				res.Query.Kind,
				describeQuery(res.Query),
				res.Got,
				verdict,
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
			return err
		}
	}
	if failedTotal > 0 {
		return fmt.Errorf("%d queries failed", failedTotal)
	}
	pterm.Success.Println("all queries passed")
	return nil
}

func describeQuery(q fixture.Query) string {
	if q.Kind == "infer" {
		return fmt.Sprintf("%s against %s for %s", q.Formal, q.Actual, q.Var)
	}
	return fmt.Sprintf("%s vs %s", q.Left, q.Right)
}
