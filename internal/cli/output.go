package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/syssam/traitgen/compiler/gen"
)

var (
	entityColor = color.New(color.FgCyan)
	pathColor   = color.New(color.FgGreen)
	skipColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed)
)

// printReport writes one status line per class of a run.
func printReport(w io.Writer, report *gen.Report) {
	if report.Single {
		fmt.Fprintf(w, "Generating entity \"%s\"\n", entityColor.Sprint(report.Name))
	} else {
		fmt.Fprintf(w, "Generating entities for namespace \"%s\"\n", entityColor.Sprint(report.Name))
	}
	for _, res := range report.Results {
		fmt.Fprintf(w, "  > generating %s\n", entityColor.Sprint(res.Class))
		if res.Err != nil {
			fmt.Fprintf(w, "    %s %v\n", failColor.Sprint("failed:"), res.Err)
			continue
		}
		fmt.Fprintf(w, "    %s %s%s\n", statusText(res.Status), pathColor.Sprint(res.Path), counts(res))
		if res.Status == gen.StatusPlanned {
			fmt.Fprintf(w, "\n%s\n", res.Source)
		}
	}
	for _, name := range report.Unmapped {
		fmt.Fprintf(w, "  %s %s has no mapping metadata\n", skipColor.Sprint("!"), name)
	}
}

func statusText(s gen.Status) string {
	switch s {
	case gen.StatusWritten:
		return pathColor.Sprint(s.String())
	case gen.StatusStale:
		return failColor.Sprint(s.String())
	}
	return skipColor.Sprint(s.String())
}

func counts(res gen.Result) string {
	if len(res.Skipped) == 0 {
		return fmt.Sprintf(" (%d methods)", len(res.Methods))
	}
	return fmt.Sprintf(" (%d methods, %s)", len(res.Methods), skipColor.Sprintf("%d skipped", len(res.Skipped)))
}
