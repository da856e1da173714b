package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/traitgen/compiler/gen"
)

func (a *app) generateCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate the companions of a class or a namespace",
		Long: `Generate the companions of one entity class, or of every mapped class of a
namespace.

The name accepts slash or backslash separators and the Alias:Entity form:

  traitgen generate 'Blog\Entity\Post'
  traitgen generate Blog/Entity
  traitgen generate Blog:Post`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd.Context(), cmd, args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the companions instead of writing them")
	cmd.Flags().BoolVar(&f.check, "check", false, "fail when a companion is missing or out of date, without writing")
	cmd.Flags().StringVar(&f.path, "path", "", "directory inserted before companion file names (overrides output.segment)")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "check")
	return cmd
}

func (a *app) generate(ctx context.Context, cmd *cobra.Command, name string, f runFlags) error {
	s, err := a.session(ctx, f)
	if err != nil {
		return err
	}
	defer s.Close()
	report, err := s.gen.Generate(ctx, name)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		return err
	}
	if n := report.Count(gen.StatusStale); f.check && n > 0 {
		return fmt.Errorf("%d companion(s) out of date", n)
	}
	return nil
}
