package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/traitgen/internal/watch"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		f        runFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <name>",
		Short: "Regenerate companions when mappings or sources change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd, args[0], f, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before regenerating")
	cmd.Flags().StringVar(&f.path, "path", "", "directory inserted before companion file names (overrides output.segment)")
	return cmd
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, name string, f runFlags, debounce time.Duration) error {
	paths, err := a.watched()
	if err != nil {
		return err
	}
	// The suffix is only known once the dialect default is applied.
	s, err := a.session(ctx, f)
	if err != nil {
		return err
	}
	suffix := s.gen.Config().FileSuffix
	s.Close()

	log := a.log.Named("watch")
	log.Info("watching", zap.Strings("paths", paths), zap.String("name", name))
	run := func(ctx context.Context, _ string) error {
		return a.generate(ctx, cmd, name, f)
	}
	w := watch.New(paths, run,
		watch.WithDebounce(debounce),
		watch.WithIgnore(func(path string) bool { return companion(path, suffix) }),
		watch.WithLogger(log),
	)
	return w.Run(ctx)
}
