// Package cli implements the traitgen command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/traitgen/internal/config"
	"github.com/syssam/traitgen/internal/logging"
	"github.com/syssam/traitgen/internal/version"
)

// skipSetup marks commands that run without configuration.
const skipSetup = "traitgen/skip-setup"

// app holds the state shared by the commands of one invocation.
type app struct {
	cfgPath string
	verbose bool

	cfg *config.Config
	log *zap.Logger
}

// NewRootCmd returns the traitgen command tree.
func NewRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "traitgen",
		Short: "Generate accessor companions from entity mapping metadata",
		Long: `traitgen reads the persistence mapping of entity classes (Doctrine YAML
mapping files or a live database schema) and writes a companion next to each
class holding its getters, setters, collection adders and removers, and a
constructor initializing its collections.

Methods already written by hand in the class are never generated.`,
		Version:           version.String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to the configuration file (default "+config.DefaultFile+" when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(a.generateCmd())
	root.AddCommand(a.watchCmd())
	root.AddCommand(versionCmd())
	return root
}

// setup loads the configuration and the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] != "" {
		return nil
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	log.Debug("configuration loaded", zap.String("path", cfg.Path), zap.String("dialect", cfg.Dialect))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
