// Package cli provides the command-line interface for Prism.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/prism/internal/config"
	httputil "github.com/jmylchreest/prism/internal/util/http"
	"github.com/jmylchreest/prism/internal/util/imagecache"
	"github.com/jmylchreest/prism/internal/version"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	verbose    bool
	quiet      bool
	configPath string
	cacheDir   string
	noCache    bool

	logger hclog.Logger
	v      *viper.Viper
}

// NewRootCmd builds the prism command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: hclog.NewNullLogger()}

	rootCmd := &cobra.Command{
		Use:   "prism",
		Short: "Extract dominant colour palettes from images",
		Long: `Prism reduces images to a small palette of representative colours using
K-Means clustering, Median Cut, or an Octree.

Images may be local files, directories, URLs, or pixel dumps produced by
"prism dump". Settings are read from flags, PRISM_* environment variables,
and $XDG_CONFIG_HOME/prism/config.yaml, in that order of precedence.`,
		Version:           version.Short(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/prism/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.cacheDir, "cache-dir", "", "directory for downloaded images (default: user cache directory)")
	rootCmd.PersistentFlags().BoolVar(&a.noCache, "no-cache", false, "always download URLs")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newQuantizeCmd(a))
	rootCmd.AddCommand(newDumpCmd(a))
	rootCmd.AddCommand(newRenderCmd(a))

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup builds the logger and layered configuration before any subcommand
// runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.logger = newLogger(cmd.ErrOrStderr(), a.verbose, a.quiet)

	a.v = config.New()
	if err := config.ReadFile(a.v, a.configPath); err != nil {
		return err
	}
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded config file", "path", used)
	}
	return nil
}

// imageCache returns the download cache, or nil when caching is off.
func (a *app) imageCache() *imagecache.Cache {
	if a.noCache {
		return nil
	}
	dir := a.cacheDir
	if dir == "" {
		def, err := imagecache.DefaultDir()
		if err != nil {
			a.logger.Debug("image cache disabled", "error", err)
			return nil
		}
		dir = def
	}
	return imagecache.New(dir, httputil.FetchOptions{})
}

func newLogger(w io.Writer, verbose, quiet bool) hclog.Logger {
	level := hclog.Info
	switch {
	case verbose:
		level = hclog.Debug
	case quiet:
		level = hclog.Error
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "prism",
		Output: w,
		Level:  level,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
