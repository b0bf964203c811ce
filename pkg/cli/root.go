// Package cli provides the command-line interface for releasectl
package cli

import (
	"context"
	"io"
	"os"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/dispatch"
	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/notifier"
	"github.com/releasekit/releasectl/pkg/process"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/spf13/cobra"
)

// ProgramName is the name shown in usage text
const ProgramName = "releasectl"

// CLI encapsulates the command-line interface and makes it testable
// by eliminating global state.
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	logger   logger.Logger
	output   io.Writer
	errorOut io.Writer
	input    io.Reader

	// runner and notifier replace the real ones when set
	runner   tools.Runner
	notifier notifier.Notifier
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(config *Config) *CLI {
	if config == nil {
		config = NewConfig()
	}

	cli := &CLI{
		config:   config,
		output:   os.Stdout,
		errorOut: os.Stderr,
		input:    os.Stdin,
	}

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(config *Config, output, errorOut io.Writer) *CLI {
	cli := NewCLI(config)
	cli.output = output
	cli.errorOut = errorOut
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// SetInput replaces the reader answering confirmation prompts
func (c *CLI) SetInput(r io.Reader) {
	c.input = r
}

// SetRunner replaces the subprocess runner
func (c *CLI) SetRunner(r tools.Runner) {
	c.runner = r
}

// SetNotifier replaces the desktop notifier
func (c *CLI) SetNotifier(n notifier.Notifier) {
	c.notifier = n
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	if args == nil {
		args = []string{}
	}
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   ProgramName + " <command> [channel...]",
		Short: "Clean, export and publish game builds per release channel",
		Long: `releasectl drives the engine exporter, the uploader and the version
control tool to turn a project into published builds, one channel at a time.

A version is published at most once: the lock file records the last
published version and publish refuses to run again for it.`,

		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: c.initializeConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd.Context(), args)
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate(ProgramName + " {{.Version}}\n")
	c.rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return builderr.Wrap(builderr.KindUsage, err, "invalid flags")
	})

	c.rootCmd.SetHelpCommand(c.newDispatchCmd("help", "Show the command summary"))
	c.rootCmd.AddCommand(c.newDispatchCmd("list", "List channels in publish order"))
	c.rootCmd.AddCommand(c.newDispatchCmd("clean", "Clean all or the named channels"))
	c.rootCmd.AddCommand(c.newDispatchCmd("export", "Export all or the named channels"))
	c.rootCmd.AddCommand(c.newDispatchCmd("publish", "Export and upload every channel for a new version"))
	c.rootCmd.AddCommand(c.newDispatchCmd("test", "Check that engine, uploader or vcs is callable"))
	c.rootCmd.AddCommand(c.newDispatchCmd("status", "Show versions, facts and channel records"))
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "config file (default: releasectl.yaml in the project root)")
	flags.StringVar(&c.config.ProjectRoot, "root", c.config.ProjectRoot, "project root directory")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", c.config.Verbosity, "log level (debug, info, warn, error)")
	flags.StringVar(&c.config.LogFile, "log-file", "", "also append log lines to this file")
}

func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	if f, ok := c.errorOut.(*os.File); ok && f == os.Stderr {
		c.logger = logger.CreateLogger(c.config.LogFile, c.config.Verbosity)
	} else {
		c.logger = logger.CreateLoggerWithOutput(c.config.LogFile, c.config.Verbosity, c.errorOut)
	}
	return nil
}

// dispatch runs one command token list with signal-driven cancellation
func (c *CLI) dispatch(ctx context.Context, tokens []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pm := process.NewManager(c.logger)
	pm.RegisterShutdownHandler(cancel)
	pm.Start(ctx)
	defer pm.Stop()

	p := &lazyPipeline{build: c.newOrchestrator}
	return dispatch.New(p, ProgramName, c.output, c.errorOut).Dispatch(ctx, tokens)
}

// ExecuteWithVersion runs the CLI on os.Args with the given build version
func ExecuteWithVersion(version string) error {
	config := NewConfig()
	if version != "" {
		config.Version = version
	}
	return NewCLI(config).Execute(os.Args[1:])
}
