package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/config"
	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/notifier"
	"github.com/releasekit/releasectl/pkg/pipeline"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
	"github.com/spf13/cobra"
)

// newDispatchCmd exposes one dispatcher command as a cobra subcommand.
// Argument checking stays with the dispatcher.
func (c *CLI) newDispatchCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd.Context(), append([]string{name}, args...))
		},
	}
}

func (c *CLI) newInitCmd() *cobra.Command {
	var project string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration",
		Long: `Write a releasectl.yaml with default paths into the project root.
An existing configuration is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(project, force)
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "uploader project, e.g. studio/game")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")

	return cmd
}

func (c *CLI) runInit(project string, force bool) error {
	m := config.NewManager(c.config.ProjectRoot, c.config.ConfigFile)
	path := m.DefaultPath()

	cfg := config.Default()
	cfg.Project = project

	if err := m.Save(path, cfg, force); err != nil {
		return err
	}

	c.logger.Success(fmt.Sprintf("Created configuration at %s", path))
	if project == "" {
		c.logger.Info("Set 'project' before publishing")
	}
	return nil
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the releasectl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "%s %s\n", ProgramName, c.config.Version)
		},
	}
}

// newOrchestrator loads the project configuration and wires the real
// runner, notifier and prompt
func (c *CLI) newOrchestrator() (*pipeline.Orchestrator, error) {
	root, err := filepath.Abs(c.config.ProjectRoot)
	if err != nil {
		return nil, builderr.Wrap(builderr.KindEnvironment, err, "failed to resolve project root")
	}

	m := config.NewManager(root, c.config.ConfigFile)
	project, err := m.Load()
	if err != nil {
		return nil, err
	}
	if used := m.ConfigFileUsed(); used != "" {
		c.logger.Debug("Using config file", logger.WithField("file", used))
	}

	runner := c.runner
	if runner == nil {
		runner = tools.NewExecRunner(c.logger, filepath.Join(project.StatePath(root), "logs"))
	}

	notify := c.notifier
	if notify == nil {
		notify = notifier.New(notifier.Config{
			Enabled: project.Notifications.Enabled,
			Sound:   project.Notifications.Sound,
		}, c.logger)
	}

	return pipeline.New(pipeline.Options{
		Root:     root,
		Config:   project,
		Runner:   runner,
		Logger:   c.logger,
		Notifier: notify,
		Prompt:   c.prompt,
	})
}

// prompt asks on errorOut and reads one line from input
func (c *CLI) prompt(message string) (string, error) {
	fmt.Fprintf(c.errorOut, "%s ", color.YellowString(message))

	line, err := bufio.NewReader(c.input).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// lazyPipeline builds the orchestrator on first use so that help and
// usage errors need no configuration
type lazyPipeline struct {
	build func() (*pipeline.Orchestrator, error)

	once sync.Once
	p    *pipeline.Orchestrator
	err  error
}

func (l *lazyPipeline) get() (*pipeline.Orchestrator, error) {
	l.once.Do(func() {
		l.p, l.err = l.build()
	})
	return l.p, l.err
}

func (l *lazyPipeline) Channels(ctx context.Context) ([]string, error) {
	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.Channels(ctx)
}

func (l *lazyPipeline) Clean(ctx context.Context, ids []string) error {
	p, err := l.get()
	if err != nil {
		return err
	}
	return p.Clean(ctx, ids)
}

func (l *lazyPipeline) Export(ctx context.Context, ids []string) error {
	p, err := l.get()
	if err != nil {
		return err
	}
	return p.Export(ctx, ids)
}

func (l *lazyPipeline) Publish(ctx context.Context) error {
	p, err := l.get()
	if err != nil {
		return err
	}
	return p.Publish(ctx)
}

func (l *lazyPipeline) Probe(ctx context.Context, kind types.ToolKind) (tools.Handle, error) {
	p, err := l.get()
	if err != nil {
		return tools.Handle{}, err
	}
	return p.Probe(ctx, kind)
}

func (l *lazyPipeline) Status(ctx context.Context) (*pipeline.StatusReport, error) {
	p, err := l.get()
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}
