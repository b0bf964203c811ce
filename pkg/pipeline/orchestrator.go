// Package pipeline orchestrates the clean, export and publish operations
// for every release channel.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/channels"
	rcontext "github.com/releasekit/releasectl/pkg/context"
	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/notifier"
	"github.com/releasekit/releasectl/pkg/state"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
	"github.com/releasekit/releasectl/pkg/validation"
	"github.com/releasekit/releasectl/pkg/version"
	"github.com/releasekit/releasectl/pkg/workdir"
)

// DefaultStateDir holds channel records when no state directory is set
const DefaultStateDir = ".releasectl/state"

// Prompt asks the operator for one line of input
type Prompt func(message string) (string, error)

// Options configures an Orchestrator
type Options struct {
	Root     string
	Config   *types.ProjectConfig
	Runner   tools.Runner
	Logger   logger.Logger
	Notifier notifier.Notifier
	// State defaults to a manager rooted at the configured state directory.
	State  *state.Manager
	Prompt Prompt
	// Passcode defaults to DefaultPasscode.
	Passcode func(version string) string
	// Version is the compiled-in version; the configured version wins.
	Version string
}

// Orchestrator is the context of one invocation. It owns the validation
// cache, channel registry, version store and tool handles; nothing is
// shared between orchestrators.
type Orchestrator struct {
	root         string
	cfg          *types.ProjectConfig
	runner       tools.Runner
	logger       logger.Logger
	notifier     notifier.Notifier
	state        *state.Manager
	prompt       Prompt
	passcode     func(string) string
	invocationID string

	cache    *validation.Cache
	registry *channels.Registry
	versions *version.Store
	current  version.State
	handles  map[types.ToolKind]tools.Handle
}

// New creates the orchestration context for one invocation
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, builderr.New(builderr.KindConfig, "no configuration loaded")
	}
	if opts.Root == "" {
		return nil, builderr.New(builderr.KindEnvironment, "no project root given")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, builderr.Wrap(builderr.KindEnvironment, err, "failed to resolve project root '%s'", opts.Root)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	cfg := opts.Config
	o := &Orchestrator{
		root:         root,
		cfg:          cfg,
		runner:       opts.Runner,
		logger:       log,
		notifier:     opts.Notifier,
		state:        opts.State,
		prompt:       opts.Prompt,
		passcode:     opts.Passcode,
		invocationID: rcontext.GenerateInvocationID(),
		cache:        validation.NewCache(log),
		handles:      make(map[types.ToolKind]tools.Handle),
	}

	if o.runner == nil {
		o.runner = tools.NewExecRunner(log, "")
	}
	if o.state == nil {
		stateDir := cfg.StatePath(root)
		if stateDir == "" {
			stateDir = filepath.Join(root, DefaultStateDir)
		}
		o.state = state.NewManager(stateDir, log)
	}
	if o.passcode == nil {
		o.passcode = DefaultPasscode
	}

	var source channels.Source
	if cfg.UsesChannelFile() {
		source = channels.FileSource{Path: types.Resolve(root, cfg.ChannelsFile)}
	} else {
		source = channels.StaticSource(cfg.Channels)
	}
	o.registry = channels.NewRegistry(source)

	override := cfg.Version
	if override == "" {
		override = opts.Version
	}
	o.versions = version.NewStore(cfg.VersionPath(root), cfg.LockPath(root), override)

	o.registerFacts()
	return o, nil
}

// Root returns the absolute project root
func (o *Orchestrator) Root() string {
	return o.root
}

// InvocationID identifies this invocation in logs and state records
func (o *Orchestrator) InvocationID() string {
	return o.invocationID
}

// Facts returns the current validation state
func (o *Orchestrator) Facts() []validation.FactState {
	return o.cache.Snapshot()
}

func (o *Orchestrator) begin(ctx context.Context, operation string) context.Context {
	ctx = rcontext.WithInvocationID(ctx, o.invocationID)
	ctx = rcontext.WithOperation(ctx, operation)
	return rcontext.EnrichContext(ctx)
}

func (o *Orchestrator) log(ctx context.Context) logger.Logger {
	return logger.WithContext(ctx, o.logger)
}

// ensure resolves each fact in order, stopping at the first failure
func (o *Orchestrator) ensure(ctx context.Context, facts ...types.FactID) error {
	for _, fact := range facts {
		if err := o.cache.Ensure(ctx, fact); err != nil {
			return err
		}
	}
	return nil
}

// targets resolves the channels an operation runs on. No ids means every
// channel in registry order; explicit ids are all checked before any work.
func (o *Orchestrator) targets(ctx context.Context, ids []string) ([]string, error) {
	all, err := o.Channels(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return all, nil
	}
	for _, id := range ids {
		if err := o.CheckChannel(ctx, id); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), ids...), nil
}

// Channels returns the registry's channels in order
func (o *Orchestrator) Channels(ctx context.Context) ([]string, error) {
	if err := o.ensure(ctx, types.FactChannels); err != nil {
		return nil, err
	}
	return o.registry.Channels()
}

// CheckChannel fails with UnknownChannel when id is not registered
func (o *Orchestrator) CheckChannel(ctx context.Context, id string) error {
	if err := o.ensure(ctx, types.FactChannels); err != nil {
		return err
	}
	if !o.registry.Contains(id) {
		return builderr.New(builderr.KindUnknownChannel, "channel '%s' does not exist", id)
	}
	return nil
}

// inOutputDir runs fn with the process inside the output directory when
// the project asks for it
func (o *Orchestrator) inOutputDir(fn func() error) error {
	if !o.cfg.ChangeDir {
		return fn()
	}
	scope, err := workdir.Enter(o.cfg.OutputPath(o.root))
	if err != nil {
		return builderr.Wrap(builderr.KindEnvironment, err, "could not change to the output directory")
	}
	defer func() {
		if err := scope.Restore(); err != nil {
			o.logger.Error("Failed to restore working directory", logger.WithError(err))
		}
	}()
	return fn()
}

func (o *Orchestrator) fail(ctx context.Context, operation string, err error) error {
	o.log(ctx).Debug(fmt.Sprintf("%s aborted", operation), logger.WithError(err))
	if o.notifier != nil {
		o.notifier.NotifyFailure(operation, err)
	}
	return err
}

func (o *Orchestrator) record(ctx context.Context, channel string, err error) {
	if err != nil {
		o.log(ctx).Warn("Failed to record channel state", logger.WithField("channel", channel), logger.WithError(err))
	}
}
