package pipeline

import (
	"context"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/fsutil"
	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
	"github.com/releasekit/releasectl/pkg/validation"
)

func (o *Orchestrator) registerFacts() {
	o.cache.Register(types.FactDirectory, o.checkDirectory)
	o.cache.Register(types.FactConfig, o.checkConfig, types.FactDirectory)
	o.cache.Register(types.FactChannels, o.checkChannels, types.FactConfig)
	o.cache.Register(types.FactVersion, o.checkVersion, types.FactConfig)
	for _, kind := range types.ToolKinds {
		o.cache.Register(kind.Fact(), o.checkTool(kind), types.FactConfig)
	}
}

func (o *Orchestrator) checkDirectory(context.Context) error {
	if !fsutil.IsDir(o.root) {
		return builderr.New(builderr.KindEnvironment, "project root '%s' is not a directory", o.root)
	}
	for _, dir := range o.cfg.RequiredDirs {
		path := types.Resolve(o.root, dir)
		if !fsutil.IsDir(path) {
			return builderr.New(builderr.KindEnvironment, "directory '%s' does not exist", path)
		}
	}
	for _, file := range o.cfg.RequiredFiles {
		path := types.Resolve(o.root, file)
		if !fsutil.IsFile(path) {
			return builderr.New(builderr.KindEnvironment, "file '%s' does not exist", path)
		}
	}
	return nil
}

func (o *Orchestrator) checkConfig(context.Context) error {
	result := validation.NewConfigValidator(o.root).Validate(o.cfg)
	for _, w := range result.Warnings() {
		o.logger.Warn(w.Message, logger.WithField("field", w.Section+"."+w.Field))
	}
	return result.Err()
}

func (o *Orchestrator) checkChannels(context.Context) error {
	list, err := o.registry.Channels()
	if err != nil {
		return err
	}
	for _, ch := range list {
		if !validation.ValidChannelID(ch) {
			return builderr.New(builderr.KindConfig, "invalid channel id %q in %s", ch, o.registry.Describe())
		}
	}
	o.logger.Debug("Channels loaded", logger.WithField("count", len(list)))
	return nil
}

func (o *Orchestrator) checkVersion(context.Context) error {
	st, err := o.versions.Load()
	if err != nil {
		return err
	}
	o.current = st
	o.logger.Debug("Version loaded", logger.WithField("current", st.Current), logger.WithField("lock", st.Lock))
	return nil
}

func (o *Orchestrator) checkTool(kind types.ToolKind) validation.Check {
	return func(ctx context.Context) error {
		h, err := o.resolveTool(kind)
		if err != nil {
			return err
		}
		o.logger.Info("Checking "+string(kind)+"...", logger.WithField("path", h.Path))
		if err := tools.Probe(ctx, o.runner, h); err != nil {
			return builderr.Wrap(builderr.KindToolUnavailable, err, "%s at '%s' is not callable", kind, h.Path)
		}
		return nil
	}
}

// resolveTool locates a tool without running it
func (o *Orchestrator) resolveTool(kind types.ToolKind) (tools.Handle, error) {
	if h, ok := o.handles[kind]; ok {
		return h, nil
	}
	h, err := tools.Resolve(o.root, kind, o.cfg.Tools.Command(kind), o.cfg.Tools.PathFile(kind))
	if err != nil {
		return tools.Handle{}, err
	}
	o.handles[kind] = h
	return h, nil
}
