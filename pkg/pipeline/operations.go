package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/releasekit/releasectl/pkg/builderr"
	rcontext "github.com/releasekit/releasectl/pkg/context"
	"github.com/releasekit/releasectl/pkg/fsutil"
	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
)

// Clean empties the output directory of each channel except the
// placeholder. No ids means every channel.
func (o *Orchestrator) Clean(ctx context.Context, ids []string) error {
	ctx = o.begin(ctx, "clean")

	if err := o.ensure(ctx, types.FactDirectory); err != nil {
		return o.fail(ctx, "clean", err)
	}
	targets, err := o.targets(ctx, ids)
	if err != nil {
		return o.fail(ctx, "clean", err)
	}
	if o.cfg.Clean.UseVCS {
		if err := o.ensure(ctx, types.FactVCS); err != nil {
			return o.fail(ctx, "clean", err)
		}
	}

	for _, ch := range targets {
		if err := o.cleanChannel(ctx, ch); err != nil {
			return o.fail(ctx, "clean", err)
		}
	}

	o.log(ctx).Success("Cleaned channels", logger.WithField("count", len(targets)))
	return nil
}

func (o *Orchestrator) cleanChannel(ctx context.Context, channel string) error {
	ctx = rcontext.WithChannel(ctx, channel)
	log := o.log(ctx)
	dir := o.cfg.ChannelDir(o.root, channel)

	log.Info("Cleaning channel...")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return builderr.Wrap(builderr.KindCleanFailure, err, "could not create output directory for channel '%s'", channel)
	}

	if o.cfg.Clean.UseVCS {
		h, err := o.resolveTool(types.ToolVCS)
		if err != nil {
			return err
		}
		if _, err := tools.NewVCS(h, o.runner).Clean(ctx, o.cfg.OutputPath(o.root), channel, o.cfg.Placeholder); err != nil {
			return builderr.Wrap(builderr.KindCleanFailure, err, "could not clean channel '%s'", channel)
		}
	} else {
		removed, err := fsutil.CleanDir(dir, o.cfg.Placeholder, o.cfg.Clean.MaxDepth)
		switch {
		case errors.Is(err, fsutil.ErrDepthExceeded):
			return builderr.Wrap(builderr.KindCleanFailure, err, "cleaning depth exceeded in channel '%s'", channel)
		case errors.Is(err, fsutil.ErrBrokenEntry):
			return builderr.Wrap(builderr.KindCleanFailure, err, "broken entry in channel '%s'", channel)
		case err != nil:
			return builderr.Wrap(builderr.KindCleanFailure, err, "could not clean channel '%s'", channel)
		}
		log.Debug("Removed entries", logger.WithField("count", removed))
	}

	o.record(ctx, channel, o.state.MarkCleaned(channel, o.invocationID))
	return nil
}

// Export cleans and exports each channel, then copies the license into
// it. The batch stops at the first failing channel.
func (o *Orchestrator) Export(ctx context.Context, ids []string) error {
	ctx = o.begin(ctx, "export")

	if err := o.ensure(ctx, types.FactDirectory); err != nil {
		return o.fail(ctx, "export", err)
	}
	targets, err := o.targets(ctx, ids)
	if err != nil {
		return o.fail(ctx, "export", err)
	}
	if err := o.ensureExportable(ctx); err != nil {
		return o.fail(ctx, "export", err)
	}

	if err := o.inOutputDir(func() error { return o.exportChannels(ctx, targets) }); err != nil {
		return o.fail(ctx, "export", err)
	}

	o.log(ctx).Success("Exported channels", logger.WithField("count", len(targets)))
	return nil
}

func (o *Orchestrator) ensureExportable(ctx context.Context) error {
	if o.cfg.Clean.UseVCS {
		if err := o.ensure(ctx, types.FactVCS); err != nil {
			return err
		}
	}
	return o.ensure(ctx, types.FactEngine)
}

func (o *Orchestrator) exportChannels(ctx context.Context, targets []string) error {
	for _, ch := range targets {
		if err := o.exportChannel(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) exportChannel(ctx context.Context, channel string) error {
	if err := o.cleanChannel(ctx, channel); err != nil {
		return err
	}

	ctx = rcontext.WithChannel(ctx, channel)
	log := o.log(ctx)
	log.Info("Exporting channel...")

	h, err := o.resolveTool(types.ToolEngine)
	if err != nil {
		return err
	}

	start := time.Now()
	engine := tools.NewEngine(h, o.runner, o.cfg.EnginePath)
	if _, err := engine.Export(ctx, o.cfg.OutputPath(o.root), channel); err != nil {
		err = builderr.Wrap(builderr.KindExportFailed, err, "export of channel '%s' failed", channel)
		o.record(ctx, channel, o.state.MarkFailed(channel, o.invocationID, err))
		return err
	}

	src := o.cfg.LicensePath(o.root)
	dst := filepath.Join(o.cfg.ChannelDir(o.root, channel), o.cfg.LicenseTarget)
	if err := fsutil.CopyFile(src, dst); err != nil {
		err = builderr.Wrap(builderr.KindReadmeCopyFailed, err, "could not copy '%s' to channel '%s'", o.cfg.License, channel)
		o.record(ctx, channel, o.state.MarkFailed(channel, o.invocationID, err))
		return err
	}

	o.record(ctx, channel, o.state.MarkExported(channel, o.invocationID, time.Since(start)))
	return nil
}

// Publish exports and uploads every channel under the current version.
// It does nothing when the current version is already locked. The lock is
// written before the first upload and is not rolled back if an upload
// fails.
func (o *Orchestrator) Publish(ctx context.Context) error {
	ctx = o.begin(ctx, "publish")
	log := o.log(ctx)

	if err := o.ensure(ctx, types.FactVersion); err != nil {
		return o.fail(ctx, "publish", err)
	}
	current := o.current
	if current.Published() {
		log.Info("Version " + current.Current + " is already published; nothing to do")
		return nil
	}

	if o.cfg.Project == "" {
		return o.fail(ctx, "publish", builderr.New(builderr.KindConfig, "no project identifier configured"))
	}

	if o.cfg.Confirm {
		confirmed, err := o.confirm(current.Current)
		if err != nil {
			return o.fail(ctx, "publish", err)
		}
		if !confirmed {
			log.Warn("Publishing canceled.")
			return nil
		}
	}

	targets, err := o.Channels(ctx)
	if err != nil {
		return o.fail(ctx, "publish", err)
	}
	if err := o.ensureExportable(ctx); err != nil {
		return o.fail(ctx, "publish", err)
	}
	// Locating the uploader runs nothing, so a missing uploader is caught
	// before the lock is spent.
	if _, err := o.resolveTool(types.ToolUploader); err != nil {
		return o.fail(ctx, "publish", err)
	}

	if err := o.versions.WriteLock(current.Current); err != nil {
		return o.fail(ctx, "publish", err)
	}
	log.Info("Locked version "+current.Current, logger.WithField("lock", o.versions.LockPath()))

	start := time.Now()
	err = o.inOutputDir(func() error {
		if err := o.exportChannels(ctx, targets); err != nil {
			return err
		}
		if err := o.ensure(ctx, types.FactUploader); err != nil {
			return err
		}
		return o.pushChannels(ctx, targets, current.Current)
	})
	if err != nil {
		return o.fail(ctx, "publish", err)
	}

	log.Success("Published version "+current.Current, logger.WithField("channels", len(targets)))
	if o.notifier != nil {
		o.notifier.NotifyPublished(current.Current, targets, time.Since(start))
	}
	return nil
}

func (o *Orchestrator) pushChannels(ctx context.Context, targets []string, tag string) error {
	h, err := o.resolveTool(types.ToolUploader)
	if err != nil {
		return err
	}
	uploader := tools.NewUploader(h, o.runner)
	outputDir := o.cfg.OutputPath(o.root)

	for _, ch := range targets {
		chCtx := rcontext.WithChannel(ctx, ch)
		o.log(chCtx).Info("Publishing channel...", logger.WithField("target", o.cfg.UploadTarget(ch)))

		start := time.Now()
		if _, err := uploader.Push(chCtx, outputDir, ch, o.cfg.UploadTarget(ch), tag); err != nil {
			err = builderr.Wrap(builderr.KindPublishFailed, err, "publishing channel '%s' failed", ch)
			o.record(chCtx, ch, o.state.MarkFailed(ch, o.invocationID, err))
			return err
		}
		o.record(chCtx, ch, o.state.MarkPublished(ch, o.invocationID, tag, time.Since(start)))
	}
	return nil
}
