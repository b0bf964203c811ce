package pipeline

import (
	"context"

	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/state"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
	"github.com/releasekit/releasectl/pkg/validation"
	"github.com/releasekit/releasectl/pkg/version"
)

// ChannelReport is the recorded state of one channel
type ChannelReport struct {
	Channel string
	Record  *state.ChannelState
}

// StatusReport summarises the project without running any tool
type StatusReport struct {
	Version    version.State
	VersionErr error
	ChannelErr error
	Channels   []ChannelReport
	Facts      []validation.FactState
}

// Probe checks a single tool's availability. Nothing else is touched.
func (o *Orchestrator) Probe(ctx context.Context, kind types.ToolKind) (tools.Handle, error) {
	ctx = o.begin(ctx, "test")

	if err := o.ensure(ctx, kind.Fact()); err != nil {
		return tools.Handle{}, err
	}
	h := o.handles[kind]
	o.log(ctx).Success(string(kind)+" is available", logger.WithField("path", h.Path))
	return h, nil
}

// Status reports versions, validation facts and channel records. Tool
// facts are left unresolved so no external process runs.
func (o *Orchestrator) Status(ctx context.Context) (*StatusReport, error) {
	ctx = o.begin(ctx, "status")
	report := &StatusReport{}

	if err := o.ensure(ctx, types.FactDirectory); err != nil {
		return nil, err
	}

	if err := o.ensure(ctx, types.FactVersion); err != nil {
		report.VersionErr = err
	} else {
		report.Version = o.current
	}

	list, err := o.Channels(ctx)
	if err != nil {
		report.ChannelErr = err
		records, derr := o.state.Discover()
		if derr != nil {
			return nil, derr
		}
		for _, rec := range records {
			report.Channels = append(report.Channels, ChannelReport{Channel: rec.Channel, Record: rec})
		}
	} else {
		for _, ch := range list {
			rec, rerr := o.state.Read(ch)
			if rerr != nil {
				o.log(ctx).Warn("Failed to read channel state", logger.WithField("channel", ch), logger.WithError(rerr))
				rec = &state.ChannelState{Channel: ch, Status: types.ChannelStatusIdle}
			}
			report.Channels = append(report.Channels, ChannelReport{Channel: ch, Record: rec})
		}
	}

	report.Facts = o.cache.Snapshot()
	return report, nil
}
