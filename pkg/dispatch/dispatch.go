// Package dispatch maps operator command tokens onto pipeline operations.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/pipeline"
	"github.com/releasekit/releasectl/pkg/tools"
	"github.com/releasekit/releasectl/pkg/types"
)

// Pipeline is the set of operations the dispatcher drives
type Pipeline interface {
	Channels(ctx context.Context) ([]string, error)
	Clean(ctx context.Context, ids []string) error
	Export(ctx context.Context, ids []string) error
	Publish(ctx context.Context) error
	Probe(ctx context.Context, kind types.ToolKind) (tools.Handle, error)
	Status(ctx context.Context) (*pipeline.StatusReport, error)
}

var _ Pipeline = (*pipeline.Orchestrator)(nil)

// Dispatcher runs one command per call
type Dispatcher struct {
	pipeline Pipeline
	program  string
	out      io.Writer
	errOut   io.Writer
}

// New creates a dispatcher writing results to out and usage to errOut
func New(p Pipeline, program string, out, errOut io.Writer) *Dispatcher {
	return &Dispatcher{pipeline: p, program: program, out: out, errOut: errOut}
}

var commands = []struct {
	form string
	help string
}{
	{"clean", "Clean all channels."},
	{"clean <channel>...", "Clean one or more channels."},
	{"export", "Export all channels."},
	{"export <channel>...", "Export one or more channels."},
	{"publish", "Publish all channels."},
	{"list", "List channels in publish order."},
	{"test <engine|uploader|vcs>", "Check that a tool is callable."},
	{"status", "Show versions and channel state."},
	{"help", "Show this help."},
}

// Usage returns the usage text
func (d *Dispatcher) Usage() string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s %s\t- %s\n", d.program, c.form, c.help)
	}
	tw.Flush()
	return b.String()
}

// Dispatch runs the command named by tokens. Unrecognised input prints the
// usage text and fails with a UsageError before anything else happens.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return d.usageError("no command given")
	}

	cmd, args := tokens[0], tokens[1:]
	switch cmd {
	case "help":
		if len(args) > 0 {
			return d.usageError("help takes no arguments")
		}
		fmt.Fprint(d.out, d.Usage())
		return nil

	case "list":
		if len(args) > 0 {
			return d.usageError("list takes no arguments")
		}
		return d.list(ctx)

	case "clean":
		return d.pipeline.Clean(ctx, args)

	case "export":
		return d.pipeline.Export(ctx, args)

	case "publish":
		if len(args) > 0 {
			return d.usageError("publish takes no arguments")
		}
		return d.pipeline.Publish(ctx)

	case "test":
		if len(args) != 1 {
			return d.usageError("test takes exactly one tool")
		}
		kind, err := types.ParseToolKind(args[0])
		if err != nil {
			return d.usageError(err.Error())
		}
		return d.probe(ctx, kind)

	case "status":
		if len(args) > 0 {
			return d.usageError("status takes no arguments")
		}
		return d.status(ctx)

	default:
		return d.usageError(fmt.Sprintf("unknown command %q", cmd))
	}
}

func (d *Dispatcher) usageError(reason string) error {
	fmt.Fprint(d.errOut, d.Usage())
	return builderr.New(builderr.KindUsage, "%s", reason)
}

func (d *Dispatcher) list(ctx context.Context) error {
	channels, err := d.pipeline.Channels(ctx)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		fmt.Fprintln(d.out, ch)
	}
	return nil
}

func (d *Dispatcher) probe(ctx context.Context, kind types.ToolKind) error {
	h, err := d.pipeline.Probe(ctx, kind)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s: %s (%s)\n", kind, color.GreenString("available"), h.Path)
	return nil
}

func (d *Dispatcher) status(ctx context.Context) error {
	report, err := d.pipeline.Status(ctx)
	if err != nil {
		return err
	}

	if report.VersionErr != nil {
		fmt.Fprintf(d.out, "Version:   %s\n", color.RedString(report.VersionErr.Error()))
	} else {
		lock := report.Version.Lock
		if lock == "" {
			lock = "never"
		}
		state := color.YellowString("unpublished")
		if report.Version.Published() {
			state = color.GreenString("published")
		}
		fmt.Fprintf(d.out, "Version:   %s (%s, last published %s)\n", report.Version.Current, state, lock)
	}

	if report.ChannelErr != nil {
		fmt.Fprintf(d.out, "Channels:  %s\n", color.RedString(report.ChannelErr.Error()))
	}

	tw := tabwriter.NewWriter(d.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tSTATUS\tVERSION\tEXPORTS\tPUBLISHES\tFAILURES")
	for _, ch := range report.Channels {
		rec := ch.Record
		published := rec.PublishedVersion
		if published == "" {
			published = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			ch.Channel, rec.Status, published, rec.ExportCount, rec.PublishCount, rec.FailureCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, ch := range report.Channels {
		if ch.Record.Status == types.ChannelStatusFailed && ch.Record.LastError != "" {
			fmt.Fprintf(d.out, "%s: %s\n", ch.Channel, color.RedString(ch.Record.LastError))
		}
	}
	return nil
}
