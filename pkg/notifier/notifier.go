// Package notifier provides release notification functionality
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/releasekit/releasectl/pkg/logger"
)

// Notifier reports pipeline outcomes to the operator
type Notifier interface {
	NotifyPublished(version string, channels []string, duration time.Duration)
	NotifyFailure(operation string, err error)
}

// Sender delivers a single notification
type Sender func(title, message string) error

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound beeps on failure in addition to the desktop notification.
	Sound bool
}

// ReleaseNotifier sends desktop notifications through beeep
type ReleaseNotifier struct {
	enabled bool
	sound   bool
	send    Sender
	beep    func() error
	logger  logger.Logger
}

var _ Notifier = (*ReleaseNotifier)(nil)

// New creates a desktop notifier
func New(config Config, log logger.Logger) *ReleaseNotifier {
	return NewWithSender(config, log, func(title, message string) error {
		return beeep.Notify(title, message, "")
	})
}

// NewWithSender creates a notifier delivering through send
func NewWithSender(config Config, log logger.Logger, send Sender) *ReleaseNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &ReleaseNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		send:    send,
		beep:    defaultBeep,
		logger:  log,
	}
}

// SetBeeper replaces the sound played on failure
func (n *ReleaseNotifier) SetBeeper(beep func() error) {
	n.beep = beep
}

func defaultBeep() error {
	return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
}

// NotifyPublished notifies that a version went out on every channel
func (n *ReleaseNotifier) NotifyPublished(version string, channels []string, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Release Published"
	message := fmt.Sprintf("%s pushed to %s in %s", version, strings.Join(channels, ", "), formatDuration(duration))

	n.deliver(title, message)
}

// NotifyFailure notifies that an operation aborted
func (n *ReleaseNotifier) NotifyFailure(operation string, err error) {
	if !n.enabled {
		return
	}

	title := "❌ Release Failed"
	message := fmt.Sprintf("%s: %v", operation, err)

	n.deliver(title, message)

	if n.sound && n.beep != nil {
		if err := n.beep(); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithError(err))
		}
	}
}

func (n *ReleaseNotifier) deliver(title, message string) {
	if n.send == nil {
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
		return
	}
	if err := n.send(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithError(err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
