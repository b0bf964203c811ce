// Package builderr defines the single error taxonomy used by releasectl.
package builderr

import (
	"errors"
	"fmt"
)

// Kind classifies a BuildError
type Kind int

const (
	KindEnvironment Kind = iota + 1
	KindConfig
	KindUnknownChannel
	KindToolUnavailable
	KindCleanFailure
	KindExportFailed
	KindReadmeCopyFailed
	KindPublishFailed
	KindUsage
)

var kindNames = map[Kind]string{
	KindEnvironment:      "EnvironmentError",
	KindConfig:           "ConfigError",
	KindUnknownChannel:   "UnknownChannel",
	KindToolUnavailable:  "ToolUnavailable",
	KindCleanFailure:     "CleanFailure",
	KindExportFailed:     "ExportFailed",
	KindReadmeCopyFailed: "ReadmeCopyFailed",
	KindPublishFailed:    "PublishFailed",
	KindUsage:            "UsageError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinel errors, one per kind. Match them with errors.Is.
var (
	ErrEnvironment      = errors.New("environment error")
	ErrConfig           = errors.New("configuration error")
	ErrUnknownChannel   = errors.New("unknown channel")
	ErrToolUnavailable  = errors.New("tool unavailable")
	ErrCleanFailure     = errors.New("clean failed")
	ErrExportFailed     = errors.New("export failed")
	ErrReadmeCopyFailed = errors.New("readme copy failed")
	ErrPublishFailed    = errors.New("publish failed")
	ErrUsage            = errors.New("usage error")
)

var sentinels = map[Kind]error{
	KindEnvironment:      ErrEnvironment,
	KindConfig:           ErrConfig,
	KindUnknownChannel:   ErrUnknownChannel,
	KindToolUnavailable:  ErrToolUnavailable,
	KindCleanFailure:     ErrCleanFailure,
	KindExportFailed:     ErrExportFailed,
	KindReadmeCopyFailed: ErrReadmeCopyFailed,
	KindPublishFailed:    ErrPublishFailed,
	KindUsage:            ErrUsage,
}

// BuildError is the error returned by every orchestration operation
type BuildError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause
func (e *BuildError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *BuildError) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// New creates a BuildError with a formatted message
func New(kind Kind, format string, args ...interface{}) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a BuildError that carries cause
func Wrap(kind Kind, cause error, format string, args ...interface{}) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first BuildError in err's chain, or 0
func KindOf(err error) Kind {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// ExitCode maps an error to a process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case KindOf(err) == KindUsage:
		return 2
	default:
		return 1
	}
}
