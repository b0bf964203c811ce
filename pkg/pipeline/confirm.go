package pipeline

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/releasekit/releasectl/pkg/builderr"
)

// DefaultPasscode derives a one-time passcode from the version tag
func DefaultPasscode(version string) string {
	return fmt.Sprintf("v%s:%d", version, 1111+rand.IntN(8889))
}

// confirm asks the operator to transcribe a fresh passcode
func (o *Orchestrator) confirm(version string) (bool, error) {
	if o.prompt == nil {
		return false, builderr.New(builderr.KindEnvironment, "publish requires confirmation but no operator prompt is available")
	}

	code := o.passcode(version)
	answer, err := o.prompt(fmt.Sprintf("Are you sure you want to publish? Enter '%s' to continue.", code))
	if err != nil {
		return false, builderr.Wrap(builderr.KindEnvironment, err, "could not read confirmation")
	}
	return strings.TrimSpace(answer) == code, nil
}
