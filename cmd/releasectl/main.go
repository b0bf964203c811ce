// Command releasectl cleans, exports and publishes game builds per release
// channel.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.ExecuteWithVersion(version); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(builderr.ExitCode(err))
	}
}
