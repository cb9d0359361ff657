// Package all registers all shell commands.
package all

import (
	// commands
	_ "github.com/brickrail/trainhub/pkg/cli/cmds/layout"
	_ "github.com/brickrail/trainhub/pkg/cli/cmds/train"
)
