// Package agent provides the pyroscope-agent CLI commands.
package agent

import (
	"github.com/spf13/cobra"
)

// RegisterCommands registers the agent commands directly on root for a
// flat hierarchy (e.g. "pyroscope-agent run").
func RegisterCommands(root *cobra.Command) {
	root.AddCommand(NewRunCmd())
}
