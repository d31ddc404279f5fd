package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/reflow/internal/version"
)

// VersionCmd shows version information
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reflow %s\n", version.Version)
	},
}
