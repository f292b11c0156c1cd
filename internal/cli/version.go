package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskboard/pkg/taskboard"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display taskboard version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), taskboard.FullVersionInfo())
	},
}
