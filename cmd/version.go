package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vibe-labs/vibe-rewards/internal/version"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of vibe-rewards",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)

		v := version.GetVersion()
		commit := version.GetCommit()

		fmt.Printf("Version: %s\nCommit: %s\n", v, commit)
	},
}
