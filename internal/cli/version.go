package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/version"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runVersion(w io.Writer) error {
	v, c, d := version.GetVersionComponents()
	fmt.Fprintf(w, "Version:  %s\n", v)
	fmt.Fprintf(w, "Commit:   %s\n", c)
	fmt.Fprintf(w, "Built:    %s\n", d)
	return nil
}
