package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func cmdReport() *cobra.Command {
	var file bool

	cmd := &cobra.Command{
		Use:          "report",
		Short:        "Print a library health report",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.reporter.Build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(rep.Render())

			if file {
				id, err := a.reporter.File(cmd.Context(), rep)
				if err != nil {
					return err
				}
				if id == "" {
					return fmt.Errorf("NOTION_ISSUES_DB is not configured")
				}
				fmt.Printf("\nfiled as issue %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&file, "file", false, "also file the report as an issue page")
	return cmd
}
