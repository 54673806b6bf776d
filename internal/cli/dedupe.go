package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func cmdDedupe() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:          "dedupe",
		Short:        "Merge duplicate track pages in the metadata store",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if dryRun {
				groups, err := a.resolver.FindDuplicateGroups(cmd.Context())
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Printf("keeper %s would absorb %d donor(s)\n", g.Keeper.ID, len(g.Donors))
				}
				fmt.Printf("%d duplicate group(s) found\n", len(groups))
				return nil
			}

			merged, err := a.resolver.MergeAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("merged %d duplicate group(s)\n", merged)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list duplicate groups without merging")
	return cmd
}
