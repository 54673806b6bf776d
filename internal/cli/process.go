package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func cmdProcess() *cobra.Command {
	return &cobra.Command{
		Use:          "process <url>...",
		Short:        "Download and process one or more tracks",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.pipe.Process(cmd.Context(), args)

			var failed int
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Printf("FAILED  %s: %v\n", res.SourceURL, res.Err)
					continue
				}
				fmt.Printf("%-8s%s\n", res.Track.Status, res.Track.DisplayName())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tracks failed", failed, len(results))
			}
			return nil
		},
	}
}
