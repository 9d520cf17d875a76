package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch <participant-id>",
		Short: "Stream a participant's events",
		Long: `Open the participant's event stream and print each event as it arrives.
While the stream is open the participant counts as connected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)
			seen := 0
			return client.Stream(cmd.Context(), fmt.Sprintf("/api/v1/players/%s/events", args[0]), func(event, data string) error {
				out.Print(StreamEvent{Event: event, Data: data})
				if event == "connected" {
					return nil
				}
				seen++
				if count > 0 && seen >= count {
					return errStopStream
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many events (0 streams until interrupted)")

	return cmd
}
