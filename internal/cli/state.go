package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <participant-id>",
		Short: "Show a participant's reconciled state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayerState
			if err := client.Get("/api/v1/players/"+url.PathEscape(args[0])+"/state", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPassCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pass",
		Short: "Ask a running server to run one processing pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PassResult
			if err := client.Post("/api/v1/passes", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
