package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue membership commands",
	}

	cmd.AddCommand(newQueueJoinCmd())
	cmd.AddCommand(newQueueLeaveCmd())
	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueBotsCmd())

	return cmd
}

func newQueueJoinCmd() *cobra.Command {
	var (
		name, region       string
		primary, secondary string
		rating             int
		bot                bool
	)

	cmd := &cobra.Command{
		Use:   "join <participant-id>",
		Short: "Put a participant in the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if primary == "" {
				return fmt.Errorf("--primary is required")
			}

			// Register a channel first so the participant passes the delivery check
			if err := client.Put("/api/v1/players/"+url.PathEscape(args[0])+"/channel", nil, nil); err != nil {
				return err
			}

			req := map[string]any{
				"participant_id": args[0],
				"display_name":   name,
				"region":         region,
				"rating":         rating,
				"primary_lane":   primary,
				"secondary_lane": secondary,
				"is_bot":         bot,
			}
			var result QueueEntry
			if err := client.Post("/api/v1/queue", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&region, "region", "", "Region")
	cmd.Flags().StringVar(&primary, "primary", "", "Primary lane: top, jungle, mid, carry, support (required)")
	cmd.Flags().StringVar(&secondary, "secondary", "", "Secondary lane")
	cmd.Flags().IntVar(&rating, "rating", 1500, "Skill rating")
	cmd.Flags().BoolVar(&bot, "bot", false, "Simulated participant")

	return cmd
}

func newQueueLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <participant-id>",
		Short: "Take a participant out of the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/queue/" + url.PathEscape(args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left queue")
			return nil
		},
	}
}

func newQueueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the queue in join order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result QueueList
			if err := client.Get("/api/v1/queue", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newQueueBotsCmd() *cobra.Command {
	var (
		count    int
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "bots",
		Short: "Queue simulated participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"count": count, "strategy": strategy}
			var result QueueList
			if err := client.Post("/api/v1/bots", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "Number of bots")
	cmd.Flags().StringVar(&strategy, "strategy", "random", "Bot strategy")

	return cmd
}
