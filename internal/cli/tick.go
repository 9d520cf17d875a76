package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mcoot/lanequeue/internal/api/response"
	"github.com/mcoot/lanequeue/internal/factory"
)

func newTickCmd() *cobra.Command {
	var skipIdle bool

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one processing pass in-process against the configured backends",
		Long: `tick runs a single processing pass directly against the configured stores,
taking the same lock as every server instance. It is meant for cron-style
deployments and for operators; with STORAGE_TYPE=memory it only ever sees
an empty queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := cfg.loadAppConfig()
			if err != nil {
				return err
			}
			if skipIdle {
				appCfg.SkipIdleCheck = true
			}

			app, err := factory.New(appCfg, newLogger(appCfg.LogLevel))
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), appCfg.LockTTL)
			defer cancel()

			result, err := app.Scheduler.RunOnce(ctx)
			if err != nil {
				return err
			}

			// Same shape as POST /api/v1/passes
			out := NewOutput(cfg.Output)
			out.Print(toPassResult(response.PassResponseFromResult(result)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipIdle, "skip-idle-check", false, "Run even if no delivery channel is connected")

	return cmd
}

func toPassResult(r response.PassResponse) PassResult {
	result := PassResult{Outcome: r.Outcome, Matches: make([]Match, len(r.Matches))}
	for i, m := range r.Matches {
		result.Matches[i] = Match{
			ID:     m.ID,
			Status: m.Status,
			TeamA:  toTeam(m.TeamA),
			TeamB:  toTeam(m.TeamB),
		}
	}
	return result
}

func toTeam(t response.Team) Team {
	team := Team{TotalRating: t.TotalRating, Slots: make([]Slot, len(t.Slots))}
	for i, s := range t.Slots {
		team.Slots[i] = Slot{Lane: s.Lane, ParticipantID: s.ParticipantID, Rating: s.Rating}
	}
	return team
}
