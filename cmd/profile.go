package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func leaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the gym leaderboard",
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			entries, err := s.client.Leaderboard(ctx)
			if err != nil {
				return s.fail("Failed to fetch the leaderboard", err)
			}
			if len(entries) == 0 {
				cmd.Println("The leaderboard is empty.")
				return nil
			}
			if limit > 0 {
				entries = entries[:min(limit, len(entries))]
			}

			table := newTable(cmd.OutOrStdout(), "Rank", "Climber", "Name", "Points")
			for _, e := range entries {
				table.Append([]string{
					itoa(e.Rank),
					orDash(e.Username),
					orDash(fullName(e.FirstName, e.LastName)),
					itoa(e.TotalPoints),
				})
			}
			table.Render()
			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Only show the top N climbers (0 shows all)")

	return cmd
}

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your profile and ascents",
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			p, err := s.client.Profile(ctx)
			if err != nil {
				return s.fail("Failed to fetch your profile", err)
			}

			cmd.Printf("Username: %s\n", orDash(p.Username))
			cmd.Printf("Name: %s\n", orDash(fullName(p.FirstName, p.LastName)))
			cmd.Printf("Email: %s\n", orDash(p.Email))
			cmd.Printf("Points: %d (%d ascents: %d flashes, %d sends)\n",
				p.Stats.TotalPoints, p.Stats.TotalAscents, p.Stats.FlashCount, p.Stats.SendCount)

			if len(p.Ascents) == 0 {
				return nil
			}
			table := newTable(cmd.OutOrStdout(), "Boulder ID", "Gym", "Wall", "Grade", "Type", "Date", "Points")
			for _, a := range p.Ascents {
				table.Append([]string{
					itoa(a.BoulderID),
					orDash(a.GymName),
					orDash(a.WallName),
					orDash(a.BoulderGrade),
					string(a.AscentType),
					orDash(a.DateClimbed),
					itoa(a.Points),
				})
			}
			table.Render()
			return nil
		}),
	}
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
