package cmd

import (
	"context"
	"strings"

	"github.com/habedi/eq/pkg/clierr"
	"github.com/habedi/eq/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func gymsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gyms",
		Short: "Browse climbing gyms",
	}

	cmd.AddCommand(
		gymsListCmd(),
		gymsShowCmd(),
		gymsCreateCmd(),
	)

	return cmd
}

func gymsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all gyms",
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			gyms, err := s.client.Gyms(ctx)
			if err != nil {
				return s.fail("Failed to fetch gyms", err)
			}
			if len(gyms) == 0 {
				cmd.Println("No gyms found.")
				return nil
			}

			table := newTable(cmd.OutOrStdout(), "Gym ID", "Name", "Walls", "Boulders")
			table.SetColMinWidth(1, 30)
			for _, gym := range gyms {
				table.Append([]string{
					itoa(gym.ID),
					orDash(gym.Name),
					itoa(len(gym.Walls)),
					itoa(len(gym.Boulders)),
				})
			}
			table.Render()

			log.Info().Msgf("Listed %d gyms.", len(gyms))
			return nil
		}),
	}
}

func gymsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <gym-id>",
		Short: "Show the walls and boulders of a gym",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			id, err := validation.ParseID("gym", args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			gym, err := s.client.Gym(ctx, id)
			if err != nil {
				return s.fail("Failed to fetch the gym", err)
			}

			cmd.Printf("Gym: %s (ID %d)\n", orDash(gym.Name), gym.ID)

			if len(gym.Walls) > 0 {
				walls := newTable(cmd.OutOrStdout(), "Wall ID", "Wall")
				for _, wall := range gym.Walls {
					walls.Append([]string{itoa(wall.ID), orDash(wall.Name)})
				}
				walls.Render()
			}

			if len(gym.Boulders) == 0 {
				cmd.Println("No boulders set in this gym.")
				return nil
			}
			renderBoulders(cmd, gym.Boulders)
			return nil
		}),
	}
}

func gymsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Add a gym",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			if err := validation.ValidateNonEmptyString("gym name", strings.TrimSpace(args[0])); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			gym, err := s.client.CreateGym(ctx, args[0])
			if err != nil {
				return s.fail("Failed to create the gym", err)
			}
			cmd.Printf("Created gym %q (ID %d).\n", gym.Name, gym.ID)
			return nil
		}),
	}
}
