package cmd

import (
	"context"
	"strings"

	"github.com/habedi/eq/pkg/clierr"
	"github.com/habedi/eq/pkg/validation"
	"github.com/spf13/cobra"
)

func wallsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walls",
		Short: "Manage the walls of a gym",
	}

	cmd.AddCommand(
		wallsCreateCmd(),
		wallsRenameCmd(),
		wallsDeleteCmd(),
	)

	return cmd
}

// parseWallArgs reads "<gym-id> [wall-id]" from the front of args.
func parseWallArgs(args []string, withWall bool) (gymID, wallID int, err error) {
	if gymID, err = validation.ParseID("gym", args[0]); err != nil {
		return 0, 0, clierr.New(clierr.Validation, err.Error(), err)
	}
	if withWall {
		if wallID, err = validation.ParseID("wall", args[1]); err != nil {
			return 0, 0, clierr.New(clierr.Validation, err.Error(), err)
		}
	}
	return gymID, wallID, nil
}

func wallName(arg string) (string, error) {
	name := strings.TrimSpace(arg)
	if err := validation.ValidateNonEmptyString("wall name", name); err != nil {
		return "", clierr.New(clierr.Validation, err.Error(), err)
	}
	return name, nil
}

func wallsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <gym-id> <name>",
		Short: "Add a wall to a gym",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			gymID, _, err := parseWallArgs(args, false)
			if err != nil {
				return err
			}
			name, err := wallName(args[1])
			if err != nil {
				return err
			}
			wall, err := s.client.CreateWall(ctx, gymID, name)
			if err != nil {
				return s.fail("Failed to create the wall", err)
			}
			cmd.Printf("Created wall %q (ID %d) in gym %d.\n", wall.Name, wall.ID, gymID)
			return nil
		}),
	}
}

func wallsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <gym-id> <wall-id> <name>",
		Short: "Rename a wall",
		Args:  cobra.ExactArgs(3),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			gymID, wallID, err := parseWallArgs(args, true)
			if err != nil {
				return err
			}
			name, err := wallName(args[2])
			if err != nil {
				return err
			}
			wall, err := s.client.UpdateWall(ctx, gymID, wallID, name)
			if err != nil {
				return s.fail("Failed to rename the wall", err)
			}
			cmd.Printf("Renamed wall %d to %q.\n", wall.ID, wall.Name)
			return nil
		}),
	}
}

func wallsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <gym-id> <wall-id>",
		Short: "Remove a wall",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			gymID, wallID, err := parseWallArgs(args, true)
			if err != nil {
				return err
			}
			if err := s.client.DeleteWall(ctx, gymID, wallID); err != nil {
				return s.fail("Failed to delete the wall", err)
			}
			cmd.Printf("Deleted wall %d from gym %d.\n", wallID, gymID)
			return nil
		}),
	}
}
