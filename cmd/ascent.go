package cmd

import (
	"context"

	"github.com/habedi/eq/client"
	"github.com/habedi/eq/pkg/clierr"
	"github.com/habedi/eq/pkg/validation"
	"github.com/spf13/cobra"
)

func ascentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ascent",
		Short: "Log or remove your ascents",
	}

	cmd.AddCommand(
		ascentLogCmd(),
		ascentDeleteCmd(),
	)

	return cmd
}

func ascentLogCmd() *cobra.Command {
	var ascentType string

	cmd := &cobra.Command{
		Use:   "log <boulder-id>",
		Short: "Log a flash or a send of a boulder",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			id, err := validation.ParseID("boulder", args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			kind, err := client.ParseAscentType(ascentType)
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			result, err := s.client.LogAscent(ctx, id, kind)
			if err != nil {
				return s.fail("Failed to log the ascent", err)
			}

			cmd.Printf("Logged a %s of boulder %d (+%d points).\n", kind, id, result.Ascent.Points)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&ascentType, "type", "t", string(client.Send), "Ascent type [flash, send]")

	return cmd
}

func ascentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <boulder-id>",
		Short: "Remove your ascent of a boulder",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			id, err := validation.ParseID("boulder", args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			boulder, err := s.client.DeleteAscent(ctx, id)
			if err != nil {
				return s.fail("Failed to remove the ascent", err)
			}

			cmd.Printf("Removed your ascent of boulder %d (%d ascents left).\n", id, boulder.NumAscents)
			return nil
		}),
	}
}
