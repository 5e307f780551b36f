package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/habedi/eq/client"
	"github.com/habedi/eq/pkg/clierr"
	"github.com/habedi/eq/pkg/pool"
	"github.com/habedi/eq/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func bouldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boulders",
		Short: "Browse boulders",
	}

	cmd.AddCommand(
		bouldersListCmd(),
		bouldersShowCmd(),
		bouldersCreateCmd(),
		bouldersUpdateCmd(),
		bouldersDeleteCmd(),
	)

	return cmd
}

func bouldersListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boulders",
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			boulders, err := s.client.Boulders(ctx)
			if err != nil {
				return s.fail("Failed to fetch boulders", err)
			}
			if activeOnly {
				active := boulders[:0]
				for _, b := range boulders {
					if b.IsActive {
						active = append(active, b)
					}
				}
				boulders = active
			}
			if len(boulders) == 0 {
				cmd.Println("No boulders found.")
				return nil
			}
			renderBoulders(cmd, boulders)
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&activeOnly, "active", "a", false, "Only show boulders that are currently set")

	return cmd
}

func bouldersShowCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "show <boulder-id>...",
		Short: "Show details and ascents of one or more boulders",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			if err := validation.ValidateWorkerCount(workers); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := validation.ParseID("boulder", arg)
				if err != nil {
					return clierr.New(clierr.Validation, err.Error(), err)
				}
				ids = append(ids, id)
			}

			results := fetchBoulders(ctx, cmd, s.client, ids, workers)

			for _, r := range results {
				if r.Err != nil {
					cmd.PrintErrln("Error:", s.fail(fmt.Sprintf("Failed to fetch boulder %d", r.Item), r.Err))
					continue
				}
				renderBoulderDetails(cmd, r.Value)
			}
			if errs := pool.Errors(results); len(errs) > 0 {
				return s.fail(fmt.Sprintf("%d of %d boulders could not be fetched", len(errs), len(ids)), errs[0])
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of concurrent requests [1-20]")

	return cmd
}

func fetchBoulders(ctx context.Context, cmd *cobra.Command, c *client.Client, ids []int, workers int) []pool.Result[int, *client.Boulder] {
	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Fetching boulders..."),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := pool.Map(ctx, ids, workers, func(ctx context.Context, id int) (*client.Boulder, error) {
		defer func() { _ = bar.Add(1) }()
		boulder, err := c.Boulder(ctx, id)
		if err != nil {
			log.Info().Err(err).Msgf("Failed to fetch boulder %d", id)
		}
		return boulder, err
	})
	_ = bar.Finish()
	return results
}

// boulderFlags are the writable boulder fields as command flags.
type boulderFlags struct {
	wall       int
	setter     int
	grade      string
	consensus  string
	color      string
	difficulty string
	style      string
	active     bool
}

func (f *boulderFlags) register(cmd *cobra.Command, withActive bool) {
	cmd.Flags().IntVarP(&f.wall, "wall", "w", 0, "ID of the wall the boulder is set on")
	cmd.Flags().IntVar(&f.setter, "setter", 0, "User ID of the setter")
	cmd.Flags().StringVarP(&f.grade, "grade", "g", "", "Setter grade (for example 6A)")
	cmd.Flags().StringVar(&f.consensus, "consensus-grade", "", "Consensus grade")
	cmd.Flags().StringVarP(&f.color, "color", "c", "", "Hold color")
	cmd.Flags().StringVar(&f.difficulty, "difficulty", "", "Difficulty label")
	cmd.Flags().StringVar(&f.style, "style", "", "Climbing style")
	if withActive {
		cmd.Flags().BoolVar(&f.active, "active", true, "Whether the boulder is currently set")
	}
}

// input returns the fields whose flags were given on the command line.
func (f *boulderFlags) input(cmd *cobra.Command) (client.BoulderInput, error) {
	var in client.BoulderInput
	changed := cmd.Flags().Changed
	if changed("wall") {
		if err := validation.ValidateID("wall", f.wall); err != nil {
			return in, clierr.New(clierr.Validation, err.Error(), err)
		}
		in.Wall = f.wall
	}
	if changed("setter") {
		if err := validation.ValidateID("setter", f.setter); err != nil {
			return in, clierr.New(clierr.Validation, err.Error(), err)
		}
		in.Setter = &f.setter
	}
	if changed("active") {
		in.IsActive = &f.active
	}
	in.SetterGrade = strings.TrimSpace(f.grade)
	in.ConsensusGrade = strings.TrimSpace(f.consensus)
	in.Color = strings.TrimSpace(f.color)
	in.Difficulty = strings.TrimSpace(f.difficulty)
	in.ClimbingStyle = strings.TrimSpace(f.style)
	return in, nil
}

func bouldersCreateCmd() *cobra.Command {
	var flags boulderFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Set a new boulder",
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}
			if err := errors.Join(
				validation.ValidateID("wall", in.Wall),
				validation.ValidateNonEmptyString("grade", in.SetterGrade),
				validation.ValidateNonEmptyString("color", in.Color),
			); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			boulder, err := s.client.CreateBoulder(ctx, in)
			if err != nil {
				return s.fail("Failed to create the boulder", err)
			}
			cmd.Printf("Created boulder %d (%s, %s) on wall %d.\n", boulder.ID, orDash(boulder.Grade()), orDash(boulder.Color), boulder.Wall)
			return nil
		}),
	}

	flags.register(cmd, false)

	return cmd
}

func bouldersUpdateCmd() *cobra.Command {
	var flags boulderFlags

	cmd := &cobra.Command{
		Use:   "update <boulder-id>",
		Short: "Change the fields of a boulder given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			id, err := validation.ParseID("boulder", args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}
			if in == (client.BoulderInput{}) {
				return clierr.New(clierr.Validation, "Nothing to update; pass at least one field flag.", nil)
			}

			boulder, err := s.client.UpdateBoulder(ctx, id, in)
			if err != nil {
				return s.fail("Failed to update the boulder", err)
			}
			cmd.Printf("Updated boulder %d.\n", boulder.ID)
			renderBoulderDetails(cmd, boulder)
			return nil
		}),
	}

	flags.register(cmd, true)

	return cmd
}

func bouldersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <boulder-id>",
		Short: "Remove a boulder",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(true, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			id, err := validation.ParseID("boulder", args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := s.client.DeleteBoulder(ctx, id); err != nil {
				return s.fail("Failed to delete the boulder", err)
			}
			cmd.Printf("Deleted boulder %d.\n", id)
			return nil
		}),
	}
}

func renderBoulders(cmd *cobra.Command, boulders []client.Boulder) {
	table := newTable(cmd.OutOrStdout(), "Boulder ID", "Wall", "Grade", "Color", "Style", "Ascents", "Sent")
	for _, b := range boulders {
		table.Append([]string{
			itoa(b.ID),
			itoa(b.Wall),
			orDash(b.Grade()),
			orDash(b.Color),
			orDash(b.ClimbingStyle),
			itoa(b.NumAscents),
			yesNo(b.UserHasSent),
		})
	}
	table.Render()
}

func renderBoulderDetails(cmd *cobra.Command, b *client.Boulder) {
	cmd.Printf("Boulder %d\n", b.ID)
	cmd.Printf("  Grade: %s (setter: %s)\n", orDash(b.Grade()), orDash(b.SetterGrade))
	cmd.Printf("  Color: %s\n", orDash(b.Color))
	cmd.Printf("  Style: %s\n", orDash(b.ClimbingStyle))
	cmd.Printf("  Set on: %s\n", orDash(b.DateSet))
	cmd.Printf("  Active: %s\n", yesNo(b.IsActive))
	cmd.Printf("  Sent by you: %s\n", yesNo(b.UserHasSent))

	if len(b.Ascents) == 0 {
		cmd.Println("  No ascents yet.")
		return
	}
	table := newTable(cmd.OutOrStdout(), "Climber", "Type", "Date", "Points")
	for _, a := range b.Ascents {
		table.Append([]string{itoa(a.Climber), string(a.AscentType), orDash(a.DateClimbed), itoa(a.Points)})
	}
	table.Render()
}
