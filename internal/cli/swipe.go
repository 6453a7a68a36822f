package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/learning"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// NewSwipeCmd creates the 'swipe' command that records feedback for a user.
func NewSwipeCmd(g *Globals) *cobra.Command {
	var (
		user string
		undo bool
	)

	cmd := &cobra.Command{
		Use:   "swipe <item-id> <like|nope>",
		Short: "Record like or nope feedback for an item",
		Long: `Update a user's preference profile with swipe feedback. With --undo the
given action is reversed exactly, as if the swipe never happened.`,
		Example: `  open-pet-platform swipe sl-1234 like --user alice
  open-pet-platform swipe pf-99 nope --user alice
  open-pet-platform swipe pf-99 nope --user alice --undo`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := learning.ParseAction(args[1])
			if err != nil {
				return err
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				item, err := a.items.GetItem(ctx, args[0])
				if err != nil {
					return err
				}
				store, err := openProfileStore(a.cfg.Learning)
				if err != nil {
					return err
				}
				defer store.Close()

				f := a.features(ctx, []pet.Item{item})[0]
				p, err := runSwipe(ctx, store, user, f, action, undo)
				if err != nil {
					return err
				}
				printSwipe(cmd.OutOrStdout(), item, action, undo, p)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User id (required)")
	cmd.Flags().BoolVar(&undo, "undo", false, "Reverse a previous swipe with this action")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// runSwipe applies or reverses one swipe and persists the profile.
func runSwipe(ctx context.Context, store learning.ProfileStore, user string, f learning.Features, action learning.Action, undo bool) (learning.Profile, error) {
	p, err := store.Load(ctx, user)
	if err != nil {
		return learning.Profile{}, err
	}

	if undo {
		p = learning.Undo(p, f, action == learning.Like)
	} else {
		p = learning.Update(p, f, action)
	}

	if err := store.Save(ctx, user, p); err != nil {
		return learning.Profile{}, err
	}
	return p, nil
}

func printSwipe(w io.Writer, item pet.Item, action learning.Action, undo bool, p learning.Profile) {
	verb := "Recorded"
	if undo {
		verb = "Reverted"
	}
	fmt.Fprintf(w, "%s %s on %s (%s)\n", verb, action, item.DisplayName(), item.ID)
	fmt.Fprintf(w, "  Liked: %d  Passed: %d  Interactions: %d\n", len(p.Liked), len(p.Disliked), p.Interactions)
}
