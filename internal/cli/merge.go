package cli

import (
	"errors"
	"fmt"
	"strings"

	"asset-fork-merge/internal/app"
	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/mapper"

	"github.com/spf13/cobra"
)

func newMergeCmd(rt *session) *cobra.Command {
	var (
		as      string
		resolve []string
	)

	cmd := &cobra.Command{
		Use:   "merge <pull-request-id>",
		Short: "Merge a pull request into its master",
		Long: `Merge a pull request into its master.

Each conflict needs a --resolve flag of the form category/entity_id=keep_source|keep_target,
for example --resolve hierarchy_item/3f1c...=keep_source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if as == "" {
				return errors.New("--as is required")
			}
			resolutions, err := parseResolutions(resolve)
			if err != nil {
				return err
			}
			return rt.withApp(cmd, func(a *app.App) error {
				res, err := a.Usecase.MergePullRequest(cmd.Context(), args[0], as, resolutions)
				if pending, ok := entities.AsConflictsPending(err); ok {
					if perr := rt.print(mapper.ToOAPIConflicts(pending.Conflicts)); perr != nil {
						return perr
					}
					return err
				}
				if err != nil {
					return err
				}
				return rt.print(mapper.ToOAPIMergeResult(*res))
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting user id, must own the target project")
	cmd.Flags().StringArrayVar(&resolve, "resolve", nil, "conflict resolution category/entity_id=action (repeatable)")
	return cmd
}

func parseResolutions(flags []string) ([]entities.Resolution, error) {
	out := make([]entities.Resolution, 0, len(flags))
	for _, f := range flags {
		key, action, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("resolution %q: want category/entity_id=action", f)
		}
		category, id, ok := strings.Cut(key, "/")
		if !ok || id == "" {
			return nil, fmt.Errorf("resolution %q: want category/entity_id=action", f)
		}
		out = append(out, entities.Resolution{
			Category: entities.EntityCategory(category),
			EntityID: id,
			Action:   entities.ResolutionAction(action),
		})
	}
	return out, nil
}
