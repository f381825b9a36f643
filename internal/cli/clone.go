package cli

import (
	"errors"

	"asset-fork-merge/internal/app"
	"asset-fork-merge/internal/mapper"

	"github.com/spf13/cobra"
)

func newCloneCmd(rt *session) *cobra.Command {
	var (
		title       string
		description string
		as          string
	)

	cmd := &cobra.Command{
		Use:   "clone <master-project-id>",
		Short: "Fork a master project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if as == "" {
				return errors.New("--as is required")
			}
			return rt.withApp(cmd, func(a *app.App) error {
				fork, err := a.Usecase.CloneProject(cmd.Context(), args[0], title, description, as)
				if err != nil {
					return err
				}
				return rt.print(mapper.ToOAPIProject(*fork))
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "fork title")
	cmd.Flags().StringVar(&description, "description", "", "fork description")
	cmd.Flags().StringVar(&as, "as", "", "acting user id, owner of the new fork")
	return cmd
}
