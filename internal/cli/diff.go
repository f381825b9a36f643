package cli

import (
	"asset-fork-merge/internal/app"
	"asset-fork-merge/internal/mapper"

	"github.com/spf13/cobra"
)

func newDiffCmd(rt *session) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <pull-request-id>",
		Short: "Show the changes and conflicts of a pull request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(a *app.App) error {
				diff, err := a.Usecase.Diff(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return rt.print(mapper.ToOAPIDiff(*diff))
			})
		},
	}
}
