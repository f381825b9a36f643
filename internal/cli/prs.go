package cli

import (
	"fmt"

	"asset-fork-merge/internal/app"
	"asset-fork-merge/internal/entities"
	"asset-fork-merge/internal/mapper"

	"github.com/spf13/cobra"
)

func newPRsCmd(rt *session) *cobra.Command {
	var (
		project string
		status  string
	)

	cmd := &cobra.Command{
		Use:     "prs",
		Short:   "List pull requests, newest first",
		Aliases: []string{"pull-requests"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := entities.PullRequestFilter{ProjectID: project}
			if status != "" {
				s := entities.PullRequestStatus(status)
				if !s.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &s
			}
			return rt.withApp(cmd, func(a *app.App) error {
				list, err := a.Usecase.ListPullRequests(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return rt.print(mapper.ToOAPIPullList(list))
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only pull requests with this source or target project")
	cmd.Flags().StringVar(&status, "status", "", "open, merged, rejected or closed")
	return cmd
}
