package memory

import (
	"context"
	"fmt"
	"sort"

	"asset-fork-merge/internal/entities"
)

// CreatePR stores a new pull request.
func (m *Memory) CreatePR(_ context.Context, pr entities.PullRequest) (*entities.PullRequest, error) {
	var out entities.PullRequest
	err := m.write(func(st *state) error {
		if _, ok := st.prs[pr.ID]; ok {
			return entities.ErrPRExists
		}
		for _, id := range []string{pr.SourceProjectID, pr.TargetProjectID} {
			if _, err := st.requireProject(id); err != nil {
				return err
			}
		}
		stored := copyPR(pr)
		stored.CreatedAt = m.tick()
		st.prs[pr.ID] = stored
		out = copyPR(stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPR returns a pull request by id.
func (m *Memory) GetPR(_ context.Context, prID string) (*entities.PullRequest, error) {
	var out entities.PullRequest
	err := m.read(func(st *state) error {
		pr, ok := st.prs[prID]
		if !ok {
			return entities.ErrPRNotFound
		}
		out = copyPR(pr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPRs returns matching pull requests, newest first.
func (m *Memory) ListPRs(_ context.Context, filter entities.PullRequestFilter) ([]entities.PullRequest, error) {
	out := make([]entities.PullRequest, 0)
	err := m.read(func(st *state) error {
		for _, pr := range st.prs {
			if filter.ProjectID != "" && pr.SourceProjectID != filter.ProjectID && pr.TargetProjectID != filter.ProjectID {
				continue
			}
			if filter.Status != nil && pr.Status != *filter.Status {
				continue
			}
			out = append(out, copyPR(pr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TransitionPR moves an open pull request to closed or rejected.
func (m *Memory) TransitionPR(_ context.Context, prID string, to entities.PullRequestStatus) (*entities.PullRequest, error) {
	if to != entities.StatusClosed && to != entities.StatusRejected {
		return nil, fmt.Errorf("%w: cannot transition to %s", entities.ErrInvalidArgument, to)
	}
	var out entities.PullRequest
	err := m.write(func(st *state) error {
		pr, ok := st.prs[prID]
		if !ok {
			return entities.ErrPRNotFound
		}
		if pr.Status != entities.StatusOpen {
			return fmt.Errorf("%w: pull request is %s", entities.ErrInvalidState, pr.Status)
		}
		pr = copyPR(pr)
		pr.Status = to
		st.prs[prID] = pr
		out = copyPR(pr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComment stores a comment on an open pull request.
func (m *Memory) CreateComment(_ context.Context, comment entities.Comment) (*entities.Comment, error) {
	var out entities.Comment
	err := m.write(func(st *state) error {
		pr, ok := st.prs[comment.PullRequestID]
		if !ok {
			return entities.ErrPRNotFound
		}
		if pr.Status != entities.StatusOpen {
			return fmt.Errorf("%w: pull request is %s", entities.ErrInvalidState, pr.Status)
		}
		stored := comment
		if comment.ReviewAction != nil {
			action := *comment.ReviewAction
			stored.ReviewAction = &action
		}
		stored.CreatedAt = m.tick()
		list := append([]entities.Comment(nil), st.comments[comment.PullRequestID]...)
		st.comments[comment.PullRequestID] = append(list, stored)
		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComments returns a pull request's comments, oldest first.
func (m *Memory) ListComments(_ context.Context, prID string) ([]entities.Comment, error) {
	var out []entities.Comment
	err := m.read(func(st *state) error {
		if _, ok := st.prs[prID]; !ok {
			return entities.ErrPRNotFound
		}
		out = append(make([]entities.Comment, 0, len(st.comments[prID])), st.comments[prID]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
