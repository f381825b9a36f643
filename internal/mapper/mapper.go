// Package mapper converts between domain models and transport DTOs.
package mapper

import (
	"asset-fork-merge/internal/entities"
	oapi "asset-fork-merge/internal/oapi"
)

// ToOAPIProject maps entities.Project to transport model.
func ToOAPIProject(p entities.Project) oapi.Project {
	res := oapi.Project{
		ProjectId:       p.ID,
		Title:           p.Title,
		Description:     p.Description,
		OwnerId:         p.OwnerID,
		IsMaster:        p.IsMaster,
		ParentProjectId: p.ParentProjectID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if s := p.CloneSnapshot; s != nil {
		res.CloneSnapshot = &oapi.ProjectSnapshot{
			Source: oapi.ProjectMetadata(s.Source),
			Target: oapi.ProjectMetadata(s.Target),
		}
	}
	return res
}

// ToOAPIGraph maps a project graph to transport model.
func ToOAPIGraph(g entities.ProjectGraph) oapi.ProjectGraph {
	res := oapi.ProjectGraph{
		Project:        ToOAPIProject(g.Project),
		ItemTypes:      make([]oapi.ItemType, 0, len(g.ItemTypes)),
		HierarchyItems: make([]oapi.HierarchyItem, 0, len(g.Items)),
		MapLayers:      make([]oapi.MapLayer, 0, len(g.Layers)),
	}
	for _, it := range g.ItemTypes {
		attrs := make([]oapi.Attribute, 0, len(it.Attributes))
		for _, a := range it.Attributes {
			attrs = append(attrs, oapi.Attribute{
				Id:       a.ID,
				OriginId: a.OriginID,
				Name:     a.Name,
				DataType: a.DataType,
				Required: a.Required,
				Position: a.Position,
			})
		}
		res.ItemTypes = append(res.ItemTypes, oapi.ItemType{
			Id:          it.ID,
			OriginId:    it.OriginID,
			Title:       it.Title,
			Description: it.Description,
			Color:       it.Color,
			Attributes:  attrs,
			UpdatedAt:   it.UpdatedAt,
		})
	}
	for _, item := range g.Items {
		res.HierarchyItems = append(res.HierarchyItems, oapi.HierarchyItem{
			Id:         item.ID,
			OriginId:   item.OriginID,
			ItemTypeId: item.ItemTypeID,
			ParentId:   item.ParentID,
			Title:      item.Title,
			Latitude:   item.Latitude,
			Longitude:  item.Longitude,
			Properties: item.Properties,
			UpdatedAt:  item.UpdatedAt,
		})
	}
	for _, l := range g.Layers {
		res.MapLayers = append(res.MapLayers, oapi.MapLayer{
			Id:        l.ID,
			OriginId:  l.OriginID,
			Title:     l.Title,
			LayerType: l.LayerType,
			Style:     l.Style,
			Geometry:  l.Geometry,
			Visible:   l.Visible,
			Position:  l.Position,
			UpdatedAt: l.UpdatedAt,
		})
	}
	return res
}

// ToOAPIPull maps entities.PullRequest to transport model.
func ToOAPIPull(pr entities.PullRequest) oapi.PullRequest {
	return oapi.PullRequest{
		PullRequestId:   pr.ID,
		SourceProjectId: pr.SourceProjectID,
		TargetProjectId: pr.TargetProjectID,
		CreatorId:       pr.CreatorID,
		Title:           pr.Title,
		Description:     pr.Description,
		Status:          oapi.PullRequestStatus(pr.Status),
		CreatedAt:       pr.CreatedAt,
		MergedAt:        pr.MergedAt,
		MergedBy:        pr.MergedBy,
	}
}

// ToOAPIPullList maps a slice of entities.PullRequest to transport slice.
func ToOAPIPullList(list []entities.PullRequest) []oapi.PullRequest {
	res := make([]oapi.PullRequest, 0, len(list))
	for _, pr := range list {
		res = append(res, ToOAPIPull(pr))
	}
	return res
}

// ToOAPIComment maps entities.Comment to transport model.
func ToOAPIComment(c entities.Comment) oapi.Comment {
	res := oapi.Comment{
		CommentId:     c.ID,
		PullRequestId: c.PullRequestID,
		AuthorId:      c.AuthorID,
		Body:          c.Body,
		IsReview:      c.IsReview,
		CreatedAt:     c.CreatedAt,
	}
	if c.ReviewAction != nil {
		action := string(*c.ReviewAction)
		res.ReviewAction = &action
	}
	return res
}

// ToOAPICommentList maps comments to transport slice.
func ToOAPICommentList(list []entities.Comment) []oapi.Comment {
	res := make([]oapi.Comment, 0, len(list))
	for _, c := range list {
		res = append(res, ToOAPIComment(c))
	}
	return res
}

// ToOAPIConflicts maps conflicts to transport slice.
func ToOAPIConflicts(list []entities.Conflict) []oapi.Conflict {
	res := make([]oapi.Conflict, 0, len(list))
	for _, c := range list {
		res = append(res, oapi.Conflict{
			EntityCategory: string(c.Category),
			EntityId:       c.EntityID,
			ConflictType:   string(c.ConflictType),
			SourceData:     c.SourceData,
			TargetData:     c.TargetData,
		})
	}
	return res
}

// ToOAPIDiff maps a computed diff to transport model.
func ToOAPIDiff(d entities.Diff) oapi.Diff {
	entries := make([]oapi.DiffEntry, 0, len(d.Entries))
	for _, e := range d.Entries {
		entries = append(entries, oapi.DiffEntry{
			EntityCategory: string(e.Category),
			EntityId:       e.EntityID,
			ChangeType:     string(e.ChangeType),
			OldData:        e.OldData,
			NewData:        e.NewData,
		})
	}
	return oapi.Diff{
		PullRequestId:   d.PullRequestID,
		SourceProjectId: d.SourceProjectID,
		TargetProjectId: d.TargetProjectID,
		Entries:         entries,
		Conflicts:       ToOAPIConflicts(d.Conflicts),
	}
}

// FromOAPIResolutions builds resolutions from transport DTOs. Values are validated by the merge usecase.
func FromOAPIResolutions(list []oapi.Resolution) []entities.Resolution {
	res := make([]entities.Resolution, 0, len(list))
	for _, r := range list {
		res = append(res, entities.Resolution{
			Category: entities.EntityCategory(r.EntityCategory),
			EntityID: r.EntityId,
			Action:   entities.ResolutionAction(r.Action),
		})
	}
	return res
}

// ToOAPIMergeResult maps a merge result to transport model.
func ToOAPIMergeResult(r entities.MergeResult) oapi.MergeResult {
	return oapi.MergeResult{
		Pr:      ToOAPIPull(r.PullRequest),
		Applied: oapi.MergeCounts(r.Applied),
	}
}
