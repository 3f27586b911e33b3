package crawler

import (
	"context"

	"github.com/mesh-intelligence/coursewatch/internal/parser"
	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// rowBuilder turns a listing row into a child of parent.
type rowBuilder func(ctx context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error)

// Content-type tags, taken from the row icon's file name.
const (
	tagFolder     = "folder"
	tagDocument   = "document"
	tagImage      = "image"
	tagFile       = "file"
	tagPanopto    = "panopto"
	tagDiscussion = "discussion"
	tagAssignment = "assignment"
)

var rowBuilders = map[string]rowBuilder{
	tagFolder: func(_ context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
		title, err := c.requireTitle(parent, row, row.LinkTitle)
		if err != nil {
			return nil, err
		}
		return types.NewFolder(parent.CourseID, row.ID, title, types.ChildPath(parent.Path, title)), nil
	},
	tagDocument: func(_ context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
		return c.leaf(parent, row, types.KindContent, row.PlainTitle, row.Detail)
	},
	tagImage: func(_ context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
		return c.leaf(parent, row, types.KindFile, row.PlainTitle, "")
	},
	tagFile: func(_ context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
		return c.leaf(parent, row, types.KindFile, row.LinkTitle, "")
	},
	tagPanopto: func(_ context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
		return c.leaf(parent, row, types.KindContent, firstNonEmpty(row.LinkTitle, row.SpanTitle), "Panopto Video")
	},
	tagDiscussion: func(_ context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
		return c.leaf(parent, row, types.KindContent, row.LinkTitle, "Discussion")
	},
	tagAssignment: func(ctx context.Context, c *Crawler, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
		title, err := c.requireTitle(parent, row, row.LinkTitle)
		if err != nil {
			return nil, err
		}
		a := types.NewAssignment(parent.CourseID, row.ID, title, types.ChildPath(parent.Path, title))
		if err := c.resolveAssignment(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	},
}

// buildRow dispatches on the row's tag. Unknown tags become plain content
// with the tag as detail when either title layout is present.
func (c *Crawler) buildRow(ctx context.Context, parent *types.Folder, row parser.ContentRow) (types.Entity, error) {
	if row.ID == "" || row.Tag == "" {
		return nil, c.parseError(parent, row.Tag, "content row without id or type")
	}
	if build, ok := rowBuilders[row.Tag]; ok {
		return build(ctx, c, parent, row)
	}
	title := firstNonEmpty(row.LinkTitle, row.PlainTitle)
	if title == "" {
		return nil, c.parseError(parent, row.Tag, "unknown content type")
	}
	c.log.Debug("unrecognized content type", "tag", row.Tag, "path", parent.Path, "title", title)
	return types.NewContent(types.KindContent, parent.CourseID, row.ID, title, types.ChildPath(parent.Path, title), row.Tag), nil
}

func (c *Crawler) leaf(parent *types.Folder, row parser.ContentRow, kind types.Kind, title, detail string) (types.Entity, error) {
	title, err := c.requireTitle(parent, row, title)
	if err != nil {
		return nil, err
	}
	return types.NewContent(kind, parent.CourseID, row.ID, title, types.ChildPath(parent.Path, title), detail), nil
}

func (c *Crawler) requireTitle(parent *types.Folder, row parser.ContentRow, title string) (string, error) {
	if title == "" {
		return "", c.parseError(parent, row.Tag, "missing title for "+row.ID)
	}
	return title, nil
}

func (c *Crawler) parseError(parent *types.Folder, tag, reason string) error {
	return &types.ParseError{
		Course: c.courseTitle(parent.CourseID),
		Path:   parent.Path,
		Tag:    tag,
		Reason: reason,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
