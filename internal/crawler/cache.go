package crawler

import "github.com/mesh-intelligence/coursewatch/pkg/types"

// runCache holds the nodes built during one cycle, keyed by reference, in
// discovery order.
type runCache struct {
	coursesLoaded bool
	courses       []*types.Course
	courseByID    map[string]*types.Course
	nodes         map[types.Ref]types.Entity
	order         []types.Ref
	expansions    int
}

func newRunCache() *runCache {
	return &runCache{
		courseByID: map[string]*types.Course{},
		nodes:      map[types.Ref]types.Entity{},
	}
}

func (rc *runCache) addCourse(c *types.Course) {
	if _, ok := rc.courseByID[c.ID]; ok {
		return
	}
	rc.courseByID[c.ID] = c
	rc.courses = append(rc.courses, c)
}

func (rc *runCache) add(e types.Entity) {
	ref := types.RefOf(e)
	if _, ok := rc.nodes[ref]; ok {
		return
	}
	rc.nodes[ref] = e
	rc.order = append(rc.order, ref)
}

func (rc *runCache) node(ref types.Ref) types.Entity {
	return rc.nodes[ref]
}

func (rc *runCache) folder(id string) *types.Folder {
	f, _ := rc.nodes[types.Ref{Kind: types.KindContentFolder, ID: id}].(*types.Folder)
	return f
}

// foldersFor resolves ids to cached folders; ok is false if any is missing.
func (rc *runCache) foldersFor(ids []string) ([]*types.Folder, bool) {
	out := make([]*types.Folder, 0, len(ids))
	for _, id := range ids {
		f := rc.folder(id)
		if f == nil {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func (rc *runCache) allFolders() []*types.Folder {
	var out []*types.Folder
	for _, ref := range rc.order {
		if f, ok := rc.nodes[ref].(*types.Folder); ok {
			out = append(out, f)
		}
	}
	return out
}

func (rc *runCache) courseIDByTitle(title string) string {
	for _, c := range rc.courses {
		if c.Title == title {
			return c.ID
		}
	}
	return ""
}
