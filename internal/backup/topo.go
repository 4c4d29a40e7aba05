package backup

import (
	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
)

// sortNotesByDependency orders notes so every parent precedes its
// children, which lets restore insert them against a self-referential
// foreign key in one pass.
//
// A note is a root when its ParentID is nil or its parent is absent from
// this set; absent parents are expected when a backup captures a subtree.
// Notes never reached by the traversal (cyclic or otherwise malformed
// references) are appended at the end so nothing is silently dropped;
// their inserts will surface as per-record errors instead.
func sortNotesByDependency(notes []*domain.Note) []*domain.Note {
	if len(notes) <= 1 {
		return notes
	}

	present := make(map[uuid.UUID]bool, len(notes))
	for _, note := range notes {
		present[note.ID] = true
	}

	children := make(map[uuid.UUID][]*domain.Note)
	var queue []*domain.Note
	for _, note := range notes {
		if note.ParentID == nil || !present[*note.ParentID] {
			queue = append(queue, note)
		} else {
			children[*note.ParentID] = append(children[*note.ParentID], note)
		}
	}

	sorted := make([]*domain.Note, 0, len(notes))
	visited := make(map[uuid.UUID]bool, len(notes))
	for len(queue) > 0 {
		note := queue[0]
		queue = queue[1:]
		if visited[note.ID] {
			continue
		}
		visited[note.ID] = true
		sorted = append(sorted, note)
		queue = append(queue, children[note.ID]...)
	}

	for _, note := range notes {
		if !visited[note.ID] {
			sorted = append(sorted, note)
		}
	}

	return sorted
}
