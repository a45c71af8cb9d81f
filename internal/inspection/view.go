package inspection

import (
	"github.com/ukydev/equipment-checklist/internal/checklist"
	"github.com/ukydev/equipment-checklist/internal/models"
)

// ItemView is an item as shown on the form.
type ItemView struct {
	checklist.Item
	Icon string `json:"icon"`
}

// CategoryView is a category as shown on the form.
type CategoryView struct {
	Title string     `json:"title"`
	Items []ItemView `json:"items"`
}

// View is a consistent snapshot of a session.
type View struct {
	Type               models.ChecklistType    `json:"checklist_type"`
	Header             models.InspectionHeader `json:"header"`
	Categories         []CategoryView          `json:"categories"`
	Score              checklist.Score         `json:"score"`
	Submitting         bool                    `json:"submitting"`
	PendingChecklistID string                  `json:"pending_checklist_id,omitempty"`
}

// View snapshots the session with its live score.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats := s.state.Categories()
	views := make([]CategoryView, len(cats))
	for ci, c := range cats {
		items := make([]ItemView, len(c.Items))
		for ii, it := range c.Items {
			items[ii] = ItemView{Item: it, Icon: checklist.DefaultIcon(c.Title, it.Text)}
		}
		views[ci] = CategoryView{Title: c.Title, Items: items}
	}

	v := View{
		Type:       s.typ,
		Header:     s.header,
		Categories: views,
		Score:      checklist.Calculate(s.state, s.deps.Assembler.Policy),
		Submitting: s.submitting.Load(),
	}
	if s.pending != nil {
		v.PendingChecklistID = s.pending.record.ID.Hex()
	}
	return v
}
