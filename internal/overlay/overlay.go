// Package overlay builds the displayed copy of a question with its scripted
// answer override applied. The canonical record is never modified.
package overlay

import (
	"sort"
	"strings"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
)

// #region marks
// Marks records which displayed fields an overlay changed, so the view can
// flag them. Option ids are the ids as declared on the form.
type Marks struct {
	Header    bool
	Body      bool
	OptionIDs map[string]bool
}

// Empty reports whether nothing was overwritten.
func (m Marks) Empty() bool {
	return !m.Header && !m.Body && len(m.OptionIDs) == 0
}

// Options returns the marked option ids in sorted order.
func (m Marks) Options() []string {
	ids := make([]string, 0, len(m.OptionIDs))
	for id := range m.OptionIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Marks) markOption(id string) {
	if m.OptionIDs == nil {
		m.OptionIDs = make(map[string]bool)
	}
	m.OptionIDs[id] = true
}

// #endregion marks

// #region resolved
// Resolved is the set of anomaly ids reported correctly in the current level.
// Lookups ignore case.
type Resolved map[string]bool

// Add records id as resolved.
func (r Resolved) Add(id string) { r[strings.ToUpper(id)] = true }

// Has reports whether id was resolved.
func (r Resolved) Has(id string) bool { return r[strings.ToUpper(id)] }

// #endregion resolved

// #region apply
// ApplyAnswerOverride returns a deep copy of canonical with its
// ANSWER_OVERRIDE anomaly applied, unless that id is already resolved. The
// boolean reports whether anything changed; callers use it to activate the
// persisted anomaly entry.
func ApplyAnswerOverride(canonical *leveldata.QuestionRecord, resolved Resolved) (leveldata.QuestionRecord, Marks, bool) {
	return Apply(canonical, anomaly.AnswerOverride, resolved)
}

// Apply is ApplyAnswerOverride for an arbitrary scripted anomaly id.
func Apply(canonical *leveldata.QuestionRecord, id string, resolved Resolved) (leveldata.QuestionRecord, Marks, bool) {
	display := canonical.Clone()
	var marks Marks

	if resolved.Has(id) {
		return display, marks, false
	}
	a, ok := canonical.FindScripted(id)
	if !ok {
		return display, marks, false
	}

	h := &display.Form.Header
	if a.OverrideTitle != "" {
		h.Title = a.OverrideTitle
		marks.Header = true
	}
	if a.OverrideIssuedBy != "" {
		h.IssuedBy = a.OverrideIssuedBy
		marks.Header = true
	}
	if a.OverrideTime != "" {
		h.Time = a.OverrideTime
		marks.Header = true
	}

	b := &display.Form.Body
	if a.OverrideOrder != "" {
		b.Order = a.OverrideOrder
		marks.Body = true
	}
	if a.OverrideScene != "" {
		b.Scene = a.OverrideScene
		marks.Body = true
	}
	if len(a.OverrideSituationLines) > 0 {
		b.SituationLines = append([]string(nil), a.OverrideSituationLines...)
		marks.Body = true
	}

	opts := display.Form.Options
	if len(opts) > 0 {
		if len(a.OptionLabelOverrides) > 0 {
			for _, o := range a.OptionLabelOverrides {
				if o.ID == "" || o.Label == "" {
					continue
				}
				if i := indexOf(opts, o.ID); i >= 0 {
					opts[i].Label = o.Label
					marks.markOption(opts[i].ID)
				}
			}
		} else if a.OptionA != "" && a.OptionB != "" {
			ia, ib := indexOf(opts, a.OptionA), indexOf(opts, a.OptionB)
			if ia >= 0 && ib >= 0 {
				opts[ia].Label, opts[ib].Label = opts[ib].Label, opts[ia].Label
				marks.markOption(opts[ia].ID)
				marks.markOption(opts[ib].ID)
			}
		}
	}

	return display, marks, !marks.Empty()
}

func indexOf(opts []leveldata.Option, id string) int {
	for i, o := range opts {
		if strings.EqualFold(o.ID, id) {
			return i
		}
	}
	return -1
}

// #endregion apply
