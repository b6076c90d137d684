// Package report holds the anomaly report panel: a single-choice list over
// the anomaly catalog and the Idle, Checking, Resolved/Unresolved cycle that
// a report goes through. Timing is driven by the caller.
package report

import (
	"strings"
	"time"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
)

// #region panel
// Panel is the catalog checkbox list. At most one id is selected; selecting
// one deselects the rest.
type Panel struct {
	selected string
	locked   bool
}

// Items returns the catalog rows in display order.
func (p *Panel) Items() []anomaly.CatalogItem {
	return anomaly.Catalog
}

// Select picks id, replacing any prior selection. Selecting the current id
// again clears it. Unknown ids and locked panels are ignored.
func (p *Panel) Select(id string) bool {
	if p.locked {
		return false
	}
	id = strings.ToUpper(strings.TrimSpace(id))
	if !anomaly.InCatalog(id) {
		return false
	}
	if p.selected == id {
		p.selected = ""
		return true
	}
	p.selected = id
	return true
}

// Selected returns the selected id or "".
func (p *Panel) Selected() string { return p.selected }

// IsSelected reports whether id is the selected row.
func (p *Panel) IsSelected(id string) bool {
	return p.selected != "" && strings.EqualFold(p.selected, id)
}

// Clear deselects everything.
func (p *Panel) Clear() { p.selected = "" }

// SetLocked enables or disables interaction.
func (p *Panel) SetLocked(locked bool) { p.locked = locked }

// Locked reports whether the panel ignores input.
func (p *Panel) Locked() bool { return p.locked }

// #endregion panel

// #region machine
// Machine tracks one report at a time.
type Machine struct {
	phase Phase
	id    string
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// ID returns the anomaly id under report, or "" when idle.
func (m *Machine) ID() string { return m.id }

// Begin moves Idle to Checking for id.
func (m *Machine) Begin(id string) error {
	if m.phase != PhaseIdle {
		return ErrBusy
	}
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return ErrNoSelection
	}
	if !anomaly.InCatalog(id) {
		return ErrUnknownAnomaly
	}
	m.phase = PhaseChecking
	m.id = id
	return nil
}

// Settle ends Checking. active is whether the reported id was live in the
// anomaly store when the check expired.
func (m *Machine) Settle(active bool) Phase {
	if m.phase != PhaseChecking {
		return m.phase
	}
	if active {
		m.phase = PhaseResolved
	} else {
		m.phase = PhaseUnresolved
	}
	return m.phase
}

// Finish returns to Idle from any phase.
func (m *Machine) Finish() {
	m.phase = PhaseIdle
	m.id = ""
}

// #endregion machine

// #region text
// CheckingText is the status line after elapsed time in Checking. The dot
// suffix cycles through zero to three dots every interval.
func CheckingText(elapsed, interval time.Duration) string {
	if interval <= 0 {
		return FixingText
	}
	n := int(elapsed/interval) % 4
	return FixingText + strings.Repeat(".", n)
}

// ResultText is the status line held after a report settles.
func ResultText(p Phase) string {
	switch p {
	case PhaseResolved:
		return ResolvedText
	case PhaseUnresolved:
		return UnresolvedText
	default:
		return ""
	}
}

// #endregion text
