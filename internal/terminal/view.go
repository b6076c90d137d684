package terminal

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
	"github.com/danielpatrickdp/formdesk/internal/progression"
)

// #region form-view
// FormView holds the form on the desk and the player's ticks. It is safe for
// concurrent use: the controller and the anomaly drivers call it from
// different goroutines.
type FormView struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	locked bool
	page   page

	options    []string // ticked option ids, in tick order
	details    map[string]bool
	flagOn     bool
	compliance bool

	markHeader bool
	markBody   bool
	markOpts   map[string]bool
	flashUntil time.Time
	pulses     int

	glitch    bool
	glitchSev float64
	glitchPos anomaly.Vec2

	status string
	hud    string
}

// page is the rendered content, flattened from either schema.
type page struct {
	id         string
	title      string
	issuedBy   string
	time       string
	order      string
	scene      string
	tracks     []string
	situation  []string
	meta       []string
	options    []leveldata.Option
	radio      bool
	flag       bool
	offered    []string
	compliance string
	hasComply  bool
}

// NewFormView returns a view that prints effects to out. out may be nil.
func NewFormView(out io.Writer) *FormView {
	if out == nil {
		out = io.Discard
	}
	return &FormView{out: out, now: time.Now, details: map[string]bool{}}
}

// #endregion form-view

// #region render
// RenderQuestion shows a question form and clears every tick.
func (v *FormView) RenderQuestion(q *leveldata.QuestionRecord, _ []string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	h, b := q.Form.Header, q.Form.Body
	v.page = page{
		id:        q.LevelID,
		title:     h.Title,
		issuedBy:  h.IssuedBy,
		time:      h.Time,
		order:     b.Order,
		scene:     b.Scene,
		situation: slices.Clone(b.SituationLines),
		options:   slices.Clone(q.Form.Options),
	}
	v.resetTicks()
}

// RenderLevel shows a legacy level. The displayed order is the tamper
// variant when the level is tampered.
func (v *FormView) RenderLevel(lv *leveldata.LevelRecord, details []string, security bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p := page{
		id:         lv.ID,
		title:      lv.Title,
		issuedBy:   lv.IssuedBy,
		time:       lv.Time,
		order:      lv.DisplayedOrder(),
		scene:      lv.Scene,
		situation:  slices.Clone(lv.SituationLines),
		options:    slices.Clone(lv.Options),
		radio:      lv.RequireSingleOption,
		flag:       lv.CanBeTampered || security,
		offered:    slices.Clone(details),
		compliance: lv.ComplianceLabel,
		hasComply:  lv.HasComplianceCheck,
	}
	if lv.LeftLabel != "" {
		p.tracks = append(p.tracks, fmt.Sprintf("Left:  [%d] %s", lv.LeftCount, lv.LeftLabel))
	}
	if lv.RightLabel != "" {
		p.tracks = append(p.tracks, fmt.Sprintf("Right: [%d] %s", lv.RightCount, lv.RightLabel))
	}
	for _, kv := range [][2]string{{"Target", lv.Target}, {"Risk", lv.Risk}, {"Self", lv.Self}} {
		if strings.TrimSpace(kv[1]) != "" {
			p.meta = append(p.meta, kv[0]+": "+kv[1])
		}
	}
	v.page = p
	v.resetTicks()
}

func (v *FormView) resetTicks() {
	v.options = nil
	v.details = map[string]bool{}
	v.flagOn = false
	v.compliance = false
}

// SetLocked enables or disables input.
func (v *FormView) SetLocked(locked bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.locked = locked
}

// Locked reports whether input is disabled.
func (v *FormView) Locked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.locked
}

// #endregion render

// #region marks
func (v *FormView) ClearOverwritten() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markHeader, v.markBody = false, false
	v.markOpts = nil
	v.flashUntil = time.Time{}
}

func (v *FormView) MarkHeaderOverwritten(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markHeader = on
}

func (v *FormView) MarkBodyOverwritten(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markBody = on
}

func (v *FormView) MarkOptionOverwritten(id string, on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.markOpts == nil {
		v.markOpts = map[string]bool{}
	}
	if on {
		v.markOpts[id] = true
	} else {
		delete(v.markOpts, id)
	}
}

// PulseOverwritten flashes the marked fields for d.
func (v *FormView) PulseOverwritten(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.markHeader && !v.markBody && len(v.markOpts) == 0 {
		return
	}
	v.flashUntil = v.now().Add(d)
	v.pulses++
}

// Pulses counts the flashes so far.
func (v *FormView) Pulses() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pulses
}

// ApplyCue shows display noise at pos.
func (v *FormView) ApplyCue(severity float64, pos anomaly.Vec2) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.glitch = true
	v.glitchSev = severity
	v.glitchPos = pos
}

// ClearCue removes display noise.
func (v *FormView) ClearCue() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.glitch = false
}

// Glitching reports whether a display cue is on.
func (v *FormView) Glitching() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.glitch
}

// #endregion marks

// #region input
// ToggleOption ticks or unticks an option. Radio forms keep one tick.
func (v *FormView) ToggleOption(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked {
		return false
	}
	opt, ok := v.findOption(id)
	if !ok {
		return false
	}
	if i := slices.Index(v.options, opt); i >= 0 {
		v.options = slices.Delete(v.options, i, i+1)
		return true
	}
	if v.page.radio {
		v.options = v.options[:0]
	}
	v.options = append(v.options, opt)
	return true
}

func (v *FormView) findOption(id string) (string, bool) {
	for _, o := range v.page.options {
		if strings.EqualFold(o.ID, id) {
			return o.ID, true
		}
	}
	return "", false
}

// SetFlag sets the tamper flag. Turning it off drops detail ticks.
func (v *FormView) SetFlag(on bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked || !v.page.flag {
		return false
	}
	v.flagOn = on
	if !on {
		v.details = map[string]bool{}
	}
	return true
}

// ToggleDetail ticks a security detail. Details are only reachable with
// the flag on.
func (v *FormView) ToggleDetail(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked || !v.flagOn {
		return false
	}
	i := slices.IndexFunc(v.page.offered, func(o string) bool { return strings.EqualFold(o, strings.TrimSpace(id)) })
	if i < 0 {
		return false
	}
	id = v.page.offered[i]
	v.details[id] = !v.details[id]
	if !v.details[id] {
		delete(v.details, id)
	}
	return true
}

// SetCompliance sets the compliance checkbox.
func (v *FormView) SetCompliance(on bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked || !v.page.hasComply {
		return false
	}
	v.compliance = on
	return true
}

// #endregion input

// #region selection
func (v *FormView) SelectedOptionCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.options)
}

// SelectedOptionIDs returns the ticked ids in form order, whatever order
// they were ticked in.
func (v *FormView) SelectedOptionIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inFormOrder()
}

func (v *FormView) FirstSelectedOptionID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, o := range v.page.options {
		if slices.Contains(v.options, o.ID) {
			return o.ID
		}
	}
	return ""
}

func (v *FormView) inFormOrder() []string {
	ids := make([]string, 0, len(v.options))
	for _, o := range v.page.options {
		if slices.Contains(v.options, o.ID) {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func (v *FormView) SelectedSecurityDetailIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, 0, len(v.details))
	for id := range v.details {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (v *FormView) ComplianceBox() (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.compliance, v.page.hasComply
}

func (v *FormView) TamperFlag() (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flagOn, v.page.flag
}

// #endregion selection

// #region effects
func (v *FormView) PlayStamp(accept bool) {
	stamp := Styles.Reject.Render("REJECTED")
	if accept {
		stamp = Styles.Accept.Render("APPROVED")
	}
	fmt.Fprintln(v.out, stamp)
}

func (v *FormView) TurnPage() {
	fmt.Fprintln(v.out, Styles.Muted.Render(strings.Repeat("~", 24)+" page turned "+strings.Repeat("~", 24)))
}

func (v *FormView) ShowReportStatus(text string) {
	v.mu.Lock()
	v.status = text
	v.mu.Unlock()
	fmt.Fprintln(v.out, Styles.Status.Render(text))
}

func (v *FormView) ClearReportStatus() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = ""
}

func (v *FormView) ShowHUD(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hud = text
}

// #endregion effects

// #region draw
// Render draws the whole desk.
func (v *FormView) Render() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	flashing := v.now().Before(v.flashUntil)
	marked := func(on bool, s string) string {
		switch {
		case on && flashing:
			return Styles.Flash.Render(s)
		case on:
			return Styles.Overwrite.Render(s)
		default:
			return s
		}
	}

	p := v.page
	var head []string
	if p.title != "" {
		head = append(head, Styles.Title.Render(p.title))
	}
	if p.id != "" {
		head = append(head, "Form ID: "+p.id)
	}
	if p.issuedBy != "" {
		head = append(head, "Issued by: "+p.issuedBy)
	}
	if p.time != "" {
		head = append(head, "Time: "+p.time)
	}

	var body []string
	section := func(label string, lines ...string) {
		if len(lines) == 0 {
			return
		}
		body = append(body, Styles.Label.Render(label))
		body = append(body, lines...)
		body = append(body, "")
	}
	if strings.TrimSpace(p.order) != "" {
		section("ORDER:", p.order)
	}
	if strings.TrimSpace(p.scene) != "" {
		section("SCENE:", p.scene)
	}
	section("TRACKS:", bullets(p.tracks)...)
	section("SITUATION:", bullets(p.situation)...)
	section("META:", bullets(p.meta)...)

	blocks := []string{
		marked(v.markHeader, strings.Join(head, "\n")),
		marked(v.markBody, strings.TrimRight(strings.Join(body, "\n"), "\n")),
	}

	if len(p.options) > 0 {
		var rows []string
		for _, o := range p.options {
			on := slices.Contains(v.options, o.ID)
			rows = append(rows, marked(v.markOpts[o.ID], fmt.Sprintf("%s %s  (%s)", box(on), o.Label, o.ID)))
		}
		blocks = append(blocks, strings.Join(rows, "\n"))
	}

	if p.flag {
		rows := []string{box(v.flagOn) + " FLAG: TAMPERED"}
		if v.flagOn {
			for _, id := range p.offered {
				rows = append(rows, fmt.Sprintf("    %s %s", box(v.details[id]), progression.LabelFor(id)))
			}
		}
		blocks = append(blocks, strings.Join(rows, "\n"))
	}
	if p.hasComply {
		blocks = append(blocks, box(v.compliance)+" "+p.compliance)
	}

	paper := Styles.Paper
	if v.locked {
		paper = Styles.LockedPage
	}
	out := []string{Styles.HUD.Render(v.hud)}
	if v.glitch {
		out = append(out, Styles.Glitch.Render(noise(v.glitchSev, v.glitchPos)))
	}
	out = append(out, paper.Render(strings.Join(blocks, "\n\n")))
	if v.status != "" {
		out = append(out, Styles.Status.Render(v.status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

// Print writes Render to the view's writer.
func (v *FormView) Print() {
	fmt.Fprintln(v.out, v.Render())
}

func bullets(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, "• "+l)
	}
	return out
}

// noise is a band of static whose width grows with severity, offset by the
// cue's horizontal position.
func noise(severity float64, pos anomaly.Vec2) string {
	width := 8 + int(severity*56)
	pad := int(pos.Clamp01().X * float64(72-width))
	return strings.Repeat(" ", max(0, pad)) + strings.Repeat("▒", width)
}

// #endregion draw
