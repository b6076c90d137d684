package anomaly

// #region ids
// Anomaly ids shared by the report catalog, the scripted overlay and the drivers.
const (
	FormError       = "FORM_ERROR"
	DisplayGlitch   = "DISPLAY_GLITCH"
	AnswerOverride  = "ANSWER_OVERRIDE"
	TerminalAnomaly = "TERMINAL_ANOMALY"
	Mimic           = "MIMIC"
)

// #endregion ids

// #region catalog
// CatalogItem is one reportable anomaly type.
type CatalogItem struct {
	ID    string
	Label string
}

// Catalog is the fixed list the report panel offers, in display order.
var Catalog = []CatalogItem{
	{FormError, "FORM ERROR (PAPER)"},
	{DisplayGlitch, "DISPLAY GLITCH (VISUAL / PERCEPTION)"},
	{AnswerOverride, "ANSWER OVERRIDE (UI / GAMEPLAY)"},
	{TerminalAnomaly, "TERMINAL ANOMALY (CHAT / COMMAND)"},
	{Mimic, "MIMIC (PERSON / IDENTITY)"},
}

// InCatalog reports whether id is one of the reportable types.
func InCatalog(id string) bool {
	for _, c := range Catalog {
		if c.ID == id {
			return true
		}
	}
	return false
}

// #endregion catalog

// #region entry
// Vec2 is a normalized screen coordinate, both axes in [0,1].
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp01 returns v with both axes clamped to [0,1].
func (v Vec2) Clamp01() Vec2 {
	return Vec2{X: clamp01(v.X), Y: clamp01(v.Y)}
}

// Entry is the persisted record for one anomaly id.
type Entry struct {
	ID       string  `json:"id"`
	Active   bool    `json:"active"`
	Pos      Vec2    `json:"pos"`
	Severity float64 `json:"severity"`
}

// #endregion entry

func clamp01(f float64) float64 {
	return clamp(f, 0, 1)
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
