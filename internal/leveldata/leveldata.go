// Package leveldata parses the two level file schemas into a single tagged
// Data value and provides deep copies for display overlays.
package leveldata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

var (
	// ErrNoLevels means the file parsed but held neither questions nor levels.
	ErrNoLevels = errors.New("leveldata: no levels found")
	// ErrUnknownSchema means the file is not JSON of either known shape.
	ErrUnknownSchema = errors.New("leveldata: unrecognized level file")
)

// #region parse
// Parse detects the schema of raw: the day/questions shape is tried first and
// the legacy levels array is the fallback.
func Parse(raw []byte) (*Data, error) {
	var day DayFile
	dayErr := json.Unmarshal(raw, &day)
	if dayErr == nil && len(day.Questions) > 0 {
		return &Data{Kind: KindQuestions, Day: day.Day, Questions: day.Questions}, nil
	}

	var list LevelList
	if err := json.Unmarshal(raw, &list); err != nil {
		if dayErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownSchema, err)
		}
		// questions shape parsed but was empty; the levels shape cannot apply
		return nil, ErrNoLevels
	}
	if len(list.Levels) == 0 {
		return nil, ErrNoLevels
	}
	return &Data{Kind: KindLegacy, Levels: list.Levels}, nil
}

// Load reads and parses a level file.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level file %s: %w", path, err)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse level file %s: %w", path, err)
	}
	return d, nil
}

// #endregion parse

// #region question-helpers
// Penalty is the scrap-error cost of a wrong stamp on q: at least 1.
func (q *QuestionRecord) Penalty() int {
	if q.OnWrong == nil {
		return 1
	}
	return max(1, q.OnWrong.ScrapErrors)
}

// FindScripted returns the first scripted anomaly whose id matches, ignoring case.
func (q *QuestionRecord) FindScripted(id string) (ScriptedAnomaly, bool) {
	for _, a := range q.ScriptedAnomalies {
		if a.ID != "" && strings.EqualFold(a.ID, id) {
			return a, true
		}
	}
	return ScriptedAnomaly{}, false
}

// HasOptions reports whether the form offers any option.
func (q *QuestionRecord) HasOptions() bool {
	return len(q.Form.Options) > 0
}

// #endregion question-helpers

// #region clone
// Clone returns a deep copy of q. Mutating the copy never reaches q.
func (q *QuestionRecord) Clone() QuestionRecord {
	c := *q
	c.Form.Body.SituationLines = slices.Clone(q.Form.Body.SituationLines)
	c.Form.Options = slices.Clone(q.Form.Options)

	if q.Routes != nil {
		c.Routes = make([]AnswerRoute, len(q.Routes))
		for i, r := range q.Routes {
			r.MustReportIDs = slices.Clone(r.MustReportIDs)
			r.MustTickOptionIDs = slices.Clone(r.MustTickOptionIDs)
			c.Routes[i] = r
		}
	}
	if q.OnWrong != nil {
		w := *q.OnWrong
		c.OnWrong = &w
	}
	if q.ScriptedAnomalies != nil {
		c.ScriptedAnomalies = make([]ScriptedAnomaly, len(q.ScriptedAnomalies))
		for i, a := range q.ScriptedAnomalies {
			a.OverrideSituationLines = slices.Clone(a.OverrideSituationLines)
			a.OptionLabelOverrides = slices.Clone(a.OptionLabelOverrides)
			c.ScriptedAnomalies[i] = a
		}
	}
	return c
}

// #endregion clone

// #region problems
// Problems lists authoring mistakes that do not stop play but are worth a
// warning: unknown stamps, routes ticking options the form lacks, unknown
// flag rules.
func (d *Data) Problems() []string {
	var out []string
	switch d.Kind {
	case KindQuestions:
		for i := range d.Questions {
			q := &d.Questions[i]
			if len(q.Routes) == 0 {
				out = append(out, fmt.Sprintf("%s: no routes, every answer is wrong", q.LevelID))
			}
			for _, r := range q.Routes {
				if !IsAccept(r.Stamp) && !strings.EqualFold(strings.TrimSpace(r.Stamp), StampReject) {
					out = append(out, fmt.Sprintf("%s/%s: stamp %q is neither ACCEPT nor REJECT", q.LevelID, r.RouteID, r.Stamp))
				}
				for _, id := range r.MustTickOptionIDs {
					if !hasOption(q.Form.Options, id) {
						out = append(out, fmt.Sprintf("%s/%s: option %q not on form", q.LevelID, r.RouteID, id))
					}
				}
			}
		}
	case KindLegacy:
		for i := range d.Levels {
			lv := &d.Levels[i]
			switch strings.ToUpper(strings.TrimSpace(lv.FlagRule)) {
			case "", FlagRuleAuto, FlagRuleOn, FlagRuleOff, FlagRuleAny:
			default:
				out = append(out, fmt.Sprintf("%s: unknown flagRule %q, treated as AUTO", lv.ID, lv.FlagRule))
			}
			if len(lv.RequireSecurityDetails) > 0 && !lv.CanBeTampered {
				out = append(out, fmt.Sprintf("%s: requireSecurityDetails on a level that cannot be tampered always fails", lv.ID))
			}
		}
	}
	return out
}

func hasOption(opts []Option, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}

// #endregion problems
