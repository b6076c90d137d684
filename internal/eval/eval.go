// Package eval decides whether a committed stamp is correct. It reads only
// canonical level records and the player's selections, so display overlays
// cannot change the outcome.
package eval

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/formdesk/internal/leveldata"
)

// Canonical option ids of a RAIL_SWITCH puzzle.
const (
	OptionSaveLeft  = "SAVE_LEFT"
	OptionSaveRight = "SAVE_RIGHT"
)

// #region dispatch
// Evaluate scores entry index of data with the evaluator for its schema.
func Evaluate(data *leveldata.Data, index int, accept bool, sel Selection) Result {
	if data == nil || index < 0 || index >= data.Len() {
		return fail(nil, "no level at index %d", index)
	}
	switch data.Kind {
	case leveldata.KindQuestions:
		return EvaluateQuestion(&data.Questions[index], accept, sel)
	case leveldata.KindLegacy:
		return EvaluateLegacy(&data.Levels[index], accept, sel)
	default:
		return fail(nil, "unknown schema %v", data.Kind)
	}
}

// #endregion dispatch

// #region question
// EvaluateQuestion walks the routes in declaration order and returns the
// first one whose stamp and selection predicates all hold. Later routes are
// never consulted once one matches. mustReportIds is carried by the schema
// but takes no part in matching.
func EvaluateQuestion(q *leveldata.QuestionRecord, accept bool, sel Selection) Result {
	var checks []Check
	if q == nil || sel == nil {
		return fail(checks, "missing question or selection")
	}
	if len(q.Routes) == 0 {
		return fail(checks, "question %s has no routes", q.LevelID)
	}

	hasOptions := q.HasOptions()
	selCount := 0
	if hasOptions {
		selCount = sel.SelectedOptionCount()
	}

	for _, r := range q.Routes {
		name := "route:" + r.RouteID

		if leveldata.IsAccept(r.Stamp) != accept {
			checks = append(checks, Check{Name: name, Detail: "stamp " + r.Stamp})
			continue
		}

		if r.MustLeaveAllOptionsEmpty {
			if selCount != 0 {
				checks = append(checks, Check{Name: name, Detail: fmt.Sprintf("expected no options, got %d", selCount)})
				continue
			}
		} else {
			if hasOptions && selCount == 0 {
				checks = append(checks, Check{Name: name, Detail: "no option selected"})
				continue
			}
			if len(r.MustTickOptionIDs) > 0 && !sameIDs(sel.SelectedOptionIDs(), r.MustTickOptionIDs) {
				checks = append(checks, Check{Name: name, Detail: "ticked options differ"})
				continue
			}
		}

		checks = append(checks, Check{Name: name, Pass: true})
		return Result{
			Passed:  true,
			RouteID: r.RouteID,
			Delta:   r.ScoreDelta.NonNegative(),
			Checks:  checks,
			Reason:  "matched route " + r.RouteID,
		}
	}

	return fail(checks, "no route matched")
}

// sameIDs reports whether picked has exactly the required ids. Blank
// required ids count toward the size but are not looked up.
func sameIDs(picked, required []string) bool {
	set := make(map[string]struct{}, len(picked))
	for _, id := range picked {
		set[id] = struct{}{}
	}
	if len(set) != len(required) {
		return false
	}
	for _, id := range required {
		if id == "" {
			continue
		}
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// #endregion question

// #region legacy
// EvaluateLegacy applies the legacy layers in order, stopping at the first
// failure: expected stamp, compliance, tamper flag, security details, options.
func EvaluateLegacy(lv *leveldata.LevelRecord, accept bool, sel Selection) Result {
	var checks []Check
	if lv == nil || sel == nil {
		return fail(checks, "missing level or selection")
	}
	puzzle := lv.Puzzle()

	// 1. stamp
	expectAccept := ExpectedAccept(lv)
	if accept != expectAccept {
		checks = append(checks, Check{Name: "stamp", Detail: fmt.Sprintf("expected accept=%t", expectAccept)})
		return fail(checks, "wrong stamp")
	}
	checks = append(checks, Check{Name: "stamp", Pass: true})

	// 2. compliance levels are decided by the checkbox alone
	if lv.HasComplianceCheck {
		on, present := sel.ComplianceBox()
		if !present {
			checks = append(checks, Check{Name: "compliance", Detail: "no compliance checkbox"})
			return fail(checks, "compliance checkbox missing")
		}
		if on != lv.ComplianceMustBeOn {
			checks = append(checks, Check{Name: "compliance", Detail: fmt.Sprintf("expected %t", lv.ComplianceMustBeOn)})
			return fail(checks, "compliance checkbox wrong")
		}
		checks = append(checks, Check{Name: "compliance", Pass: true})
		return pass(checks)
	}

	// 3. tamper flag
	flagOn, flagPresent := sel.TamperFlag()
	if lv.CanBeTampered {
		if !flagPresent {
			checks = append(checks, Check{Name: "flag", Detail: "no flag checkbox"})
			return fail(checks, "flag checkbox missing")
		}
		requireFlag, enforce := FlagExpectation(lv)
		if enforce && flagOn != requireFlag {
			checks = append(checks, Check{Name: "flag", Detail: fmt.Sprintf("expected flag=%t", requireFlag)})
			return fail(checks, "tamper flag wrong")
		}
		checks = append(checks, Check{Name: "flag", Pass: true})
	}

	// 4. security details
	if len(lv.RequireSecurityDetails) > 0 {
		if !lv.CanBeTampered {
			checks = append(checks, Check{Name: "details", Detail: "level cannot be tampered"})
			return fail(checks, "security details required on untamperable level")
		}
		if !flagPresent || !flagOn {
			checks = append(checks, Check{Name: "details", Detail: "flag off"})
			return fail(checks, "security details need the tamper flag")
		}
		picked := make(map[string]struct{})
		for _, id := range sel.SelectedSecurityDetailIDs() {
			picked[id] = struct{}{}
		}
		for _, req := range lv.RequireSecurityDetails {
			if req == "" {
				continue
			}
			if _, ok := picked[req]; !ok {
				checks = append(checks, Check{Name: "details", Detail: "missing " + req})
				return fail(checks, "security detail %s not selected", req)
			}
		}
		checks = append(checks, Check{Name: "details", Pass: true})
	}

	// 5. options
	if len(lv.Options) > 0 {
		count := sel.SelectedOptionCount()
		switch {
		case lv.EnforceExactCheckCount:
			if count != lv.ExactCheckCount {
				checks = append(checks, Check{Name: "option_count", Detail: fmt.Sprintf("expected %d, got %d", lv.ExactCheckCount, count)})
				return fail(checks, "wrong number of options")
			}
		case lv.RequireSingleOption:
			if count != 1 {
				checks = append(checks, Check{Name: "option_count", Detail: fmt.Sprintf("expected 1, got %d", count)})
				return fail(checks, "exactly one option required")
			}
		default:
			if count == 0 {
				checks = append(checks, Check{Name: "option_count", Detail: "none selected"})
				return fail(checks, "at least one option required")
			}
		}
		checks = append(checks, Check{Name: "option_count", Pass: true})

		first := sel.FirstSelectedOptionID()
		if lv.ExpectedOptionID != "" {
			if count != 1 || !strings.EqualFold(first, lv.ExpectedOptionID) {
				checks = append(checks, Check{Name: "option", Detail: "expected " + lv.ExpectedOptionID})
				return fail(checks, "wrong option")
			}
			checks = append(checks, Check{Name: "option", Pass: true})
		} else if puzzle == leveldata.PuzzleRailSwitch {
			choseLeft := first == OptionSaveLeft
			choseRight := first == OptionSaveRight
			if !choseLeft && !choseRight {
				checks = append(checks, Check{Name: "rail", Detail: fmt.Sprintf("%q is not a track option", first)})
				return fail(checks, "rail switch needs SAVE_LEFT or SAVE_RIGHT")
			}
			if ExpectLeft(lv) != choseLeft {
				checks = append(checks, Check{Name: "rail", Detail: "saved the wrong track"})
				return fail(checks, "wrong track")
			}
			checks = append(checks, Check{Name: "rail", Pass: true})
		}
	}

	return pass(checks)
}

// ExpectedAccept derives the correct stamp of a legacy level. An explicit
// expectedStamp always wins.
func ExpectedAccept(lv *leveldata.LevelRecord) bool {
	switch {
	case lv.ExpectedStamp != "":
		return leveldata.IsAccept(lv.ExpectedStamp)
	case lv.HasComplianceCheck:
		return true
	case lv.IsRulePuzzle():
		return !lv.IssuerIsAI()
	case lv.CanBeTampered && lv.Tampered:
		return false
	default:
		return true
	}
}

// FlagExpectation resolves the flag rule of a tamperable level. enforce is
// false for ANY.
func FlagExpectation(lv *leveldata.LevelRecord) (requireFlag, enforce bool) {
	rule := strings.ToUpper(strings.TrimSpace(lv.FlagRule))
	switch rule {
	case leveldata.FlagRuleAny:
		return false, false
	case leveldata.FlagRuleOn:
		return true, true
	case leveldata.FlagRuleOff:
		return false, true
	default:
		if lv.IsRulePuzzle() && lv.IssuerIsAI() {
			return true, true
		}
		return lv.Tampered, true
	}
}

// ExpectLeft says which track a RAIL_SWITCH level wants saved: the larger
// count, or on a tie whether the order mentions LEFT.
func ExpectLeft(lv *leveldata.LevelRecord) bool {
	if lv.LeftCount != lv.RightCount {
		return lv.LeftCount > lv.RightCount
	}
	return strings.Contains(strings.ToUpper(lv.Order), "LEFT")
}

// #endregion legacy

func pass(checks []Check) Result {
	return Result{Passed: true, Checks: checks, Reason: "all checks passed"}
}

func fail(checks []Check, format string, args ...any) Result {
	return Result{Passed: false, Checks: checks, Reason: fmt.Sprintf(format, args...)}
}
