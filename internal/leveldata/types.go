package leveldata

import "strings"

// #region common
// Option is one selectable checkbox on a form.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Stamp values.
const (
	StampAccept = "ACCEPT"
	StampReject = "REJECT"
)

// IsAccept reports whether a stamp string means ACCEPT. Anything else is a reject.
func IsAccept(stamp string) bool {
	return strings.EqualFold(strings.TrimSpace(stamp), StampAccept)
}

// #endregion common

// #region question-schema
// DayFile is the current schema: one day of questions.
type DayFile struct {
	Day       int              `json:"day"`
	Questions []QuestionRecord `json:"questions"`
}

// QuestionRecord is one form plus the routes that score it.
type QuestionRecord struct {
	LevelID           string            `json:"levelId"`
	Index             int               `json:"index"`
	Form              Form              `json:"form"`
	Routes            []AnswerRoute     `json:"routes"`
	OnWrong           *WrongScore       `json:"onWrong,omitempty"`
	ScriptedAnomalies []ScriptedAnomaly `json:"scriptedAnomalies,omitempty"`
}

// Form is the displayed content of a question.
type Form struct {
	Header  Header   `json:"header"`
	Body    Body     `json:"body"`
	Options []Option `json:"options"`
}

// Header is the top block of a form.
type Header struct {
	Title      string `json:"title"`
	IssuedBy   string `json:"issuedBy"`
	IssuerType string `json:"issuerType"`
	Time       string `json:"time"`
}

// Body is the main text block of a form.
type Body struct {
	Order          string   `json:"order"`
	Scene          string   `json:"scene"`
	SituationLines []string `json:"situationLines"`
}

// ScoreDelta is added to the run's score axes when a route matches.
type ScoreDelta struct {
	Obedience int `json:"obedience"`
	Humanity  int `json:"humanity"`
	Awareness int `json:"awareness"`
}

// NonNegative clamps every axis at zero.
func (d ScoreDelta) NonNegative() ScoreDelta {
	return ScoreDelta{
		Obedience: max(0, d.Obedience),
		Humanity:  max(0, d.Humanity),
		Awareness: max(0, d.Awareness),
	}
}

// IsZero reports whether the delta awards nothing.
func (d ScoreDelta) IsZero() bool {
	return d == ScoreDelta{}
}

// WrongScore is the penalty for a wrong stamp.
type WrongScore struct {
	ScrapErrors int `json:"scrapErrors"`
}

// AnswerRoute is one accepted way of answering a question.
type AnswerRoute struct {
	RouteID                  string     `json:"routeId"`
	Stamp                    string     `json:"stamp"`
	MustReportIDs            []string   `json:"mustReportIds,omitempty"`
	MustTickOptionIDs        []string   `json:"mustTickOptionIds,omitempty"`
	MustLeaveAllOptionsEmpty bool       `json:"mustLeaveAllOptionsEmpty"`
	ScoreDelta               ScoreDelta `json:"scoreDelta"`
}

// ScriptedAnomaly is a declarative content override applied to the displayed
// copy of a question only.
type ScriptedAnomaly struct {
	ID string `json:"id"`

	OverrideTitle    string `json:"overrideTitle,omitempty"`
	OverrideIssuedBy string `json:"overrideIssuedBy,omitempty"`
	OverrideTime     string `json:"overrideTime,omitempty"`

	OverrideOrder          string   `json:"overrideOrder,omitempty"`
	OverrideScene          string   `json:"overrideScene,omitempty"`
	OverrideSituationLines []string `json:"overrideSituationLines,omitempty"`

	OptionLabelOverrides []Option `json:"optionLabelOverrides,omitempty"`

	OptionA string `json:"optionA,omitempty"`
	OptionB string `json:"optionB,omitempty"`
}

// #endregion question-schema

// #region legacy-schema
// LevelList is the legacy schema.
type LevelList struct {
	Levels []LevelRecord `json:"levels"`
}

// Flag rules for tamperable legacy levels.
const (
	FlagRuleAuto = "AUTO"
	FlagRuleOn   = "ON"
	FlagRuleOff  = "OFF"
	FlagRuleAny  = "ANY"
)

// Puzzle types with special handling.
const (
	PuzzleRailSwitch = "RAIL_SWITCH"
	PuzzleRulePage   = "RULE_PAGE"
	PuzzleRuleSet    = "RULE_SET"
	PuzzleNotice     = "NOTICE"
)

// LevelRecord is one legacy puzzle.
type LevelRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	IssuedBy   string `json:"issuedBy"`
	IssuerType string `json:"issuerType"`
	Time       string `json:"time"`

	Order string `json:"order"`
	Scene string `json:"scene"`

	LeftLabel  string `json:"leftLabel"`
	LeftCount  int    `json:"leftCount"`
	RightLabel string `json:"rightLabel"`
	RightCount int    `json:"rightCount"`

	SituationLines []string `json:"situationLines"`

	Options                []Option `json:"options"`
	RequireSingleOption    bool     `json:"requireSingleOption"`
	EnforceExactCheckCount bool     `json:"enforceExactCheckCount"`
	ExactCheckCount        int      `json:"exactCheckCount"`

	CanBeTampered bool   `json:"canBeTampered"`
	Tampered      bool   `json:"tampered"`
	TamperVariant string `json:"tamperVariant"`

	SecurityDetailsAvailable []string `json:"securityDetailsAvailable"`
	IntroduceSecurityDetails []string `json:"introduceSecurityDetails"`
	RequireSecurityDetails   []string `json:"requireSecurityDetails"`
	// IntroduceFlag unlocks the tamper flag once the page is stamped.
	IntroduceFlag bool `json:"introduceFlag"`

	Target string `json:"target"`
	Risk   string `json:"risk"`
	Self   string `json:"self"`

	HasComplianceCheck bool   `json:"hasComplianceCheck"`
	ComplianceLabel    string `json:"complianceLabel"`
	ComplianceMustBeOn bool   `json:"complianceMustBeOn"`

	PuzzleType string `json:"puzzleType"`

	ExpectedStamp    string `json:"expectedStamp"`
	ExpectedOptionID string `json:"expectedOptionId"`
	FlagRule         string `json:"flagRule"`
}

// Puzzle returns the normalized puzzle type.
func (l *LevelRecord) Puzzle() string {
	return strings.ToUpper(strings.TrimSpace(l.PuzzleType))
}

// IsRulePuzzle reports whether the puzzle is a rule page or notice.
func (l *LevelRecord) IsRulePuzzle() bool {
	switch l.Puzzle() {
	case PuzzleRulePage, PuzzleRuleSet, PuzzleNotice:
		return true
	}
	return false
}

// IssuerIsAI reports whether the level was issued by an AI.
func (l *LevelRecord) IssuerIsAI() bool {
	return strings.EqualFold(l.IssuerType, "AI")
}

// DisplayedOrder is the order text shown to the player: the tamper variant
// when the level is tampered.
func (l *LevelRecord) DisplayedOrder() string {
	if l.Tampered && l.TamperVariant != "" {
		return l.TamperVariant
	}
	return l.Order
}

// #endregion legacy-schema

// #region data
// Kind tags which schema a Data holds.
type Kind int

const (
	KindQuestions Kind = iota + 1
	KindLegacy
)

func (k Kind) String() string {
	switch k {
	case KindQuestions:
		return "questions"
	case KindLegacy:
		return "levels"
	default:
		return "unknown"
	}
}

// Data is the parsed level file. Exactly one of Questions or Levels is set,
// as indicated by Kind.
type Data struct {
	Kind      Kind
	Day       int
	Questions []QuestionRecord
	Levels    []LevelRecord
}

// Len is the number of playable entries.
func (d *Data) Len() int {
	switch d.Kind {
	case KindQuestions:
		return len(d.Questions)
	case KindLegacy:
		return len(d.Levels)
	default:
		return 0
	}
}

// LevelID returns the id of entry i, or "" when out of range.
func (d *Data) LevelID(i int) string {
	if i < 0 || i >= d.Len() {
		return ""
	}
	switch d.Kind {
	case KindQuestions:
		return d.Questions[i].LevelID
	case KindLegacy:
		return d.Levels[i].ID
	default:
		return ""
	}
}

// #endregion data
