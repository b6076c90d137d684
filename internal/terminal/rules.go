package terminal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Rules panel titles.
const (
	GlobalRulesTitle = "Global rules"
	TodayRulesTitle  = "Today Rule"
)

// RulesBook is the day rules file: rules that always apply plus extra rules
// per day.
type RulesBook struct {
	GlobalRules []string   `json:"globalRules"`
	Days        []DayRules `json:"days"`
}

// DayRules are the extra rules of one day.
type DayRules struct {
	Day        int      `json:"day"`
	TodayRules []string `json:"todayRules"`
}

// LoadRules reads a rules file.
func LoadRules(path string) (*RulesBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var book RulesBook
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return &book, nil
}

// Today returns the rules of day, or nil.
func (b *RulesBook) Today(day int) []string {
	for _, d := range b.Days {
		if d.Day == day {
			return d.TodayRules
		}
	}
	return nil
}

// Text is the plain panel for day.
func (b *RulesBook) Text(day int) string {
	var sb strings.Builder
	sb.WriteString(GlobalRulesTitle + "\n")
	numbered(&sb, b.GlobalRules)
	sb.WriteString("\n" + TodayRulesTitle + "\n")
	numbered(&sb, b.Today(day))
	return strings.TrimRight(sb.String(), "\n")
}

// Render is Text inside a panel box.
func (b *RulesBook) Render(day int) string {
	return Styles.Panel.Render(b.Text(day))
}

// numbered writes "n) rule" lines, skipping blanks. An empty list reads
// "1) (none)".
func numbered(sb *strings.Builder, lines []string) {
	n := 1
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		fmt.Fprintf(sb, "%d) %s\n", n, l)
		n++
	}
	if n == 1 {
		sb.WriteString("1) (none)\n")
	}
}
