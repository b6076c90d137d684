package terminal

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
)

// ReportPanel draws the anomaly catalog with the selected row marked.
func ReportPanel(selected string) string {
	rows := []string{Styles.Label.Render("REPORT ANOMALY")}
	for i, item := range anomaly.Catalog {
		on := selected != "" && strings.EqualFold(selected, item.ID)
		rows = append(rows, fmt.Sprintf("%d) %s %s", i+1, box(on), item.Label))
	}
	return Styles.Panel.Render(strings.Join(rows, "\n"))
}
