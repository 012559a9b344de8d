package identity

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
)

const (
	tableMaxColumnWidthConstant = 80
	tableColumnPaddingConstant  = 2
	fromHeaderConstant          = "FROM"
	toHeaderConstant            = "TO"
	authoredHeaderConstant      = "AUTHORED"
	committedHeaderConstant     = "COMMITTED"
	previewSummaryTemplate      = "%d of %d commits would be rewritten"
	effectiveIdentityTemplate   = "%s (%s)"
)

// RenderPreview renders per-mapping commit counts followed by a summary line.
func RenderPreview(preview Preview) string {
	table := uitable.New()
	table.MaxColWidth = tableMaxColumnWidthConstant
	table.Separator = strings.Repeat(" ", tableColumnPaddingConstant)
	table.AddRow(fromHeaderConstant, toHeaderConstant, authoredHeaderConstant, committedHeaderConstant)
	for _, entry := range preview.Entries {
		table.AddRow(entry.Mapping.From.String(), entry.Mapping.To.String(), entry.Authored, entry.Committed)
	}
	return table.String() + "\n" + fmt.Sprintf(previewSummaryTemplate, preview.Rewritten, preview.Commits)
}

// RenderEffective renders an identity with the place it was read from.
func RenderEffective(effective EffectiveIdentity) string {
	return fmt.Sprintf(effectiveIdentityTemplate, effective.Identity.String(), effective.Source)
}
