package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/iroshandezilva/raindrop-sync/internal/state"
)

// ReportFileName is the status document at the sync root. It is fully
// regenerated every run and carries no metadata block, so the scanner
// never mistakes it for a bookmark.
const ReportFileName = "Raindrop Sync.md"

func (e *Engine) writeReport(r *run) error {
	return e.storage.Write(ReportFileName, renderReport(&r.rec), time.Time{})
}

// renderReport builds the status document for a finished run.
func renderReport(rec *state.RunRecord) []byte {
	var b strings.Builder

	b.WriteString("# Raindrop Sync\n\n")
	fmt.Fprintf(&b, "Last run: %s\n\n", rec.StartedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Results\n\n")
	fmt.Fprintf(&b, "- Fetched: %d\n", rec.Fetched)
	fmt.Fprintf(&b, "- Created: %d\n", rec.Created)
	fmt.Fprintf(&b, "- Updated: %d\n", rec.Updated)
	fmt.Fprintf(&b, "- Relocated: %d\n", rec.Relocated)
	fmt.Fprintf(&b, "- Skipped: %d\n", rec.Skipped)
	fmt.Fprintf(&b, "- Deleted: %d\n", rec.Deleted)
	if rec.Bidirectional {
		fmt.Fprintf(&b, "- Pushed: %d\n", rec.Pushed)
	}
	fmt.Fprintf(&b, "- Failed: %d\n", rec.Failed+rec.PushFailed)

	if processed := rec.Processed(); processed != rec.Fetched {
		fmt.Fprintf(&b, "\nWarning: %d of %d fetched records reached an outcome.\n", processed, rec.Fetched)
	}

	b.WriteString("\n## Configuration\n\n")
	fmt.Fprintf(&b, "- Sync folder: %s\n", rec.SyncFolder)
	fmt.Fprintf(&b, "- Collection folders: %t\n", rec.CollectionFolders)
	fmt.Fprintf(&b, "- Bidirectional: %t\n", rec.Bidirectional)

	if len(rec.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, failure := range rec.Failures {
			fmt.Fprintf(&b, "- %s\n", failure)
		}
	}

	return []byte(b.String())
}
