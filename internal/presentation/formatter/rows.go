package formatter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Codealike/Codealike-plugins-core/internal/core/activity"
	"github.com/Codealike/Codealike-plugins-core/internal/data/spool"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

const clockLayout = "15:04:05.000"

// BatchTable lists every state and event of a batch in time order within
// each category, with the summed state time as footer.
func BatchTable(title string, batch activity.Batch) Table {
	table := Table{
		Title:   title,
		Headers: []string{"Category", "Kind", "Start", "End", "Duration", "Location"},
		Align:   []Alignment{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}

	var total time.Duration
	for _, st := range batch.States {
		total += st.Duration()
		table.Rows = append(table.Rows, []string{
			"state",
			st.Kind.String(),
			st.Start.Format(clockLayout),
			st.End.Format(clockLayout),
			util.FormatActivityDuration(st.Duration()),
			"",
		})
	}
	for _, ev := range batch.Events {
		table.Rows = append(table.Rows, []string{
			"event",
			ev.Kind.String(),
			ev.Start.Format(clockLayout),
			ev.End.Format(clockLayout),
			util.FormatActivityDuration(ev.Duration()),
			location(ev.CodeContext),
		})
	}

	table.Footer = []string{"Total", fmt.Sprintf("%d entries", len(table.Rows)), "", "", util.FormatActivityDuration(total), ""}
	return table
}

func location(ctx activity.CodeContext) string {
	if ctx.File == "" {
		return ""
	}
	if ctx.Line == 0 {
		return ctx.File
	}
	return ctx.File + ":" + strconv.Itoa(ctx.Line)
}

// SpoolEntry is the JSON shape of a spooled batch listing
type SpoolEntry struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"projectId"`
	BatchID   string    `json:"batchId"`
	CreatedAt time.Time `json:"createdAt"`
	Attempts  int       `json:"attempts"`
	RawSize   int       `json:"rawSize"`
	Stored    int       `json:"storedSize"`
	LastError string    `json:"lastError,omitempty"`
}

// SpoolTable lists spooled batches oldest first
func SpoolTable(entries []spool.Entry) (Table, []SpoolEntry) {
	table := Table{
		Title:   "Spooled batches",
		Headers: []string{"ID", "Batch", "Project", "Created", "Attempts", "Size", "Last error"},
		Align:   []Alignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignLeft},
	}

	values := make([]SpoolEntry, 0, len(entries))
	var raw, stored int
	for _, e := range entries {
		raw += e.RawSize
		stored += e.StoredSize
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.BatchID,
			e.ProjectID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(e.Attempts),
			formatBytes(e.StoredSize),
			e.LastError,
		})
		values = append(values, SpoolEntry{
			ID:        e.ID,
			ProjectID: e.ProjectID,
			BatchID:   e.BatchID,
			CreatedAt: e.CreatedAt,
			Attempts:  e.Attempts,
			RawSize:   e.RawSize,
			Stored:    e.StoredSize,
			LastError: e.LastError,
		})
	}

	table.Footer = []string{"", fmt.Sprintf("%d batches", len(entries)), "", "", "",
		formatBytes(stored), fmt.Sprintf("(%s raw)", formatBytes(raw))}
	return table, values
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
