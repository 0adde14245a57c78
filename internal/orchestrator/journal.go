package orchestrator

import (
	"time"

	"github.com/johnpolacek/create-bucket-cms/internal/ui"
)

// Entry is one recorded step.
type Entry struct {
	Step     string
	Status   string
	Duration time.Duration
	Detail   string
}

// Journal is the ordered record of every step attempted in a run.
type Journal struct {
	entries []Entry
}

func (j *Journal) record(step, status string, d time.Duration, detail string) {
	j.entries = append(j.entries, Entry{Step: step, Status: status, Duration: d, Detail: detail})
}

// Completed lists the names of steps that finished successfully.
func (j *Journal) Completed() []string {
	var names []string
	for _, e := range j.entries {
		if e.Status == ui.StatusDone {
			names = append(names, e.Step)
		}
	}
	return names
}

// Rows converts the journal for ui.PrintSteps.
func (j *Journal) Rows() []ui.StepRow {
	rows := make([]ui.StepRow, 0, len(j.entries))
	for _, e := range j.entries {
		rows = append(rows, ui.StepRow{Name: e.Step, Status: e.Status, Duration: e.Duration, Detail: e.Detail})
	}
	return rows
}
