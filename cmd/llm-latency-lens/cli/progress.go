package cli

import "github.com/schollz/progressbar/v3"

// barReporter adapts a progressbar.ProgressBar to orchestrator.ProgressReporter.
type barReporter struct {
	bar *progressbar.ProgressBar
}

func newBarReporter(total int, description string) *barReporter {
	return &barReporter{bar: progressbar.Default(int64(total), description)}
}

func (r *barReporter) Increment() {
	_ = r.bar.Add(1)
}
