package app

import (
	"fmt"
	"io"
	"time"
)

// Terminal stages of a job.
const (
	StageDone   = "done"
	StageFailed = "failed"
)

// RunEvent reports the progress of one job.
type RunEvent struct {
	Stage    string
	Instance string
	Limit    time.Duration
	Time     time.Time
	// Err is set on StageFailed.
	Err error
	// Report is set on StageDone.
	Report *Report
}

// PrintProgress writes one line per terminal event read from events until
// the channel is closed.
func PrintProgress(w io.Writer, events <-chan RunEvent) {
	done := 0
	for ev := range events {
		switch ev.Stage {
		case StageDone:
			done++
			fmt.Fprintf(w, "[%d] %s limit=%s %s\n", done, ev.Instance, limitString(ev.Limit), ev.Report.Result)
		case StageFailed:
			done++
			fmt.Fprintf(w, "[%d] %s limit=%s failed: %v\n", done, ev.Instance, limitString(ev.Limit), ev.Err)
		}
	}
}

func limitString(d time.Duration) string {
	if d <= 0 {
		return "default"
	}
	return d.String()
}
