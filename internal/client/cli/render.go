package cli

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/complaints"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/mergeview"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/replay"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

const complaintTemplate = `=== Complaint ===

ID:       {{.ID}}
State:    {{.State}}
Title:    {{.Complaint.Title}}
{{- if .Complaint.Category}}
Category: {{.Complaint.Category}}
{{- end}}
{{- if .Complaint.Location}}
Location: {{.Complaint.Location}}
{{- end}}
{{- if .Complaint.Status}}
Status:   {{.Complaint.Status}}
{{- end}}
{{- if .LastError}}
Error:    {{.LastError}}
{{- end}}
{{- if .Complaint.Description}}

Description:
---
{{.Complaint.Description}}
---
{{- end}}
`

var complaintTmpl = template.Must(template.New("complaint").Parse(complaintTemplate))

func renderList(w io.Writer, result *complaints.ListResult) error {
	if result.Stale {
		if result.FetchErr != nil {
			fmt.Fprintf(w, "Server unreachable, showing cached list (%v)\n\n", result.FetchErr)
		} else {
			fmt.Fprintf(w, "Showing cached list\n\n")
		}
	}

	if len(result.Items) == 0 {
		_, err := fmt.Fprintln(w, "No complaints.")
		return err
	}

	fmt.Fprintf(w, "%-42s  %-14s  %s\n", "ID", "STATE", "TITLE")
	for _, item := range result.Items {
		fmt.Fprintf(w, "%-42s  %-14s  %s\n", item.ID, item.State, item.Complaint.Title)
		if item.LastError != "" {
			fmt.Fprintf(w, "%-42s  ! %s\n", "", item.LastError)
		}
	}

	_, err := fmt.Fprintf(w, "\nTotal: %d\n", len(result.Items))
	return err
}

func renderComplaint(w io.Writer, item *mergeview.Item) error {
	return complaintTmpl.Execute(w, item)
}

func renderQueue(w io.Writer, pending []models.QueuedAction, failed []models.FailedAction, online bool, lastFlush time.Time) error {
	status := "offline"
	if online {
		status = "online"
	}
	fmt.Fprintf(w, "Connectivity: %s\n", status)
	if lastFlush.IsZero() {
		fmt.Fprint(w, "Last full sync: never\n\n")
	} else {
		fmt.Fprintf(w, "Last full sync: %s\n\n", lastFlush.Format(timeLayout))
	}

	fmt.Fprintf(w, "Pending: %d\n", len(pending))
	for i, a := range pending {
		fmt.Fprintf(w, "  %d. %s  %s  attempts=%d  queued %s\n",
			i+1, a.LocalIdentifier(), a.Kind(), a.Attempts, a.EnqueuedAt.Format(timeLayout))
		if a.LastError != "" {
			fmt.Fprintf(w, "     last error: %s\n", a.LastError)
		}
	}

	fmt.Fprintf(w, "\nFailed: %d\n", len(failed))
	for _, f := range failed {
		cause := "rejected"
		if f.Exhausted {
			cause = "retries exhausted"
		}
		fmt.Fprintf(w, "  %s  %s  %s at %s\n",
			f.Action.LocalIdentifier(), f.Action.Kind(), cause, f.FailedAt.Format(timeLayout))
		fmt.Fprintf(w, "     reason: %s\n", f.Reason)
	}

	if len(failed) > 0 {
		_, err := fmt.Fprintln(w, "\nUse 'retry <local-id>' to requeue or 'discard <local-id>' to drop a failed action.")
		return err
	}
	return nil
}

func renderReport(w io.Writer, report *replay.Report) error {
	fmt.Fprintf(w, "Delivered: %d\n", len(report.Committed))
	for _, c := range report.Committed {
		if c.ServerID != "" {
			fmt.Fprintf(w, "  %s -> %s\n", models.Local(c.LocalID), c.ServerID)
		} else {
			fmt.Fprintf(w, "  %s\n", models.Local(c.LocalID))
		}
	}

	if len(report.Failed) > 0 {
		fmt.Fprintf(w, "Quarantined: %d\n", len(report.Failed))
		for _, id := range report.Failed {
			fmt.Fprintf(w, "  %s\n", models.Local(id))
		}
	}

	fmt.Fprintf(w, "Remaining: %d\n", report.Remaining)
	if report.Err != nil {
		fmt.Fprintf(w, "Stopped: %v\n", report.Err)
	}
	_, err := fmt.Fprintf(w, "Took: %s\n", report.Finished.Sub(report.Started).Round(time.Millisecond))
	return err
}

func renderEvent(w io.Writer, ev replay.Event) {
	switch ev.Type {
	case replay.EventCommitted:
		if ev.ServerID != "" {
			fmt.Fprintf(w, "delivered %s as %s\n", models.Local(ev.LocalID), ev.ServerID)
		} else {
			fmt.Fprintf(w, "delivered %s\n", models.Local(ev.LocalID))
		}
	case replay.EventRetryScheduled:
		// Пустой localId: сбой чтения очереди, а не конкретного действия
		if ev.LocalID == "" {
			fmt.Fprintf(w, "retrying sync in %s: %v\n", ev.RetryIn.Round(time.Millisecond), ev.Err)
			return
		}
		fmt.Fprintf(w, "retrying %s in %s: %v\n", models.Local(ev.LocalID), ev.RetryIn.Round(time.Millisecond), ev.Err)
	case replay.EventFailed:
		fmt.Fprintf(w, "quarantined %s: %v\n", models.Local(ev.LocalID), ev.Err)
	case replay.EventCycleFinished:
		if r := ev.Report; r != nil && (len(r.Committed) > 0 || len(r.Failed) > 0) {
			fmt.Fprintf(w, "cycle finished: %d delivered, %d quarantined, %d remaining\n",
				len(r.Committed), len(r.Failed), r.Remaining)
		}
	}
}
