package mergeview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// mapResolver - простая реализация Resolver для тестов
type mapResolver map[string]string

func (m mapResolver) Resolve(tempID string) (string, bool) {
	id, ok := m[tempID]
	return id, ok
}

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func create(localID, title string, offset time.Duration) models.QueuedAction {
	return models.NewQueuedAction(localID, models.ComplaintCreate{Title: title}, base.Add(offset))
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID.String())
	}
	return out
}

func TestComplaints_PendingFirst(t *testing.T) {
	items := Complaints(Input{
		Server:  []models.Complaint{{ID: "1", Title: "server one"}},
		Pending: []models.QueuedAction{create("x", "Vol de moto", 0)},
	})

	require.Len(t, items, 2)
	assert.Equal(t, []string{"TEMP-x", "1"}, ids(items))
	assert.Equal(t, StatePending, items[0].State)
	assert.Equal(t, "Vol de moto", items[0].Complaint.Title)
	assert.True(t, items[0].ID.IsLocal())
	assert.Equal(t, StateSynced, items[1].State)
}

func TestComplaints_ReconciledNotDuplicated(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantIDs []string
	}{
		{
			name: "mapped and present on server",
			in: Input{
				Server:   []models.Complaint{{ID: "42", Title: "Vol de moto"}},
				Pending:  []models.QueuedAction{create("x", "Vol de moto", 0)},
				Resolver: mapResolver{"x": "42"},
			},
			wantIDs: []string{"42"},
		},
		{
			name: "mapped but stale server list",
			in: Input{
				Server:   []models.Complaint{{ID: "1"}},
				Pending:  []models.QueuedAction{create("x", "Vol de moto", 0)},
				Resolver: mapResolver{"x": "42"},
			},
			wantIDs: []string{"42", "1"},
		},
		{
			name: "matched by client ref after restart",
			in: Input{
				Server:  []models.Complaint{{ID: "42", ClientRef: "x"}},
				Pending: []models.QueuedAction{create("x", "Vol de moto", 0)},
			},
			wantIDs: []string{"42"},
		},
		{
			name: "same title is not a match",
			in: Input{
				Server:  []models.Complaint{{ID: "42", Title: "Vol de moto"}},
				Pending: []models.QueuedAction{create("x", "Vol de moto", 0)},
			},
			wantIDs: []string{"TEMP-x", "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Complaints(tt.in)
			assert.Equal(t, tt.wantIDs, ids(items))
		})
	}
}

func TestComplaints_StaleListUsesLocalPayload(t *testing.T) {
	items := Complaints(Input{
		Pending:  []models.QueuedAction{create("x", "Vol de moto", 0)},
		Resolver: mapResolver{"x": "42"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, models.Remote("42"), items[0].ID)
	assert.Equal(t, StateSynced, items[0].State)
	assert.Equal(t, "Vol de moto", items[0].Complaint.Title)
	assert.Equal(t, "42", items[0].Complaint.ID)
}

func TestComplaints_FailedAndOrder(t *testing.T) {
	items := Complaints(Input{
		Pending: []models.QueuedAction{create("b", "second", time.Minute)},
		Failed: []models.FailedAction{{
			Action: create("a", "first", 0),
			Reason: "permanent delivery error (422): title too long",
		}},
	})

	require.Len(t, items, 2)
	assert.Equal(t, []string{"TEMP-a", "TEMP-b"}, ids(items))
	assert.Equal(t, StateFailed, items[0].State)
	assert.Contains(t, items[0].LastError, "title too long")
	assert.Equal(t, StatePending, items[1].State)
}

func TestComplaints_Overlays(t *testing.T) {
	title := "corrected"
	items := Complaints(Input{
		Server: []models.Complaint{
			{ID: "1", Title: "original"},
			{ID: "2", Title: "to withdraw"},
			{ID: "3", Title: "untouched"},
		},
		Pending: []models.QueuedAction{
			create("x", "local", 0),
			models.NewQueuedAction("u1", models.ComplaintUpdate{Target: models.Remote("1"), Title: &title}, base.Add(time.Minute)),
			models.NewQueuedAction("d1", models.ComplaintDelete{Target: models.Remote("2")}, base.Add(2*time.Minute)),
			models.NewQueuedAction("u2", models.ComplaintUpdate{Target: models.Local("x"), Title: &title}, base.Add(3*time.Minute)),
		},
	})

	require.Len(t, items, 4)
	assert.Equal(t, []string{"TEMP-x", "1", "2", "3"}, ids(items))

	assert.Equal(t, StatePending, items[0].State)
	assert.Equal(t, "corrected", items[0].Complaint.Title)

	assert.Equal(t, StatePendingUpdate, items[1].State)
	assert.Equal(t, "corrected", items[1].Complaint.Title)

	assert.Equal(t, StatePendingDelete, items[2].State)
	assert.Equal(t, StateSynced, items[3].State)
}

func TestComplaints_OverlayThroughReconciledTarget(t *testing.T) {
	title := "corrected"
	items := Complaints(Input{
		Server: []models.Complaint{{ID: "42", Title: "Vol de moto"}},
		Pending: []models.QueuedAction{
			models.NewQueuedAction("u", models.ComplaintUpdate{Target: models.Local("x"), Title: &title}, base),
		},
		Resolver: mapResolver{"x": "42"},
	})

	require.Len(t, items, 1)
	assert.Equal(t, StatePendingUpdate, items[0].State)
	assert.Equal(t, "corrected", items[0].Complaint.Title)
}

func TestFind(t *testing.T) {
	items := Complaints(Input{
		Server:  []models.Complaint{{ID: "42", ClientRef: "y"}, {ID: "43"}},
		Pending: []models.QueuedAction{create("x", "local", 0)},
	})

	item, ok := Find(items, models.Local("x"), nil)
	require.True(t, ok)
	assert.Equal(t, StatePending, item.State)

	// Временный id, уже сопоставленный с сервером
	item, ok = Find(items, models.Local("z"), mapResolver{"z": "43"})
	require.True(t, ok)
	assert.Equal(t, models.Remote("43"), item.ID)

	// Совпадение по ключу идемпотентности
	item, ok = Find(items, models.Local("y"), nil)
	require.True(t, ok)
	assert.Equal(t, models.Remote("42"), item.ID)

	_, ok = Find(items, models.Remote("404"), nil)
	assert.False(t, ok)
}
