// Package mergeview combines server-fetched records with actions still in
// the offline queue into one de-duplicated list for display.
//
// A queued create and its server twin are matched only through the
// reconciliation map or the idempotency key echoed by the server in
// ClientRef. Record content (title, description) is never compared.
package mergeview

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// State is the sync state of a displayed record
type State string

const (
	StateSynced        State = "synced"
	StatePending       State = "pending"
	StateFailed        State = "failed"
	StatePendingUpdate State = "pending_update"
	StatePendingDelete State = "pending_delete"
)

// Item is one displayed record
type Item struct {
	EnqueuedAt time.Time         // EnqueuedAt для локальных записей
	Complaint  models.Complaint  // Complaint с наложенными локальными изменениями
	ID         models.Identifier // ID Local до подтверждения сервером, затем Remote
	State      State
	LastError  string
}

// Resolver looks up the server id recorded for a temp id
type Resolver interface {
	Resolve(tempID string) (serverID string, ok bool)
}

// Input is everything a merge needs
type Input struct {
	Resolver Resolver
	Server   []models.Complaint
	Pending  []models.QueuedAction
	Failed   []models.FailedAction
}

type localCreate struct {
	action models.QueuedAction
	failed bool
	reason string
}

// Complaints returns local creates first in enqueue order, then server records.
func Complaints(in Input) []Item {
	serverIDs := mapset.NewThreadUnsafeSet[string]()
	byClientRef := make(map[string]string, len(in.Server))
	for _, c := range in.Server {
		serverIDs.Add(c.ID)
		if c.ClientRef != "" {
			byClientRef[c.ClientRef] = c.ID
		}
	}

	// serverID возвращает серверный id для временного, если он известен
	serverID := func(localID string) (string, bool) {
		if in.Resolver != nil {
			if id, ok := in.Resolver.Resolve(localID); ok {
				return id, true
			}
		}
		id, ok := byClientRef[localID]
		return id, ok
	}

	resolve := func(id models.Identifier) models.Identifier {
		if id.IsLocal() {
			if sid, ok := serverID(id.LocalID()); ok {
				return models.Remote(sid)
			}
		}
		return id
	}

	// Только активные изменения накладываются на записи
	updates := make(map[models.Identifier][]models.ComplaintUpdate)
	deletes := mapset.NewThreadUnsafeSet[models.Identifier]()
	for _, a := range in.Pending {
		if a.Service != models.ServiceComplaints {
			continue
		}
		switch p := a.Payload.(type) {
		case models.ComplaintUpdate:
			target := resolve(p.Target)
			updates[target] = append(updates[target], p)
		case models.ComplaintDelete:
			deletes.Add(resolve(p.Target))
		}
	}

	overlay := func(item Item) Item {
		patches := updates[item.ID]
		for _, p := range patches {
			item.Complaint = p.Apply(item.Complaint)
		}
		if len(patches) > 0 && item.State == StateSynced {
			item.State = StatePendingUpdate
		}
		if deletes.Contains(item.ID) && item.State != StateFailed {
			item.State = StatePendingDelete
		}
		return item
	}

	locals := make([]localCreate, 0, len(in.Pending)+len(in.Failed))
	for _, a := range in.Pending {
		if a.Kind() == models.KindComplaintCreate {
			locals = append(locals, localCreate{action: a})
		}
	}
	for _, f := range in.Failed {
		if f.Action.Kind() == models.KindComplaintCreate {
			locals = append(locals, localCreate{action: f.Action, failed: true, reason: f.Reason})
		}
	}
	sort.SliceStable(locals, func(i, j int) bool {
		return locals[i].action.EnqueuedAt.Before(locals[j].action.EnqueuedAt)
	})

	shown := mapset.NewThreadUnsafeSet[models.Identifier]()
	items := make([]Item, 0, len(locals)+len(in.Server))

	for _, l := range locals {
		create, ok := l.action.Payload.(models.ComplaintCreate)
		if !ok {
			continue
		}

		item := Item{
			EnqueuedAt: l.action.EnqueuedAt,
			Complaint: models.Complaint{
				Title:       create.Title,
				Description: create.Description,
				Category:    create.Category,
				Location:    create.Location,
				ClientRef:   l.action.LocalID,
				CreatedAt:   l.action.EnqueuedAt,
			},
			ID:        l.action.LocalIdentifier(),
			State:     StatePending,
			LastError: l.action.LastError,
		}
		if l.failed {
			item.State = StateFailed
			item.LastError = l.reason
		}

		if sid, ok := serverID(l.action.LocalID); ok {
			// Серверная запись уже в списке - покажем ее ниже
			if serverIDs.Contains(sid) {
				continue
			}
			// Список устарел: показываем локальные данные под серверным id
			item.ID = models.Remote(sid)
			item.Complaint.ID = sid
			item.State = StateSynced
		}

		if shown.Contains(item.ID) {
			continue
		}
		shown.Add(item.ID)
		items = append(items, overlay(item))
	}

	for _, c := range in.Server {
		id := models.Remote(c.ID)
		if shown.Contains(id) {
			continue
		}
		shown.Add(id)
		items = append(items, overlay(Item{
			Complaint: c,
			ID:        id,
			State:     StateSynced,
		}))
	}

	return items
}

// Find returns the item with id. A reconciled Local id finds its Remote twin.
func Find(items []Item, id models.Identifier, resolver Resolver) (Item, bool) {
	if id.IsLocal() && resolver != nil {
		if sid, ok := resolver.Resolve(id.LocalID()); ok {
			id = models.Remote(sid)
		}
	}
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	// Сервер вернул ключ идемпотентности, но сопоставление еще не записано
	if id.IsLocal() {
		for _, item := range items {
			if item.ID.IsRemote() && item.Complaint.ClientRef == id.LocalID() {
				return item, true
			}
		}
	}
	return Item{}, false
}
