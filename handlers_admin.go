package main

import (
	"net/http"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// ============================================================================
// Admin — cross-tenant listings (read only)
// ============================================================================

func handleAdminUsersList(re *core.RequestEvent, app core.App) error {
	records, err := app.FindAllRecords(utils.CollectionUsers)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to load users")
	}

	users := make([]map[string]any, len(records))
	for i, user := range records {
		eventCount, _ := app.CountRecords(utils.CollectionEvents, dbx.HashExp{"user": user.Id})
		guestCount, _ := app.CountRecords(utils.CollectionGuests,
			dbx.NewExp("event IN (SELECT id FROM events WHERE user = {:user})", dbx.Params{"user": user.Id}))

		users[i] = map[string]any{
			"id":         user.Id,
			"email":      user.Email(),
			"name":       user.GetString("name"),
			"role":       utils.GetUserRole(user),
			"eventCount": eventCount,
			"guestCount": guestCount,
			"createdAt":  user.GetString("created"),
		}
	}

	return re.JSON(http.StatusOK, map[string]any{
		"total": len(users),
		"users": users,
	})
}

func handleAdminGuestsList(re *core.RequestEvent, app core.App) error {
	var records []*core.Record
	var err error

	if eventID := re.Request.URL.Query().Get("eventId"); eventID != "" {
		records, err = app.FindAllRecords(utils.CollectionGuests, dbx.HashExp{"event": eventID})
	} else {
		records, err = app.FindAllRecords(utils.CollectionGuests)
	}
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to load guests")
	}

	// Resolve event titles and owners once per event, not per guest.
	eventCache := map[string]*core.Record{}
	eventFor := func(id string) *core.Record {
		if cached, ok := eventCache[id]; ok {
			return cached
		}
		event, _ := app.FindRecordById(utils.CollectionEvents, id)
		eventCache[id] = event
		return event
	}

	guests := make([]map[string]any, 0, len(records))
	for _, guest := range records {
		item := map[string]any{
			"id":          guest.Id,
			"name":        guest.GetString("name"),
			"phoneNumber": guest.GetString("phone_number"),
			"sendStatus":  guest.GetString(utils.FieldSendStatus),
			"rsvpStatus":  guest.GetString(utils.FieldRSVPStatus),
			"createdAt":   guest.GetString("created"),
		}
		if event := eventFor(guest.GetString("event")); event != nil {
			item["eventId"] = event.Id
			item["eventTitle"] = event.GetString("title")
			item["ownerId"] = event.GetString("user")
		}
		guests = append(guests, item)
	}

	return re.JSON(http.StatusOK, map[string]any{
		"total":  len(guests),
		"guests": guests,
	})
}
