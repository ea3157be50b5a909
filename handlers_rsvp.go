package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/pocketbase/core"
)

// ============================================================================
// Public RSVP endpoints (no auth — the guest id is the capability token)
// ============================================================================

func handleRSVPInfo(re *core.RequestEvent, app core.App) error {
	id := re.Request.PathValue("guestId")

	guest, err := app.FindRecordById(utils.CollectionGuests, id)
	if err != nil {
		return utils.NotFoundResponse(re, "Guest not found")
	}

	event, err := app.FindRecordById(utils.CollectionEvents, guest.GetString("event"))
	if err != nil {
		return utils.NotFoundResponse(re, "Event not found")
	}

	return re.JSON(http.StatusOK, map[string]any{
		"id":         guest.Id,
		"name":       guest.GetString("name"),
		"rsvpStatus": guest.GetString(utils.FieldRSVPStatus),
		"event": map[string]any{
			"title":       event.GetString("title"),
			"description": event.GetString("description"),
			"date":        event.GetString("date"),
			"location":    event.GetString("location"),
			"image_url":   resolveEventImageURL(event),
		},
	})
}

func handleRSVPSubmit(re *core.RequestEvent, app core.App) error {
	id := re.Request.PathValue("guestId")

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}

	if input.Status != utils.RSVPStatusConfirmed && input.Status != utils.RSVPStatusDeclined {
		return utils.BadRequestResponse(re, "Status must be CONFIRMED or DECLINED")
	}

	guest, err := app.FindRecordById(utils.CollectionGuests, id)
	if err != nil {
		return utils.NotFoundResponse(re, "Guest not found")
	}

	// The first answer is final. Repeat submissions never overwrite it and
	// never touch the send bookkeeping.
	if guest.GetString(utils.FieldRSVPStatus) != utils.RSVPStatusWaiting {
		return utils.ConflictResponse(re, "This invitation has already been answered")
	}

	guest.Set(utils.FieldRSVPStatus, input.Status)

	if err := app.Save(guest); err != nil {
		log.Printf("[RSVP] Failed to save response for guest %s: %v", guest.Id, err)
		return utils.InternalErrorResponse(re, "Failed to save RSVP")
	}

	log.Printf("[RSVP] Guest %s responded %s", guest.Id, input.Status)

	// Notify the event owner; a mail failure must not fail the RSVP.
	go notifyOwnerOfRSVP(app, guest.Id, input.Status)

	event, _ := app.FindRecordById(utils.CollectionEvents, guest.GetString("event"))
	if event != nil {
		return re.JSON(http.StatusOK, guestResponse(guest, event))
	}
	return re.JSON(http.StatusOK, map[string]any{
		"id":         guest.Id,
		"rsvpStatus": guest.GetString(utils.FieldRSVPStatus),
	})
}

// handleRSVPSearch powers the public "find my invite" page: guests who lost
// their personal link search by name or phone. Results are capped and
// exclude phone numbers to limit what an enumeration attempt could learn.
func handleRSVPSearch(re *core.RequestEvent, app core.App) error {
	query := strings.TrimSpace(re.Request.URL.Query().Get("query"))
	if len(query) < 3 {
		return utils.BadRequestResponse(re, "Query must have at least 3 characters")
	}

	filter := "name ~ {:query}"
	params := map[string]any{"query": query}
	if digits := utils.DigitsOnly(query); len(digits) >= 8 {
		filter = "phone_number ~ {:digits}"
		params = map[string]any{"digits": digits}
	}

	records, err := app.FindRecordsByFilter(utils.CollectionGuests, filter, "-created", 10, 0, params)
	if err != nil {
		return re.JSON(http.StatusOK, map[string]any{"total": 0, "guests": []any{}})
	}

	guests := make([]map[string]any, 0, len(records))
	for _, guest := range records {
		event, err := app.FindRecordById(utils.CollectionEvents, guest.GetString("event"))
		if err != nil {
			continue
		}
		guests = append(guests, map[string]any{
			"id":         guest.Id,
			"name":       guest.GetString("name"),
			"eventTitle": event.GetString("title"),
			"eventDate":  event.GetString("date"),
			"rsvpStatus": guest.GetString(utils.FieldRSVPStatus),
		})
	}

	return re.JSON(http.StatusOK, map[string]any{
		"total":  len(guests),
		"guests": guests,
	})
}
