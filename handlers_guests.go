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
// Guests — owner-scoped listing and manual management
// ============================================================================

func handleGuestsList(re *core.RequestEvent, app core.App) error {
	query := re.Request.URL.Query()
	nameFilter := strings.ToLower(strings.TrimSpace(query.Get("name")))
	phoneFilter := utils.DigitsOnly(query.Get("phone"))
	eventID := query.Get("eventId")

	// Resolve which of the caller's events to list. Guests are always scoped
	// through the owner chain; there is no unfiltered mode.
	var events []*core.Record
	if eventID != "" {
		event, err := findOwnedEvent(app, re.Auth, eventID)
		if err != nil {
			return utils.NotFoundResponse(re, "Event not found")
		}
		events = []*core.Record{event}
	} else {
		var err error
		events, err = app.FindRecordsByFilter(
			utils.CollectionEvents,
			"user = {:userId}",
			"-date", 0, 0,
			map[string]any{"userId": re.Auth.Id},
		)
		if err != nil {
			return re.JSON(http.StatusOK, map[string]any{"total": 0, "guests": []any{}})
		}
	}

	guests := []map[string]any{}
	for _, event := range events {
		records, err := app.FindRecordsByFilter(
			utils.CollectionGuests,
			"event = {:eventId}",
			"-created", 0, 0,
			map[string]any{"eventId": event.Id},
		)
		if err != nil {
			continue
		}

		for _, guest := range records {
			if nameFilter != "" && !strings.Contains(strings.ToLower(guest.GetString("name")), nameFilter) {
				continue
			}
			if phoneFilter != "" && !strings.Contains(guest.GetString("phone_number"), phoneFilter) {
				continue
			}
			guests = append(guests, guestResponse(guest, event))
		}
	}

	return re.JSON(http.StatusOK, map[string]any{
		"total":  len(guests),
		"guests": guests,
	})
}

func handleGuestCreate(re *core.RequestEvent, app core.App) error {
	var input struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phoneNumber"`
		EventID     string `json:"eventId"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}

	name := strings.TrimSpace(input.Name)
	phone := utils.DigitsOnly(input.PhoneNumber)

	if name == "" {
		return utils.BadRequestResponse(re, "Name is required")
	}
	if phone == "" {
		return utils.BadRequestResponse(re, "Phone number is required")
	}
	if input.EventID == "" {
		return utils.BadRequestResponse(re, "Event ID is required")
	}

	event, err := findOwnedEvent(app, re.Auth, input.EventID)
	if err != nil {
		return utils.NotFoundResponse(re, "Event not found")
	}

	existing, _ := app.FindFirstRecordByFilter(
		utils.CollectionGuests,
		"phone_number = {:phone} && event = {:eventId}",
		map[string]any{"phone": phone, "eventId": event.Id},
	)
	if existing != nil {
		return utils.ConflictResponse(re, "A guest with this phone number already exists for this event")
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionGuests)
	if err != nil {
		return utils.InternalErrorResponse(re, "Collection not found")
	}

	record := core.NewRecord(collection)
	record.Set("name", name)
	record.Set("phone_number", phone)
	record.Set("event", event.Id)
	record.Set(utils.FieldSendStatus, utils.SendStatusPending)
	record.Set(utils.FieldRSVPStatus, utils.RSVPStatusWaiting)
	record.Set("resend_count", 0)

	if err := app.Save(record); err != nil {
		log.Printf("[Guests] Failed to create guest for event %s: %v", event.Id, err)
		return utils.InternalErrorResponse(re, "Failed to create guest")
	}

	return re.JSON(http.StatusCreated, guestResponse(record, event))
}

func handleGuestUpdate(re *core.RequestEvent, app core.App) error {
	id := re.Request.PathValue("id")

	guest, event, err := findOwnedGuest(app, re.Auth, id)
	if err != nil {
		return utils.NotFoundResponse(re, "Guest not found")
	}

	var input struct {
		Name        *string `json:"name"`
		PhoneNumber *string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return utils.BadRequestResponse(re, "Name cannot be empty")
		}
		guest.Set("name", name)
	}

	if input.PhoneNumber != nil {
		phone := utils.DigitsOnly(*input.PhoneNumber)
		if phone == "" {
			return utils.BadRequestResponse(re, "Phone number cannot be empty")
		}
		if phone != guest.GetString("phone_number") {
			existing, _ := app.FindFirstRecordByFilter(
				utils.CollectionGuests,
				"phone_number = {:phone} && event = {:eventId} && id != {:guestId}",
				map[string]any{"phone": phone, "eventId": event.Id, "guestId": guest.Id},
			)
			if existing != nil {
				return utils.ConflictResponse(re, "A guest with this phone number already exists for this event")
			}
			guest.Set("phone_number", phone)
		}
	}

	if err := app.Save(guest); err != nil {
		log.Printf("[Guests] Failed to update guest %s: %v", guest.Id, err)
		return utils.InternalErrorResponse(re, "Failed to update guest")
	}

	return re.JSON(http.StatusOK, guestResponse(guest, event))
}

// handleGuestsClear bulk-deletes guests for one event ("eventId": "<id>")
// or for every event the caller owns ("eventId": "all").
func handleGuestsClear(re *core.RequestEvent, app core.App) error {
	var input struct {
		EventID string `json:"eventId"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}
	if input.EventID == "" {
		return utils.BadRequestResponse(re, "Event ID is required (use \"all\" to clear every event)")
	}

	var events []*core.Record
	if input.EventID == "all" {
		var err error
		events, err = app.FindRecordsByFilter(
			utils.CollectionEvents,
			"user = {:userId}",
			"", 0, 0,
			map[string]any{"userId": re.Auth.Id},
		)
		if err != nil {
			return utils.InternalErrorResponse(re, "Failed to load events")
		}
	} else {
		event, err := findOwnedEvent(app, re.Auth, input.EventID)
		if err != nil {
			return utils.NotFoundResponse(re, "Event not found")
		}
		events = []*core.Record{event}
	}

	deleted := 0
	for _, event := range events {
		guests, err := app.FindRecordsByFilter(
			utils.CollectionGuests,
			"event = {:eventId}",
			"", 0, 0,
			map[string]any{"eventId": event.Id},
		)
		if err != nil {
			continue
		}
		for _, guest := range guests {
			if err := app.Delete(guest); err != nil {
				log.Printf("[Guests] Failed to delete guest %s: %v", guest.Id, err)
				continue
			}
			deleted++
		}
	}

	log.Printf("[Guests] Cleared %d guest(s) for user %s (scope %s)", deleted, re.Auth.Id, input.EventID)

	return re.JSON(http.StatusOK, map[string]any{
		"count":   deleted,
		"message": "Guests cleared successfully",
	})
}

func guestResponse(guest *core.Record, event *core.Record) map[string]any {
	return map[string]any{
		"id":          guest.Id,
		"name":        guest.GetString("name"),
		"phoneNumber": guest.GetString("phone_number"),
		"eventId":     event.Id,
		"eventTitle":  event.GetString("title"),
		"eventDate":   event.GetString("date"),
		"sendStatus":  guest.GetString(utils.FieldSendStatus),
		"rsvpStatus":  guest.GetString(utils.FieldRSVPStatus),
		"resendCount": guest.GetInt("resend_count"),
		"lastSentAt":  guest.GetString("last_sent_at"),
		"createdAt":   guest.GetString("created"),
	}
}
