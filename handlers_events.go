package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
)

// ============================================================================
// Events CRUD
// ============================================================================

func handleEventCreate(re *core.RequestEvent, app core.App) error {
	if err := re.Request.ParseMultipartForm(utils.MaxEventImageSize + 1048576); err != nil {
		return utils.BadRequestResponse(re, "Invalid form data")
	}

	title := strings.TrimSpace(re.Request.FormValue("title"))
	description := strings.TrimSpace(re.Request.FormValue("description"))
	date := strings.TrimSpace(re.Request.FormValue("date"))
	timeOfDay := strings.TrimSpace(re.Request.FormValue("time"))
	location := strings.TrimSpace(re.Request.FormValue("location"))
	message := re.Request.FormValue("message")

	if title == "" || description == "" || date == "" || timeOfDay == "" || location == "" || message == "" {
		return utils.BadRequestResponse(re, "Missing required fields")
	}

	// Combine the separate date/time inputs as a UTC timestamp. The renderer
	// later reads the UTC calendar fields back, so the stored value must not
	// pick up the server's local zone.
	eventDate, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, time.UTC)
	if err != nil {
		return utils.BadRequestResponse(re, "Invalid date or time format (expected YYYY-MM-DD and HH:MM)")
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionEvents)
	if err != nil {
		return utils.InternalErrorResponse(re, "Collection not found")
	}

	record := core.NewRecord(collection)
	record.Set("title", title)
	record.Set("description", description)
	record.Set("date", eventDate)
	record.Set("location", location)
	record.Set("message", message)
	record.Set("user", re.Auth.Id)

	// Optional invitation image
	if file, header, err := re.Request.FormFile("image"); err == nil {
		defer file.Close()

		// Bounded read so an oversized upload cannot balloon memory before
		// the size check.
		fileBytes, err := io.ReadAll(io.LimitReader(file, utils.MaxEventImageSize+1))
		if err != nil {
			return utils.InternalErrorResponse(re, "Failed to read image")
		}
		if len(fileBytes) > utils.MaxEventImageSize {
			return utils.BadRequestResponse(re, "Image too large (max 5MB)")
		}

		fsFile, err := filesystem.NewFileFromBytes(fileBytes, header.Filename)
		if err != nil {
			return utils.InternalErrorResponse(re, "Failed to process image")
		}
		record.Set("image", fsFile)
	}

	if err := app.Save(record); err != nil {
		log.Printf("[Events] Failed to create event for user %s: %v", re.Auth.Id, err)
		return utils.InternalErrorResponse(re, "Failed to create event")
	}

	log.Printf("[Events] Created event %s (%q) for user %s", record.Id, title, re.Auth.Id)

	return re.JSON(http.StatusCreated, eventResponse(record))
}

func handleEventsList(re *core.RequestEvent, app core.App) error {
	records, err := app.FindRecordsByFilter(
		utils.CollectionEvents,
		"user = {:userId}",
		"-date", 200, 0,
		map[string]any{"userId": re.Auth.Id},
	)
	if err != nil {
		return re.JSON(http.StatusOK, map[string]any{"events": []any{}})
	}

	events := make([]map[string]any, len(records))
	for i, r := range records {
		item := eventResponse(r)
		item["guest_count"] = countGuests(app, r.Id)
		events[i] = item
	}

	return re.JSON(http.StatusOK, map[string]any{"events": events})
}

func handleEventDelete(re *core.RequestEvent, app core.App) error {
	var input struct {
		EventID string `json:"eventId"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}
	if input.EventID == "" {
		return utils.BadRequestResponse(re, "Event ID is required")
	}

	event, err := findOwnedEvent(app, re.Auth, input.EventID)
	if err != nil {
		return utils.NotFoundResponse(re, "Event not found")
	}

	guests, err := app.FindRecordsByFilter(
		utils.CollectionGuests,
		"event = {:eventId}",
		"", 0, 0,
		map[string]any{"eventId": event.Id},
	)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to load guests")
	}

	// The event and all of its guests go together or not at all.
	err = app.RunInTransaction(func(txApp core.App) error {
		for _, guest := range guests {
			if err := txApp.Delete(guest); err != nil {
				return fmt.Errorf("delete guest %s: %w", guest.Id, err)
			}
		}
		if err := txApp.Delete(event); err != nil {
			return fmt.Errorf("delete event %s: %w", event.Id, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Events] Failed to delete event %s: %v", event.Id, err)
		return utils.InternalErrorResponse(re, "Failed to delete event")
	}

	log.Printf("[Events] Deleted event %s with %d guest(s)", event.Id, len(guests))

	return re.JSON(http.StatusOK, map[string]any{
		"message":       "Event deleted successfully",
		"deletedGuests": len(guests),
	})
}

// handleEventsClear wipes every event the caller owns, guests included.
// Powers the dashboard's "start over" action.
func handleEventsClear(re *core.RequestEvent, app core.App) error {
	events, err := app.FindRecordsByFilter(
		utils.CollectionEvents,
		"user = {:userId}",
		"", 0, 0,
		map[string]any{"userId": re.Auth.Id},
	)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to load events")
	}

	deletedGuests := 0
	err = app.RunInTransaction(func(txApp core.App) error {
		for _, event := range events {
			guests, err := txApp.FindRecordsByFilter(
				utils.CollectionGuests,
				"event = {:eventId}",
				"", 0, 0,
				map[string]any{"eventId": event.Id},
			)
			if err != nil {
				return fmt.Errorf("load guests for event %s: %w", event.Id, err)
			}
			for _, guest := range guests {
				if err := txApp.Delete(guest); err != nil {
					return fmt.Errorf("delete guest %s: %w", guest.Id, err)
				}
				deletedGuests++
			}
			if err := txApp.Delete(event); err != nil {
				return fmt.Errorf("delete event %s: %w", event.Id, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[Events] Failed to clear events for user %s: %v", re.Auth.Id, err)
		return utils.InternalErrorResponse(re, "Failed to clear events")
	}

	log.Printf("[Events] Cleared %d event(s) and %d guest(s) for user %s", len(events), deletedGuests, re.Auth.Id)

	return re.JSON(http.StatusOK, map[string]any{
		"deletedEvents": len(events),
		"deletedGuests": deletedGuests,
		"message":       "All events cleared successfully",
	})
}

// ============================================================================
// Shared helpers
// ============================================================================

// findOwnedEvent loads an event and verifies ownership. Missing and
// not-owned both surface as an error so handlers can answer 404 without
// leaking existence.
func findOwnedEvent(app core.App, auth *core.Record, eventID string) (*core.Record, error) {
	event, err := app.FindRecordById(utils.CollectionEvents, eventID)
	if err != nil {
		return nil, err
	}
	if !utils.OwnsEvent(auth, event) {
		return nil, fmt.Errorf("event %s is not owned by user %s", eventID, auth.Id)
	}
	return event, nil
}

// findOwnedGuest loads a guest together with its event, verifying the chain
// guest -> event -> owner.
func findOwnedGuest(app core.App, auth *core.Record, guestID string) (*core.Record, *core.Record, error) {
	guest, err := app.FindRecordById(utils.CollectionGuests, guestID)
	if err != nil {
		return nil, nil, err
	}
	event, err := findOwnedEvent(app, auth, guest.GetString("event"))
	if err != nil {
		return nil, nil, err
	}
	return guest, event, nil
}

func eventResponse(record *core.Record) map[string]any {
	return map[string]any{
		"id":          record.Id,
		"title":       record.GetString("title"),
		"description": record.GetString("description"),
		"date":        record.GetString("date"),
		"location":    record.GetString("location"),
		"message":     record.GetString("message"),
		"image_url":   resolveEventImageURL(record),
		"created":     record.GetString("created"),
		"updated":     record.GetString("updated"),
	}
}

func resolveEventImageURL(record *core.Record) string {
	if filename := record.GetString("image"); filename != "" {
		return fmt.Sprintf("%s/api/files/%s/%s/%s", getPublicBaseURL(), record.Collection().Id, record.Id, filename)
	}
	return ""
}

func countGuests(app core.App, eventID string) int {
	total, err := app.CountRecords(utils.CollectionGuests, dbx.HashExp{"event": eventID})
	if err != nil {
		return 0
	}
	return int(total)
}

func getBaseURL() string {
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	return baseURL
}

// getPublicBaseURL returns the public-facing base URL (for RSVP pages and
// file links embedded in invitations)
func getPublicBaseURL() string {
	baseURL := os.Getenv("PUBLIC_RSVP_URL")
	if baseURL == "" {
		return getBaseURL()
	}
	return baseURL
}
