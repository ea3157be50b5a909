package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/pocketbase/core"
)

// ============================================================================
// CSV guest import
// ============================================================================

// guestRow is one parsed CSV line ready for upserting.
type guestRow struct {
	Name  string
	Phone string // digits only
	Line  int
}

// csvParseResult separates usable rows from per-row failures. Row-level
// problems never abort the batch.
type csvParseResult struct {
	Rows      []guestRow
	RowErrors []string
}

// parseGuestCSV reads the upload and maps headers case-insensitively,
// accepting the synonyms the spreadsheets in the wild actually use.
func parseGuestCSV(r io.Reader) (*csvParseResult, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	nameCol, phoneCol := -1, -1
	for idx, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "nome", "name":
			nameCol = idx
		case "numero", "número", "telefone", "phone", "celular":
			phoneCol = idx
		}
	}

	if nameCol < 0 || phoneCol < 0 {
		return nil, fmt.Errorf("CSV must have NOME and NUMERO columns (or a recognized synonym)")
	}

	result := &csvParseResult{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("line %d: malformed row", line))
			continue
		}

		var name, phone string
		if nameCol < len(record) {
			name = strings.TrimSpace(record[nameCol])
		}
		if phoneCol < len(record) {
			phone = utils.DigitsOnly(record[phoneCol])
		}

		if name == "" {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("line %d: missing name", line))
			continue
		}
		if phone == "" {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("line %d: missing phone number", line))
			continue
		}

		result.Rows = append(result.Rows, guestRow{Name: name, Phone: phone, Line: line})
	}

	if len(result.Rows) == 0 && len(result.RowErrors) == 0 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	return result, nil
}

// importGuestRows upserts parsed rows against (phone_number, event). Each
// row commits independently; a failure mid-batch leaves earlier rows saved.
func importGuestRows(app core.App, eventID string, rows []guestRow) (imported int, errors []string) {
	collection, err := app.FindCollectionByNameOrId(utils.CollectionGuests)
	if err != nil {
		return 0, []string{"guests collection not found"}
	}

	for _, row := range rows {
		existing, _ := app.FindFirstRecordByFilter(
			utils.CollectionGuests,
			"phone_number = {:phone} && event = {:eventId}",
			map[string]any{"phone": row.Phone, "eventId": eventID},
		)

		if existing != nil {
			// Re-import updates the name; status and counters stay untouched.
			existing.Set("name", row.Name)
			if err := app.Save(existing); err != nil {
				errors = append(errors, fmt.Sprintf("line %d: %v", row.Line, err))
				continue
			}
			imported++
			continue
		}

		record := core.NewRecord(collection)
		record.Set("name", row.Name)
		record.Set("phone_number", row.Phone)
		record.Set("event", eventID)
		record.Set(utils.FieldSendStatus, utils.SendStatusPending)
		record.Set(utils.FieldRSVPStatus, utils.RSVPStatusWaiting)
		record.Set("resend_count", 0)

		if err := app.Save(record); err != nil {
			errors = append(errors, fmt.Sprintf("line %d: %v", row.Line, err))
			continue
		}
		imported++
	}

	return imported, errors
}

func handleGuestsImport(re *core.RequestEvent, app core.App) error {
	if err := re.Request.ParseMultipartForm(utils.MaxCSVUploadSize); err != nil {
		return utils.BadRequestResponse(re, "Invalid file upload")
	}

	eventID := re.Request.FormValue("eventId")
	if eventID == "" {
		return utils.BadRequestResponse(re, "No event selected")
	}

	event, err := findOwnedEvent(app, re.Auth, eventID)
	if err != nil {
		return utils.NotFoundResponse(re, "Event not found")
	}

	file, _, err := re.Request.FormFile("file")
	if err != nil {
		return utils.BadRequestResponse(re, "No file uploaded")
	}
	defer file.Close()

	parsed, err := parseGuestCSV(file)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	imported, importErrors := importGuestRows(app, event.Id, parsed.Rows)
	allErrors := append(parsed.RowErrors, importErrors...)

	log.Printf("[Import] Event %s: imported %d guest(s), %d error(s)", event.Id, imported, len(allErrors))

	return re.JSON(http.StatusOK, map[string]any{
		"count":    imported,
		"imported": imported,
		"skipped":  len(allErrors),
		"errors":   allErrors,
	})
}
