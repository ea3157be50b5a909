package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// ============================================================================
// WhatsApp message sending
// ============================================================================

func handleMessageSend(re *core.RequestEvent, app core.App) error {
	var input struct {
		GuestID  string `json:"guestId"`
		IsResend bool   `json:"isResend"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}
	if input.GuestID == "" {
		return utils.BadRequestResponse(re, "Guest ID is required")
	}

	guest, event, err := findOwnedGuest(app, re.Auth, input.GuestID)
	if err != nil {
		return utils.NotFoundResponse(re, "Guest not found")
	}

	if guest.GetString(utils.FieldSendStatus) == utils.SendStatusSent && !input.IsResend {
		return utils.BadRequestResponse(re, "Message already sent to this guest. Set isResend to send again.")
	}

	message := RenderInvitation(event.GetString("message"), InviteData{
		GuestName:  guest.GetString("name"),
		EventTitle: event.GetString("title"),
		EventDate:  event.GetDateTime("date").Time(),
		Location:   event.GetString("location"),
		RSVPLink:   getPublicBaseURL() + "/rsvp/" + guest.Id,
	})

	whatsappURL, err := BuildWhatsAppURL(guest.GetString("phone_number"), message, DefaultPhoneConfig())
	if err != nil {
		// Link construction failed; the guest's send status stays untouched.
		log.Printf("[Messages] Failed to build wa.me link for guest %s: %v", guest.Id, err)
		return utils.BadRequestResponse(re, err.Error())
	}

	guest.Set(utils.FieldSendStatus, utils.SendStatusSent)
	guest.Set("last_sent_at", types.NowDateTime())
	if input.IsResend {
		guest.Set("resend_count", guest.GetInt("resend_count")+1)
	}

	if err := app.Save(guest); err != nil {
		log.Printf("[Messages] Failed to update send status for guest %s: %v", guest.Id, err)
		return utils.InternalErrorResponse(re, "Failed to update guest status")
	}

	log.Printf("[Messages] Generated wa.me link for guest %s (event %s, resend=%v)", guest.Id, event.Id, input.IsResend)

	return re.JSON(http.StatusOK, map[string]any{
		"whatsappUrl": whatsappURL,
	})
}

// handleMessageStats returns per-owner send and RSVP counters for the
// dashboard.
func handleMessageStats(re *core.RequestEvent, app core.App) error {
	ownerGuests := func(extra string) dbx.Expression {
		cond := "event IN (SELECT id FROM events WHERE user = {:user})"
		if extra != "" {
			cond += " AND " + extra
		}
		return dbx.NewExp(cond, dbx.Params{"user": re.Auth.Id})
	}

	total, _ := app.CountRecords(utils.CollectionGuests, ownerGuests(""))
	sent, _ := app.CountRecords(utils.CollectionGuests, ownerGuests("send_status = 'SENT'"))
	pending, _ := app.CountRecords(utils.CollectionGuests, ownerGuests("send_status = 'PENDING'"))
	confirmed, _ := app.CountRecords(utils.CollectionGuests, ownerGuests("rsvp_status = 'CONFIRMED'"))
	declined, _ := app.CountRecords(utils.CollectionGuests, ownerGuests("rsvp_status = 'DECLINED'"))
	waiting, _ := app.CountRecords(utils.CollectionGuests, ownerGuests("rsvp_status = 'WAITING'"))

	return re.JSON(http.StatusOK, map[string]any{
		"totalGuests": total,
		"sent":        sent,
		"pending":     pending,
		"confirmed":   confirmed,
		"declined":    declined,
		"waiting":     waiting,
	})
}
