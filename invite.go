package main

import (
	"fmt"
	"strings"
	"time"
)

// Template tokens accepted in an event's invitation message.
const (
	TokenGuestName  = "{{NOME}}"
	TokenEventTitle = "{{EVENTO}}"
	TokenEventDate  = "{{DATA}}"
	TokenLocation   = "{{LOCAL}}"
	TokenRSVPLink   = "{{LINK}}"
)

// inviteMarker identifies a message that already reads as a full invitation.
// Templates without it get wrapped in the decorative banner below.
const inviteMarker = "CONVITE ESPECIAL"

// InviteData carries everything needed to render one guest's invitation.
type InviteData struct {
	GuestName  string
	EventTitle string
	EventDate  time.Time
	Location   string
	RSVPLink   string
}

// FormatEventDate renders the event timestamp using its UTC calendar fields.
// Event dates are stored as UTC-constructed values from separate date/time
// form inputs, so formatting in any local zone would shift the day.
func FormatEventDate(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%02d/%02d/%04d às %02d:%02d",
		u.Day(), int(u.Month()), u.Year(), u.Hour(), u.Minute())
}

// RenderInvitation substitutes the template tokens and, when the result
// does not already carry the invite banner, wraps it with a decorative
// header/footer so minimal templates still read as a complete invitation.
func RenderInvitation(template string, data InviteData) string {
	body := strings.NewReplacer(
		TokenGuestName, data.GuestName,
		TokenEventTitle, data.EventTitle,
		TokenEventDate, FormatEventDate(data.EventDate),
		TokenLocation, data.Location,
		TokenRSVPLink, data.RSVPLink,
	).Replace(template)

	if strings.Contains(body, inviteMarker) {
		return body
	}

	hadLink := strings.Contains(template, TokenRSVPLink)
	return wrapInvitation(body, data, hadLink)
}

// wrapInvitation adds the banner, a date/location recap and a confirmation
// call-to-action. The RSVP link lands in the footer only when the template
// itself did not place it.
func wrapInvitation(body string, data InviteData, hadLink bool) string {
	var b strings.Builder

	b.WriteString("🎉 *" + inviteMarker + "* 🎉\n\n")
	b.WriteString(body)
	b.WriteString("\n\n📅 Data: " + FormatEventDate(data.EventDate))
	b.WriteString("\n📍 Local: " + data.Location)

	if hadLink {
		b.WriteString("\n\n✅ Confirme sua presença pelo link acima!")
	} else {
		b.WriteString("\n\n✅ Confirme sua presença: " + data.RSVPLink)
	}

	return b.String()
}
