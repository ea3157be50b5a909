package main

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"strconv"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

// configurePocketBaseSMTP configures PocketBase's SMTP settings from the
// environment. Without SMTP_PASSWORD the app falls back to PocketBase's
// default sendmail transport (fine for local development).
func configurePocketBaseSMTP(app core.App) {
	smtpPassword := os.Getenv("SMTP_PASSWORD")
	if smtpPassword == "" {
		log.Println("[SMTP] No SMTP_PASSWORD configured, skipping SMTP setup")
		return
	}

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.sendgrid.net"
	}
	port := 587
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && p > 0 {
		port = p
	}
	username := os.Getenv("SMTP_USERNAME")
	if username == "" {
		username = "apikey"
	}
	senderAddress := os.Getenv("SMTP_SENDER_ADDRESS")
	if senderAddress == "" {
		senderAddress = "convites@convidado.app"
	}
	senderName := os.Getenv("SMTP_SENDER_NAME")
	if senderName == "" {
		senderName = "Convidado"
	}

	settings := app.Settings()

	if settings.SMTP.Enabled && settings.SMTP.Host == host && settings.Meta.SenderAddress == senderAddress {
		log.Println("[SMTP] Already configured correctly")
		return
	}

	settings.SMTP.Enabled = true
	settings.SMTP.Host = host
	settings.SMTP.Port = port
	settings.SMTP.Username = username
	settings.SMTP.Password = smtpPassword
	settings.SMTP.TLS = false

	settings.Meta.SenderName = senderName
	settings.Meta.SenderAddress = senderAddress

	if err := app.Save(settings); err != nil {
		log.Printf("[SMTP] Failed to save settings: %v", err)
	} else {
		log.Println("[SMTP] Settings saved successfully")
	}
}

// wrapEmailHTML wraps content in the minimal branded email shell.
func wrapEmailHTML(content string) string {
	return `<!DOCTYPE html>
<html lang="pt-BR">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; line-height: 1.4; color: #202020; font-size: 16px; margin: 0; padding: 0; background: #f0f2f5;">

    <div style="max-width: 600px; margin: auto; padding: 24px;">
        <div style="text-align: center; padding: 16px;">
            <span style="font-size: 24px; font-weight: bold; color: #128C7E;">Convidado</span>
        </div>
        <div style="background: #ffffff; padding: 24px; border-radius: 8px;">
` + content + `
        </div>
        <p style="text-align: center; font-size: 12px; color: #999; margin-top: 16px;">
            Você recebeu este email porque é organizador de um evento no Convidado.
        </p>
    </div>

</body>
</html>`
}

// notifyOwnerOfRSVP emails the event owner when a guest answers the
// invitation. Runs async from the RSVP handler; failures are only logged.
func notifyOwnerOfRSVP(app core.App, guestID, status string) {
	guest, err := app.FindRecordById(utils.CollectionGuests, guestID)
	if err != nil {
		log.Printf("[Email] Guest %s not found for RSVP notification: %v", guestID, err)
		return
	}
	event, err := app.FindRecordById(utils.CollectionEvents, guest.GetString("event"))
	if err != nil {
		log.Printf("[Email] Event not found for RSVP notification (guest %s): %v", guestID, err)
		return
	}
	owner, err := app.FindRecordById(utils.CollectionUsers, event.GetString("user"))
	if err != nil || owner.Email() == "" {
		log.Printf("[Email] Owner not found for event %s, skipping RSVP notification", event.Id)
		return
	}

	verb := "confirmou presença em"
	if status == utils.RSVPStatusDeclined {
		verb = "declinou o convite para"
	}

	subject := fmt.Sprintf("%s %s %s", guest.GetString("name"), verb, event.GetString("title"))
	content := fmt.Sprintf(`
            <p style="margin: 0 0 16px 0;">Olá %s,</p>
            <p style="margin: 0 0 16px 0;"><strong>%s</strong> %s <strong>%s</strong>.</p>
            <p style="margin: 0 0 8px 0;">📅 %s</p>
            <p style="margin: 0;">📍 %s</p>
`, owner.GetString("name"), guest.GetString("name"), verb, event.GetString("title"),
		FormatEventDate(event.GetDateTime("date").Time()), event.GetString("location"))

	msg := &mailer.Message{
		From:    mail.Address{Address: app.Settings().Meta.SenderAddress, Name: app.Settings().Meta.SenderName},
		To:      []mail.Address{{Address: owner.Email(), Name: owner.GetString("name")}},
		Subject: subject,
		HTML:    wrapEmailHTML(content),
	}

	if err := app.NewMailClient().Send(msg); err != nil {
		log.Printf("[Email] Failed to send RSVP notification for guest %s: %v", guestID, err)
	}
}
