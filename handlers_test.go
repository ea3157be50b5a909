package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
)

// setupTestApp creates a test app with the events/guests collections and the
// custom routes bound. Scenario-based tests hand the app to ApiScenario,
// which owns its cleanup; direct callers must defer app.Cleanup themselves.
func setupTestApp(t testing.TB) *tests.TestApp {
	app, err := tests.NewTestApp()
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}

	usersCol, err := app.FindCollectionByNameOrId(utils.CollectionUsers)
	if err != nil {
		t.Fatalf("users collection missing: %v", err)
	}
	if usersCol.Fields.GetByName(utils.FieldRole) == nil {
		usersCol.Fields.Add(&core.SelectField{
			Name:      utils.FieldRole,
			MaxSelect: 1,
			Values:    utils.UserRoles,
		})
		if err := app.Save(usersCol); err != nil {
			t.Fatalf("failed to extend users collection: %v", err)
		}
	}

	events := core.NewBaseCollection(utils.CollectionEvents)
	events.Fields.Add(
		&core.TextField{Name: "title", Required: true},
		&core.TextField{Name: "description"},
		&core.DateField{Name: "date"},
		&core.TextField{Name: "location"},
		&core.TextField{Name: "message"},
		&core.RelationField{Name: "user", Required: true, MaxSelect: 1, CollectionId: usersCol.Id},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	if err := app.Save(events); err != nil {
		t.Fatalf("failed to create events collection: %v", err)
	}

	guests := core.NewBaseCollection(utils.CollectionGuests)
	guests.Fields.Add(
		&core.TextField{Name: "name", Required: true},
		&core.TextField{Name: "phone_number", Required: true},
		&core.RelationField{Name: "event", Required: true, MaxSelect: 1, CollectionId: events.Id},
		&core.SelectField{Name: utils.FieldSendStatus, MaxSelect: 1, Values: utils.SendStatuses},
		&core.SelectField{Name: utils.FieldRSVPStatus, MaxSelect: 1, Values: utils.RSVPStatuses},
		&core.NumberField{Name: "resend_count", OnlyInt: true},
		&core.DateField{Name: "last_sent_at"},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	guests.Indexes = []string{
		"CREATE UNIQUE INDEX idx_guests_phone_event ON guests (phone_number, event)",
	}
	if err := app.Save(guests); err != nil {
		t.Fatalf("failed to create guests collection: %v", err)
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		registerRoutes(e, app)
		return e.Next()
	})

	return app
}

func createTestUser(t testing.TB, app core.App, email, role string) *core.Record {
	col, err := app.FindCollectionByNameOrId(utils.CollectionUsers)
	if err != nil {
		t.Fatalf("users collection missing: %v", err)
	}
	user := core.NewRecord(col)
	user.SetEmail(email)
	user.SetRandomPassword()
	user.Set(utils.FieldRole, role)
	if err := app.Save(user); err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func createTestEvent(t testing.TB, app core.App, id string, owner *core.Record) *core.Record {
	col, err := app.FindCollectionByNameOrId(utils.CollectionEvents)
	if err != nil {
		t.Fatalf("events collection missing: %v", err)
	}
	event := core.NewRecord(col)
	event.Id = id
	event.Set("title", "Festa de Teste")
	event.Set("description", "descrição")
	event.Set("date", "2026-10-03 19:30:00.000Z")
	event.Set("location", "Salão Primavera")
	event.Set("message", "Oi {{NOME}}, confirme sua presença: {{LINK}}")
	event.Set("user", owner.Id)
	if err := app.Save(event); err != nil {
		t.Fatalf("failed to create event %s: %v", id, err)
	}
	return event
}

func createTestGuest(t testing.TB, app core.App, id string, event *core.Record, phone, sendStatus, rsvpStatus string, resendCount int) *core.Record {
	col, err := app.FindCollectionByNameOrId(utils.CollectionGuests)
	if err != nil {
		t.Fatalf("guests collection missing: %v", err)
	}
	guest := core.NewRecord(col)
	guest.Id = id
	guest.Set("name", "Convidado Teste")
	guest.Set("phone_number", phone)
	guest.Set("event", event.Id)
	guest.Set(utils.FieldSendStatus, sendStatus)
	guest.Set(utils.FieldRSVPStatus, rsvpStatus)
	guest.Set("resend_count", resendCount)
	if err := app.Save(guest); err != nil {
		t.Fatalf("failed to create guest %s: %v", id, err)
	}
	return guest
}

func authToken(t testing.TB, user *core.Record) string {
	token, err := user.NewAuthToken()
	if err != nil {
		t.Fatalf("failed to generate auth token: %v", err)
	}
	return token
}

func countGuestsByEvent(t testing.TB, app core.App, eventID string) int64 {
	total, err := app.CountRecords(utils.CollectionGuests, dbx.HashExp{"event": eventID})
	if err != nil {
		t.Fatalf("failed to count guests: %v", err)
	}
	return total
}

// ----------------------------------------------------------------------------
// Import upsert
// ----------------------------------------------------------------------------

func TestImportReusesExistingGuestRow(t *testing.T) {
	app := setupTestApp(t)
	defer app.Cleanup()

	owner := createTestUser(t, app, "owner@example.com", utils.RoleUser)
	event := createTestEvent(t, app, "evt000000000001", owner)

	imported, errs := importGuestRows(app, event.Id, []guestRow{
		{Name: "Maria", Phone: "5511999990000", Line: 2},
	})
	if imported != 1 || len(errs) != 0 {
		t.Fatalf("first import: imported=%d errs=%v", imported, errs)
	}

	// Simulate send and RSVP activity between imports.
	guest, err := app.FindFirstRecordByFilter(
		utils.CollectionGuests,
		"phone_number = {:phone} && event = {:eventId}",
		map[string]any{"phone": "5511999990000", "eventId": event.Id},
	)
	if err != nil {
		t.Fatalf("imported guest not found: %v", err)
	}
	guest.Set(utils.FieldSendStatus, utils.SendStatusSent)
	guest.Set(utils.FieldRSVPStatus, utils.RSVPStatusConfirmed)
	guest.Set("resend_count", 2)
	if err := app.Save(guest); err != nil {
		t.Fatalf("failed to update guest: %v", err)
	}

	imported, errs = importGuestRows(app, event.Id, []guestRow{
		{Name: "Maria Silva", Phone: "5511999990000", Line: 2},
	})
	if imported != 1 || len(errs) != 0 {
		t.Fatalf("re-import: imported=%d errs=%v", imported, errs)
	}

	if total := countGuestsByEvent(t, app, event.Id); total != 1 {
		t.Fatalf("re-import must not duplicate the (phone, event) row, got %d rows", total)
	}

	reloaded, err := app.FindRecordById(utils.CollectionGuests, guest.Id)
	if err != nil {
		t.Fatalf("guest gone after re-import: %v", err)
	}
	if got := reloaded.GetString("name"); got != "Maria Silva" {
		t.Errorf("re-import should update the name, got %q", got)
	}
	if got := reloaded.GetString(utils.FieldSendStatus); got != utils.SendStatusSent {
		t.Errorf("re-import must not reset send_status, got %q", got)
	}
	if got := reloaded.GetString(utils.FieldRSVPStatus); got != utils.RSVPStatusConfirmed {
		t.Errorf("re-import must not reset rsvp_status, got %q", got)
	}
	if got := reloaded.GetInt("resend_count"); got != 2 {
		t.Errorf("re-import must not reset resend_count, got %d", got)
	}
}

// ----------------------------------------------------------------------------
// RSVP terminality
// ----------------------------------------------------------------------------

func TestRSVPFirstAnswerAccepted(t *testing.T) {
	app := setupTestApp(t)
	owner := createTestUser(t, app, "owner@example.com", utils.RoleUser)
	event := createTestEvent(t, app, "evt000000000001", owner)
	guest := createTestGuest(t, app, "gst000000000001", event,
		"5511999990000", utils.SendStatusSent, utils.RSVPStatusWaiting, 0)

	(&tests.ApiScenario{
		Name:            "waiting guest confirms",
		Method:          http.MethodPost,
		URL:             "/api/rsvp/" + guest.Id,
		Body:            strings.NewReader(`{"status":"CONFIRMED"}`),
		ExpectedStatus:  http.StatusOK,
		ExpectedContent: []string{`"rsvpStatus":"CONFIRMED"`},
		TestAppFactory:  func(testing.TB) *tests.TestApp { return app },
		AfterTestFunc: func(t testing.TB, app *tests.TestApp, _ *http.Response) {
			reloaded, err := app.FindRecordById(utils.CollectionGuests, guest.Id)
			if err != nil {
				t.Fatalf("guest not found: %v", err)
			}
			if got := reloaded.GetString(utils.FieldRSVPStatus); got != utils.RSVPStatusConfirmed {
				t.Errorf("rsvp_status = %q, want CONFIRMED", got)
			}
		},
	}).Test(t)
}

func TestRSVPSecondAnswerRejected(t *testing.T) {
	app := setupTestApp(t)
	owner := createTestUser(t, app, "owner@example.com", utils.RoleUser)
	event := createTestEvent(t, app, "evt000000000001", owner)
	guest := createTestGuest(t, app, "gst000000000001", event,
		"5511999990000", utils.SendStatusSent, utils.RSVPStatusConfirmed, 1)

	(&tests.ApiScenario{
		Name:            "answered guest tries to flip",
		Method:          http.MethodPost,
		URL:             "/api/rsvp/" + guest.Id,
		Body:            strings.NewReader(`{"status":"DECLINED"}`),
		ExpectedStatus:  http.StatusConflict,
		ExpectedContent: []string{"already been answered"},
		TestAppFactory:  func(testing.TB) *tests.TestApp { return app },
		AfterTestFunc: func(t testing.TB, app *tests.TestApp, _ *http.Response) {
			reloaded, err := app.FindRecordById(utils.CollectionGuests, guest.Id)
			if err != nil {
				t.Fatalf("guest not found: %v", err)
			}
			if got := reloaded.GetString(utils.FieldRSVPStatus); got != utils.RSVPStatusConfirmed {
				t.Errorf("first answer must stand, rsvp_status = %q", got)
			}
			if got := reloaded.GetString(utils.FieldSendStatus); got != utils.SendStatusSent {
				t.Errorf("send_status must stay untouched, got %q", got)
			}
			if got := reloaded.GetInt("resend_count"); got != 1 {
				t.Errorf("resend_count must stay untouched, got %d", got)
			}
		},
	}).Test(t)
}

// ----------------------------------------------------------------------------
// Event delete cascade
// ----------------------------------------------------------------------------

func TestEventDeleteRemovesItsGuestsOnly(t *testing.T) {
	app := setupTestApp(t)
	owner := createTestUser(t, app, "owner@example.com", utils.RoleUser)
	event := createTestEvent(t, app, "evt000000000001", owner)
	other := createTestEvent(t, app, "evt000000000002", owner)
	createTestGuest(t, app, "gst000000000001", event, "5511999990001", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)
	createTestGuest(t, app, "gst000000000002", event, "5511999990002", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)
	createTestGuest(t, app, "gst000000000003", event, "5511999990003", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)
	createTestGuest(t, app, "gst000000000004", other, "5511999990004", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)

	(&tests.ApiScenario{
		Name:            "delete event cascades to exactly its guests",
		Method:          http.MethodDelete,
		URL:             "/api/events/delete",
		Body:            strings.NewReader(`{"eventId":"evt000000000001"}`),
		Headers:         map[string]string{"Authorization": authToken(t, owner)},
		ExpectedStatus:  http.StatusOK,
		ExpectedContent: []string{`"deletedGuests":3`},
		TestAppFactory:  func(testing.TB) *tests.TestApp { return app },
		AfterTestFunc: func(t testing.TB, app *tests.TestApp, _ *http.Response) {
			if _, err := app.FindRecordById(utils.CollectionEvents, event.Id); err == nil {
				t.Error("event record should be gone")
			}
			if total := countGuestsByEvent(t, app, event.Id); total != 0 {
				t.Errorf("deleted event still has %d guest(s)", total)
			}
			if total := countGuestsByEvent(t, app, other.Id); total != 1 {
				t.Errorf("sibling event lost guests, has %d", total)
			}
		},
	}).Test(t)
}

func TestEventsClearRemovesAllOwnedData(t *testing.T) {
	app := setupTestApp(t)
	owner := createTestUser(t, app, "owner@example.com", utils.RoleUser)
	bystander := createTestUser(t, app, "other@example.com", utils.RoleUser)
	first := createTestEvent(t, app, "evt000000000001", owner)
	second := createTestEvent(t, app, "evt000000000002", owner)
	kept := createTestEvent(t, app, "evt000000000003", bystander)
	createTestGuest(t, app, "gst000000000001", first, "5511999990001", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)
	createTestGuest(t, app, "gst000000000002", first, "5511999990002", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)
	createTestGuest(t, app, "gst000000000003", second, "5511999990003", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)
	createTestGuest(t, app, "gst000000000004", kept, "5511999990004", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)

	(&tests.ApiScenario{
		Name:            "clear wipes only the caller's events",
		Method:          http.MethodPost,
		URL:             "/api/events/clear",
		Headers:         map[string]string{"Authorization": authToken(t, owner)},
		ExpectedStatus:  http.StatusOK,
		ExpectedContent: []string{`"deletedEvents":2`, `"deletedGuests":3`},
		TestAppFactory:  func(testing.TB) *tests.TestApp { return app },
		AfterTestFunc: func(t testing.TB, app *tests.TestApp, _ *http.Response) {
			ownerEvents, err := app.CountRecords(utils.CollectionEvents, dbx.HashExp{"user": owner.Id})
			if err != nil {
				t.Fatalf("failed to count events: %v", err)
			}
			if ownerEvents != 0 {
				t.Errorf("caller still owns %d event(s)", ownerEvents)
			}
			if _, err := app.FindRecordById(utils.CollectionEvents, kept.Id); err != nil {
				t.Error("other user's event should survive")
			}
			if total := countGuestsByEvent(t, app, kept.Id); total != 1 {
				t.Errorf("other user's guests should survive, has %d", total)
			}
		},
	}).Test(t)
}

// ----------------------------------------------------------------------------
// Resend bookkeeping
// ----------------------------------------------------------------------------

func TestResendIncrementsCounterByOne(t *testing.T) {
	app := setupTestApp(t)
	owner := createTestUser(t, app, "owner@example.com", utils.RoleUser)
	event := createTestEvent(t, app, "evt000000000001", owner)
	guest := createTestGuest(t, app, "gst000000000001", event,
		"5511999990000", utils.SendStatusSent, utils.RSVPStatusWaiting, 2)

	(&tests.ApiScenario{
		Name:            "resend bumps the counter",
		Method:          http.MethodPost,
		URL:             "/api/messages/send",
		Body:            strings.NewReader(`{"guestId":"gst000000000001","isResend":true}`),
		Headers:         map[string]string{"Authorization": authToken(t, owner)},
		ExpectedStatus:  http.StatusOK,
		ExpectedContent: []string{`"whatsappUrl":"https://wa.me/5511999990000?text=`},
		TestAppFactory:  func(testing.TB) *tests.TestApp { return app },
		AfterTestFunc: func(t testing.TB, app *tests.TestApp, _ *http.Response) {
			reloaded, err := app.FindRecordById(utils.CollectionGuests, guest.Id)
			if err != nil {
				t.Fatalf("guest not found: %v", err)
			}
			if got := reloaded.GetInt("resend_count"); got != 3 {
				t.Errorf("resend_count = %d, want 3", got)
			}
			if got := reloaded.GetString(utils.FieldSendStatus); got != utils.SendStatusSent {
				t.Errorf("send_status = %q, want SENT", got)
			}
			if reloaded.GetDateTime("last_sent_at").IsZero() {
				t.Error("last_sent_at should be stamped")
			}
		},
	}).Test(t)
}

// ----------------------------------------------------------------------------
// Admin surface
// ----------------------------------------------------------------------------

func TestAdminListingsForbiddenForRegularUser(t *testing.T) {
	app := setupTestApp(t)
	user := createTestUser(t, app, "user@example.com", utils.RoleUser)

	(&tests.ApiScenario{
		Name:            "regular user hits the admin listing",
		Method:          http.MethodGet,
		URL:             "/api/admin/users",
		Headers:         map[string]string{"Authorization": authToken(t, user)},
		ExpectedStatus:  http.StatusForbidden,
		ExpectedContent: []string{"Forbidden"},
		TestAppFactory:  func(testing.TB) *tests.TestApp { return app },
	}).Test(t)
}

func TestAdminListingsVisibleToAdmin(t *testing.T) {
	app := setupTestApp(t)
	admin := createTestUser(t, app, "admin@example.com", utils.RoleAdmin)
	owner := createTestUser(t, app, "owner@example.com", utils.RoleUser)
	event := createTestEvent(t, app, "evt000000000001", owner)
	createTestGuest(t, app, "gst000000000001", event, "5511999990000", utils.SendStatusPending, utils.RSVPStatusWaiting, 0)

	(&tests.ApiScenario{
		Name:            "admin lists guests across tenants",
		Method:          http.MethodGet,
		URL:             "/api/admin/guests",
		Headers:         map[string]string{"Authorization": authToken(t, admin)},
		ExpectedStatus:  http.StatusOK,
		ExpectedContent: []string{`"ownerId":"` + owner.Id + `"`, `"eventTitle":"Festa de Teste"`},
		TestAppFactory:  func(testing.TB) *tests.TestApp { return app },
	}).Test(t)
}
