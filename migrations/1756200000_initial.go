package migrations

import (
	"log"

	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		// Extend the default users collection
		if err := extendUsersCollection(app); err != nil {
			return err
		}

		// Create events collection FIRST (guests references it)
		if err := createEventsCollection(app); err != nil {
			return err
		}

		// Create guests collection (references events)
		if err := createGuestsCollection(app); err != nil {
			return err
		}

		log.Println("[Migration] Created events and guests collections")
		return nil
	}, func(app core.App) error {
		// Rollback: delete collections in reverse dependency order
		for _, name := range []string{"guests", "events"} {
			if c, err := app.FindCollectionByNameOrId(name); err == nil {
				app.Delete(c)
			}
		}
		return nil
	})
}

func extendUsersCollection(app core.App) error {
	collection, err := app.FindCollectionByNameOrId("users")
	if err != nil {
		// Users collection should exist by default, just extend it
		return nil
	}

	if !fieldExists(collection, "name") {
		collection.Fields.Add(&core.TextField{
			Id:       "users_name",
			Name:     "name",
			Required: false,
			Max:      200,
		})
	}

	if !fieldExists(collection, "role") {
		collection.Fields.Add(&core.SelectField{
			Id:        "users_role",
			Name:      "role",
			Required:  false,
			MaxSelect: 1,
			Values:    utils.UserRoles,
		})
	}

	return app.Save(collection)
}

func createEventsCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId("events")
	if existing != nil {
		return nil
	}

	collection := core.NewBaseCollection("events")
	collection.Fields.Add(
		&core.TextField{
			Id:       "evt_title",
			Name:     "title",
			Required: true,
			Max:      200,
		},
		&core.TextField{
			Id:       "evt_description",
			Name:     "description",
			Required: true,
			Max:      2000,
		},
		&core.DateField{
			Id:       "evt_date",
			Name:     "date",
			Required: true,
		},
		&core.TextField{
			Id:       "evt_location",
			Name:     "location",
			Required: true,
			Max:      300,
		},
		// Invitation template with {{NOME}}/{{EVENTO}}/{{DATA}}/{{LOCAL}}/{{LINK}} tokens
		&core.TextField{
			Id:       "evt_message",
			Name:     "message",
			Required: true,
			Max:      5000,
		},
		&core.FileField{
			Id:        "evt_image",
			Name:      "image",
			Required:  false,
			MaxSelect: 1,
			MaxSize:   5242880,
			MimeTypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		},
		&core.RelationField{
			Id:        "evt_user",
			Name:      "user",
			Required:  true,
			MaxSelect: 1,
		},
		&core.AutodateField{
			Id:       "evt_created",
			Name:     "created",
			OnCreate: true,
		},
		&core.AutodateField{
			Id:       "evt_updated",
			Name:     "updated",
			OnCreate: true,
			OnUpdate: true,
		},
	)

	// Set relation collection ID
	usersCollection, _ := app.FindCollectionByNameOrId("users")
	if usersCollection != nil {
		if f := collection.Fields.GetById("evt_user"); f != nil {
			f.(*core.RelationField).CollectionId = usersCollection.Id
		}
	}

	collection.Indexes = []string{
		"CREATE INDEX idx_evt_user ON events (user)",
		"CREATE INDEX idx_evt_date ON events (date)",
	}

	// No API access — managed entirely through custom handlers
	collection.ListRule = nil
	collection.ViewRule = nil
	collection.CreateRule = nil
	collection.UpdateRule = nil
	collection.DeleteRule = nil

	return app.Save(collection)
}

func createGuestsCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId("guests")
	if existing != nil {
		return nil
	}

	collection := core.NewBaseCollection("guests")
	collection.Fields.Add(
		&core.TextField{
			Id:       "gst_name",
			Name:     "name",
			Required: true,
			Max:      200,
		},
		// Canonical form: digits only, country code optional
		&core.TextField{
			Id:       "gst_phone_number",
			Name:     "phone_number",
			Required: true,
			Max:      20,
		},
		&core.RelationField{
			Id:        "gst_event",
			Name:      "event",
			Required:  true,
			MaxSelect: 1,
		},
		&core.SelectField{
			Id:        "gst_send_status",
			Name:      "send_status",
			Required:  true,
			MaxSelect: 1,
			Values:    utils.SendStatuses,
		},
		&core.SelectField{
			Id:        "gst_rsvp_status",
			Name:      "rsvp_status",
			Required:  true,
			MaxSelect: 1,
			Values:    utils.RSVPStatuses,
		},
		&core.AutodateField{
			Id:       "gst_created",
			Name:     "created",
			OnCreate: true,
		},
		&core.AutodateField{
			Id:       "gst_updated",
			Name:     "updated",
			OnCreate: true,
			OnUpdate: true,
		},
	)

	// Set relation collection ID
	eventsCollection, _ := app.FindCollectionByNameOrId("events")
	if eventsCollection != nil {
		if f := collection.Fields.GetById("gst_event"); f != nil {
			f.(*core.RelationField).CollectionId = eventsCollection.Id
		}
	}

	collection.Indexes = []string{
		"CREATE INDEX idx_gst_event ON guests (event)",
		"CREATE UNIQUE INDEX idx_gst_unique_phone_event ON guests (phone_number, event)",
	}

	// No API access — managed entirely through custom handlers
	collection.ListRule = nil
	collection.ViewRule = nil
	collection.CreateRule = nil
	collection.UpdateRule = nil
	collection.DeleteRule = nil

	return app.Save(collection)
}

func fieldExists(collection *core.Collection, fieldName string) bool {
	for _, f := range collection.Fields {
		if f.GetName() == fieldName {
			return true
		}
	}
	return false
}
