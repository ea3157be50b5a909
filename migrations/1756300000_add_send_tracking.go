package migrations

import (
	"log"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Resend tracking: how many times an invitation was re-sent and when the
// last wa.me link was generated.
func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("guests")
		if err != nil {
			return err
		}

		if fieldExists(collection, "resend_count") {
			log.Println("[Migration] resend_count field already exists")
			return nil
		}

		min0 := 0.0
		collection.Fields.Add(&core.NumberField{
			Id:      "gst_resend_count",
			Name:    "resend_count",
			OnlyInt: true,
			Min:     &min0,
		})

		collection.Fields.Add(&core.DateField{
			Id:   "gst_last_sent_at",
			Name: "last_sent_at",
		})

		if err := app.Save(collection); err != nil {
			return err
		}

		log.Println("[Migration] Added resend_count and last_sent_at fields to guests")
		return nil
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("guests")
		if err != nil {
			return nil
		}

		collection.Fields.RemoveById("gst_resend_count")
		collection.Fields.RemoveById("gst_last_sent_at")

		return app.Save(collection)
	})
}
