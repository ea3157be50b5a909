package main

import (
	"fmt"
	"log"
	"os"

	_ "github.com/convidado/convidado/migrations"
	"github.com/convidado/convidado/utils"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/spf13/cobra"
)

func main() {
	app := pocketbase.New()

	// Register migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: false,
	})

	// Register set-admin command to promote a user by email
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "set-admin [email]",
		Short: "Promote a user to the ADMIN role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			email := utils.NormalizeEmail(args[0])
			user, err := app.FindAuthRecordByEmail(utils.CollectionUsers, email)
			if err != nil {
				log.Fatalf("User %s not found: %v", email, err)
			}
			user.Set(utils.FieldRole, utils.RoleAdmin)
			if err := app.Save(user); err != nil {
				log.Fatalf("Failed to promote user: %v", err)
			}
			fmt.Printf("User %s is now ADMIN\n", email)
		},
	})

	// Register import-guests command for bulk CSV imports without the HTTP API
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "import-guests [event-id] [csv-file]",
		Short: "Import guests for an event from a CSV file (NOME, NUMERO columns)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			eventID, csvPath := args[0], args[1]

			if _, err := app.FindRecordById(utils.CollectionEvents, eventID); err != nil {
				log.Fatalf("Event %s not found: %v", eventID, err)
			}

			f, err := os.Open(csvPath)
			if err != nil {
				log.Fatalf("Failed to open CSV: %v", err)
			}
			defer f.Close()

			parsed, err := parseGuestCSV(f)
			if err != nil {
				log.Fatalf("Failed to parse CSV: %v", err)
			}

			imported, importErrors := importGuestRows(app, eventID, parsed.Rows)
			fmt.Printf("Imported %d guest(s)\n", imported)
			for _, e := range append(parsed.RowErrors, importErrors...) {
				fmt.Printf("  - %s\n", e)
			}
		},
	})

	// Register backup-now command to trigger an immediate S3 backup
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "backup-now",
		Short: "Create a database backup and upload it to S3",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			if err := RunBackupNow(app); err != nil {
				log.Fatalf("Backup failed: %v", err)
			}
			fmt.Println("Backup complete")
		},
	})

	// The very first registered user becomes ADMIN; everyone else is USER.
	app.OnRecordCreate(utils.CollectionUsers).BindFunc(func(e *core.RecordEvent) error {
		if e.Record.GetString(utils.FieldRole) == "" {
			role := utils.RoleUser
			if total, err := e.App.CountRecords(utils.CollectionUsers); err == nil && total == 0 {
				role = utils.RoleAdmin
			}
			e.Record.Set(utils.FieldRole, role)
		}
		return e.Next()
	})

	// OnServe hook - runs when the server starts
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Configure SMTP for owner notifications
		configurePocketBaseSMTP(app)

		// Security headers middleware
		e.Router.BindFunc(securityHeadersMiddleware)

		// Register custom routes
		registerRoutes(e, app)

		// Start the backup scheduler (runs daily at 3 AM América/São Paulo)
		go scheduleBackups(app)

		return e.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(e *core.RequestEvent) error {
	h := e.Response.Header()

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

	return e.Next()
}

// registerRoutes sets up all custom API endpoints
func registerRoutes(e *core.ServeEvent, app core.App) {
	// Public RSVP endpoints (no auth — the guest id is the capability token)
	// Rate limited to slow down id enumeration
	e.Router.GET("/api/rsvp/search", func(re *core.RequestEvent) error {
		return handleRSVPSearch(re, app)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.GET("/api/rsvp/{guestId}", func(re *core.RequestEvent) error {
		return handleRSVPInfo(re, app)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.POST("/api/rsvp/{guestId}", func(re *core.RequestEvent) error {
		return handleRSVPSubmit(re, app)
	}).BindFunc(utils.RateLimitPublic)

	// Owner dashboard — guests
	e.Router.GET("/api/rsvp/list", func(re *core.RequestEvent) error {
		return handleGuestsList(re, app)
	}).BindFunc(utils.RequireAuth)

	e.Router.POST("/api/contacts", func(re *core.RequestEvent) error {
		return handleGuestCreate(re, app)
	}).BindFunc(utils.RequireAuth)

	e.Router.PATCH("/api/contacts/{id}", func(re *core.RequestEvent) error {
		return handleGuestUpdate(re, app)
	}).BindFunc(utils.RequireAuth)

	e.Router.POST("/api/contacts/upload", func(re *core.RequestEvent) error {
		return handleGuestsImport(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAuth)

	e.Router.DELETE("/api/contacts/clear", func(re *core.RequestEvent) error {
		return handleGuestsClear(re, app)
	}).BindFunc(utils.RequireAuth)

	// Owner dashboard — events
	e.Router.POST("/api/events/create", func(re *core.RequestEvent) error {
		return handleEventCreate(re, app)
	}).BindFunc(utils.RequireAuth)

	e.Router.GET("/api/events/list", func(re *core.RequestEvent) error {
		return handleEventsList(re, app)
	}).BindFunc(utils.RequireAuth)

	e.Router.DELETE("/api/events/delete", func(re *core.RequestEvent) error {
		return handleEventDelete(re, app)
	}).BindFunc(utils.RequireAuth)

	e.Router.POST("/api/events/clear", func(re *core.RequestEvent) error {
		return handleEventsClear(re, app)
	}).BindFunc(utils.RequireAuth)

	// Owner dashboard — messages
	e.Router.POST("/api/messages/send", func(re *core.RequestEvent) error {
		return handleMessageSend(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAuth)

	e.Router.GET("/api/messages/stats", func(re *core.RequestEvent) error {
		return handleMessageStats(re, app)
	}).BindFunc(utils.RequireAuth)

	// Admin — cross-tenant listings
	e.Router.GET("/api/admin/users", func(re *core.RequestEvent) error {
		return handleAdminUsersList(re, app)
	}).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/admin/guests", func(re *core.RequestEvent) error {
		return handleAdminGuestsList(re, app)
	}).BindFunc(utils.RequireAdmin)
}
