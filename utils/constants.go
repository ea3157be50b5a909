package utils

// Collection names
const (
	CollectionUsers  = "users"
	CollectionEvents = "events"
	CollectionGuests = "guests"
)

// Field names
const (
	FieldRole       = "role"
	FieldSendStatus = "send_status"
	FieldRSVPStatus = "rsvp_status"
)

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

var UserRoles = []string{RoleUser, RoleAdmin}

// Send status values (whether a WhatsApp link was generated for the guest)
const (
	SendStatusPending = "PENDING"
	SendStatusSent    = "SENT"
)

// RSVP status values (the guest's attendance answer)
const (
	RSVPStatusWaiting   = "WAITING"
	RSVPStatusConfirmed = "CONFIRMED"
	RSVPStatusDeclined  = "DECLINED"
)

var (
	SendStatuses = []string{SendStatusPending, SendStatusSent}
	RSVPStatuses = []string{RSVPStatusWaiting, RSVPStatusConfirmed, RSVPStatusDeclined}
)

// File size limits (in bytes)
const (
	MaxEventImageSize = 5242880 // 5MB
	MaxCSVUploadSize  = 2097152 // 2MB
)
