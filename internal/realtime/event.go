package realtime

import "encoding/json"

// UpdateType identifies what kind of mutation an event describes.
type UpdateType string

const (
	UpdateEntryAdded         UpdateType = "entryAdded"
	UpdateEntryDeleted       UpdateType = "entryDeleted"
	UpdateWaterAdded         UpdateType = "waterAdded"
	UpdateWaterDeleted       UpdateType = "waterDeleted"
	UpdateWeightAdded        UpdateType = "weightAdded"
	UpdateWeightDeleted      UpdateType = "weightDeleted"
	UpdateUserRegistered     UpdateType = "userRegistered"
	UpdateUserDeleted        UpdateType = "userDeleted"
	UpdateAdminToggled       UpdateType = "adminToggled"
	UpdateAdminRightsGranted UpdateType = "adminRightsGranted"
	UpdateAdminRightsRevoked UpdateType = "adminRightsRevoked"
)

// Message type tags on the wire.
const (
	msgTypeAuth        = "auth"
	msgTypeUpdate      = "update"
	msgTypeAdminUpdate = "adminUpdate"
)

// authFrame is the client handshake. The userId it asserts is trusted
// as-is; the channel performs no check against the HTTP session cookie.
type authFrame struct {
	Type    string `json:"type"`
	UserID  *int64 `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

// authAck is the server's handshake response.
type authAck struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// UserEvent is a user-scoped update pushed to every open connection of
// the affected user.
type UserEvent struct {
	Type       string          `json:"type"`
	UpdateType UpdateType      `json:"updateType"`
	Data       json.RawMessage `json:"data"`
}

// AdminEvent is broadcast to every connected administrator. UserID is the
// actor inferred from the payload, or null when the payload carries none.
// Timestamp is generated server-side at send time.
type AdminEvent struct {
	Type       string          `json:"type"`
	UpdateType UpdateType      `json:"updateType"`
	Data       json.RawMessage `json:"data"`
	UserID     *int64          `json:"userId"`
	Timestamp  string          `json:"timestamp"`
}
