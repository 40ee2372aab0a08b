// Package clerk decodes and authenticates webhook deliveries sent by Clerk through Svix.
package clerk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EventType is the discriminant Clerk puts in the envelope "type" field.
type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// Action is the closed set of store mutations an event can trigger.
type Action int

const (
	// ActionIgnore covers every event type this service does not mirror.
	ActionIgnore Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "ignore"
	}
}

// Action maps the event type to the store mutation it triggers.
func (t EventType) Action() Action {
	switch t {
	case EventUserCreated:
		return ActionCreate
	case EventUserUpdated:
		return ActionUpdate
	case EventUserDeleted:
		return ActionDelete
	default:
		return ActionIgnore
	}
}

var validate = validator.New()

// ErrMalformedPayload is returned when a verified body does not have the shape its type requires.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Event is the envelope of every Clerk webhook delivery. Data is decoded lazily because its shape
// depends on Type.
type Event struct {
	Type       EventType       `json:"type"`
	Object     string          `json:"object"`
	InstanceID string          `json:"instance_id"`
	Timestamp  int64           `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// EmailAddress is one entry of UserData.EmailAddresses.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address" validate:"required"`
}

// UserData is the data object of user.created and user.updated events.
type UserData struct {
	ID             string         `json:"id" validate:"required"`
	EmailAddresses []EmailAddress `json:"email_addresses" validate:"min=1,dive"`
	FirstName      *string        `json:"first_name"`
	LastName       *string        `json:"last_name"`
	ImageURL       string         `json:"image_url"`
	CreatedAt      int64          `json:"created_at"`
	UpdatedAt      int64          `json:"updated_at"`
}

// DeletedObject is the data object of user.deleted events.
type DeletedObject struct {
	ID      string `json:"id" validate:"required"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// ParseEvent decodes the envelope. It does not look at Data.
func ParseEvent(body []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(string(evt.Type)) == "" {
		return Event{}, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}
	return evt, nil
}

// User decodes and validates Data for user.created and user.updated events.
func (e Event) User() (UserData, error) {
	var data UserData
	if err := e.decodeData(&data); err != nil {
		return UserData{}, err
	}
	return data, nil
}

// Deleted decodes and validates Data for user.deleted events.
func (e Event) Deleted() (DeletedObject, error) {
	var data DeletedObject
	if err := e.decodeData(&data); err != nil {
		return DeletedObject{}, err
	}
	return data, nil
}

func (e Event) decodeData(dst any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// PrimaryEmail returns the first email address. Clerk lists the primary address first.
func (d UserData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

// FullName joins the present name fragments with a single space.
func (d UserData) FullName() string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{d.FirstName, d.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, " ")
}

// CreatedTime converts created_at (seconds) to an absolute time.
func (d UserData) CreatedTime() time.Time {
	return time.UnixMilli(d.CreatedAt * 1000).UTC()
}

// UpdatedTime converts updated_at (seconds) to an absolute time.
func (d UserData) UpdatedTime() time.Time {
	return time.UnixMilli(d.UpdatedAt * 1000).UTC()
}
