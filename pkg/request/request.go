// Package request defines the client-submitted mutation operations accepted
// by the write-path coordinator, and their deserialization from the wire
// envelope produced by the front-end queue.
package request

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Kind identifies the concrete operation carried by a request envelope.
type Kind string

const (
	KindCreateNode         Kind = "create_node"
	KindSetData            Kind = "set_data"
	KindDeleteNode         Kind = "delete_node"
	KindDeregisterSession  Kind = "deregister_session"
)

var validate = validator.New()

// Operation is implemented by every concrete request type. SessionID
// identifies the client connection the request was submitted on; EventID is
// the idempotency key assigned by the front-end queue.
type Operation interface {
	Kind() Kind
	GetSessionID() string
	GetEventID() string
}

// envelope is the wire shape every request arrives in: a flat map of
// string-keyed fields, matching the front-end queue's serialized event.
type envelope struct {
	SessionID string `json:"session_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`
	Path      string `json:"path"`
	DataB64   string `json:"data_b64"`
	Timestamp int64  `json:"timestamp"`
	Flags     int    `json:"flags"`
}

// CreateNode requests the creation of a new path with an initial payload.
type CreateNode struct {
	SessionID string
	EventID   string
	Path      string
	DataB64   string
	// Flags carries the ephemeral/sequential creation bits. Neither is
	// acted on by CreateNodeExecutor; see SPEC_FULL.md.
	Flags int
}

func (o *CreateNode) Kind() Kind            { return KindCreateNode }
func (o *CreateNode) GetSessionID() string { return o.SessionID }
func (o *CreateNode) GetEventID() string   { return o.EventID }

// SetData requests that an existing path's payload be replaced.
type SetData struct {
	SessionID string
	EventID   string
	Path      string
	DataB64   string
}

func (o *SetData) Kind() Kind            { return KindSetData }
func (o *SetData) GetSessionID() string { return o.SessionID }
func (o *SetData) GetEventID() string   { return o.EventID }

// DeleteNode requests the removal of a childless path.
type DeleteNode struct {
	SessionID string
	EventID   string
	Path      string
}

func (o *DeleteNode) Kind() Kind            { return KindDeleteNode }
func (o *DeleteNode) GetSessionID() string { return o.SessionID }
func (o *DeleteNode) GetEventID() string   { return o.EventID }

// DeregisterSession requests cleanup of all state associated with a
// disconnected client session.
type DeregisterSession struct {
	SessionID string
	EventID   string
}

func (o *DeregisterSession) Kind() Kind            { return KindDeregisterSession }
func (o *DeregisterSession) GetSessionID() string { return o.SessionID }
func (o *DeregisterSession) GetEventID() string   { return o.EventID }

// Deserialize parses the raw event payload for the given operation kind into
// a concrete Operation. It returns an error for malformed JSON or a failed
// field validation; callers translate that into the "incorrect_request"
// error reason.
func Deserialize(kind Kind, raw json.RawMessage) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("request: decode %s: %w", kind, err)
	}

	switch kind {
	case KindCreateNode:
		if err := validateFields(env, "Path"); err != nil {
			return nil, err
		}
		return &CreateNode{
			SessionID: env.SessionID,
			EventID:   env.EventID,
			Path:      env.Path,
			DataB64:   env.DataB64,
			Flags:     env.Flags,
		}, nil
	case KindSetData:
		if err := validateFields(env, "Path"); err != nil {
			return nil, err
		}
		return &SetData{
			SessionID: env.SessionID,
			EventID:   env.EventID,
			Path:      env.Path,
			DataB64:   env.DataB64,
		}, nil
	case KindDeleteNode:
		if err := validateFields(env, "Path"); err != nil {
			return nil, err
		}
		return &DeleteNode{
			SessionID: env.SessionID,
			EventID:   env.EventID,
			Path:      env.Path,
		}, nil
	case KindDeregisterSession:
		if err := validate.Struct(env); err != nil {
			return nil, fmt.Errorf("request: validate %s: %w", kind, err)
		}
		return &DeregisterSession{
			SessionID: env.SessionID,
			EventID:   env.EventID,
		}, nil
	default:
		return nil, fmt.Errorf("request: unknown operation kind %q", kind)
	}
}

// validateFields runs struct validation on env plus a non-empty check on
// each named field, since path-bearing operations need Path populated but
// the shared envelope only marks session/event as required.
func validateFields(env envelope, fields ...string) error {
	if err := validate.Struct(env); err != nil {
		return fmt.Errorf("request: validate: %w", err)
	}
	for _, f := range fields {
		if f == "Path" && env.Path == "" {
			return fmt.Errorf("request: field Path is required")
		}
	}
	return nil
}
