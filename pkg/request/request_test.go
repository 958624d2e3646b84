package request

import (
	"encoding/json"
	"testing"
)

func TestDeserialize_CreateNode(t *testing.T) {
	raw := json.RawMessage(`{"session_id":"s1","event_id":"e1","path":"/a","data_b64":"aGk="}`)
	op, err := Deserialize(KindCreateNode, raw)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	create, ok := op.(*CreateNode)
	if !ok {
		t.Fatalf("expected *CreateNode, got %T", op)
	}
	if create.Path != "/a" || create.SessionID != "s1" {
		t.Fatalf("unexpected fields: %+v", create)
	}
}

func TestDeserialize_MissingPath(t *testing.T) {
	raw := json.RawMessage(`{"session_id":"s1","event_id":"e1"}`)
	if _, err := Deserialize(KindSetData, raw); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestDeserialize_MissingSessionID(t *testing.T) {
	raw := json.RawMessage(`{"event_id":"e1","path":"/a"}`)
	if _, err := Deserialize(KindDeleteNode, raw); err == nil {
		t.Fatal("expected error for missing session_id")
	}
}

func TestDeserialize_DeregisterSession(t *testing.T) {
	raw := json.RawMessage(`{"session_id":"s1","event_id":"e1"}`)
	op, err := Deserialize(KindDeregisterSession, raw)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if op.GetSessionID() != "s1" {
		t.Fatalf("expected session s1, got %q", op.GetSessionID())
	}
}

func TestDeserialize_UnknownKind(t *testing.T) {
	if _, err := Deserialize(Kind("rename_node"), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDeserialize_MalformedJSON(t *testing.T) {
	if _, err := Deserialize(KindCreateNode, json.RawMessage(`{`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
