package outbox

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// The envelope is the contract between Emit, the publisher and the consumer;
// its key names must stay stable or in-flight events become unreadable.
func TestEnvelopeWireFormat(t *testing.T) {
	orgID := uuid.New()
	envelope := PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC),
		Actor:      &ActorRef{UserID: uuid.New(), OrgID: &orgID, Role: "business"},
		Data:       json.RawMessage(`{"donation_id":"x"}`),
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	for _, key := range []string{`"version"`, `"eventId"`, `"occurredAt"`, `"actor"`, `"data"`, `"userId"`, `"orgId"`, `"role"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("envelope json missing %s: %s", key, raw)
		}
	}

	var decoded PayloadEnvelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if decoded.EventID != envelope.EventID {
		t.Fatalf("event id = %q, want %q", decoded.EventID, envelope.EventID)
	}
	if string(decoded.Data) != `{"donation_id":"x"}` {
		t.Fatalf("data = %s", decoded.Data)
	}
}

func TestEnvelopeOmitsAbsentActor(t *testing.T) {
	raw, err := json.Marshal(PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if strings.Contains(string(raw), `"actor"`) {
		t.Fatalf("actor must be omitted when nil: %s", raw)
	}
}
