package amqp

import "testing"

func TestVerificationMailMessageRoundTrip(t *testing.T) {
	msg := NewVerificationMailMessage("a@example.com", "Asha", "tok123")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := VerificationMailMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Email != msg.Email || got.Name != msg.Name || got.Token != msg.Token {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, msg)
	}
	if got.Timestamp.IsZero() {
		t.Fatalf("timestamp not preserved")
	}
}

func TestVerificationMailMessageFromJSONInvalid(t *testing.T) {
	if _, err := VerificationMailMessageFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
