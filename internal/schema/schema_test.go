package schema

import "testing"

func TestValidateGenerateRequestTemporary(t *testing.T) {
	err := ValidateGenerateRequest([]byte(`{"variant":"temporary"}`))
	if err != nil {
		t.Errorf("expected valid, got: %v", err)
	}
}

func TestValidateGenerateRequestTimes(t *testing.T) {
	err := ValidateGenerateRequest([]byte(`{"variant":"times","params":{"n":5},"visitor_id":"v1","inviter_id":"admin"}`))
	if err != nil {
		t.Errorf("expected valid, got: %v", err)
	}
}

func TestValidateGenerateRequestRejectsUnknownVariant(t *testing.T) {
	err := ValidateGenerateRequest([]byte(`{"variant":"bogus"}`))
	if err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestValidateGenerateRequestRejectsOutOfRangeN(t *testing.T) {
	err := ValidateGenerateRequest([]byte(`{"variant":"times","params":{"n":99}}`))
	if err == nil {
		t.Error("expected error for out-of-range n")
	}
}

func TestValidateGenerateRequestRejectsMissingVariant(t *testing.T) {
	err := ValidateGenerateRequest([]byte(`{"params":{"n":5}}`))
	if err == nil {
		t.Error("expected error for missing variant")
	}
}

func TestValidateGenerateRequestRejectsUnknownField(t *testing.T) {
	err := ValidateGenerateRequest([]byte(`{"variant":"temporary","bogus":true}`))
	if err == nil {
		t.Error("expected error for unknown top-level field")
	}
}

func TestValidateVerifyRequestValid(t *testing.T) {
	err := ValidateVerifyRequest([]byte(`{"text":"5123456789"}`))
	if err != nil {
		t.Errorf("expected valid, got: %v", err)
	}
}

func TestValidateVerifyRequestRejectsBadPattern(t *testing.T) {
	err := ValidateVerifyRequest([]byte(`{"text":"not-a-code"}`))
	if err == nil {
		t.Error("expected error for malformed text")
	}
}

func TestValidateVerifyRequestRejectsMissingText(t *testing.T) {
	err := ValidateVerifyRequest([]byte(`{}`))
	if err == nil {
		t.Error("expected error for missing text")
	}
}

func TestValidateResponseValid(t *testing.T) {
	err := ValidateResponse([]byte(`{"ok":true,"text":"5123456789","expires_at":"2026-08-01T12:00:00Z","variant":"temporary"}`))
	if err != nil {
		t.Errorf("expected valid, got: %v", err)
	}
}

func TestValidateResponseRejectsMissingOk(t *testing.T) {
	err := ValidateResponse([]byte(`{"text":"5123456789"}`))
	if err == nil {
		t.Error("expected error for missing ok field")
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := ValidateGenerateRequest([]byte(`not json`))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}
