package validate

import (
	"strings"
	"testing"

	"github.com/ddabattalion/examprep-bot/internal/api"
)

func TestStruct_ValidLogin(t *testing.T) {
	fields := Struct(api.LoginRequest{Mobile: "9876543210", Password: "secret"})
	if fields != nil {
		t.Fatalf("unexpected errors: %v", fields)
	}
}

func TestStruct_ReportsByJSONName(t *testing.T) {
	fields := Struct(api.LoginRequest{Mobile: "123", Password: ""})
	if len(fields) != 2 {
		t.Fatalf("fields = %v, want 2 entries", fields)
	}
	if _, ok := fields["mobile"]; !ok {
		t.Errorf("expected key %q, got %v", "mobile", fields)
	}
	if _, ok := fields["password"]; !ok {
		t.Errorf("expected key %q, got %v", "password", fields)
	}
}

func TestStruct_OptionalFields(t *testing.T) {
	enq := api.Enquiry{FullName: "Asha Rao", MobileNumber: "9876543210", ProgramName: "NDA"}
	if fields := Struct(enq); fields != nil {
		t.Fatalf("optional fields should be skippable, got %v", fields)
	}

	enq.EmailAddress = "not-an-email"
	fields := Struct(enq)
	if _, ok := fields["email_address"]; !ok {
		t.Errorf("expected email_address error, got %v", fields)
	}
}

func TestDescribe_StableOrder(t *testing.T) {
	fields := map[string]string{
		"mobile":   "mobile must be 10 characters in length",
		"password": "password is a required field",
	}
	got := Describe(fields)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", got)
	}
	if !strings.Contains(lines[0], "mobile") || !strings.Contains(lines[1], "password") {
		t.Errorf("order not stable: %q", got)
	}
}
