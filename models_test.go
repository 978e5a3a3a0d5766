package accounts

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUserStatus(t *testing.T) {
	cases := []struct {
		name string
		user *User
		want AccountStatus
	}{
		{name: "nil", user: nil, want: StatusInactive},
		{name: "inactive", user: &User{}, want: StatusInactive},
		{name: "active", user: &User{IsActive: true}, want: StatusActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.Status(); got != tc.want {
				t.Fatalf("expected status %q, got %q", tc.want, got)
			}
		})
	}
}

func TestUserFullName(t *testing.T) {
	var nilUser *User
	if got := nilUser.FullName(); got != "" {
		t.Fatalf("expected empty name for nil user, got %q", got)
	}

	u := &User{FirstName: "Ada", LastName: "Lovelace"}
	if got := u.FullName(); got != "Ada Lovelace" {
		t.Fatalf("unexpected full name %q", got)
	}

	u.LastName = ""
	if got := u.FullName(); got != "Ada" {
		t.Fatalf("expected trimmed name, got %q", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
	if got := NormalizeEmail("ÖLAF@Example.com"); got != "ölaf@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}

func TestUserIdentity(t *testing.T) {
	if NewIdentityFromUser(nil) != nil {
		t.Fatal("expected nil identity for nil user")
	}

	u := &User{ID: uuid.New(), Username: "ada", Email: "ada@example.com", IsActive: true}
	identity := NewIdentityFromUser(u)

	if identity.ID() != u.ID.String() || identity.Username() != "ada" || identity.Email() != "ada@example.com" {
		t.Fatalf("identity does not mirror user: %+v", identity)
	}
	if !identity.IsActive() {
		t.Fatal("expected active identity")
	}

	var empty UserIdentity
	if empty.ID() != "" || empty.IsActive() {
		t.Fatal("expected zero identity to be empty")
	}
}

func TestParseUserID(t *testing.T) {
	id := uuid.New()
	got, err := parseUserID(id.String())
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}

	if _, err := parseUserID(uuid.Nil.String()); err != ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound for nil uuid, got %v", err)
	}

	if _, err := parseUserID("nope"); err == nil {
		t.Fatal("expected error for malformed id")
	}
}

func TestEnumTypesAreDistinct(t *testing.T) {
	if reflect.TypeOf(StatusActive).Name() != "AccountStatus" {
		t.Fatalf("expected AccountStatus, got %s", reflect.TypeOf(StatusActive))
	}
	if reflect.TypeOf(PurposeActivate).Name() != "CodePurpose" {
		t.Fatalf("expected CodePurpose, got %s", reflect.TypeOf(PurposeActivate))
	}

	raw, err := json.Marshal(ActivationCode{Purpose: PurposeChangeEmail})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["purpose"] != "change_email" {
		t.Fatalf("expected purpose change_email, got %#v", out["purpose"])
	}
}

func TestUserEmailNormalizedIsHidden(t *testing.T) {
	raw, err := json.Marshal(User{Email: "Ölaf@example.com", EmailNormalized: "ölaf@example.com"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(raw); !json.Valid(raw) || strings.Contains(got, "email_normalized") {
		t.Fatalf("unexpected payload %s", got)
	}
}
