package auth

import (
	"encoding/json"
	"testing"
)

func TestRole_AtLeast(t *testing.T) {
	order := []Role{RoleGuest, RoleUser, RoleOperator, RoleAdmin}
	for i, have := range order {
		for j, want := range order {
			if got := have.AtLeast(want); got != (i >= j) {
				t.Fatalf("%s.AtLeast(%s) = %v, want %v", have, want, got, i >= j)
			}
		}
	}
}

func TestRole_UnknownRanksAsGuest(t *testing.T) {
	if Role("superuser").AtLeast(RoleUser) {
		t.Fatalf("unknown role must not satisfy user")
	}
	if !Role("superuser").AtLeast(RoleGuest) {
		t.Fatalf("unknown role should still satisfy guest")
	}
}

func TestRole_UnmarshalText(t *testing.T) {
	var r Role
	if err := r.UnmarshalText([]byte(" Operator ")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != RoleOperator {
		t.Fatalf("got %q, want operator", r)
	}
	if err := r.UnmarshalText([]byte("guest")); err == nil {
		t.Fatalf("guest is not a backend role; expected error")
	}
}

func TestIdentity_DecodesBackendPayload(t *testing.T) {
	payload := `{"id": 7, "username": "admin", "full_name": "Site Admin", "email": "a@example.com", "role": "admin", "is_active": true}`
	var id Identity
	if err := json.Unmarshal([]byte(payload), &id); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id.ID != 7 || id.Username != "admin" || id.FullName != "Site Admin" || id.Role != RoleAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIdentity_Clone(t *testing.T) {
	var nilID *Identity
	if nilID.Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
	orig := &Identity{ID: 1, Username: "op", Role: RoleOperator}
	cp := orig.Clone()
	cp.Username = "changed"
	if orig.Username != "op" {
		t.Fatalf("clone aliases original")
	}
}

func TestNewSnapshot_Invariant(t *testing.T) {
	empty := NewSnapshot(nil)
	if empty.Authenticated || empty.Identity != nil {
		t.Fatalf("nil identity must be unauthenticated: %+v", empty)
	}
	id := &Identity{ID: 1, Username: "u", Role: RoleUser}
	snap := NewSnapshot(id)
	if !snap.Authenticated || snap.Identity == nil {
		t.Fatalf("identity must be authenticated: %+v", snap)
	}
	if snap.Identity == id {
		t.Fatalf("snapshot must not alias the caller's identity")
	}
}
