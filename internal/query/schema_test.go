package query

import (
	"testing"

	"github.com/felix-phuctran/base-be-go/internal/domain"
)

func TestRegistry_RegisterUser(t *testing.T) {
	reg := NewRegistry()
	s := reg.MustRegister(&domain.User{})

	if s.Name != "User" {
		t.Errorf("Name=%q; want User", s.Name)
	}
	if s.Table != "users" {
		t.Errorf("Table=%q; want users", s.Table)
	}

	// Embedded base fields flatten into the schema.
	for _, col := range []string{"id", "is_active", "created_at", "updated_at", "deleted_at", "email", "display_name", "password_hash"} {
		if !s.HasColumn(col) {
			t.Errorf("missing column %q", col)
		}
	}
	if s.HasColumn("sessions") {
		t.Error("association field must not register as a column")
	}
}

func TestRegistry_RelationResolution(t *testing.T) {
	reg := NewRegistry()
	sessions := reg.MustRegister(&domain.UserSession{})

	// Target not registered yet: the relation stays unresolved.
	if _, ok := sessions.Relation("user"); ok {
		t.Fatal("relation resolved before target registration")
	}

	users := reg.MustRegister(&domain.User{})

	rel, ok := sessions.Relation("user")
	if !ok {
		t.Fatal("relation not resolved after target registration")
	}
	if rel.StructField != "User" {
		t.Errorf("StructField=%q; want User", rel.StructField)
	}
	if rel.Target != users {
		t.Error("relation target is not the registered user schema")
	}

	// Reverse direction resolves too.
	rel, ok = users.Relation("sessions")
	if !ok {
		t.Fatal("sessions relation not resolved")
	}
	if rel.Target != sessions {
		t.Error("sessions relation target mismatch")
	}
}

func TestRegistry_RegisterTwiceReturnsSame(t *testing.T) {
	reg := NewRegistry()
	a := reg.MustRegister(&domain.User{})
	b := reg.MustRegister(domain.User{})
	if a != b {
		t.Error("re-registering the same type must return the existing schema")
	}
}

func TestRegistry_RejectsNonStruct(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Register(42); err == nil {
		t.Error("expected error registering a non-struct")
	}
}
