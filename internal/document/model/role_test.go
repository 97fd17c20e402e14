package model

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "viewer read", role: RoleViewer, action: ActionRead, allow: true},
		{name: "viewer write", role: RoleViewer, action: ActionWrite, allow: false},
		{name: "editor write", role: RoleEditor, action: ActionWrite, allow: true},
		{name: "editor admin", role: RoleEditor, action: ActionAdmin, allow: false},
		{name: "owner admin", role: RoleOwner, action: ActionAdmin, allow: true},
		{name: "unknown read", role: Role("guest"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestFirstContactRole(t *testing.T) {
	cases := map[string]Role{
		"viewer": RoleViewer,
		"editor": RoleEditor,
		"owner":  RoleEditor,
		"":       RoleEditor,
		"admin":  RoleEditor,
	}
	for requested, want := range cases {
		if got := FirstContactRole(requested); got != want {
			t.Fatalf("FirstContactRole(%q) = %q, want %q", requested, got, want)
		}
	}
}

func TestExistingRole(t *testing.T) {
	doc := &Document{
		ID:      "d1",
		OwnerID: "u1",
		Collaborators: []Collaborator{
			{UserID: "u2", Role: RoleViewer},
			{UserID: "u1", Role: RoleViewer},
		},
	}

	if role, ok := ExistingRole(doc, "u1"); !ok || role != RoleOwner {
		t.Fatalf("owner resolved to %q/%v", role, ok)
	}
	if role, ok := ExistingRole(doc, "u2"); !ok || role != RoleViewer {
		t.Fatalf("collaborator resolved to %q/%v", role, ok)
	}
	if role, ok := ExistingRole(doc, ""); !ok || role != RoleViewer {
		t.Fatalf("anonymous resolved to %q/%v", role, ok)
	}
	if _, ok := ExistingRole(doc, "u3"); ok {
		t.Fatal("u3 should be a first contact")
	}

	ownerless := &Document{ID: "d2"}
	if _, ok := ExistingRole(ownerless, "u1"); ok {
		t.Fatal("empty owner must not match anyone")
	}
}
