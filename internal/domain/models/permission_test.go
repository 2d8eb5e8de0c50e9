package models

import (
	"testing"
)

func TestRoleIsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleWriter, true},
		{RoleReader, true},
		{RoleNone, true},
		{Role("owner"), false},
		{Role(""), false},
	}

	for _, tt := range tests {
		if got := tt.role.IsValid(); got != tt.want {
			t.Errorf("Role(%q).IsValid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestHighestRole(t *testing.T) {
	tests := []struct {
		name   string
		roles  []Role
		want   Role
		wantOK bool
	}{
		{
			name:   "empty",
			roles:  nil,
			wantOK: false,
		},
		{
			name:   "only denial",
			roles:  []Role{RoleNone},
			wantOK: false,
		},
		{
			name:   "single positive",
			roles:  []Role{RoleReader},
			want:   RoleReader,
			wantOK: true,
		},
		{
			name:   "admin beats writer beats reader",
			roles:  []Role{RoleReader, RoleAdmin, RoleWriter},
			want:   RoleAdmin,
			wantOK: true,
		},
		{
			name:   "denial excluded from comparison",
			roles:  []Role{RoleNone, RoleWriter, RoleReader},
			want:   RoleWriter,
			wantOK: true,
		},
		{
			name:   "unknown values ignored",
			roles:  []Role{Role("owner"), RoleReader},
			want:   RoleReader,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HighestRole(tt.roles)
			if ok != tt.wantOK {
				t.Fatalf("HighestRole() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("HighestRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainsDenial(t *testing.T) {
	if ContainsDenial([]Role{RoleAdmin, RoleWriter}) {
		t.Error("ContainsDenial() = true for positive roles")
	}
	if !ContainsDenial([]Role{RoleAdmin, RoleNone}) {
		t.Error("ContainsDenial() = false with RoleNone present")
	}
	if ContainsDenial(nil) {
		t.Error("ContainsDenial(nil) = true")
	}
}

func TestPagePermissionValidate(t *testing.T) {
	userID := "u1"
	groupID := "g1"

	tests := []struct {
		name    string
		perm    PagePermission
		wantErr bool
	}{
		{
			name: "valid user grant",
			perm: PagePermission{PageID: "p1", UserID: &userID, Role: RoleReader},
		},
		{
			name: "valid group denial",
			perm: PagePermission{PageID: "p1", GroupID: &groupID, Role: RoleNone},
		},
		{
			name:    "missing page",
			perm:    PagePermission{UserID: &userID, Role: RoleReader},
			wantErr: true,
		},
		{
			name:    "invalid role",
			perm:    PagePermission{PageID: "p1", UserID: &userID, Role: Role("owner")},
			wantErr: true,
		},
		{
			name:    "no principal",
			perm:    PagePermission{PageID: "p1", Role: RoleReader},
			wantErr: true,
		},
		{
			name:    "both principals",
			perm:    PagePermission{PageID: "p1", UserID: &userID, GroupID: &groupID, Role: RoleReader},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.perm.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
