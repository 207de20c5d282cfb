package model

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"user", RoleUser, true},
		{"admin", RoleAdmin, true},
		{"company", RoleCompany, true},
		{"", "", false},
		{"Admin", "", false},
		{"employer", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRoles_AllValid(t *testing.T) {
	roles := Roles()
	if len(roles) != 3 {
		t.Fatalf("len(Roles()) = %d, want 3", len(roles))
	}
	for _, r := range roles {
		if !r.Valid() {
			t.Errorf("role %q should be valid", r)
		}
	}
}

func TestSession_Valid(t *testing.T) {
	tests := []struct {
		name string
		s    *Session
		want bool
	}{
		{"nil", nil, false},
		{"complete", &Session{Token: "t1", Role: RoleAdmin, UserID: "u1"}, true},
		{"missing token", &Session{Role: RoleAdmin, UserID: "u1"}, false},
		{"missing user id", &Session{Token: "t1", Role: RoleUser}, false},
		{"unknown role", &Session{Token: "t1", Role: Role("root"), UserID: "u1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewInvalidRoleError("root")
	if err.Error() != "[INVALID_ROLE] 無効なロールです: root" {
		t.Errorf("Error() = %q", err.Error())
	}
}
