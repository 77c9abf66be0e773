package ldcontext

import "testing"

func TestGetAttributeBuiltins(t *testing.T) {
	u := &User{Key: "user-1", Country: "US", Anonymous: true}

	tests := []struct {
		name string
		want any
		ok   bool
	}{
		{"key", "user-1", true},
		{"country", "US", true},
		{"anonymous", true, true},
		{"email", "", false},
	}
	for _, tt := range tests {
		got, ok := u.GetAttribute(tt.name)
		if ok != tt.ok {
			t.Errorf("GetAttribute(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("GetAttribute(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGetAttributeCustom(t *testing.T) {
	u := &User{Key: "user-1", Custom: map[string]any{"plan": "enterprise", "seats": 42}}

	v, ok := u.GetAttribute("plan")
	if !ok || v != "enterprise" {
		t.Fatalf("GetAttribute(plan) = %v, %v", v, ok)
	}
	v, ok = u.GetAttribute("seats")
	if !ok || v != 42 {
		t.Fatalf("GetAttribute(seats) = %v, %v", v, ok)
	}
	if _, ok := u.GetAttribute("nonexistent"); ok {
		t.Fatal("expected ok=false for unknown attribute")
	}
}

func TestGetAttributeNilUser(t *testing.T) {
	var u *User
	if _, ok := u.GetAttribute("key"); ok {
		t.Fatal("expected ok=false for nil user")
	}
}

func TestBucketableAttributeStringAndInteger(t *testing.T) {
	u := &User{Key: "user-1", Custom: map[string]any{
		"region": "eu-west-1",
		"seats":  42,
		"score":  3.5,
	}}

	v, ok := u.BucketableAttribute("region")
	if !ok || v != "eu-west-1" {
		t.Fatalf("BucketableAttribute(region) = %v, %v", v, ok)
	}
	v, ok = u.BucketableAttribute("seats")
	if !ok || v != "42" {
		t.Fatalf("BucketableAttribute(seats) = %v, %v, want \"42\", true", v, ok)
	}
	if _, ok := u.BucketableAttribute("score"); ok {
		t.Fatal("expected a non-whole float attribute to not be bucketable")
	}
	if _, ok := u.BucketableAttribute("nonexistent"); ok {
		t.Fatal("expected unknown attribute to not be bucketable")
	}
}
