package directory

import (
	"context"
	"testing"
)

func newSeededDirectory() *StaticDirectory {
	d := NewStaticDirectory()
	d.AddUser("1", "alice")
	d.AddUser("2", "bob")
	d.AddUser("3", "carol")
	d.AddMember(10, "1")
	d.AddMember(10, "2")
	return d
}

func TestRoomExists(t *testing.T) {
	d := newSeededDirectory()
	ctx := context.Background()

	got, err := d.RoomExists(ctx, 10)
	if err != nil {
		t.Fatalf("RoomExists(10): %v", err)
	}
	if !got {
		t.Error("RoomExists(10) = false, want true")
	}

	got, err = d.RoomExists(ctx, 999)
	if err != nil {
		t.Fatalf("RoomExists(999): %v", err)
	}
	if got {
		t.Error("RoomExists(999) = true, want false")
	}
}

func TestIsMember(t *testing.T) {
	d := newSeededDirectory()
	ctx := context.Background()

	tests := []struct {
		name     string
		roomID   int64
		userID   string
		expected bool
	}{
		{"member", 10, "1", true},
		{"other member", 10, "2", true},
		{"non-member user", 10, "3", false},
		{"unknown room", 99, "1", false},
		{"unknown user", 10, "42", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.IsMember(ctx, tt.roomID, tt.userID)
			if err != nil {
				t.Fatalf("IsMember() error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("IsMember(%d, %s) = %v, want %v", tt.roomID, tt.userID, got, tt.expected)
			}
		})
	}
}

func TestMembersSorted(t *testing.T) {
	d := newSeededDirectory()

	members, err := d.Members(context.Background(), 10)
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Username != "alice" || members[1].Username != "bob" {
		t.Errorf("expected [alice bob], got %v", members)
	}
}

func TestMembersEmptyRoom(t *testing.T) {
	d := newSeededDirectory()

	members, err := d.Members(context.Background(), 77)
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	if members == nil || len(members) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", members)
	}
}

func TestUserByName(t *testing.T) {
	d := newSeededDirectory()
	ctx := context.Background()

	u, err := d.UserByName(ctx, "bob")
	if err != nil {
		t.Fatalf("UserByName() error: %v", err)
	}
	if u == nil || u.ID != "2" {
		t.Errorf("expected bob id=2, got %v", u)
	}

	u, err = d.UserByName(ctx, "nobody")
	if err != nil {
		t.Fatalf("UserByName() error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for unknown user, got %v", u)
	}
}
