// Package directory resolves conversation membership and user display names
// for the typing API. The relational model (users, conversation members)
// belongs to the main application; this package only reads the two lookups
// the typing endpoints need.
package directory

import (
	"context"
	"sort"
	"sync"
)

// User is a directory entry: opaque ID plus the display name shown in
// typing labels.
type User struct {
	ID       string
	Username string
}

// Directory answers the membership and name lookups performed before any
// typing operation: room endpoints verify the caller belongs to the room,
// and the check endpoint maps typing user IDs back to display names.
type Directory interface {
	// RoomExists reports whether the conversation room exists at all,
	// distinct from whether a given caller belongs to it. Room endpoints
	// answer 404 for a missing room before any membership decision.
	RoomExists(ctx context.Context, roomID int64) (bool, error)

	// IsMember reports whether the user belongs to the conversation room.
	IsMember(ctx context.Context, roomID int64, userID string) (bool, error)

	// Members returns all users in the room, sorted by username.
	Members(ctx context.Context, roomID int64) ([]User, error)

	// UserByName resolves a username. Returns nil (no error) when the user
	// does not exist.
	UserByName(ctx context.Context, username string) (*User, error)
}

// StaticDirectory is an in-memory Directory for tests and the simulator.
type StaticDirectory struct {
	mu      sync.RWMutex
	users   map[string]User            // id -> user
	byName  map[string]string          // username -> id
	members map[int64]map[string]bool  // room -> set of user ids
}

// NewStaticDirectory creates an empty static directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		users:   make(map[string]User),
		byName:  make(map[string]string),
		members: make(map[int64]map[string]bool),
	}
}

// AddUser registers a user.
func (d *StaticDirectory) AddUser(id, username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = User{ID: id, Username: username}
	d.byName[username] = id
}

// AddMember puts a previously added user into a room.
func (d *StaticDirectory) AddMember(roomID int64, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.members[roomID] == nil {
		d.members[roomID] = make(map[string]bool)
	}
	d.members[roomID][userID] = true
}

func (d *StaticDirectory) RoomExists(_ context.Context, roomID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.members[roomID]
	return ok, nil
}

func (d *StaticDirectory) IsMember(_ context.Context, roomID int64, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members[roomID][userID], nil
}

func (d *StaticDirectory) Members(_ context.Context, roomID int64) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := []User{}
	for id := range d.members[roomID] {
		if u, ok := d.users[id]; ok {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (d *StaticDirectory) UserByName(_ context.Context, username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byName[username]
	if !ok {
		return nil, nil
	}
	u := d.users[id]
	return &u, nil
}
