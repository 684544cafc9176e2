package registry

import (
	"errors"
	"sort"
	"sync"
)

// ErrInvalidRoomKey is returned when a room operation is given an empty key.
var ErrInvalidRoomKey = errors.New("invalid room key")

// Registry is the authoritative mapping from room key to the set of member
// connections. It is the only mutable state shared between connections.
//
// A room exists only while it has members: the last Leave (or LeaveAll) for a
// room deletes it, so an empty room and an unknown room look the same.
type Registry[M comparable] struct {
	mu sync.RWMutex

	// rooms maps a room key to its member set.
	rooms map[string]map[M]struct{}

	// memberships is the reverse index (member -> room keys) used by LeaveAll.
	memberships map[M]map[string]struct{}
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Rooms       int // rooms with at least one member
	Members     int // distinct connections in at least one room
	Memberships int // (room, connection) pairs
}

// New creates an empty Registry.
func New[M comparable]() *Registry[M] {
	return &Registry[M]{
		rooms:       make(map[string]map[M]struct{}),
		memberships: make(map[M]map[string]struct{}),
	}
}

// Join adds m to the room. Joining a room twice has no additional effect.
// It reports whether m was newly added.
func (r *Registry[M]) Join(m M, roomKey string) (bool, error) {
	if roomKey == "" {
		return false, ErrInvalidRoomKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomKey]
	if !ok {
		members = make(map[M]struct{})
		r.rooms[roomKey] = members
	}
	if _, exists := members[m]; exists {
		return false, nil
	}
	members[m] = struct{}{}

	rooms, ok := r.memberships[m]
	if !ok {
		rooms = make(map[string]struct{})
		r.memberships[m] = rooms
	}
	rooms[roomKey] = struct{}{}
	return true, nil
}

// Leave removes m from the room. Removing a non-member is a no-op.
// It reports whether m was a member.
func (r *Registry[M]) Leave(m M, roomKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(m, roomKey)
}

// LeaveAll removes m from every room it belongs to and returns the keys of
// the rooms it left, sorted.
func (r *Registry[M]) LeaveAll(m M) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.memberships[m]
	if len(rooms) == 0 {
		return nil
	}

	left := make([]string, 0, len(rooms))
	for roomKey := range rooms {
		left = append(left, roomKey)
	}
	for _, roomKey := range left {
		r.removeLocked(m, roomKey)
	}
	sort.Strings(left)
	return left
}

func (r *Registry[M]) removeLocked(m M, roomKey string) bool {
	members, ok := r.rooms[roomKey]
	if !ok {
		return false
	}
	if _, exists := members[m]; !exists {
		return false
	}

	delete(members, m)
	if len(members) == 0 {
		delete(r.rooms, roomKey)
	}

	if rooms, ok := r.memberships[m]; ok {
		delete(rooms, roomKey)
		if len(rooms) == 0 {
			delete(r.memberships, m)
		}
	}
	return true
}

// MembersExcept returns a snapshot of every member of the room other than m.
// The result is a fresh slice; later joins and leaves do not affect it.
func (r *Registry[M]) MembersExcept(roomKey string, m M) []M {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomKey]
	if len(members) == 0 {
		return nil
	}

	out := make([]M, 0, len(members))
	for member := range members {
		if member == m {
			continue
		}
		out = append(out, member)
	}
	return out
}

// Size returns the number of members in the room, 0 for unknown rooms.
func (r *Registry[M]) Size(roomKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomKey])
}

// Contains reports whether m is currently a member of the room.
func (r *Registry[M]) Contains(roomKey string, m M) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomKey][m]
	return ok
}

// Rooms returns the keys of the rooms m belongs to, sorted.
func (r *Registry[M]) Rooms(m M) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := r.memberships[m]
	if len(rooms) == 0 {
		return nil
	}
	out := make([]string, 0, len(rooms))
	for roomKey := range rooms {
		out = append(out, roomKey)
	}
	sort.Strings(out)
	return out
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry[M]) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Stats returns a consistent summary of the registry.
func (r *Registry[M]) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		Rooms:   len(r.rooms),
		Members: len(r.memberships),
	}
	for _, members := range r.rooms {
		s.Memberships += len(members)
	}
	return s
}
