package presence

import "github.com/matheus3301/tabroom/internal/chat"

// Directory is the set of users known to this tab, unique by ID.
// ListAll returns users in the order they were first seen.
//
// A Directory is owned by a single room loop and is not safe for
// concurrent mutation. It has no observers of its own: the Apply methods
// report membership changes and the owner announces them.
type Directory struct {
	users map[string]chat.User
	order []string
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{users: make(map[string]chat.User)}
}

// ApplyJoin inserts u if its ID is not yet known. Returns true if the
// directory changed.
func (d *Directory) ApplyJoin(u chat.User) bool {
	return d.insert(u)
}

// ApplyUserList merge-inserts every user not already present. Returns true
// if at least one user was added.
func (d *Directory) ApplyUserList(users []chat.User) bool {
	changed := false
	for _, u := range users {
		if d.insert(u) {
			changed = true
		}
	}
	return changed
}

// ApplyLeave removes the user with the given ID. Unknown IDs are ignored.
func (d *Directory) ApplyLeave(id string) bool {
	if _, ok := d.users[id]; !ok {
		return false
	}
	delete(d.users, id)
	for i, known := range d.order {
		if known == id {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// ListAll returns a copy of the known users.
func (d *Directory) ListAll() []chat.User {
	out := make([]chat.User, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.users[id])
	}
	return out
}

// Get returns the user with the given ID.
func (d *Directory) Get(id string) (chat.User, bool) {
	u, ok := d.users[id]
	return u, ok
}

// Len returns the number of known users.
func (d *Directory) Len() int {
	return len(d.order)
}

func (d *Directory) insert(u chat.User) bool {
	if u.ID == "" {
		return false
	}
	if _, ok := d.users[u.ID]; ok {
		return false
	}
	d.users[u.ID] = u
	d.order = append(d.order, u.ID)
	return true
}
