package presence

import (
	"testing"

	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = chat.User{ID: "alice01", DisplayName: "User1", AvatarRef: "a.png"}
	bob   = chat.User{ID: "bob0002", DisplayName: "User2", AvatarRef: "b.png"}
	carol = chat.User{ID: "carol03", DisplayName: "User3", AvatarRef: "c.png"}
)

func TestApplyJoinIsIdempotent(t *testing.T) {
	d := New()

	assert.True(t, d.ApplyJoin(alice), "only the first join changes membership")
	assert.False(t, d.ApplyJoin(alice))
	assert.False(t, d.ApplyJoin(alice))

	assert.Equal(t, 1, d.Len())
}

func TestJoinDedupUnderReordering(t *testing.T) {
	d := New()
	ops := []func(){
		func() { d.ApplyJoin(bob) },
		func() { d.ApplyUserList([]chat.User{alice, bob}) },
		func() { d.ApplyJoin(alice) },
		func() { d.ApplyLeave(carol.ID) },
		func() { d.ApplyJoin(bob) },
		func() { d.ApplyUserList([]chat.User{bob}) },
	}
	for _, op := range ops {
		op()
	}

	seen := map[string]int{}
	for _, u := range d.ListAll() {
		seen[u.ID]++
	}
	assert.Equal(t, map[string]int{alice.ID: 1, bob.ID: 1}, seen)
}

func TestApplyUserListMerges(t *testing.T) {
	d := New()
	d.ApplyJoin(alice)

	assert.True(t, d.ApplyUserList([]chat.User{alice, bob, carol}))
	assert.Equal(t, []chat.User{alice, bob, carol}, d.ListAll())

	assert.False(t, d.ApplyUserList([]chat.User{carol, alice}), "a list of known users changes nothing")
	assert.False(t, d.ApplyUserList(nil))
}

func TestApplyLeave(t *testing.T) {
	d := New()
	d.ApplyUserList([]chat.User{alice, bob, carol})

	assert.True(t, d.ApplyLeave(bob.ID))
	assert.False(t, d.ApplyLeave(bob.ID), "leave is idempotent")
	assert.False(t, d.ApplyLeave("nobody"))

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []chat.User{alice, carol}, d.ListAll())
	_, ok := d.Get(bob.ID)
	assert.False(t, ok)
}

func TestLeaveThenRejoinRestoresOneEntry(t *testing.T) {
	d := New()
	d.ApplyJoin(alice)

	require.True(t, d.ApplyLeave(alice.ID))
	require.True(t, d.ApplyJoin(alice))

	assert.Equal(t, []chat.User{alice}, d.ListAll())
}

func TestJoinWithoutIDIgnored(t *testing.T) {
	d := New()
	assert.False(t, d.ApplyJoin(chat.User{DisplayName: "ghost"}))
	assert.False(t, d.ApplyUserList([]chat.User{{DisplayName: "ghost"}}))
	assert.Equal(t, 0, d.Len())
}

func TestListAllIsACopy(t *testing.T) {
	d := New()
	d.ApplyJoin(alice)
	d.ApplyJoin(bob)

	users := d.ListAll()
	users[0] = carol
	assert.Equal(t, []chat.User{alice, bob}, d.ListAll())
}
