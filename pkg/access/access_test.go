package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/identity"
)

func TestAllowAll(t *testing.T) {
	require.True(t, AllowAll.CanAppend(&entry.Entry{}))
	require.True(t, AllowAll.CanAppend(nil))
}

func TestControllerFunc(t *testing.T) {
	deny := ControllerFunc(func(*entry.Entry) bool { return false })
	require.False(t, deny.CanAppend(&entry.Entry{}))
}

func TestWriteList(t *testing.T) {
	ids, err := identity.New()
	require.NoError(t, err)
	defer ids.Close()

	alice, err := ids.CreateIdentity("alice")
	require.NoError(t, err)
	bob, err := ids.CreateIdentity("bob")
	require.NoError(t, err)

	fromAlice, err := entry.Create(alice, "A", []byte("a"))
	require.NoError(t, err)
	fromBob, err := entry.Create(bob, "A", []byte("b"))
	require.NoError(t, err)

	w := NewWriteList(ids, []string{alice.ID})
	require.True(t, w.CanAppend(fromAlice))
	require.False(t, w.CanAppend(fromBob))
	require.False(t, w.CanAppend(nil))

	w.Grant(bob.ID)
	require.True(t, w.CanAppend(fromBob))
	require.ElementsMatch(t, []string{alice.ID, bob.ID}, w.Write())

	open := NewWriteList(ids, []string{Wildcard})
	require.True(t, open.CanAppend(fromBob))

	unknown := *fromAlice
	unknown.Identity = "missing"
	require.False(t, open.CanAppend(&unknown))
}
