package oplog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/identity"
)

type fixture struct {
	ids     *identity.Identities
	a, b, c *identity.Identity
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	ids, err := identity.New()
	require.NoError(t, err)
	t.Cleanup(func() { ids.Close() })

	f := &fixture{ids: ids}
	for _, p := range []struct {
		dst  **identity.Identity
		name string
	}{{&f.a, "userA"}, {&f.b, "userB"}, {&f.c, "userC"}} {
		*p.dst, err = ids.CreateIdentity(p.name)
		require.NoError(t, err)
	}
	return f
}

func newLog(t testing.TB, id *identity.Identity, opts ...Option) *Log {
	t.Helper()
	l, err := New(id, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func appendN(t testing.TB, l *Log, prefix string, n int) []*entry.Entry {
	t.Helper()
	out := make([]*entry.Entry, 0, n)
	for i := 1; i <= n; i++ {
		e, err := l.Append([]byte(fmt.Sprintf("%s%d", prefix, i)), AppendOptions{})
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func payloads(es []*entry.Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = string(e.Payload)
	}
	return out
}

func values(t testing.TB, l *Log) []*entry.Entry {
	t.Helper()
	vs, err := l.Values()
	require.NoError(t, err)
	return vs
}

func headHashes(t testing.TB, l *Log) []string {
	t.Helper()
	hs, err := l.Heads()
	require.NoError(t, err)
	return entry.Hashes(hs)
}

func span(prefix string, from, to int) []string {
	var out []string
	step := 1
	if from > to {
		step = -1
	}
	for i := from; ; i += step {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
		if i == to {
			break
		}
	}
	return out
}
