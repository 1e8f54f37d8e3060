package identity

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/merklelog/pkg/storage"
)

func newIdentities(t *testing.T, opts ...Option) *Identities {
	t.Helper()
	ids, err := New(opts...)
	require.NoError(t, err)
	return ids
}

func TestCreateIdentity(t *testing.T) {
	ids := newIdentities(t)
	i, err := ids.CreateIdentity("userA")
	require.NoError(t, err)

	require.Equal(t, TypePublicKey, i.Type)
	require.NotEmpty(t, i.ID)
	require.NotEmpty(t, i.PublicKey)
	require.NotEqual(t, i.ID, i.PublicKey)
	require.NotEmpty(t, i.Hash)
	require.True(t, i.CanSign())
	require.True(t, ids.VerifyIdentity(i))
}

func TestCreateIdentityIsStable(t *testing.T) {
	ids := newIdentities(t)
	a, err := ids.CreateIdentity("userA")
	require.NoError(t, err)
	b, err := ids.CreateIdentity("userA")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, a.PublicKey, b.PublicKey)

	c, err := ids.CreateIdentity("userB")
	require.NoError(t, err)
	require.NotEqual(t, a.ID, c.ID)
}

func TestCreateIdentityRequiresID(t *testing.T) {
	ids := newIdentities(t)
	_, err := ids.CreateIdentity("")
	require.Error(t, err)
}

func TestGetIdentity(t *testing.T) {
	ids := newIdentities(t)
	created, err := ids.CreateIdentity("userA")
	require.NoError(t, err)

	got, err := ids.GetIdentity(created.Hash)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, created.PublicKey, got.PublicKey)
	require.False(t, got.CanSign())
	require.Nil(t, got.Provider())
	require.Same(t, ids, created.Provider())
	require.True(t, ids.VerifyIdentity(got))

	_, err = ids.GetIdentity("zb2rhmissing")
	require.True(t, errors.Is(err, ErrIdentityNotFound))
}

func TestGetIdentityFromSharedStorage(t *testing.T) {
	shared := storage.NewMemory()
	writer := newIdentities(t, WithStorage(shared))
	reader := newIdentities(t, WithStorage(shared))

	i, err := writer.CreateIdentity("userA")
	require.NoError(t, err)

	got, err := reader.GetIdentity(i.Hash)
	require.NoError(t, err)
	require.True(t, reader.VerifyIdentity(got))
}

func TestVerifyIdentityRejectsTampering(t *testing.T) {
	ids := newIdentities(t)
	a, err := ids.CreateIdentity("userA")
	require.NoError(t, err)
	b, err := ids.CreateIdentity("userB")
	require.NoError(t, err)

	forged := *a
	forged.PublicKey = b.PublicKey
	require.False(t, ids.VerifyIdentity(&forged))

	forged = *a
	forged.Signatures.ID = b.Signatures.ID
	require.False(t, ids.VerifyIdentity(&forged))

	require.False(t, ids.VerifyIdentity(nil))
}

func TestSignAndVerify(t *testing.T) {
	ids := newIdentities(t)
	i, err := ids.CreateIdentity("userA")
	require.NoError(t, err)

	sig, err := i.Sign([]byte("payload"))
	require.NoError(t, err)
	require.True(t, ids.VerifySignature(sig, i.PublicKey, []byte("payload")))
	require.False(t, ids.VerifySignature(sig, i.PublicKey, []byte("other")))
	require.False(t, ids.VerifySignature(sig, i.ID, []byte("payload")))
	require.False(t, ids.VerifySignature("zz", i.PublicKey, []byte("payload")))
	require.False(t, ids.VerifySignature(sig, "not-hex", []byte("payload")))
}

func TestSignWithoutKey(t *testing.T) {
	ids := newIdentities(t)
	i, err := ids.CreateIdentity("userA")
	require.NoError(t, err)
	resolved, err := Decode(i.Bytes)
	require.NoError(t, err)

	_, err = resolved.Sign([]byte("x"))
	require.Equal(t, ErrNoSigningKey, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	require.True(t, errors.Is(err, ErrInvalidIdentity))
}

func TestKeyStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore")
	ks, err := NewKeyStore(path)
	require.NoError(t, err)
	created, err := ks.CreateKey("userA")
	require.NoError(t, err)
	require.NoError(t, ks.Close())

	ks, err = NewKeyStore(path)
	require.NoError(t, err)
	defer ks.Close()

	ok, err := ks.HasKey("userA")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := ks.GetKey("userA")
	require.NoError(t, err)
	require.Equal(t, created.Serialize(), loaded.Serialize())

	_, err = ks.GetKey("nobody")
	require.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestAddIdentity(t *testing.T) {
	writer := newIdentities(t)
	a, err := writer.CreateIdentity("userA")
	require.NoError(t, err)
	b, err := writer.CreateIdentity("userB")
	require.NoError(t, err)

	reader := newIdentities(t)
	_, err = reader.GetIdentity(a.Hash)
	require.True(t, errors.Is(err, ErrIdentityNotFound))

	added, err := reader.AddIdentity(a.Bytes)
	require.NoError(t, err)
	require.Equal(t, a.Hash, added.Hash)
	got, err := reader.GetIdentity(a.Hash)
	require.NoError(t, err)
	require.Equal(t, a.PublicKey, got.PublicKey)

	forged := *a
	forged.PublicKey = b.PublicKey
	require.NoError(t, forged.seal())
	_, err = reader.AddIdentity(forged.Bytes)
	require.True(t, errors.Is(err, ErrInvalidIdentity))
	_, err = reader.GetIdentity(forged.Hash)
	require.True(t, errors.Is(err, ErrIdentityNotFound))

	_, err = reader.AddIdentity([]byte("garbage"))
	require.Error(t, err)
}
