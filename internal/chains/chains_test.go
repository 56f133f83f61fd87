package chains

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	c, ok := Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "eth", c.Name)
	assert.Equal(t, "0x1", c.IDHex)
	assert.Equal(t, "eip155:1", c.CAIP2())

	c, ok = Lookup(137)
	require.True(t, ok)
	assert.Equal(t, "0x89", c.IDHex)

	_, ok = Lookup(999999)
	assert.False(t, ok)
}

func TestParseCAIP2(t *testing.T) {
	id, err := ParseCAIP2("eip155:10")
	require.NoError(t, err)
	assert.Equal(t, 10, id)

	for _, s := range []string{"", "eip155", "cosmos:1", "eip155:x", "eip155:-1"} {
		_, err := ParseCAIP2(s)
		assert.Error(t, err, s)
	}
}

func TestVerifyPersonalSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	msg := []byte("sign in to My App Wallet")

	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	assert.True(t, VerifyPersonalSignature(addr, hexutil.Encode(sig), msg))
	assert.False(t, VerifyPersonalSignature(addr, hexutil.Encode(sig), []byte("other")))
	assert.False(t, VerifyPersonalSignature("not-an-address", hexutil.Encode(sig), msg))
	assert.False(t, VerifyPersonalSignature(addr, "0x1234", msg))

	sig[crypto.RecoveryIDOffset] -= 27
	assert.True(t, VerifyPersonalSignature(addr, hexutil.Encode(sig), msg), "0/1 recovery ids are accepted")
}
