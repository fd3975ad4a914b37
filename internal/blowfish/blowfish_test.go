package blowfish

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Known-answer vectors from Schneier's published Blowfish test suite
// (vectors.txt), reproduced independently of the S-63 permit vectors.
func TestCipherKnownAnswer(t *testing.T) {
	cases := []struct {
		key, plain, cipher string
	}{
		{"0000000000000000", "0000000000000000", "4EF997456198DD78"},
		{"FFFFFFFFFFFFFFFF", "FFFFFFFFFFFFFFFF", "51866FD5B85ECB8A"},
		{"3000000000000000", "1000000000000001", "7D856F9A613063F2"},
		{"1111111111111111", "1111111111111111", "2466DD878B963C9D"},
		{"0123456789ABCDEF", "1111111111111111", "61F9C3802281B096"},
		{"FEDCBA9876543210", "0123456789ABCDEF", "0ACEAB0FC6A0A28D"},
	}
	for _, tc := range cases {
		key, err := hex.DecodeString(tc.key)
		require.NoError(t, err)
		plain, err := hex.DecodeString(tc.plain)
		require.NoError(t, err)
		want, err := hex.DecodeString(tc.cipher)
		require.NoError(t, err)

		c, err := NewCipher(key)
		require.NoError(t, err)

		got := make([]byte, BlockSize)
		c.EncryptBlock(got, plain)
		assert.Equal(t, want, got, "encrypt key=%s", tc.key)

		back := make([]byte, BlockSize)
		c.DecryptBlock(back, got)
		assert.Equal(t, plain, back, "decrypt round-trip key=%s", tc.key)
	}
}

func TestSetKeyRejectsBadLengths(t *testing.T) {
	_, err := NewCipher(nil)
	assert.Error(t, err)
	var tooShort *KeyTooShort
	assert.ErrorAs(t, err, &tooShort)

	_, err = NewCipher(make([]byte, 57))
	assert.Error(t, err)
	var tooLong *KeyTooLong
	assert.ErrorAs(t, err, &tooLong)
}

func TestECBRoundTrip(t *testing.T) {
	c, err := NewCipher([]byte("12348"))
	require.NoError(t, err)

	buf := []byte("AAAAAAAABBBBBBBB")
	orig := append([]byte(nil), buf...)

	require.NoError(t, c.EncryptECB(buf))
	assert.NotEqual(t, orig, buf)

	require.NoError(t, c.DecryptECB(buf))
	assert.Equal(t, orig, buf)
}

func TestECBRejectsUnalignedLength(t *testing.T) {
	c, err := NewCipher([]byte("key"))
	require.NoError(t, err)

	var badLen *BadLength
	assert.ErrorAs(t, c.EncryptECB(make([]byte, 7)), &badLen)
	assert.ErrorAs(t, c.DecryptECB(make([]byte, 0)), &badLen)
}

func TestPKCS5RoundTrip(t *testing.T) {
	c, err := NewCipher([]byte("a secret key"))
	require.NoError(t, err)

	for _, plain := range [][]byte{
		[]byte(""),
		[]byte("short"),
		[]byte("exactly8"),
		[]byte("this is sixteen!"),
		[]byte("this plaintext is not block aligned at all"),
	} {
		ct := c.EncryptPKCS5(plain)
		assert.Equal(t, 0, len(ct)%BlockSize)
		pt, err := c.DecryptPKCS5(ct)
		require.NoError(t, err)
		assert.Equal(t, plain, pt)
	}
}

func TestPKCS5RejectsBadPadding(t *testing.T) {
	c, err := NewCipher([]byte("key"))
	require.NoError(t, err)

	ct := c.EncryptPKCS5([]byte("hello world"))
	// Flip the last byte so the padding no longer matches after decryption.
	ct[len(ct)-1] ^= 0xFF

	_, err = c.DecryptPKCS5(ct)
	var badPad *BadPadding
	assert.ErrorAs(t, err, &badPad)
}
