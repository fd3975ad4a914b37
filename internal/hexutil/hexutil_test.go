package hexutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpperHex(t *testing.T) {
	assert.Equal(t, "DEADBEEF", UpperHex([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
}

func TestIsHex(t *testing.T) {
	assert.True(t, IsHex("0123456789abcdefABCDEF"))
	assert.False(t, IsHex(""))
	assert.False(t, IsHex("123G"))
}

func TestSwapUint32(t *testing.T) {
	assert.Equal(t, uint32(0x78563412), SwapUint32(0x12345678))
	assert.Equal(t, uint32(0x12345678), SwapUint32(SwapUint32(0x12345678)))
}

func TestParseYYYYMMDDRoundTrip(t *testing.T) {
	got, err := ParseYYYYMMDD("20000830")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2000, time.August, 30, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "20000830", FormatYYYYMMDD(got))
}

func TestParseYYYYMMDDRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "2000083", "2000083X", "20001332", "20000230"} {
		_, err := ParseYYYYMMDD(bad)
		assert.Error(t, err, bad)
	}
}
