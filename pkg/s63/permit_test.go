package s63

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpasha/s63lib/internal/hexutil"
)

func TestCreateUserPermitVector(t *testing.T) {
	got, err := CreateUserPermit("98765", "12348", "01")
	require.NoError(t, err)
	assert.Equal(t, "73871727080876A07E450C043031", got)
}

func TestExtractHWIDFromUserPermitVector(t *testing.T) {
	hwid, err := ExtractHWIDFromUserPermit("73871727080876A07E450C043031", "98765")
	require.NoError(t, err)
	assert.Equal(t, "12348", hwid)
}

func TestUserPermitRoundTrip(t *testing.T) {
	uperm, err := CreateUserPermit("ABCDE", "ZYXWV", "42")
	require.NoError(t, err)
	assert.Len(t, uperm, userPermLen)

	hwid, err := ExtractHWIDFromUserPermit(uperm, "ABCDE")
	require.NoError(t, err)
	assert.Equal(t, "ZYXWV", hwid)
}

func TestExtractHWIDRejectsBitFlip(t *testing.T) {
	uperm, err := CreateUserPermit("ABCDE", "ZYXWV", "42")
	require.NoError(t, err)

	flipped := []byte(uperm)
	// Keep the changed character within the hex alphabet so the failure
	// is attributed to the CRC check, not the format check.
	flipped[0] = flipHexDigit(flipped[0])

	_, err = ExtractHWIDFromUserPermit(string(flipped), "ABCDE")
	require.Error(t, err)
	assert.True(t, IsCode(err, InvalidUserpermit))
}

func TestCreateCellPermitVector(t *testing.T) {
	ck1, err := hexutil.DecodeHex("C1CB518E9C")
	require.NoError(t, err)
	ck2, err := hexutil.DecodeHex("421571CC66")
	require.NoError(t, err)

	got, err := CreateCellPermit([]byte("12348"), ck1, ck2, "NO4D0613", "20000830")
	require.NoError(t, err)
	assert.Equal(t, "NO4D061320000830BEB9BFE3C7C6CE68B16411FD09F96982795C77B204F54D48", got)
}

func TestExtractCellKeysVector(t *testing.T) {
	cperm := "NO4D061320000830BEB9BFE3C7C6CE68B16411FD09F96982795C77B204F54D48"
	hw6 := hw6FromHWID([]byte("12348"))

	ck1, ck2, err := ExtractCellKeys(cperm, hw6)
	// The fixture's expiry is in the past relative to any test run date,
	// so an Expired advisory is expected alongside successful extraction.
	if err != nil {
		assert.True(t, IsAdvisory(err), "unexpected hard error: %v", err)
	}

	wantCK1, _ := hexutil.DecodeHex("C1CB518E9C")
	wantCK2, _ := hexutil.DecodeHex("421571CC66")
	assert.Equal(t, wantCK1, ck1)
	assert.Equal(t, wantCK2, ck2)
}

func TestCellPermitRoundTrip(t *testing.T) {
	hwID := []byte("54321")
	ck1 := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	ck2 := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}
	future := time.Now().UTC().AddDate(1, 0, 0)
	date := hexutil.FormatYYYYMMDD(future)

	cperm, err := CreateCellPermit(hwID, ck1, ck2, "ABCD1234", date)
	require.NoError(t, err)
	assert.Len(t, cperm, cellPermLen)

	hw6 := hw6FromHWID(hwID)
	err = ValidateCellPermit(cperm, hw6)
	assert.NoError(t, err)

	gotCK1, gotCK2, err := ExtractCellKeys(cperm, hw6)
	require.NoError(t, err)
	assert.Equal(t, ck1, gotCK1)
	assert.Equal(t, ck2, gotCK2)
}

func TestValidateCellPermitExpiryAdvisories(t *testing.T) {
	hwID := []byte("54321")
	hw6 := hw6FromHWID(hwID)
	ck1 := []byte{1, 2, 3, 4, 5}
	ck2 := []byte{6, 7, 8, 9, 10}

	nearDate := hexutil.FormatYYYYMMDD(time.Now().UTC().AddDate(0, 0, 29))
	cperm, err := CreateCellPermit(hwID, ck1, ck2, "ABCD1234", nearDate)
	require.NoError(t, err)
	err = ValidateCellPermit(cperm, hw6)
	require.Error(t, err)
	assert.True(t, IsNearExpiry(err))

	pastDate := hexutil.FormatYYYYMMDD(time.Now().UTC().AddDate(0, 0, -1))
	cperm, err = CreateCellPermit(hwID, ck1, ck2, "ABCD1234", pastDate)
	require.NoError(t, err)
	err = ValidateCellPermit(cperm, hw6)
	require.Error(t, err)
	assert.True(t, IsExpired(err))
}

func TestValidateCellPermitRejectsBadLength(t *testing.T) {
	err := ValidateCellPermit("tooshort", []byte("123481"))
	require.Error(t, err)
	assert.True(t, IsCode(err, BadFormat))
}

func TestValidateCellPermitRejectsCrcBitFlip(t *testing.T) {
	hwID := []byte("54321")
	hw6 := hw6FromHWID(hwID)
	future := hexutil.FormatYYYYMMDD(time.Now().UTC().AddDate(1, 0, 0))
	cperm, err := CreateCellPermit(hwID, []byte{1, 2, 3, 4, 5}, []byte{6, 7, 8, 9, 10}, "ABCD1234", future)
	require.NoError(t, err)

	flipped := []byte(cperm)
	flipped[20] = flipHexDigit(flipped[20])

	err = ValidateCellPermit(string(flipped), hw6)
	require.Error(t, err)
	assert.True(t, IsCode(err, CrcInvalid))
}

func flipHexDigit(c byte) byte {
	if c == '0' {
		return '1'
	}
	return '0'
}

func TestEncryptDecryptCellRoundTrip(t *testing.T) {
	key := []byte{1, 2, 3, 4, 5}
	plain := append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("rest of an aligned buffer!!!")...)

	enc, err := EncryptCell(plain, key)
	require.NoError(t, err)
	require.Equal(t, 0, len(enc)%8)

	dec, err := DecryptCell(enc, key, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestDecryptCellFallsBackToSecondKey(t *testing.T) {
	ck1 := []byte{1, 1, 1, 1, 1}
	ck2 := []byte{2, 2, 2, 2, 2}
	plain := append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("....")...)

	enc, err := EncryptCell(plain, ck2)
	require.NoError(t, err)

	dec, err := DecryptCell(enc, ck1, ck2)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestDecryptCellRejectsBadLength(t *testing.T) {
	_, err := DecryptCell([]byte("not aligned"), []byte{1, 2, 3, 4, 5}, []byte{6, 7, 8, 9, 10})
	require.Error(t, err)
	assert.True(t, IsCode(err, BadLength))
}

func TestDecryptCellRejectsWhenNoKeyMatches(t *testing.T) {
	plain := []byte("12345678")
	enc, err := EncryptCell(plain, []byte{9, 9, 9, 9, 9})
	require.NoError(t, err)

	_, err = DecryptCell(enc, []byte{1, 2, 3, 4, 5}, []byte{6, 7, 8, 9, 10})
	require.Error(t, err)
	assert.True(t, IsCode(err, KeyInvalid))
}
