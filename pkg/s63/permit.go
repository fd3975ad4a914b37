// Package s63 implements the IHO S-63 Data Protection Scheme's permit
// algebra and cell-decrypt pipeline: User Permit and Cell Permit
// construction/validation, key extraction, and the cell decrypt-then-unzip
// pipeline. Grounded on the original C++ reference (s63.cpp) for exact
// field layout, and on the teacher's errors.go for the typed-error shape.
package s63

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pavelpasha/s63lib/internal/blowfish"
	"github.com/pavelpasha/s63lib/internal/hexutil"
)

const (
	hwIDSize    = 5
	hw6Size     = 6
	mKeySize    = 5
	mIDSize     = 2
	cellKeySize = 5
	cellNameLen = 8
	dateLen     = 8
	userPermLen = 28
	cellPermLen = 64

	nearExpiryWindow = 30 * 24 * time.Hour
)

// padBlock returns a copy of b padded on the right up to n bytes
// PKCS#5-style: every pad byte equals the number of pad bytes. This is
// how a short value runs through an 8-byte Blowfish block (HW_ID, CK1 and
// CK2 get three 0x03 bytes, the 4-byte Cell Permit CRC four 0x04 bytes).
func padBlock(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	for i := len(b); i < n; i++ {
		out[i] = byte(n - len(b))
	}
	return out
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// CreateUserPermit builds the 28-character User Permit binding hwID to
// mKey and mID (§4.E).
func CreateUserPermit(mKey, hwID, mID string) (string, error) {
	if len(mKey) != mKeySize {
		return "", newErr(InvalidFormat, fmt.Sprintf("M_KEY length %d", len(mKey)), nil)
	}
	if len(hwID) != hwIDSize {
		return "", newErr(InvalidFormat, fmt.Sprintf("HW_ID length %d", len(hwID)), nil)
	}
	if len(mID) != mIDSize {
		return "", newErr(InvalidFormat, fmt.Sprintf("M_ID length %d", len(mID)), nil)
	}

	cipher, err := blowfish.NewCipher([]byte(mKey))
	if err != nil {
		return "", newErr(InvalidFormat, "M_KEY", err)
	}

	block := padBlock([]byte(hwID), blowfish.BlockSize)
	enc := make([]byte, blowfish.BlockSize)
	cipher.EncryptBlock(enc, block)

	h := hexutil.UpperHex(enc)
	crc := crc32OfString(h)
	c := hexutil.UpperHex(be32(crc))
	m := hexutil.UpperHex([]byte(mID))

	return h + c + m, nil
}

// ExtractHWIDFromUserPermit recovers the HW_ID bound into uperm, verifying
// its embedded CRC along the way (§4.E).
func ExtractHWIDFromUserPermit(uperm, mKey string) (string, error) {
	if len(uperm) != userPermLen || !hexutil.IsHex(uperm) {
		return "", newErr(InvalidUserpermit, "", nil)
	}

	embeddedBytes, err := hexutil.DecodeHex(uperm[16:24])
	if err != nil {
		return "", newErr(InvalidUserpermit, "", err)
	}
	embedded := binary.BigEndian.Uint32(embeddedBytes)
	calc := crc32OfString(uperm[0:16])
	if embedded != calc {
		return "", newErr(InvalidUserpermit, "crc mismatch", nil)
	}

	cipher, err := blowfish.NewCipher([]byte(mKey))
	if err != nil {
		return "", newErr(InvalidUserpermit, "M_KEY", err)
	}
	enc, err := hexutil.DecodeHex(uperm[0:16])
	if err != nil {
		return "", newErr(InvalidUserpermit, "", err)
	}
	plain := make([]byte, blowfish.BlockSize)
	cipher.DecryptBlock(plain, enc)

	return string(plain[:hwIDSize]), nil
}

func hw6FromHWID(hwID []byte) []byte {
	hw6 := make([]byte, hw6Size)
	copy(hw6, hwID)
	hw6[hw6Size-1] = hwID[0]
	return hw6
}

// CreateCellPermit builds the 64-character Cell Permit binding ck1/ck2 to
// hwID for cellname, expiring on date (YYYYMMDD) (§4.E).
func CreateCellPermit(hwID, ck1, ck2 []byte, cellname, date string) (string, error) {
	if len(hwID) != hwIDSize {
		return "", newErr(InvalidFormat, fmt.Sprintf("HW_ID length %d", len(hwID)), nil)
	}
	if len(ck1) != cellKeySize || len(ck2) != cellKeySize {
		return "", newErr(InvalidFormat, "CK1/CK2 length", nil)
	}
	if len(cellname) != cellNameLen {
		return "", newErr(InvalidFormat, fmt.Sprintf("CELLNAME length %d", len(cellname)), nil)
	}
	if _, err := hexutil.ParseYYYYMMDD(date); err != nil {
		return "", newErr(InvalidDate, date, err)
	}

	hw6 := hw6FromHWID(hwID)
	cipher, err := blowfish.NewCipher(hw6)
	if err != nil {
		return "", newErr(InvalidFormat, "HW_ID6", err)
	}

	enc1 := make([]byte, blowfish.BlockSize)
	cipher.EncryptBlock(enc1, padBlock(ck1, blowfish.BlockSize))
	enc2 := make([]byte, blowfish.BlockSize)
	cipher.EncryptBlock(enc2, padBlock(ck2, blowfish.BlockSize))

	p48 := cellname + date + hexutil.UpperHex(enc1) + hexutil.UpperHex(enc2)

	crc := crc32OfString(p48)
	// The big-endian CRC fills the first half of the block; padBlock
	// appends four 0x04 bytes after it.
	crcBlock := padBlock(be32(crc), blowfish.BlockSize)
	encCRC := make([]byte, blowfish.BlockSize)
	cipher.EncryptBlock(encCRC, crcBlock)

	return p48 + hexutil.UpperHex(encCRC), nil
}

// ValidateCellPermit checks cperm's length, hex domain, embedded CRC and
// expiry against hw6 (§4.E). A nil return means the permit is valid and
// current. A non-nil *S63Error with Code Expired or NearExpiry is an
// advisory: the permit is still structurally valid and its keys may still
// be extracted. Any other error is a hard validation failure.
func ValidateCellPermit(cperm string, hw6 []byte) error {
	if len(cperm) != cellPermLen {
		return newErr(BadFormat, "", nil)
	}
	if !hexutil.IsHex(cperm[8:64]) {
		return newErr(BadFormat, "non-hex body", nil)
	}

	cipher, err := blowfish.NewCipher(hw6)
	if err != nil {
		return newErr(BadFormat, "HW_ID6", err)
	}

	encCRC, err := hexutil.DecodeHex(cperm[48:64])
	if err != nil {
		return newErr(BadFormat, "", err)
	}
	plain := make([]byte, blowfish.BlockSize)
	cipher.DecryptBlock(plain, encCRC)
	// CreateCellPermit pads the big-endian CRC on the right before
	// encrypting, so the CRC occupies the first half of the decrypted block.
	embedded := binary.BigEndian.Uint32(plain[0:4])

	calc := crc32OfString(cperm[0:48])
	if embedded != calc {
		return newErr(CrcInvalid, cperm[0:cellNameLen], nil)
	}

	expiry, err := hexutil.ParseYYYYMMDD(cperm[8:16])
	if err != nil {
		return newErr(BadFormat, "expiry date", err)
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case expiry.Before(today):
		return newErr(Expired, cperm[0:cellNameLen], nil)
	case expiry.Sub(today) <= nearExpiryWindow:
		return newErr(NearExpiry, cperm[0:cellNameLen], nil)
	default:
		return nil
	}
}

// ExtractCellKeys validates cperm against hw6 and, on success (including
// an advisory), returns CK1 and CK2. The returned error is the same
// nil/advisory/hard-failure shape as ValidateCellPermit.
func ExtractCellKeys(cperm string, hw6 []byte) (ck1, ck2 []byte, err error) {
	verr := ValidateCellPermit(cperm, hw6)
	if verr != nil && !IsAdvisory(verr) {
		return nil, nil, verr
	}

	cipher, cerr := blowfish.NewCipher(hw6)
	if cerr != nil {
		return nil, nil, newErr(BadFormat, "HW_ID6", cerr)
	}

	enc1, e1 := hexutil.DecodeHex(cperm[16:32])
	enc2, e2 := hexutil.DecodeHex(cperm[32:48])
	if e1 != nil || e2 != nil {
		return nil, nil, newErr(BadFormat, "", nil)
	}
	p1 := make([]byte, blowfish.BlockSize)
	p2 := make([]byte, blowfish.BlockSize)
	cipher.DecryptBlock(p1, enc1)
	cipher.DecryptBlock(p2, enc2)

	ck1 = append([]byte(nil), p1[:cellKeySize]...)
	ck2 = append([]byte(nil), p2[:cellKeySize]...)
	return ck1, ck2, verr
}

// EncryptCell ECB-encrypts buf under key with no padding — the inverse of
// DecryptCell, used for test-fixture generation (§12 supplemented
// features). len(buf) must be a positive multiple of 8.
func EncryptCell(buf, key []byte) ([]byte, error) {
	cipher, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, newErr(InvalidFormat, "key", err)
	}
	out := append([]byte(nil), buf...)
	if err := cipher.EncryptECB(out); err != nil {
		return nil, newErr(BadLength, "", err)
	}
	return out, nil
}

const zipLocalHeaderSignatureLE = 0x04034b50

// DecryptCell decrypts buf (a whole encrypted cell file) by trying ck1
// then ck2, accepting whichever key makes the first block decrypt to a
// ZIP local-file-header signature (§4.E).
func DecryptCell(buf, ck1, ck2 []byte) ([]byte, error) {
	if len(buf) == 0 || len(buf)%blowfish.BlockSize != 0 {
		return nil, newErr(BadLength, "", nil)
	}

	for _, key := range [][]byte{ck1, ck2} {
		cipher, err := blowfish.NewCipher(key)
		if err != nil {
			continue
		}
		probe := make([]byte, blowfish.BlockSize)
		cipher.DecryptBlock(probe, buf[:blowfish.BlockSize])
		if binary.LittleEndian.Uint32(probe[0:4]) != zipLocalHeaderSignatureLE {
			continue
		}
		out := append([]byte(nil), buf...)
		if err := cipher.DecryptECB(out); err != nil {
			return nil, newErr(BadLength, "", err)
		}
		return out, nil
	}

	return nil, newErr(KeyInvalid, "", nil)
}
