// Package zipfile implements the minimal single-entry ZIP32 codec S-63
// cells use: one DEFLATE or STORE member per archive, with the
// sizes-unknown fallback that consults the End-Of-Central-Directory
// record when the local header doesn't carry real sizes. Grounded on the
// original's SimpleZip and generalized to a pack/unpack pair using
// compress/flate for the DEFLATE payload (spec's external collaborator).
package zipfile

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"
)

const (
	localHeaderSignature = 0x04034b50
	centralDirSignature  = 0x02014b50
	eocdSignature        = 0x06054b50

	localHeaderSize = 30
	centralDirFixed = 46
	eocdFixed       = 22

	methodStore   = 0
	methodDeflate = 8

	gpBitSizesUnknown = 0x0008

	maxEOCDScan = 65557

	// DefaultMaxSize bounds the allocation Unpack will make for the
	// declared uncompressed size, guarding against hostile headers (§5).
	DefaultMaxSize = 256 << 20
)

// UnsupportedMethod is returned when a member uses a compression method
// other than STORE or DEFLATE.
type UnsupportedMethod struct {
	Method uint16
}

func (e *UnsupportedMethod) Error() string {
	return fmt.Sprintf("zipfile: unsupported compression method %d", e.Method)
}

// BadSignature is returned when a required signature doesn't match.
type BadSignature struct {
	Where string
	Got   uint32
}

func (e *BadSignature) Error() string {
	return fmt.Sprintf("zipfile: bad %s signature %#08x", e.Where, e.Got)
}

// CrcMismatch is returned when the inflated/copied payload's CRC-32
// doesn't match the one recorded in the archive.
type CrcMismatch struct {
	Want, Got uint32
}

func (e *CrcMismatch) Error() string {
	return fmt.Sprintf("zipfile: crc mismatch: want %#08x got %#08x", e.Want, e.Got)
}

// TooLarge is returned when the declared uncompressed size exceeds the
// configured maximum.
type TooLarge struct {
	Declared, Max int64
}

func (e *TooLarge) Error() string {
	return fmt.Sprintf("zipfile: declared size %d exceeds maximum %d", e.Declared, e.Max)
}

// Unpack extracts the single member of buf, returning its filename and
// decompressed payload. maxSize bounds the uncompressed-size allocation;
// zero selects DefaultMaxSize (§5).
func Unpack(buf []byte, maxSize int64) (filename string, data []byte, err error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(buf) < localHeaderSize {
		return "", nil, fmt.Errorf("zipfile: buffer too short for a local header (%d bytes)", len(buf))
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != localHeaderSignature {
		return "", nil, &BadSignature{Where: "local header", Got: sig}
	}

	gpFlag := binary.LittleEndian.Uint16(buf[6:8])
	method := binary.LittleEndian.Uint16(buf[8:10])
	headerCRC := binary.LittleEndian.Uint32(buf[14:18])
	compSize := binary.LittleEndian.Uint32(buf[18:22])
	uncompSize := binary.LittleEndian.Uint32(buf[22:26])
	nameLen := binary.LittleEndian.Uint16(buf[26:28])
	extraLen := binary.LittleEndian.Uint16(buf[28:30])

	if method != methodStore && method != methodDeflate {
		return "", nil, &UnsupportedMethod{Method: method}
	}

	dataStart := localHeaderSize + int(nameLen) + int(extraLen)
	if dataStart > len(buf) {
		return "", nil, fmt.Errorf("zipfile: local header fields overrun buffer")
	}
	name := string(buf[localHeaderSize : localHeaderSize+int(nameLen)])

	sizesUnknown := gpFlag&gpBitSizesUnknown != 0 || compSize == 0
	if sizesUnknown {
		crc, cSize, uSize, err := readFromCentralDirectory(buf, name)
		if err != nil {
			return "", nil, err
		}
		headerCRC, compSize, uncompSize = crc, cSize, uSize
	}

	if int64(uncompSize) > maxSize {
		return "", nil, &TooLarge{Declared: int64(uncompSize), Max: maxSize}
	}

	dataEnd := dataStart + int(compSize)
	if dataEnd > len(buf) {
		return "", nil, fmt.Errorf("zipfile: member data overruns buffer")
	}
	compressed := buf[dataStart:dataEnd]

	var payload []byte
	switch method {
	case methodStore:
		payload = append([]byte(nil), compressed...)
	case methodDeflate:
		fr := flate.NewReader(bytes.NewReader(compressed))
		defer fr.Close()
		payload = make([]byte, 0, uncompSize)
		buf2 := make([]byte, 32*1024)
		for {
			n, rerr := fr.Read(buf2)
			if n > 0 {
				payload = append(payload, buf2[:n]...)
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return "", nil, fmt.Errorf("zipfile: inflate: %w", rerr)
			}
		}
	}

	if uint32(len(payload)) != uncompSize {
		return "", nil, fmt.Errorf("zipfile: decompressed %d bytes, expected %d", len(payload), uncompSize)
	}
	if got := crc32.ChecksumIEEE(payload); got != headerCRC {
		return "", nil, &CrcMismatch{Want: headerCRC, Got: got}
	}

	return name, payload, nil
}

// readFromCentralDirectory scans backward from the end of buf for the
// EOCD record, then reads the single Central Directory Record it points
// to, returning the true crc32/compressed/uncompressed sizes (§4.D step
// 3).
func readFromCentralDirectory(buf []byte, name string) (crc, compSize, uncompSize uint32, err error) {
	scanStart := len(buf) - eocdFixed
	scanLimit := len(buf) - maxEOCDScan
	if scanLimit < 0 {
		scanLimit = 0
	}

	eocdOff := -1
	for i := scanStart; i >= scanLimit; i-- {
		if i+4 > len(buf) {
			continue
		}
		if binary.LittleEndian.Uint32(buf[i:i+4]) == eocdSignature {
			eocdOff = i
			break
		}
	}
	if eocdOff < 0 {
		return 0, 0, 0, fmt.Errorf("zipfile: EOCD record not found within %d bytes of the end", maxEOCDScan)
	}

	cdOffset := binary.LittleEndian.Uint32(buf[eocdOff+16 : eocdOff+20])
	if int(cdOffset)+centralDirFixed > len(buf) {
		return 0, 0, 0, fmt.Errorf("zipfile: central directory offset out of range")
	}

	cd := buf[cdOffset:]
	if sig := binary.LittleEndian.Uint32(cd[0:4]); sig != centralDirSignature {
		return 0, 0, 0, &BadSignature{Where: "central directory", Got: sig}
	}

	crc = binary.LittleEndian.Uint32(cd[16:20])
	compSize = binary.LittleEndian.Uint32(cd[20:24])
	uncompSize = binary.LittleEndian.Uint32(cd[24:28])
	return crc, compSize, uncompSize, nil
}

// Pack builds a minimal single-entry ZIP32 archive containing filename
// and the DEFLATE-compressed form of data (§4.D "Pack").
func Pack(filename string, data []byte) ([]byte, error) {
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("zipfile: deflate writer: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("zipfile: deflate write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("zipfile: deflate close: %w", err)
	}

	crc := crc32.ChecksumIEEE(data)
	dosTime, dosDate := dosDateTime(time.Now())
	nameBytes := []byte(filename)

	var out bytes.Buffer

	// Local File Header.
	writeUint32(&out, localHeaderSignature)
	writeUint16(&out, 20) // version needed to extract
	writeUint16(&out, 0)  // GP flag
	writeUint16(&out, methodDeflate)
	writeUint16(&out, dosTime)
	writeUint16(&out, dosDate)
	writeUint32(&out, crc)
	writeUint32(&out, uint32(compressed.Len()))
	writeUint32(&out, uint32(len(data)))
	writeUint16(&out, uint16(len(nameBytes)))
	writeUint16(&out, 0) // extra length
	out.Write(nameBytes)
	out.Write(compressed.Bytes())

	cdOffset := out.Len()

	// Central Directory Record.
	writeUint32(&out, centralDirSignature)
	writeUint16(&out, 20) // version made by
	writeUint16(&out, 20) // version needed to extract
	writeUint16(&out, 0)  // GP flag
	writeUint16(&out, methodDeflate)
	writeUint16(&out, dosTime)
	writeUint16(&out, dosDate)
	writeUint32(&out, crc)
	writeUint32(&out, uint32(compressed.Len()))
	writeUint32(&out, uint32(len(data)))
	writeUint16(&out, uint16(len(nameBytes))) // filename length
	writeUint16(&out, 0)                      // extra length
	writeUint16(&out, 0)                      // comment length
	writeUint16(&out, 0)                      // disk number start
	writeUint16(&out, 0)                      // internal attributes
	writeUint32(&out, 0)                      // external attributes
	writeUint32(&out, 0)                      // relative offset of local header
	out.Write(nameBytes)

	cdSize := out.Len() - cdOffset

	// End Of Central Directory.
	writeUint32(&out, eocdSignature)
	writeUint16(&out, 0) // disk number
	writeUint16(&out, 0) // disk with CD start
	writeUint16(&out, 1) // entries on this disk
	writeUint16(&out, 1) // total entries
	writeUint32(&out, uint32(cdSize))
	writeUint32(&out, uint32(cdOffset))
	writeUint16(&out, 0) // comment length

	return out.Bytes(), nil
}

func writeUint16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

// dosDateTime converts t to the packed MS-DOS time/date fields ZIP
// headers use.
func dosDateTime(t time.Time) (dosTime, dosDate uint16) {
	dosTime = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	year := t.Year() - 1980
	if year < 0 {
		year = 0
	}
	dosDate = uint16(year)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	return dosTime, dosDate
}
