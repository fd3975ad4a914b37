package s63

import "hash/crc32"

// crc32OfString is a thin wrapper over the standard CRC-32/ISO-HDLC
// polynomial (the same one ZIP uses; Go's crc32.IEEETable already
// implements it). Byte order of the result is the caller's concern — see
// be32 in permit.go and the big-endian embedding rule in §4.C.
func crc32OfString(s string) uint32 {
	return crc32.ChecksumIEEE([]byte(s))
}
