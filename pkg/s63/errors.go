package s63

import (
	"fmt"

	"github.com/pavelpasha/s63lib/pkg/zipfile"
)

// ErrorCode is a stable, comparable error kind for the S-63 permit and
// cell-decrypt pipeline. Mirrors the teacher's *SWError code shape
// (pkg/ntag424/errors.go) but keyed to the S-63 error taxonomy instead of
// ISO 7816 status words.
type ErrorCode int

const (
	_ ErrorCode = iota
	InvalidFormat
	InvalidDate
	InvalidUserpermit
	BadFormat
	CrcInvalid
	CrcMismatch
	KeyInvalid
	BadLength
	BadPadding
	NoPermit
	ZipSignature
	ZipUnsupported
	ZipTooLarge
	Io

	// Advisories: non-fatal, carried alongside a successful result.
	Expired
	NearExpiry
)

func (c ErrorCode) String() string {
	switch c {
	case InvalidFormat:
		return "InvalidFormat"
	case InvalidDate:
		return "InvalidDate"
	case InvalidUserpermit:
		return "InvalidUserpermit"
	case BadFormat:
		return "BadFormat"
	case CrcInvalid:
		return "CrcInvalid"
	case CrcMismatch:
		return "CrcMismatch"
	case KeyInvalid:
		return "KeyInvalid"
	case BadLength:
		return "BadLength"
	case BadPadding:
		return "BadPadding"
	case NoPermit:
		return "NoPermit"
	case ZipSignature:
		return "ZipSignature"
	case ZipUnsupported:
		return "ZipUnsupported"
	case ZipTooLarge:
		return "ZipTooLarge"
	case Io:
		return "Io"
	case Expired:
		return "Expired"
	case NearExpiry:
		return "NearExpiry"
	default:
		return "Unknown"
	}
}

// sseByCode maps the error kinds that carry a stable SSE diagnostic number
// under §6. Kinds not present here carry SSE 0 (no diagnostic number).
var sseByCode = map[ErrorCode]int{
	BadFormat:         12,
	CrcInvalid:        13,
	Expired:           15,
	InvalidUserpermit: 17,
	NearExpiry:        20,
	KeyInvalid:        21,
	NoPermit:          21,
}

// S63Error is the error type returned by every validation and decrypt
// operation in this package. SSE is the Scheme Security Event diagnostic
// number from §6, or 0 when the kind has none. Item names the affected
// cell name or permit line number, when known.
type S63Error struct {
	Code ErrorCode
	SSE  int
	Item string
	Err  error // wrapped underlying cause, if any
}

func newErr(code ErrorCode, item string, wrapped error) *S63Error {
	return &S63Error{Code: code, SSE: sseByCode[code], Item: item, Err: wrapped}
}

func (e *S63Error) Error() string {
	msg := e.Code.String()
	if e.SSE != 0 {
		msg = fmt.Sprintf("%s (SSE %d)", msg, e.SSE)
	}
	if e.Item != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Item)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *S63Error) Unwrap() error { return e.Err }

// IsCode reports whether err is (or wraps) an *S63Error whose Code is
// code. ErrorCode is not itself an error, so errors.Is does not apply.
func IsCode(err error, code ErrorCode) bool {
	se, ok := asS63Error(err)
	return ok && se.Code == code
}

func asS63Error(err error) (*S63Error, bool) {
	for err != nil {
		if se, ok := err.(*S63Error); ok {
			return se, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsExpired reports whether err is (or wraps) the Expired advisory.
func IsExpired(err error) bool { return IsCode(err, Expired) }

// IsNearExpiry reports whether err is (or wraps) the NearExpiry advisory.
func IsNearExpiry(err error) bool { return IsCode(err, NearExpiry) }

// IsAdvisory reports whether err is one of the non-fatal advisories
// (Expired, NearExpiry) rather than a hard validation failure.
func IsAdvisory(err error) bool {
	se, ok := asS63Error(err)
	return ok && (se.Code == Expired || se.Code == NearExpiry)
}

// zipErr maps a pkg/zipfile error into the S-63 taxonomy so callers of
// DecryptAndUnzip see the same *S63Error shape regardless of which layer
// of the pipeline failed (§7).
func zipErr(item string, err error) error {
	switch e := err.(type) {
	case *zipfile.BadSignature:
		return newErr(ZipSignature, item, e)
	case *zipfile.UnsupportedMethod:
		return newErr(ZipUnsupported, item, e)
	case *zipfile.TooLarge:
		return newErr(ZipTooLarge, item, e)
	case *zipfile.CrcMismatch:
		return newErr(CrcMismatch, item, e)
	default:
		return newErr(Io, item, err)
	}
}
