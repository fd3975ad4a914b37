package s63

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pavelpasha/s63lib/pkg/zipfile"
)

// Client holds a single data client's issued identity (HW_ID, M_KEY,
// M_ID) and its installed Cell Permits, keyed by CELLNAME (§4.F). It is
// not safe for concurrent use; callers serializing permit installation
// and DecryptAndUnzip must provide their own mutual exclusion, exactly as
// the teacher's card session types expect a single owning goroutine.
type Client struct {
	HWID string
	MKey string
	MID  string

	hw6     []byte
	permits map[string]string
}

// NewClient builds a Client for the given issued identity.
func NewClient(hwID, mKey, mID string) (*Client, error) {
	c := &Client{MKey: mKey, MID: mID, permits: make(map[string]string)}
	if err := c.SetHwId(hwID); err != nil {
		return nil, err
	}
	return c, nil
}

// SetHwId installs a new HW_ID and recomputes the derived HW_ID6 key
// (§4.F).
func (c *Client) SetHwId(hwID string) error {
	if len(hwID) != hwIDSize {
		return newErr(InvalidFormat, fmt.Sprintf("HW_ID length %d", len(hwID)), nil)
	}
	c.HWID = hwID
	c.hw6 = hw6FromHWID([]byte(hwID))
	return nil
}

// UserPermit returns this client's 28-character User Permit.
func (c *Client) UserPermit() (string, error) {
	return CreateUserPermit(c.MKey, c.HWID, c.MID)
}

// InstallCellPermit validates cperm against this client's HW_ID6 and, if
// valid (including advisory), stores it keyed by its CELLNAME. The return
// value follows ValidateCellPermit's nil/advisory/hard-failure shape.
func (c *Client) InstallCellPermit(cperm string) error {
	err := ValidateCellPermit(cperm, c.hw6)
	if err != nil && !IsAdvisory(err) {
		return err
	}
	c.permits[cperm[:cellNameLen]] = cperm
	return err
}

// ImportPermitFile opens path and imports every Cell Permit line found
// after the ":ENC" marker (§4.E).
func (c *Client) ImportPermitFile(path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, newErr(Io, path, err)
	}
	defer f.Close()

	accepted, result, err := ImportPermitFile(f, c.hw6)
	if err != nil {
		return result, newErr(BadFormat, path, err)
	}
	for name, perm := range accepted {
		c.permits[name] = perm
	}
	return result, nil
}

// cellNameFromPath derives CELLNAME from the last 12 characters of path's
// base name: the 8 characters ending 4 characters before the end, i.e.
// immediately before the ".xxx" update extension (§4.F).
func cellNameFromPath(path string) (string, error) {
	base := filepath.Base(path)
	if len(base) < 12 {
		return "", newErr(InvalidFormat, path, nil)
	}
	last12 := base[len(base)-12:]
	return last12[:cellNameLen], nil
}

// DecryptAndUnzip decrypts the cell at cellPath using this client's
// installed permit for its CELLNAME, unpacks the single ZIP entry inside,
// and writes the result to outPath (§4.F). A returned advisory
// (Expired/NearExpiry) means the file was still written successfully.
func (c *Client) DecryptAndUnzip(cellPath, outPath string) error {
	cellname, err := cellNameFromPath(cellPath)
	if err != nil {
		return err
	}

	cperm, ok := c.permits[cellname]
	if !ok {
		return newErr(NoPermit, cellname, nil)
	}

	ck1, ck2, advisory := ExtractCellKeys(cperm, c.hw6)
	if advisory != nil && !IsAdvisory(advisory) {
		return advisory
	}

	encrypted, err := os.ReadFile(cellPath)
	if err != nil {
		return newErr(Io, cellPath, err)
	}

	decrypted, err := DecryptCell(encrypted, ck1, ck2)
	if err != nil {
		return err
	}

	_, payload, err := zipfile.Unpack(decrypted, 0)
	if err != nil {
		return zipErr(cellPath, err)
	}

	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		os.Remove(outPath)
		return newErr(Io, outPath, err)
	}

	return advisory
}
