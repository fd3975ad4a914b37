package s63

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpasha/s63lib/internal/hexutil"
)

func makeCellPermit(t *testing.T, hwID []byte, cellname string, years int) string {
	t.Helper()
	date := hexutil.FormatYYYYMMDD(time.Now().UTC().AddDate(years, 0, 0))
	cperm, err := CreateCellPermit(hwID, []byte{1, 2, 3, 4, 5}, []byte{6, 7, 8, 9, 10}, cellname, date)
	require.NoError(t, err)
	return cperm
}

func TestImportPermitFileInstallsValidLines(t *testing.T) {
	hwID := []byte("54321")
	good1 := makeCellPermit(t, hwID, "AAAA1111", 1)
	good2 := makeCellPermit(t, hwID, "BBBB2222", 1)

	file := strings.Join([]string{
		"S-63 PERMIT FILE",
		"some header text",
		":ENC",
		good1,
		good2,
		"",
	}, "\n")

	hw6 := hw6FromHWID(hwID)
	accepted, result, err := ImportPermitFile(strings.NewReader(file), hw6)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Installed)
	assert.Equal(t, 0, result.Skipped)
	assert.Contains(t, accepted, "AAAA1111")
	assert.Contains(t, accepted, "BBBB2222")
}

func TestImportPermitFileSkipsInvalidNonFirstLines(t *testing.T) {
	hwID := []byte("54321")
	good1 := makeCellPermit(t, hwID, "AAAA1111", 1)
	bad := strings.Repeat("Z", 64)
	good2 := makeCellPermit(t, hwID, "BBBB2222", 1)

	file := strings.Join([]string{":ENC", good1, bad, good2}, "\n")

	hw6 := hw6FromHWID(hwID)
	accepted, result, err := ImportPermitFile(strings.NewReader(file), hw6)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Installed)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Errors, 1)
	assert.Contains(t, accepted, "AAAA1111")
	assert.Contains(t, accepted, "BBBB2222")
}

func TestImportPermitFileAbortsOnMalformedFirstLine(t *testing.T) {
	bad := strings.Repeat("Z", 64)
	file := strings.Join([]string{":ENC", bad}, "\n")

	hw6 := hw6FromHWID([]byte("54321"))
	_, _, err := ImportPermitFile(strings.NewReader(file), hw6)
	assert.Error(t, err)
}

func TestImportPermitFileStopsAtShortLine(t *testing.T) {
	hwID := []byte("54321")
	good1 := makeCellPermit(t, hwID, "AAAA1111", 1)
	good2 := makeCellPermit(t, hwID, "BBBB2222", 1)

	file := strings.Join([]string{":ENC", good1, "short line", good2}, "\n")

	hw6 := hw6FromHWID(hwID)
	accepted, result, err := ImportPermitFile(strings.NewReader(file), hw6)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Installed)
	assert.Contains(t, accepted, "AAAA1111")
	assert.NotContains(t, accepted, "BBBB2222")
}

func TestImportPermitFileNoMarkerYieldsEmpty(t *testing.T) {
	hw6 := hw6FromHWID([]byte("54321"))
	accepted, result, err := ImportPermitFile(strings.NewReader("no marker here\njust text\n"), hw6)
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Equal(t, 0, result.Installed)
}
