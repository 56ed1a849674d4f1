package hostapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/memory"
)

func TestRstrinRewritesInteriorNULsToSpaces(t *testing.T) {
	mem := memory.New(memory.Config{Mode: memory.ModeRealMode})
	ptr := farptr.FarPtr{Segment: 0x1000, Offset: 0}
	original := []byte{'O', 'N', 'E', 0, 'T', 'W', 'O', 0, 0, 0}
	mem.SetArray(ptr, original)

	require.NoError(t, Rstrin(mem, ptr, uint16(len(original))))

	got := mem.GetArray(ptr, uint16(len(original)))
	require.Equal(t, []byte{'O', 'N', 'E', ' ', 'T', 'W', 'O', ' ', ' ', 0}, got)
}

func TestRstrinNoopOnZeroLength(t *testing.T) {
	mem := memory.New(memory.Config{Mode: memory.ModeRealMode})
	ptr := farptr.FarPtr{Segment: 0x1000, Offset: 0}
	require.NoError(t, Rstrin(mem, ptr, 0))
}
