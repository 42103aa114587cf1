package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, id := range []string{"mt1280800a", "motivo,mt1280800a", " mt1280800a "} {
		d, err := Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, "mt1280800a", d.ID)
	}

	_, err := Lookup("mt9999")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestVariantsSorted(t *testing.T) {
	var ids []string
	for _, d := range Variants() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"mt1280800a", "mt1280800b"}, ids)
}

func TestBuiltinDescriptors(t *testing.T) {
	for _, d := range Variants() {
		t.Run(d.ID, func(t *testing.T) {
			assert.Equal(t, 4, d.Lanes)
			assert.Equal(t, 8, d.BPC)
			assert.Equal(t, FormatRGB888, d.Format)
			assert.Equal(t, 107, d.WidthMM)
			assert.Equal(t, 172, d.HeightMM)
			assert.True(t, d.Flags.Has(FlagVideo|FlagVideoSyncPulse|FlagLPM))
			assert.Equal(t, "motivo,"+d.ID, d.Compatible)

			s := d.Script
			require.NotEmpty(t, s)
			assert.True(t, s[len(s)-1].IsSentinel(), "script must end with the sentinel")
			assert.Equal(t, len(s)-1, s.Len(), "no sentinel before the end")

			for i, e := range s[:s.Len()] {
				if e.Kind == KindWrite && e.Opcode() == CmdSwitchPage {
					assert.Len(t, e.Data, 4, "entry %d", i)
					assert.Equal(t, []byte{0x98, 0x81}, e.Data[1:3], "entry %d", i)
				}
			}

			// The last page select before sleep-out returns to the standard page.
			last := -1
			for i, e := range s[:s.Len()] {
				if e.Kind == KindWrite && e.Opcode() == CmdSwitchPage {
					last = i
				}
			}
			require.NotEqual(t, -1, last)
			assert.Equal(t, DefaultPage, s[last].Data[3])

			st := d.Settings()
			assert.Equal(t, d.Mode, st.Mode)
			assert.Equal(t, d.Lanes, st.Lanes)
		})
	}

	b, _ := Lookup("mt1280800b")
	assert.True(t, b.Flags.Has(FlagVideoBurst))
	a, _ := Lookup("mt1280800a")
	assert.False(t, a.Flags.Has(FlagVideoBurst))
}
