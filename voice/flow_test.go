package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptInitialVoice(t *testing.T) {
	f := NewFlow(Tony)
	id, ok := f.Pending()
	require.True(t, ok)
	assert.Equal(t, Tony, id)

	require.NoError(t, f.ShowPreview(Tony, "Listen. Here's the deal."))
	sel, err := f.Accept()
	require.NoError(t, err)
	assert.Equal(t, Tony, sel.Voice)
	assert.Equal(t, "Listen. Here's the deal.", sel.PreviewText)
	assert.Equal(t, PhaseConfirmed, f.Phase())
}

func TestAlternativesExcludeTriedVoices(t *testing.T) {
	f := NewFlow(Clara)
	require.NoError(t, f.ShowPreview(Clara, "c"))
	require.NoError(t, f.Reject())
	assert.Equal(t, []ID{Tony, Marcus}, f.Alternatives())

	_, err := f.Choose(Clara)
	assert.ErrorIs(t, err, ErrNotOffered)
}

func TestRejectAllThenForcedChoiceTerminates(t *testing.T) {
	f := NewFlow(Tony)
	previews := map[ID]string{Tony: "t", Clara: "c", Marcus: "m"}

	require.NoError(t, f.ShowPreview(Tony, previews[Tony]))
	require.NoError(t, f.Reject())

	for _, next := range []ID{Clara, Marcus} {
		confirmed, err := f.Choose(next)
		require.NoError(t, err)
		assert.False(t, confirmed)
		require.NoError(t, f.ShowPreview(next, previews[next]))
		require.NoError(t, f.Reject())
	}

	assert.True(t, f.Forced())
	assert.Equal(t, All, f.Alternatives(), "all voices are offered again")

	confirmed, err := f.Choose(Marcus)
	require.NoError(t, err)
	assert.True(t, confirmed, "the forced choice must end the flow")

	sel, err := f.Selection()
	require.NoError(t, err)
	assert.Equal(t, Marcus, sel.Voice)
	assert.Equal(t, "m", sel.PreviewText)
	assert.Len(t, sel.Previews, 3)
	assert.Equal(t, []ID{Tony, Clara, Marcus}, f.State().Tried)
}

func TestNoInitialVoiceStartsWithChoice(t *testing.T) {
	f := NewFlow("")
	assert.Equal(t, PhaseChoosing, f.Phase())
	assert.Equal(t, All, f.Alternatives())
	_, ok := f.Pending()
	assert.False(t, ok)
}

func TestPhaseGuards(t *testing.T) {
	f := NewFlow(Tony)
	_, err := f.Accept()
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, f.Reject(), ErrWrongPhase)
	assert.ErrorIs(t, f.ShowPreview(Clara, "x"), ErrNotOffered)

	_, err = f.Choose(Clara)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestRestoreRoundTrip(t *testing.T) {
	f := NewFlow(Tony)
	require.NoError(t, f.ShowPreview(Tony, "t"))
	require.NoError(t, f.Reject())

	restored, err := Restore(f.State())
	require.NoError(t, err)
	assert.Equal(t, f.State(), restored.State())
	assert.Equal(t, []ID{Clara, Marcus}, restored.Alternatives())

	_, err = Restore(State{Phase: "bogus"})
	assert.Error(t, err)
}
