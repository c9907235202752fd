package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdougb/gamehealth/internal/config"
)

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Module{ID: "roulette", Name: "Roulette"}))
	require.NoError(t, r.Register(Module{ID: "trivia"}))
	require.NoError(t, r.Register(Module{ID: "roulette", Name: "Roulette v2"}))

	modules := r.Modules()
	require.Len(t, modules, 2)
	assert.Equal(t, "roulette", modules[0].ID)
	assert.Equal(t, "Roulette v2", modules[0].Name)
	assert.Equal(t, "trivia", modules[1].Name, "name defaults to id")
	assert.Equal(t, 2, r.Len())

	assert.Error(t, r.Register(Module{}))
}

func TestRegistryFromSpecs(t *testing.T) {
	specs := []config.ModuleSpec{
		{
			ID:               "roulette",
			Name:             "Roulette",
			Settings:         map[string]string{"wheel": "european"},
			RequiredSettings: []string{"wheel"},
		},
		{
			ID:               "trivia",
			Settings:         map[string]string{},
			RequiredSettings: []string{"question_bank", "locale"},
			AdvisorySettings: []string{"timer"},
		},
		{ID: "karaoke", Disabled: true},
	}

	r, err := RegistryFromSpecs(specs)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	roulette, ok := r.Lookup("roulette")
	require.True(t, ok)
	require.NotNil(t, roulette.Validate)
	assert.NoError(t, roulette.Validate(context.Background()))
	assert.Empty(t, roulette.Checks)

	trivia, _ := r.Lookup("trivia")
	assert.EqualError(t, trivia.Validate(context.Background()), "missing settings: locale, question_bank")
	require.Len(t, trivia.Checks, 1)
	assert.True(t, trivia.Checks[0].Advisory)

	karaoke, _ := r.Lookup("karaoke")
	assert.True(t, karaoke.Disabled)
	assert.Nil(t, karaoke.Validate)
}
