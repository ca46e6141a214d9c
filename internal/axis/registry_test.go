package axis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a11yscan/auditor/internal/models"
)

func TestNewDefaultRegistryRegistersAllTwelveAxes(t *testing.T) {
	r, err := NewDefaultRegistry("templates/prompts")
	require.NoError(t, err)
	require.Equal(t, models.TotalAxisCount, r.Len())

	for _, key := range models.AllAxes() {
		def, ok := r.Get(key)
		require.True(t, ok, "missing axis %s", key)
		require.NotEmpty(t, def.Name)
		require.Equal(t, "templates/prompts/"+string(key)+".txt", def.TemplatePath)
		require.NotNil(t, def.Slicer)
	}
}

func TestNewDefaultRegistryDefaultsTemplatesDir(t *testing.T) {
	r, err := NewDefaultRegistry("")
	require.NoError(t, err)
	def, ok := r.Get(models.AxisTextAlternatives)
	require.True(t, ok)
	require.Equal(t, "templates/prompts/1.1.txt", def.TemplatePath)
}

func TestRegisterRejectsDuplicateKey(t *testing.T) {
	r := New()
	def := Definition{Key: models.AxisTextAlternatives, Name: "x", Slicer: func(*models.BaseSnapshot) interface{} { return nil }}
	require.NoError(t, r.Register(def))
	require.Error(t, r.Register(def))
}

func TestRegisterRejectsNilSlicer(t *testing.T) {
	r := New()
	err := r.Register(Definition{Key: models.AxisTextAlternatives, Name: "x"})
	require.Error(t, err)
}

func TestKeysAreSortedForDeterministicDispatchOrder(t *testing.T) {
	r, err := NewDefaultRegistry("templates/prompts")
	require.NoError(t, err)
	keys := r.Keys()
	for i := 1; i < len(keys); i++ {
		require.Less(t, string(keys[i-1]), string(keys[i]))
	}
}
