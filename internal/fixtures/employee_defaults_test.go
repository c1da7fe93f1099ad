package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultProfiles(t *testing.T) {
	profiles := GetDefaultProfiles()

	ids := map[string]bool{}
	for _, p := range profiles {
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.OvertimeSlabs)
		for _, s := range p.OvertimeSlabs {
			assert.Positive(t, s.Width())
		}
	}

	assert.False(t, profiles[0].IsOvernightShift())
	assert.True(t, profiles[2].IsOvernightShift())
}
