package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/logging"
	"mammo-annotator/pkg/colorutil"
	"mammo-annotator/pkg/geometry"
)

func TestRegions_InsideBounds(t *testing.T) {
	bounds := geometry.Rect{Width: 480, Height: 600}
	regions := NewGenerator(1).Regions(bounds, 20)
	require.Len(t, regions, 20)

	for _, pts := range regions {
		require.GreaterOrEqual(t, len(pts), annotation.MinPoints)
		for _, p := range pts {
			assert.True(t, bounds.Contains(p), "point %v outside image", p)
		}
		assert.Greater(t, geometry.Area(pts), 0.0)
	}
}

func TestRegions_Deterministic(t *testing.T) {
	bounds := geometry.Rect{Width: 300, Height: 300}
	assert.Equal(t, NewGenerator(7).Regions(bounds, 3), NewGenerator(7).Regions(bounds, 3))
	assert.NotEqual(t, NewGenerator(7).Regions(bounds, 3), NewGenerator(8).Regions(bounds, 3))
}

func TestRegions_Degenerate(t *testing.T) {
	g := NewGenerator(1)
	assert.Nil(t, g.Regions(geometry.Rect{}, 3))
	assert.Nil(t, g.Regions(geometry.Rect{Width: 10, Height: 10}, 3))
	assert.Nil(t, g.Regions(geometry.Rect{Width: 100, Height: 100}, 0))
}

func TestPopulate(t *testing.T) {
	store := annotation.NewStore(colorutil.DefaultPalette(), logging.Discard())
	created, err := NewGenerator(3).Populate(store, geometry.Rect{Width: 400, Height: 400}, 3)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, []int{0, 1, 2}, []int{created[0].ColorIndex, created[1].ColorIndex, created[2].ColorIndex})
	assert.Equal(t, "Green 3", created[2].Name)
}
