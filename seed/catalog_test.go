package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSampleCatalog(t *testing.T) {
	c, err := LoadFile("catalog.yaml")
	require.NoError(t, err)

	assert.Len(t, c.ChestTypes, 3)
	assert.Len(t, c.Missions, 5)
	assert.Len(t, c.ShopItems, 3)
	require.Len(t, c.Bosses, 2)

	boss := c.Bosses[0]
	assert.Equal(t, "fissura", boss.Code)
	assert.Equal(t, 60, boss.Phases[1].HealthPct)
	assert.Equal(t, 2, boss.Reward.Gems)
	assert.Equal(t, [2]int{25, 60}, c.ChestTypes[1].XP)
}

func TestParseRejectsBadTemplates(t *testing.T) {
	cases := map[string]string{
		"inverted range": `
chest_types:
  - {code: x, xp: [10, 5]}`,
		"unknown kind": `
missions:
  - {code: m, kind: smoke, type: daily, target: 1}`,
		"phase order": `
bosses:
  - code: b
    max_health: 10
    phases: [{name: a, health_pct: 50}, {name: b, health_pct: 80}]`,
		"missing chest": `
bosses:
  - {code: b, max_health: 10, chest_type: ghost}`,
		"bad item type": `
shop_items:
  - {code: s, type: car, price_coins: 1}`,
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}
