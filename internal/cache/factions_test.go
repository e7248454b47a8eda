package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supremacy-go/combat/pkg/core"
)

func TestFactionCache(t *testing.T) {
	c := NewFactionCache()

	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, "Unknown", c.Name(1))

	c.Set(core.FactionRef{ID: 1, Name: "Federation", ShortName: "FED", IsHuman: true})

	f, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "FED", f.ShortName)
	assert.Equal(t, "Federation", c.Name(1))

	c.Reset()
	_, ok = c.Get(1)
	assert.False(t, ok)
}
