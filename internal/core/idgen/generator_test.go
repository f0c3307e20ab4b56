package idgen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuestHostnameGenerator_Format(t *testing.T) {
	gen := NewGuestHostnameGenerator()
	re := regexp.MustCompile(`^guest_[0-9a-f]{8}$`)

	for i := 0; i < 100; i++ {
		assert.Regexp(t, re, gen.Generate())
	}
}

func TestGuestHostnameGenerator_NeverLooksLikeHost(t *testing.T) {
	gen := NewGuestHostnameGenerator()
	for i := 0; i < 1000; i++ {
		assert.NotContains(t, strings.ToLower(gen.Generate()), "host")
	}
}

func TestUUIDGenerator_FullLength(t *testing.T) {
	gen := NewUUIDGenerator("inst-", 0)
	id := gen.Generate()
	assert.True(t, strings.HasPrefix(id, "inst-"))
	assert.Len(t, id, len("inst-")+36)
}

func TestUUIDGenerator_Unique(t *testing.T) {
	gen := NewUUIDGenerator("", 12)
	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		id := gen.Generate()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestFunc(t *testing.T) {
	var g Generator = Func(func() string { return "guest_fixed" })
	assert.Equal(t, "guest_fixed", g.Generate())
}
