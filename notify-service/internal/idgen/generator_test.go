package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerators(t *testing.T) {
	kinds := []string{"uuid", "ulid", "ksuid", "nanoid", "cuid2", ""}

	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			g, err := New(Config{Kind: kind})
			require.NoError(t, err)

			seen := make(map[string]struct{})
			for i := 0; i < 50; i++ {
				id, err := g.Generate()
				require.NoError(t, err)
				ok, reason := g.Validate(id)
				assert.True(t, ok, reason)
				seen[id] = struct{}{}
			}
			assert.Len(t, seen, 50)

			ok, _ := g.Validate("!!")
			assert.False(t, ok)
		})
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Config{Kind: "snowflake"})
	assert.Error(t, err)
}

func TestWithPrefix(t *testing.T) {
	base, err := New(Config{Kind: "uuid"})
	require.NoError(t, err)
	g := WithPrefix("thr_", base)

	id, err := g.Generate()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "thr_"))

	ok, _ := g.Validate(id)
	assert.True(t, ok)

	ok, reason := g.Validate(strings.TrimPrefix(id, "thr_"))
	assert.False(t, ok)
	assert.Contains(t, reason, "thr_")
}

func TestNanoIDCustomSize(t *testing.T) {
	g, err := New(Config{Kind: "nanoid", NanoIDSize: 10, NanoIDAlphabet: "abc"})
	require.NoError(t, err)

	id, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, id, 10)
	assert.Empty(t, strings.Trim(id, "abc"))
}
