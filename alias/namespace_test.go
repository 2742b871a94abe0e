package alias

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("suffixes repeated bases", func(t *testing.T) {
		t.Parallel()
		ns := New(false, 0)
		assert.Equal(t, "id", ns.Generate(Column, "id"))
		assert.Equal(t, "id_1", ns.Generate(Column, "id"))
		assert.Equal(t, "id_2", ns.Generate(Column, "id"))
		// Kinds are allocated independently.
		assert.Equal(t, "id", ns.Generate(Table, "id"))
	})

	t.Run("suffix never collides with a literal base", func(t *testing.T) {
		t.Parallel()
		ns := New(false, 0)
		assert.Equal(t, "a_1", ns.Generate(Column, "a_1"))
		assert.Equal(t, "a", ns.Generate(Column, "a"))
		assert.Equal(t, "a_2", ns.Generate(Column, "a"))
	})

	t.Run("sanitizes base names", func(t *testing.T) {
		t.Parallel()
		ns := New(false, 0)
		assert.Equal(t, "_total", ns.Generate(Column, "$total"))
		assert.Equal(t, "body_Post", ns.Generate(Column, "body@Post"))
		assert.Equal(t, "id_nam", ns.Generate(Column, "id#nam"))
	})

	t.Run("bounded length", func(t *testing.T) {
		t.Parallel()
		ns := New(false, 8)
		first := ns.Generate(Table, "organization_members")
		second := ns.Generate(Table, "organization_members")
		assert.Equal(t, "organiza", first)
		assert.Equal(t, "organi_1", second)
		assert.LessOrEqual(t, len(second), 8)
	})

	t.Run("deterministic per call order", func(t *testing.T) {
		t.Parallel()
		run := func() []string {
			ns := New(false, 0)
			var out []string
			for _, b := range []string{"user", "posts", "user", "id", "id"} {
				out = append(out, ns.Generate(Table, b))
			}
			return out
		}
		assert.Equal(t, run(), run())
	})
}

func TestGenerateMinify(t *testing.T) {
	t.Parallel()

	ns := New(true, 30)
	assert.True(t, ns.Minify())
	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		a := ns.Generate(Column, "email")
		require.False(t, seen[a], "alias %q repeated", a)
		seen[a] = true
		_, isReserved := reserved[a]
		require.False(t, isReserved, a)
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["zz"])
	assert.False(t, seen["as"])
	assert.False(t, seen["email"])

	// Independent sequence per kind.
	assert.Equal(t, "a", ns.Generate(Table, "users"))
}

func TestMnemonic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a", mnemonic(0))
	assert.Equal(t, "z", mnemonic(25))
	assert.Equal(t, "aa", mnemonic(26))
	assert.Equal(t, "az", mnemonic(51))
	assert.Equal(t, "ba", mnemonic(52))
	assert.Equal(t, "zz", mnemonic(701))
	assert.Equal(t, "aaa", mnemonic(702))
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"email":      "email",
		"naïve":      "naive",
		"Ångström":   "Angstrom",
		"2fa":        "_2fa",
		"first name": "first_name",
		"":           "_",
		"日本":         "__",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), in)
	}
	assert.False(t, strings.ContainsAny(Sanitize("a-b.c"), "-."))
}

func TestSanitizeConcurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	got := make([]string, 32)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = Sanitize("naïve Ångström")
		}()
	}
	wg.Wait()
	for _, s := range got {
		assert.Equal(t, "naive_Angstrom", s)
	}
}
