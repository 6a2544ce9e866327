package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	r, err := Parse("+ logs/**/*")
	require.NoError(t, err)
	assert.Equal(t, Include, r.Action)
	assert.Equal(t, "logs/**/*", r.Pattern)
	assert.True(t, r.Anchored)
	assert.False(t, r.DirOnly)

	r, err = Parse("+ */")
	require.NoError(t, err)
	assert.True(t, r.DirOnly)
	assert.False(t, r.Anchored)
	assert.Equal(t, "+ */", r.String())

	r, err = Parse("- /build")
	require.NoError(t, err)
	assert.Equal(t, Exclude, r.Action)
	assert.Equal(t, "build", r.Pattern)
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "+", "logs/**", "* logs", "+ /", "+ [abc"} {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestDefault_IncludesOnlyLogFiles(t *testing.T) {
	rules := Default()
	cases := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"logs/a.txt", false, true},
		{"logs/sub/b.txt", false, true},
		{"logs/sub/deeper/c.log", false, true},
		{"logs/.hidden", false, true},
		{"logs", false, false},
		{"other/c.txt", false, false},
		{"a/logs/x.txt", false, false},
		{"logs.txt", false, false},
		{"logs", true, true},
		{"other", true, true},
		{"logs/sub", true, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, rules.Included(c.rel, c.isDir), "%s dir=%v", c.rel, c.isDir)
	}
}

func TestIncluded_FirstMatchWins(t *testing.T) {
	rules, err := ParseAll([]string{"- logs/secret/**", "+ logs/**/*", "+ */", "- *"})
	require.NoError(t, err)

	assert.False(t, rules.Included("logs/secret/key.pem", false))
	assert.True(t, rules.Included("logs/public.txt", false))
	assert.Equal(t, []string{"- logs/secret/**", "+ logs/**/*", "+ */", "- *"}, rules.Strings())
}

func TestIncluded_DefaultExclude(t *testing.T) {
	var rules Rules
	assert.False(t, rules.Included("logs/a.txt", false))
}
