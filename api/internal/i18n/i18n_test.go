package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllLanguagesHaveEnglishKeys(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	en := c.Keys(English)
	require.NotEmpty(t, en)
	for _, l := range []Lang{Hindi, Bengali} {
		assert.ElementsMatch(t, en, c.Keys(l), "keys of %s", l)
	}
}

func TestT(t *testing.T) {
	c := Default()
	assert.Equal(t, "KisanSight", c.T(English, "title"))
	assert.Equal(t, "किसानसाइट", c.T(Hindi, "title"))
	assert.Equal(t, "রাজ্য নির্বাচন করুন", c.T(Bengali, "labels.state"))
	assert.Equal(t, "Select State", c.T("fr", "labels.state"), "unknown language falls back to English")
	assert.Equal(t, "no.such.key", c.T(Hindi, "no.such.key"))
	assert.Equal(t, "Clear Form", c.For(English).T("labels.reset"))
}

func TestTable_Nested(t *testing.T) {
	tbl, ok := Default().Table(Bengali)
	require.True(t, ok)
	nav, ok := tbl["nav"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "রোগ নির্ণয়", nav["disease"])

	_, ok = Default().Table("de")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	cases := map[string]Lang{"en": English, "hi-IN": Hindi, "bn": Bengali, "BN-in": Bengali}
	for in, want := range cases {
		got, ok := Parse(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "fr", "!!"} {
		_, ok := Parse(in)
		assert.False(t, ok, in)
	}
}

func TestMatch(t *testing.T) {
	assert.Equal(t, Hindi, Match("hi-IN,hi;q=0.9,en;q=0.8", English))
	assert.Equal(t, Bengali, Match("bn", English))
	assert.Equal(t, English, Match("en-GB", Hindi))
	assert.Equal(t, Hindi, Match("", Hindi))
	assert.Equal(t, Bengali, Match("zz;;;", Bengali))
}
