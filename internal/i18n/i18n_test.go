package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want string
	}{
		"empty":          {in: "", want: "en"},
		"english":        {in: "EN", want: "en"},
		"posix locale":   {in: "zh_CN.UTF-8", want: "zh-CN"},
		"lower tag":      {in: "zh-cn", want: "zh-CN"},
		"bare chinese":   {in: "zh", want: "zh-CN"},
		"unsupported":    {in: "fr_FR", want: "en"},
		"with modifier":  {in: "en_US@euro", want: "en"},
		"traditional zh": {in: "zh_TW", want: "zh-CN"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestDetectSystem(t *testing.T) {
	t.Parallel()

	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	assert.Equal(t, "zh-CN", DetectSystem(env(map[string]string{"LANG": "zh_CN.UTF-8"})))
	assert.Equal(t, "en", DetectSystem(env(map[string]string{"LC_ALL": "C", "LANG": "en_US.UTF-8"})))
	assert.Equal(t, "zh-CN", DetectSystem(env(map[string]string{"LC_MESSAGES": "zh_CN", "LANG": "en_US"})))
	assert.Equal(t, "en", DetectSystem(env(nil)))
}

func TestCatalog_T(t *testing.T) {
	t.Parallel()

	en, err := New("en")
	require.NoError(t, err)
	zh := MustNew("zh_CN.UTF-8")

	assert.Equal(t, "en", en.Language())
	assert.Equal(t, "zh-CN", zh.Language())

	assert.Equal(t, "default passed in 2s", en.T("run.passed", "name", "default", "duration", "2s"))
	assert.Equal(t, "default 通过，耗时 2s", zh.T("run.passed", "name", "default", "duration", "2s"))
	assert.Equal(t, "PASSED", en.T("status.Passed"))
	assert.Equal(t, "Name", en.T("report.column.name"))
	assert.Equal(t, "no.such.key", zh.T("no.such.key"))
	assert.True(t, zh.Has("report.totals"))
	assert.False(t, zh.Has("report"))
}

func TestCatalogs_SameKeys(t *testing.T) {
	t.Parallel()

	all, err := loadCatalogs()
	require.NoError(t, err)
	require.Contains(t, all, Default)

	for lang, messages := range all {
		for key := range all[Default] {
			assert.Contains(t, messages, key, "%s is missing %s", lang, key)
		}
	}
	assert.Equal(t, []string{"en", "zh-CN"}, Supported())
}
