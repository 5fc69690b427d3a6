// Package i18n holds the console and report message catalogs. Messages use
// named placeholders such as {name} that T fills from key/value arguments.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Default is the language used when none is configured or the configured one
// has no catalog.
const Default = "en"

//go:embed locales/*.yaml
var locales embed.FS

// Catalog resolves message keys for one language, falling back to English.
type Catalog struct {
	lang     string
	messages map[string]string
	fallback map[string]string
}

var (
	loadOnce sync.Once
	catalogs map[string]map[string]string
	loadErr  error
)

func loadCatalogs() (map[string]map[string]string, error) {
	loadOnce.Do(func() {
		entries, err := locales.ReadDir("locales")
		if err != nil {
			loadErr = err
			return
		}
		catalogs = make(map[string]map[string]string, len(entries))
		for _, e := range entries {
			data, err := locales.ReadFile(path.Join("locales", e.Name()))
			if err != nil {
				loadErr = err
				return
			}
			var tree map[string]any
			if err := yaml.Unmarshal(data, &tree); err != nil {
				loadErr = fmt.Errorf("parsing catalog %s: %w", e.Name(), err)
				return
			}
			flat := make(map[string]string)
			flatten("", tree, flat)
			catalogs[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = flat
		}
	})
	return catalogs, loadErr
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Supported returns the languages that have a catalog, sorted.
func Supported() []string {
	all, _ := loadCatalogs()
	langs := make([]string, 0, len(all))
	for lang := range all {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Normalize maps a language tag or locale string (zh_CN.UTF-8, zh-cn, EN)
// to a catalog name. Unknown languages map to Default.
func Normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")
	switch {
	case lang == "":
		return Default
	case strings.EqualFold(lang, "zh") || strings.HasPrefix(strings.ToLower(lang), "zh-"):
		return "zh-CN"
	}
	for _, supported := range Supported() {
		if strings.EqualFold(lang, supported) {
			return supported
		}
	}
	return Default
}

// DetectSystem picks a language from the usual locale variables.
func DetectSystem(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" && v != "C" && v != "POSIX" {
			return Normalize(v)
		}
	}
	return Default
}

// New returns the catalog for lang after normalization.
func New(lang string) (*Catalog, error) {
	all, err := loadCatalogs()
	if err != nil {
		return nil, err
	}
	lang = Normalize(lang)
	return &Catalog{lang: lang, messages: all[lang], fallback: all[Default]}, nil
}

// MustNew is New for the embedded catalogs, which are known to parse.
func MustNew(lang string) *Catalog {
	c, err := New(lang)
	if err != nil {
		panic(err)
	}
	return c
}

// Language returns the catalog's language.
func (c *Catalog) Language() string {
	return c.lang
}

// T returns the message for key with {placeholders} replaced from args, which
// alternate name and value. A key missing from every catalog is returned as is.
func (c *Catalog) T(key string, args ...any) string {
	msg, ok := c.messages[key]
	if !ok {
		if msg, ok = c.fallback[key]; !ok {
			msg = key
		}
	}
	if len(args) < 2 {
		return msg
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(args[i])+"}", fmt.Sprint(args[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// Has reports whether key exists in the catalog or the fallback.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[key]
	if !ok {
		_, ok = c.fallback[key]
	}
	return ok
}
