// Package i18n holds the UI string tables for the supported languages.
// Tables are YAML files embedded at build time and addressed by dotted keys
// such as "labels.state".
package i18n

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Lang string

const (
	English Lang = "en"
	Hindi   Lang = "hi"
	Bengali Lang = "bn"
)

// Supported lists the languages in selector order.
var Supported = []Lang{English, Hindi, Bengali}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Hindi, language.Bengali})

// Parse accepts a bare code ("hi") or any BCP 47 tag of a supported language ("hi-IN").
func Parse(s string) (Lang, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	for _, l := range Supported {
		if base.String() == string(l) {
			return l, true
		}
	}
	return "", false
}

// Match picks the best supported language for an Accept-Language header value.
func Match(acceptLanguage string, fallback Lang) Lang {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return Supported[idx]
}

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog maps every supported language to its flattened string table.
type Catalog struct {
	tables map[Lang]map[string]string
	trees  map[Lang]map[string]any
}

// Load reads the embedded locale files.
func Load() (*Catalog, error) {
	c := &Catalog{
		tables: make(map[Lang]map[string]string, len(Supported)),
		trees:  make(map[Lang]map[string]any, len(Supported)),
	}
	for _, l := range Supported {
		b, err := localeFS.ReadFile("locales/" + string(l) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", l, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(b, &tree); err != nil {
			return nil, fmt.Errorf("i18n: bad %s table: %w", l, err)
		}
		flat := map[string]string{}
		flatten("", tree, flat)
		c.tables[l] = flat
		c.trees[l] = tree
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the catalog built from the embedded tables.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load()
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case string:
			out[key] = t
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

// T returns the string for key in lang, falling back to English and then to the key itself.
func (c *Catalog) T(lang Lang, key string) string {
	if s, ok := c.tables[lang][key]; ok {
		return s
	}
	if s, ok := c.tables[English][key]; ok {
		return s
	}
	return key
}

// Table returns the nested table for lang, the shape the original front-end consumed.
func (c *Catalog) Table(lang Lang) (map[string]any, bool) {
	t, ok := c.trees[lang]
	return t, ok
}

// Keys lists the flattened keys of lang in sorted order.
func (c *Catalog) Keys(lang Lang) []string {
	keys := make([]string, 0, len(c.tables[lang]))
	for k := range c.tables[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Translator binds a catalog to one language.
type Translator struct {
	cat  *Catalog
	Lang Lang
}

func (c *Catalog) For(lang Lang) Translator {
	return Translator{cat: c, Lang: lang}
}

func (t Translator) T(key string) string { return t.cat.T(t.Lang, key) }
