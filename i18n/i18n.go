package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

var translations = make(map[string]map[string]string)
var DefaultLang = "en"

var supported = []language.Tag{language.English, language.French}
var matcher = language.NewMatcher(supported)

func LoadTranslations() error {
	for _, tag := range supported {
		lang := tag.String()
		data, err := locales.ReadFile(fmt.Sprintf("locales/%s.json", lang))
		if err != nil {
			return err
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("parsing %s catalog: %w", lang, err)
		}
		translations[lang] = t
	}
	return nil
}

func T(lang, key string) string {
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	// Fallback to English
	if lang != DefaultLang {
		return T(DefaultLang, key)
	}
	return key
}

// Format translates key and fills its verbs with args.
func Format(lang, key string, args ...string) string {
	msg := T(lang, key)
	if len(args) == 0 {
		return msg
	}
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}
	return fmt.Sprintf(msg, vals...)
}

func DetectLanguage(r *http.Request) string {
	accept := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if accept == "" {
		return DefaultLang
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLang
	}
	return supported[idx].String()
}
