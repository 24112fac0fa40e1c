package i18n

import "sync"

// Translator retrieves localized message templates for error keys.
// data provides optional metadata to embed in the message (for example,
// "kind" for the field type name).
type Translator interface {
	Message(key string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(key string, data map[string]string) string {
	kind := data["kind"]
	switch t.lang {
	case "ja":
		switch key {
		case "required":
			return "必須フィールドです"
		case "invalid":
			if kind != "" {
				return kind + " として不正な値です"
			}
			return "不正な値です"
		case "unknown":
			return "未知のフィールドです"
		case "validator":
			return "バリデータが失敗しました"
		}
	default: // "en"
		switch key {
		case "required":
			return "This field is required"
		case "invalid":
			if kind != "" {
				return "Field is not a valid " + kind
			}
			return "Field is not valid"
		case "unknown":
			return "Unknown field"
		case "validator":
			return "Validator failed"
		}
	}
	return key
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given key using the current Translator.
func T(key string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(key, data)
}
