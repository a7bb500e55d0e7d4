package filter

import "strings"

// LightCategory — грубая категория освещённости.
type LightCategory string

// Категории освещённости.
const (
	LightShade   LightCategory = "shade"
	LightPartial LightCategory = "partial"
	LightBright  LightCategory = "bright"
)

// NormalizationTable — версионируемая таблица синонимов, общая для всех фильтров.
// Таблица неизменяема после создания и безопасна для конкурентного чтения.
type NormalizationTable struct {
	Version string

	lightLabels     map[string]LightCategory
	lightSubstrings map[LightCategory][]string
	toxicity        map[string]string
	placement       map[string]string
}

// DefaultTable — действующая таблица нормализации.
var DefaultTable = &NormalizationTable{
	Version: "2",
	lightLabels: map[string]LightCategory{
		"shade":           LightShade,
		"low":             LightShade,
		"low light":       LightShade,
		"тень":            LightShade,
		"теневое":         LightShade,
		"теневыносливое":  LightShade,
		"partial":         LightPartial,
		"partial shade":   LightPartial,
		"partial sun":     LightPartial,
		"medium":          LightPartial,
		"полутень":        LightPartial,
		"рассеянный":      LightPartial,
		"рассеянный свет": LightPartial,
		"bright":          LightBright,
		"full sun":        LightBright,
		"sun":             LightBright,
		"яркий":           LightBright,
		"яркий свет":      LightBright,
		"солнце":          LightBright,
		"солнечное":       LightBright,
	},
	lightSubstrings: map[LightCategory][]string{
		LightShade:   {"shade", "low light", "тень", "тенев"},
		LightPartial: {"partial", "half", "indirect", "полутень", "рассеян"},
		LightBright:  {"full sun", "sun", "bright", "ярк", "солнеч", "прям"},
	},
	toxicity: map[string]string{
		"non_toxic":         "non_toxic",
		"non-toxic":         "non_toxic",
		"safe":              "non_toxic",
		"нетоксично":        "non_toxic",
		"нетоксичное":       "non_toxic",
		"не токсично":       "non_toxic",
		"безопасно":         "non_toxic",
		"mildly_toxic":      "mildly_toxic",
		"mildly-toxic":      "mildly_toxic",
		"слаботоксично":     "mildly_toxic",
		"слаботоксичное":    "mildly_toxic",
		"умеренно токсично": "mildly_toxic",
		"toxic":             "toxic",
		"токсично":          "toxic",
		"токсичное":         "toxic",
		"ядовито":           "toxic",
		"ядовитое":          "toxic",
	},
	placement: map[string]string{
		"indoor":         "indoor",
		"комнатное":      "indoor",
		"в помещении":    "indoor",
		"дом":            "indoor",
		"outdoor":        "outdoor",
		"уличное":        "outdoor",
		"сад":            "outdoor",
		"открытый грунт": "outdoor",
	},
}

func normLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Light возвращает категорию для метки освещённости.
func (t *NormalizationTable) Light(label string) (LightCategory, bool) {
	c, ok := t.lightLabels[normLabel(label)]
	return c, ok
}

// LightSubstrings возвращает известные подстроки категории (русские и английские).
func (t *NormalizationTable) LightSubstrings(c LightCategory) []string {
	return t.lightSubstrings[c]
}

// Toxicity возвращает каноническое хранимое значение токсичности.
func (t *NormalizationTable) Toxicity(label string) (string, bool) {
	v, ok := t.toxicity[normLabel(label)]
	return v, ok
}

// Placement возвращает имя булевой колонки размещения.
func (t *NormalizationTable) Placement(label string) (string, bool) {
	v, ok := t.placement[normLabel(label)]
	return v, ok
}
