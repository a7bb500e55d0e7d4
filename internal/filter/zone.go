package filter

import (
	"strconv"
	"strings"
)

// dashVariants — типографские тире, встречающиеся в справочнике.
const dashVariants = "‐‑‒–—―−"

var dashReplacer = strings.NewReplacer(
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-", "−", "-",
)

// NormalizeDashes заменяет варианты тире на обычный дефис.
func NormalizeDashes(s string) string {
	return dashReplacer.Replace(s)
}

// zoneExpr — хранимое значение зоны с нормализованными тире.
const zoneExpr = "translate(COALESCE(zone_usda, ''), '" + dashVariants + "', '-------')"

// zoneRangePattern — одиночная зона или диапазон "a-b". Число цифр ограничено,
// чтобы приведение ::int не переполнялось на мусорных значениях.
const zoneRangePattern = `'^\s*\d{1,3}\s*(-\s*\d{1,3}\s*)?$'`

const maxZoneDigits = 3

// parseZone разбирает номер зоны: от одной до трёх цифр без знака.
func parseZone(s string) (int, bool) {
	if s == "" || len(s) > maxZoneDigits {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	zone, err := strconv.Atoi(s)
	return zone, err == nil
}

// zoneCondition строит условие по зоне USDA. Для целого числа Z запись подходит,
// если диапазон [a,b] пересекается с [Z-1, Z+1]: a <= Z+1 AND b >= Z-1.
// Неразбираемые хранимые значения и нечисловой ввод сравниваются по подстроке.
func zoneCondition(b *builder, raw string) string {
	input := strings.TrimSpace(NormalizeDashes(raw))
	zone, ok := parseZone(input)
	if !ok {
		return zoneExpr + " LIKE " + b.arg(likePattern(input))
	}

	lo := "split_part(" + zoneExpr + ", '-', 1)::int"
	hi := "COALESCE(NULLIF(trim(split_part(" + zoneExpr + ", '-', 2)), ''), split_part(" + zoneExpr + ", '-', 1))::int"

	upper := b.arg(zone + 1)
	lower := b.arg(zone - 1)
	fallback := b.arg(likePattern(input))

	return "(CASE WHEN " + zoneExpr + " ~ " + zoneRangePattern +
		" THEN " + lo + " <= " + upper + " AND " + hi + " >= " + lower +
		" ELSE " + zoneExpr + " LIKE " + fallback + " END)"
}

// temperatureExpr — хранимая температура без символов градуса, буквы c, пробелов и тире.
const temperatureExpr = "translate(LOWER(COALESCE(temperature, '')), '°cс " + dashVariants + "-', '')"

var temperatureStrip = strings.NewReplacer(
	"°", "", "c", "", "с", "", " ", "",
	"‐", "", "‑", "", "‒", "", "–", "", "—", "", "―", "", "−", "", "-", "",
)

// NormalizeTemperature приводит описание температуры к виду, сравнимому
// с temperatureExpr: "18–25 °C" → "1825".
func NormalizeTemperature(s string) string {
	return temperatureStrip.Replace(strings.ToLower(strings.TrimSpace(s)))
}
