package models

// Plant — запись справочника растений. Только для чтения.
type Plant struct {
	ID               int64   `json:"id"`
	View             *string `json:"view"`
	Family           *string `json:"family"`
	Cultivar         *string `json:"cultivar"`
	Insights         *string `json:"insights"`
	Light            *string `json:"light"`
	Watering         *string `json:"watering"`
	Temperature      *string `json:"temperature"`
	Soil             *string `json:"soil"`
	Fertilizer       *string `json:"fertilizer"`
	Pruning          *string `json:"pruning"`
	PestsDiseases    *string `json:"pests_diseases"`
	Indoor           *bool   `json:"indoor"`
	Outdoor          *bool   `json:"outdoor"`
	BeginnerFriendly *bool   `json:"beginner_friendly"`
	Toxicity         *string `json:"toxicity"`
	ZoneUSDA         *string `json:"zone_usda"`
	RuRegions        *string `json:"ru_regions"`
}

// PlantFields — поля, объявленные в документации, в порядке выдачи.
var PlantFields = []string{
	"id", "view", "family", "cultivar", "insights", "light", "watering",
	"temperature", "soil", "fertilizer", "pruning", "pests_diseases",
	"indoor", "outdoor", "beginner_friendly", "toxicity", "zone_usda", "ru_regions",
}

// Fields возвращает запись в виде карты поле → значение.
func (p *Plant) Fields() map[string]any {
	return map[string]any{
		"id":                p.ID,
		"view":              p.View,
		"family":            p.Family,
		"cultivar":          p.Cultivar,
		"insights":          p.Insights,
		"light":             p.Light,
		"watering":          p.Watering,
		"temperature":       p.Temperature,
		"soil":              p.Soil,
		"fertilizer":        p.Fertilizer,
		"pruning":           p.Pruning,
		"pests_diseases":    p.PestsDiseases,
		"indoor":            p.Indoor,
		"outdoor":           p.Outdoor,
		"beginner_friendly": p.BeginnerFriendly,
		"toxicity":          p.Toxicity,
		"zone_usda":         p.ZoneUSDA,
		"ru_regions":        p.RuRegions,
	}
}

// Project оставляет только перечисленные поля. Пустой список — все поля документации.
func (p *Plant) Project(fields []string) map[string]any {
	all := p.Fields()
	if len(fields) == 0 {
		return all
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := all[f]; ok {
			out[f] = v
		}
	}
	return out
}

// PlantStats — агрегированные показатели справочника.
type PlantStats struct {
	Total            int            `json:"total"`
	Indoor           int            `json:"indoor"`
	Outdoor          int            `json:"outdoor"`
	BeginnerFriendly int            `json:"beginner_friendly"`
	ByToxicity       map[string]int `json:"by_toxicity"`
}
