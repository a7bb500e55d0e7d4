// Package filter переводит параметры поиска растений в параметризованный
// SQL-предикат. Значения пользователя попадают в запрос только через
// позиционные параметры ($1, $2, ...); имена колонок берутся из белого списка.
package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
)

// Границы пагинации.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Имена параметров-фильтров.
const (
	ParamView             = "view"
	ParamLight            = "light"
	ParamToxicity         = "toxicity"
	ParamPlacement        = "placement"
	ParamZoneUSDA         = "zone_usda"
	ParamTemperature      = "temperature"
	ParamBeginnerFriendly = "beginner_friendly"
)

// Служебные параметры, разрешённые на любом тарифе.
const (
	ParamSearchField = "search_field"
	ParamSort        = "sort"
	ParamLimit       = "limit"
	ParamOffset      = "offset"
	ParamPage        = "page"
)

var alwaysAllowed = map[string]bool{
	ParamSearchField: true,
	ParamSort:        true,
	ParamLimit:       true,
	ParamOffset:      true,
	ParamPage:        true,
}

var searchColumns = map[string]string{
	"":         "view",
	"view":     "view",
	"species":  "view",
	"cultivar": "cultivar",
}

// Params — разобранные параметры запроса /plants.
type Params struct {
	Search           string
	SearchField      string
	Light            string
	Toxicity         string
	Placement        string
	ZoneUSDA         string
	Temperature      string
	BeginnerFriendly *bool
	Sort             string
	Limit            int // 0 — не задан
	Offset           int
	Page             int
}

// ParseParams разбирает query-строку. Некорректные числовые значения
// игнорируются и заменяются значениями по умолчанию.
func ParseParams(q url.Values) Params {
	p := Params{
		Search:      strings.TrimSpace(q.Get(ParamView)),
		SearchField: strings.ToLower(strings.TrimSpace(q.Get(ParamSearchField))),
		Light:       q.Get(ParamLight),
		Toxicity:    q.Get(ParamToxicity),
		Placement:   q.Get(ParamPlacement),
		ZoneUSDA:    strings.TrimSpace(q.Get(ParamZoneUSDA)),
		Temperature: q.Get(ParamTemperature),
		Sort:        strings.ToLower(strings.TrimSpace(q.Get(ParamSort))),
	}
	if v, err := strconv.ParseBool(q.Get(ParamBeginnerFriendly)); err == nil {
		p.BeginnerFriendly = &v
	}
	if v, err := strconv.Atoi(q.Get(ParamLimit)); err == nil {
		p.Limit = v
	}
	if v, err := strconv.Atoi(q.Get(ParamOffset)); err == nil && v > 0 {
		p.Offset = v
	}
	if v, err := strconv.Atoi(q.Get(ParamPage)); err == nil && v > 0 {
		p.Page = v
	}
	return p
}

// CheckAllowed проверяет, что все параметры запроса разрешены тарифом.
// Пустой allowed означает отсутствие ограничений.
func CheckAllowed(q url.Values, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !set[name] && !alwaysAllowed[name] {
			return fmt.Errorf("%w: %s", apperr.ErrFilterNotPermitted, name)
		}
	}
	return nil
}

// Query — результат трансляции.
type Query struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
	Applied []string // имена фильтров, попавших в предикат
}

// EffectiveLimit ограничивает запрошенный размер страницы диапазоном [1, MaxLimit]
// и потолком тарифа: effective = min(requested, planCap).
func EffectiveLimit(requested, planCap int) int {
	limit := requested
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if planCap > 0 && limit > planCap {
		limit = planCap
	}
	return limit
}

type builder struct {
	conds []string
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Translator строит предикаты по таблице нормализации.
type Translator struct {
	table *NormalizationTable
}

// New создаёт транслятор. nil — DefaultTable.
func New(table *NormalizationTable) *Translator {
	if table == nil {
		table = DefaultTable
	}
	return &Translator{table: table}
}

// Translate строит конъюнктивный предикат по параметрам.
// Нераспознанные значения light и toxicity молча отбрасываются.
func (t *Translator) Translate(p Params, planCap int) Query {
	b := &builder{}
	var applied []string

	if p.Search != "" {
		if col, ok := searchColumns[p.SearchField]; ok {
			b.conds = append(b.conds, fmt.Sprintf("LOWER(%s) LIKE %s", col, b.arg(likePattern(p.Search))))
			applied = append(applied, ParamView)
		}
	}

	if cat, ok := t.table.Light(p.Light); ok {
		subs := t.table.LightSubstrings(cat)
		ors := make([]string, 0, len(subs))
		for _, s := range subs {
			ors = append(ors, "LOWER(light) LIKE "+b.arg(likePattern(s)))
		}
		if len(ors) > 0 {
			b.conds = append(b.conds, "("+strings.Join(ors, " OR ")+")")
			applied = append(applied, ParamLight)
		}
	}

	if v, ok := t.table.Toxicity(p.Toxicity); ok {
		b.conds = append(b.conds, "LOWER(toxicity) = "+b.arg(v))
		applied = append(applied, ParamToxicity)
	}

	if col, ok := t.table.Placement(p.Placement); ok {
		b.conds = append(b.conds, col+" = "+b.arg(true))
		applied = append(applied, ParamPlacement)
	}

	if p.BeginnerFriendly != nil {
		b.conds = append(b.conds, "beginner_friendly = "+b.arg(*p.BeginnerFriendly))
		applied = append(applied, ParamBeginnerFriendly)
	}

	if p.ZoneUSDA != "" {
		b.conds = append(b.conds, zoneCondition(b, p.ZoneUSDA))
		applied = append(applied, ParamZoneUSDA)
	}

	if norm := NormalizeTemperature(p.Temperature); norm != "" {
		b.conds = append(b.conds, temperatureExpr+" LIKE "+b.arg(likePattern(norm)))
		applied = append(applied, ParamTemperature)
	}

	where := "TRUE"
	if len(b.conds) > 0 {
		where = strings.Join(b.conds, " AND ")
	}

	orderBy := "id"
	if p.Sort == "random" {
		orderBy = "random()"
	}

	limit := EffectiveLimit(p.Limit, planCap)
	offset := p.Offset
	if offset == 0 && p.Page > 1 {
		offset = (p.Page - 1) * limit
	}

	return Query{
		Where:   where,
		Args:    b.args,
		OrderBy: orderBy,
		Limit:   limit,
		Offset:  offset,
		Applied: applied,
	}
}

// likePattern экранирует спецсимволы LIKE и оборачивает значение в %...%.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
