// Package admission — шлюз допуска запросов по API-ключу.
//
// Допуск — явная цепочка именованных стадий, каждая может прервать обработку:
//
//	exempt     путь без ключа: пропустить без учёта
//	credential ключ не передан: ErrUnauthenticated (401)
//	resolve    ключ не найден: ErrInvalidCredential (403)
//	status     лимит исчерпан: ErrQuotaExceeded (429); ключ выключен или истёк: 403
//	filters    параметр вне разрешённых тарифом: ErrFilterNotPermitted (403)
//	reserve    списание единицы лимита под блокировкой строки ключа
//
// После ответа Settle возвращает списанную единицу, если статус ответа >= 400:
// неуспешные запросы лимит не расходуют.
package admission

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/filter"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// Имена стадий.
const (
	StageExempt     = "exempt"
	StageCredential = "credential"
	StageResolve    = "resolve"
	StageStatus     = "status"
	StageFilters    = "filters"
	StageReserve    = "reserve"
)

// Store — хранилище ключей.
type Store interface {
	GetKeyWithPlan(ctx context.Context, token string) (*models.KeyWithPlan, error)
	ReserveUsage(ctx context.Context, keyID int64, now time.Time) (models.Reservation, error)
	ReleaseUsage(ctx context.Context, r models.Reservation) error
}

// Metrics учитывает решения и операции с лимитом.
type Metrics interface {
	Admission(outcome string)
	Usage(operation string)
}

// Request — то, что шлюзу нужно знать о запросе.
type Request struct {
	Path       string
	Credential string
	Query      url.Values
}

// Decision — результат допуска.
type Decision struct {
	Exempt      bool
	Credential  string
	Grant       models.Grant
	Reservation *models.Reservation
}

// Stage — шаг цепочки. Ошибка прерывает допуск; done=true завершает его успешно.
type Stage struct {
	Name string
	Run  func(ctx context.Context, req Request, d *Decision, st *state) (done bool, err error)
}

type state struct {
	key *models.KeyWithPlan
}

// Gate выполняет цепочку стадий.
type Gate struct {
	store   Store
	metrics Metrics
	exempt  []string
	stages  []Stage
	now     func() time.Time
}

// New создаёт шлюз. exempt — пути без проверки ключа; шаблон с «*» на конце
// задаёт префикс.
func New(store Store, exempt []string, metrics Metrics) *Gate {
	g := &Gate{
		store:   store,
		metrics: metrics,
		exempt:  exempt,
		now:     time.Now,
	}
	g.stages = []Stage{
		{Name: StageExempt, Run: g.checkExempt},
		{Name: StageCredential, Run: checkCredential},
		{Name: StageResolve, Run: g.resolve},
		{Name: StageStatus, Run: g.checkStatus},
		{Name: StageFilters, Run: checkFilters},
		{Name: StageReserve, Run: g.reserve},
	}
	return g
}

// Stages возвращает имена стадий в порядке выполнения.
func (g *Gate) Stages() []string {
	names := make([]string, len(g.stages))
	for i, s := range g.stages {
		names[i] = s.Name
	}
	return names
}

// IsExempt сообщает, освобождён ли путь от проверки ключа.
func (g *Gate) IsExempt(path string) bool {
	for _, p := range g.exempt {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func (g *Gate) observe(outcome string) {
	if g.metrics != nil {
		g.metrics.Admission(outcome)
	}
}

// Admit проводит запрос через стадии. Ошибка оборачивает одну из ошибок apperr
// и содержит имя стадии, на которой запрос отклонён.
func (g *Gate) Admit(ctx context.Context, req Request) (*Decision, error) {
	d := &Decision{Credential: req.Credential}
	st := &state{}
	for _, stage := range g.stages {
		done, err := stage.Run(ctx, req, d, st)
		if err != nil {
			g.observe(stage.Name + "_rejected")
			return nil, fmt.Errorf("admission.%s: %w", stage.Name, err)
		}
		if done {
			break
		}
	}
	if d.Exempt {
		g.observe("exempt")
	} else {
		g.observe("admitted")
	}
	return d, nil
}

// Settle завершает учёт после ответа: при статусе >= 400 списание отменяется.
func (g *Gate) Settle(ctx context.Context, d *Decision, status int) error {
	if d == nil || d.Reservation == nil || status < 400 {
		return nil
	}
	if err := g.store.ReleaseUsage(ctx, *d.Reservation); err != nil {
		return fmt.Errorf("admission.settle: %w", err)
	}
	if g.metrics != nil {
		g.metrics.Usage("release")
	}
	d.Reservation = nil
	return nil
}

func (g *Gate) checkExempt(_ context.Context, req Request, d *Decision, _ *state) (bool, error) {
	if g.IsExempt(req.Path) {
		d.Exempt = true
		return true, nil
	}
	return false, nil
}

func checkCredential(_ context.Context, req Request, _ *Decision, _ *state) (bool, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return false, apperr.ErrUnauthenticated
	}
	return false, nil
}

func (g *Gate) resolve(ctx context.Context, req Request, d *Decision, st *state) (bool, error) {
	kp, err := g.store.GetKeyWithPlan(ctx, strings.TrimSpace(req.Credential))
	if err != nil {
		return false, err
	}
	st.key = kp
	d.Grant = grantFor(kp)
	return false, nil
}

// grantFor собирает права ключа. Без тарифа в справочнике ограничений нет,
// потолок страницы — переопределение ключа или filter.MaxLimit.
func grantFor(kp *models.KeyWithPlan) models.Grant {
	g := models.Grant{KeyID: kp.Key.ID, PlanName: kp.Key.PlanName, PageCap: filter.MaxLimit}
	if kp.Plan != nil {
		g.PageCap = kp.Plan.MaxPageSize
		g.AllowedFilters = kp.Plan.AllowedFilters
		g.AllowedFields = kp.Plan.AllowedFields
	}
	if kp.Key.MaxPageSize != nil && *kp.Key.MaxPageSize > 0 {
		g.PageCap = *kp.Key.MaxPageSize
	}
	return g
}

func (g *Gate) checkStatus(_ context.Context, _ Request, _ *Decision, st *state) (bool, error) {
	switch {
	case st.key.Exhausted():
		return false, apperr.ErrQuotaExceeded
	case !st.key.Key.Active:
		return false, apperr.ErrInactive
	case st.key.Key.Expired(g.now()):
		return false, apperr.ErrExpired
	}
	return false, nil
}

func checkFilters(_ context.Context, req Request, d *Decision, _ *state) (bool, error) {
	return false, filter.CheckAllowed(req.Query, d.Grant.AllowedFilters)
}

func (g *Gate) reserve(ctx context.Context, _ Request, d *Decision, st *state) (bool, error) {
	r, err := g.store.ReserveUsage(ctx, st.key.Key.ID, g.now())
	if err != nil {
		return false, err
	}
	if g.metrics != nil {
		g.metrics.Usage("reserve")
	}
	d.Reservation = &r
	return true, nil
}
