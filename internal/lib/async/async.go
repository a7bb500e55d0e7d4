// Package async запускает фоновые задачи «выстрелил и забыл» под надзором:
// с таймаутом, восстановлением после паники и ожиданием при остановке.
package async

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

// Runner запускает задачи в отдельных горутинах.
// Контекст запроса не наследуется: задача переживает ответ клиенту.
type Runner struct {
	log *slog.Logger
	wg  sync.WaitGroup
}

// NewRunner создаёт Runner.
func NewRunner(log *slog.Logger) *Runner {
	return &Runner{log: log}
}

// Go выполняет fn в горутине с таймаутом timeout. Ошибки и паники только логируются.
func (r *Runner) Go(timeout time.Duration, task string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("panic in background task",
					slog.String("task", task),
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())))
			}
		}()

		if err := fn(ctx); err != nil {
			r.log.Warn("background task failed", slog.String("task", task), sl.Err(err))
		}
	}()
}

// Wait ждёт завершения запущенных задач, но не дольше timeout.
func (r *Runner) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("async.Wait: timed out after %s", timeout)
	}
}
