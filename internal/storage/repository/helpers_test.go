package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// pendingPayment читает платёж напрямую, чтобы проверить состояние после вебхука.
func pendingPayment(t *testing.T, s *Storage, paymentID string) *models.PendingPayment {
	t.Helper()
	query := `SELECT ` + paymentColumns + ` FROM pending_payments WHERE payment_id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(context.Background(), query, paymentID))
	require.NoError(t, err)
	return p
}
