//go:generate mockgen -source=transaction_repository.go -destination=mocks/mock_transaction_repository.go -package=mocks
package repository

import (
	"context"

	"github.com/honeynil/BankTransactionService/internal/models"
)

// TransactionRepository stores transaction records indexed by id and by
// external reference. Absence is reported through the bool results.
//
// Save is an upsert. Update only overwrites a record that still exists and
// fails with a not-found error otherwise, so a concurrent delete wins.
type TransactionRepository interface {
	Save(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	FindByID(ctx context.Context, id string) (*models.Transaction, bool)
	FindByReference(ctx context.Context, reference string) (*models.Transaction, bool)
	FindAll(ctx context.Context) []*models.Transaction
	FindPage(ctx context.Context, page, size int) []*models.Transaction
	Count(ctx context.Context) int64
	DeleteByID(ctx context.Context, id string) bool
	ExistsByID(ctx context.Context, id string) bool
	ExistsByReference(ctx context.Context, reference string) bool
}
