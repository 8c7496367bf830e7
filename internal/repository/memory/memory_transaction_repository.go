package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/honeynil/BankTransactionService/internal/infrastructure/observability"
	"github.com/honeynil/BankTransactionService/internal/models"
	"github.com/honeynil/BankTransactionService/internal/repository"
	pkgerrors "github.com/honeynil/BankTransactionService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ repository.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository keeps records in process memory. Both indices live
// under one RWMutex so a reader never sees a reference pointing at a
// missing record.
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]models.Transaction
	references   map[string]string // reference -> id
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[string]models.Transaction),
		references:   make(map[string]string),
	}
}

func (r *TransactionRepository) track(ctx context.Context, method string) (trace.Span, func(failed bool)) {
	_, span := otel.Tracer("transaction-repository").Start(ctx, method)
	start := time.Now()
	return span, func(failed bool) {
		observability.ObserveRepositoryCall(method, start, failed)
		span.End()
	}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	return r.write(ctx, "Save", tx, false)
}

// Update overwrites an existing record. The existence check and the write
// share one critical section, so a record deleted in between stays deleted.
func (r *TransactionRepository) Update(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	return r.write(ctx, "Update", tx, true)
}

func (r *TransactionRepository) write(ctx context.Context, method string, tx *models.Transaction, mustExist bool) (*models.Transaction, error) {
	span, done := r.track(ctx, method)
	var err error
	defer func() { done(err != nil) }()

	if tx == nil {
		err = pkgerrors.NilTransaction()
		span.SetStatus(codes.Error, err.Error())
		slog.Error("failed to save transaction", "method", method, "error", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("transaction_id", tx.ID),
		attribute.String("transaction_reference", tx.TransactionReference),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.transactions[tx.ID]
	if mustExist && !exists {
		err = pkgerrors.NotFound(tx.ID)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("transaction vanished before update", "method", method, "id", tx.ID)
		return nil, err
	}

	ref := tx.TransactionReference
	if !isBlank(ref) {
		if ownerID, ok := r.references[ref]; ok && ownerID != tx.ID {
			err = pkgerrors.DuplicateReference(ref)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("transaction reference already in use", "method", method, "id", tx.ID, "reference", ref, "owner_id", ownerID)
			return nil, err
		}
	}

	if exists && prev.TransactionReference != ref && r.references[prev.TransactionReference] == tx.ID {
		delete(r.references, prev.TransactionReference)
	}
	r.transactions[tx.ID] = *tx
	if !isBlank(ref) {
		r.references[ref] = tx.ID
	}

	stored := *tx
	slog.Debug("transaction saved", "method", method, "id", tx.ID, "reference", ref)
	return &stored, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, bool) {
	span, done := r.track(ctx, "FindByID")
	defer done(false)
	span.SetAttributes(attribute.String("transaction_id", id))

	if isBlank(id) {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[id]
	if !ok {
		return nil, false
	}
	return &tx, true
}

func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*models.Transaction, bool) {
	span, done := r.track(ctx, "FindByReference")
	defer done(false)
	span.SetAttributes(attribute.String("transaction_reference", reference))

	if isBlank(reference) {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.references[reference]
	if !ok {
		return nil, false
	}
	tx, ok := r.transactions[id]
	if !ok {
		return nil, false
	}
	return &tx, true
}

// FindAll returns every record, most recent first. Equal timestamps are
// ordered by id.
func (r *TransactionRepository) FindAll(ctx context.Context) []*models.Transaction {
	_, done := r.track(ctx, "FindAll")
	defer done(false)

	return r.sorted()
}

// FindPage returns elements [page*size, page*size+size) of the FindAll
// ordering, or an empty slice when the window is out of range.
func (r *TransactionRepository) FindPage(ctx context.Context, page, size int) []*models.Transaction {
	span, done := r.track(ctx, "FindPage")
	defer done(false)
	span.SetAttributes(attribute.Int("page", page), attribute.Int("size", size))

	if page < 0 || size <= 0 {
		return []*models.Transaction{}
	}

	all := r.sorted()
	start := page * size
	if start/size != page || start >= len(all) {
		return []*models.Transaction{}
	}
	end := start + size
	if end > len(all) || end < start {
		end = len(all)
	}
	return all[start:end]
}

func (r *TransactionRepository) Count(ctx context.Context) int64 {
	_, done := r.track(ctx, "Count")
	defer done(false)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.transactions))
}

func (r *TransactionRepository) DeleteByID(ctx context.Context, id string) bool {
	span, done := r.track(ctx, "DeleteByID")
	defer done(false)
	span.SetAttributes(attribute.String("transaction_id", id))

	if isBlank(id) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[id]
	if !ok {
		return false
	}
	delete(r.transactions, id)
	if !isBlank(tx.TransactionReference) && r.references[tx.TransactionReference] == id {
		delete(r.references, tx.TransactionReference)
	}

	slog.Debug("transaction deleted", "method", "DeleteByID", "id", id)
	return true
}

func (r *TransactionRepository) ExistsByID(ctx context.Context, id string) bool {
	_, done := r.track(ctx, "ExistsByID")
	defer done(false)

	if isBlank(id) {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transactions[id]
	return ok
}

func (r *TransactionRepository) ExistsByReference(ctx context.Context, reference string) bool {
	_, done := r.track(ctx, "ExistsByReference")
	defer done(false)

	if isBlank(reference) {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.references[reference]
	return ok
}

func (r *TransactionRepository) sorted() []*models.Transaction {
	r.mu.RLock()
	all := make([]*models.Transaction, 0, len(r.transactions))
	for _, tx := range r.transactions {
		tx := tx
		all = append(all, &tx)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID < all[j].ID
	})
	return all
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
