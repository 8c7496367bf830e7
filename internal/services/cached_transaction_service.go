package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/honeynil/BankTransactionService/internal/infrastructure/cache"
	"github.com/honeynil/BankTransactionService/internal/models"
	pkgerrors "github.com/honeynil/BankTransactionService/pkg/errors"
)

const (
	cacheKeyByID     = "transaction:id:"
	cacheKeyListPage = "transaction:list:"
)

func transactionKey(id string) string {
	return cacheKeyByID + id
}

func pageKey(page, size int) string {
	return fmt.Sprintf("%spage:%d:size:%d", cacheKeyListPage, page, size)
}

// cachedTransactionService memoizes single-record and page reads. Every
// write clears the affected entries before returning, so a stale entry can
// only survive a concurrent write that has not finished yet.
type cachedTransactionService struct {
	next  TransactionService
	cache cache.Cache
}

func NewCachedTransactionService(next TransactionService, c cache.Cache) *cachedTransactionService {
	if c == nil {
		c = cache.Nop{}
	}
	return &cachedTransactionService{next: next, cache: c}
}

func (s *cachedTransactionService) CreateTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResponse, error) {
	resp, err := s.next.CreateTransaction(ctx, req)
	if shouldInvalidate(err) {
		s.cache.DeletePrefix(ctx, cacheKeyListPage)
	}
	return resp, err
}

func (s *cachedTransactionService) GetTransactionByID(ctx context.Context, id string) (*models.TransactionResponse, error) {
	key := transactionKey(id)
	var cached models.TransactionResponse
	if s.load(ctx, key, &cached) {
		return &cached, nil
	}

	resp, err := s.next.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, resp)
	return resp, nil
}

func (s *cachedTransactionService) GetTransactions(ctx context.Context, page, size int) (*models.PageResponse, error) {
	key := pageKey(page, size)
	var cached models.PageResponse
	if s.load(ctx, key, &cached) {
		return &cached, nil
	}

	resp, err := s.next.GetTransactions(ctx, page, size)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, resp)
	return resp, nil
}

func (s *cachedTransactionService) UpdateTransaction(ctx context.Context, id string, req *models.TransactionRequest) (*models.TransactionResponse, error) {
	resp, err := s.next.UpdateTransaction(ctx, id, req)
	if shouldInvalidate(err) {
		s.cache.Delete(ctx, transactionKey(id))
		s.cache.DeletePrefix(ctx, cacheKeyListPage)
	}
	return resp, err
}

func (s *cachedTransactionService) DeleteTransaction(ctx context.Context, id string) error {
	err := s.next.DeleteTransaction(ctx, id)
	if shouldInvalidate(err) {
		s.cache.Delete(ctx, transactionKey(id))
		s.cache.DeletePrefix(ctx, cacheKeyListPage)
	}
	return err
}

func (s *cachedTransactionService) ExistsByID(ctx context.Context, id string) bool {
	return s.next.ExistsByID(ctx, id)
}

func (s *cachedTransactionService) load(ctx context.Context, key string, dst any) bool {
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("dropping unreadable cache entry", "key", key, "error", err)
		s.cache.Delete(ctx, key)
		return false
	}
	return true
}

func (s *cachedTransactionService) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("failed to marshal cache entry", "key", key, "error", err)
		return
	}
	s.cache.Set(ctx, key, data)
}

// shouldInvalidate is false only for errors that guarantee the store was
// left untouched.
func shouldInvalidate(err error) bool {
	return err == nil || !pkgerrors.IsDomain(err)
}
