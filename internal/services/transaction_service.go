//go:generate mockgen -source=transaction_service.go -destination=mocks/mock_transaction_service.go -package=mocks
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/kafka"
	"github.com/honeynil/BankTransactionService/internal/infrastructure/observability"
	"github.com/honeynil/BankTransactionService/internal/models"
	"github.com/honeynil/BankTransactionService/internal/repository"
	pkgerrors "github.com/honeynil/BankTransactionService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
)

type TransactionService interface {
	CreateTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResponse, error)
	GetTransactionByID(ctx context.Context, id string) (*models.TransactionResponse, error)
	GetTransactions(ctx context.Context, page, size int) (*models.PageResponse, error)
	UpdateTransaction(ctx context.Context, id string, req *models.TransactionRequest) (*models.TransactionResponse, error)
	DeleteTransaction(ctx context.Context, id string) error
	ExistsByID(ctx context.Context, id string) bool
}

var (
	validate     = validator.New()
	currencyRule = "required,oneof=" + strings.Join(models.SupportedCurrencies, " ")
	typeRule     = "required,oneof=" + joinTypes(models.SupportedTransactionTypes)
)

func joinTypes(types []models.TransactionType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, " ")
}

type transactionService struct {
	transactionRepo repository.TransactionRepository
	kafkaProducer   kafka.KafkaProducer
	now             func() time.Time
	newID           func() string
}

type Option func(*transactionService)

func WithClock(now func() time.Time) Option {
	return func(s *transactionService) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *transactionService) {
		s.newID = newID
	}
}

func NewTransactionService(transactionRepo repository.TransactionRepository, kafkaProducer kafka.KafkaProducer, opts ...Option) *transactionService {
	if kafkaProducer == nil {
		kafkaProducer = kafka.NopProducer{}
	}
	s := &transactionService{
		transactionRepo: transactionRepo,
		kafkaProducer:   kafkaProducer,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *transactionService) CreateTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResponse, error) {
	ctx, span := otel.Tracer("transaction-service").Start(ctx, "CreateTransaction")
	defer span.End()

	if err := validateRequest(req); err != nil {
		slog.Warn("invalid create request", "error", err)
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("transaction_reference", req.TransactionReference))

	if s.transactionRepo.ExistsByReference(ctx, req.TransactionReference) {
		err := pkgerrors.DuplicateReference(req.TransactionReference)
		slog.Warn("duplicated transaction reference", "reference", req.TransactionReference)
		return nil, fail(span, err)
	}

	tx := models.NewTransaction(s.newID(), req, s.now())
	saved, err := s.transactionRepo.Save(ctx, tx)
	if err != nil {
		if !pkgerrors.IsDomain(err) {
			err = fmt.Errorf("save transaction %s: %w", tx.ID, err)
		}
		slog.Error("failed to create transaction", "id", tx.ID, "reference", tx.TransactionReference, "error", err)
		return nil, fail(span, err)
	}

	resp := models.ToResponse(saved)
	s.publish(ctx, EventTransactionCreated, resp)

	span.SetAttributes(attribute.String("transaction_id", saved.ID))
	slog.Info("transaction created", "id", saved.ID, "amount", saved.Amount, "currency", saved.Currency, "type", saved.TransactionType)
	return resp, nil
}

func (s *transactionService) GetTransactionByID(ctx context.Context, id string) (*models.TransactionResponse, error) {
	ctx, span := otel.Tracer("transaction-service").Start(ctx, "GetTransactionByID")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	if isBlank(id) {
		return nil, fail(span, pkgerrors.EmptyID())
	}

	tx, ok := s.transactionRepo.FindByID(ctx, id)
	if !ok {
		slog.Debug("transaction not found", "id", id)
		return nil, fail(span, pkgerrors.NotFound(id))
	}
	return models.ToResponse(tx), nil
}

func (s *transactionService) GetTransactions(ctx context.Context, page, size int) (*models.PageResponse, error) {
	ctx, span := otel.Tracer("transaction-service").Start(ctx, "GetTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page), attribute.Int("size", size))

	if page < 0 {
		return nil, fail(span, pkgerrors.InvalidPage(page))
	}
	if size < 1 || size > MaxPageSize {
		return nil, fail(span, pkgerrors.InvalidPageSize(size))
	}

	transactions := s.transactionRepo.FindPage(ctx, page, size)
	total := s.transactionRepo.Count(ctx)

	content := make([]*models.TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		content = append(content, models.ToResponse(tx))
	}

	slog.Debug("transactions page retrieved", "page", page, "size", size, "count", len(content), "total", total)
	return models.NewPageResponse(content, page, size, total), nil
}

func (s *transactionService) UpdateTransaction(ctx context.Context, id string, req *models.TransactionRequest) (*models.TransactionResponse, error) {
	ctx, span := otel.Tracer("transaction-service").Start(ctx, "UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	if isBlank(id) {
		return nil, fail(span, pkgerrors.EmptyID())
	}
	if err := validateRequest(req); err != nil {
		slog.Warn("invalid update request", "id", id, "error", err)
		return nil, fail(span, err)
	}

	tx, ok := s.transactionRepo.FindByID(ctx, id)
	if !ok {
		return nil, fail(span, pkgerrors.NotFound(id))
	}

	tx.Amount = req.Amount
	tx.Currency = req.Currency
	tx.TransactionType = req.TransactionType
	tx.TransactionReference = req.TransactionReference
	tx.Timestamp = s.now()

	saved, err := s.transactionRepo.Update(ctx, tx)
	if err != nil {
		if !pkgerrors.IsDomain(err) {
			err = fmt.Errorf("update transaction %s: %w", id, err)
		}
		slog.Error("failed to update transaction", "id", id, "error", err)
		return nil, fail(span, err)
	}

	resp := models.ToResponse(saved)
	s.publish(ctx, EventTransactionUpdated, resp)

	slog.Info("transaction updated", "id", id)
	return resp, nil
}

func (s *transactionService) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("transaction-service").Start(ctx, "DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	if isBlank(id) {
		return fail(span, pkgerrors.EmptyID())
	}

	tx, ok := s.transactionRepo.FindByID(ctx, id)
	if !ok {
		return fail(span, pkgerrors.NotFound(id))
	}

	if !s.transactionRepo.DeleteByID(ctx, id) {
		err := pkgerrors.InvariantViolation("transaction delete failed for ID: %s", id)
		slog.Error("transaction disappeared between existence check and delete", "id", id, "error", err)
		return fail(span, err)
	}

	s.publish(ctx, EventTransactionDeleted, models.ToResponse(tx))

	slog.Info("transaction deleted", "id", id)
	return nil
}

func (s *transactionService) ExistsByID(ctx context.Context, id string) bool {
	if isBlank(id) {
		return false
	}
	return s.transactionRepo.ExistsByID(ctx, id)
}

type transactionEvent struct {
	EventType   string                      `json:"event_type"`
	Transaction *models.TransactionResponse `json:"transaction"`
	OccurredAt  time.Time                   `json:"occurred_at"`
}

// publish is best effort: the record is already stored, so a broker
// failure is logged and counted but never returned.
func (s *transactionService) publish(ctx context.Context, eventType string, tx *models.TransactionResponse) {
	payload, err := json.Marshal(transactionEvent{
		EventType:   eventType,
		Transaction: tx,
		OccurredAt:  s.now(),
	})
	if err != nil {
		slog.Error("failed to marshal transaction event", "event_type", eventType, "id", tx.ID, "error", err)
		observability.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return
	}

	if err := s.kafkaProducer.Send(ctx, tx.ID, payload); err != nil {
		slog.Error("failed to publish transaction event", "event_type", eventType, "id", tx.ID, "error", err)
		observability.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return
	}
	observability.EventsPublished.WithLabelValues(eventType, "success").Inc()
}

// validateRequest applies the rules in order; the first failure wins.
func validateRequest(req *models.TransactionRequest) error {
	if req == nil {
		return pkgerrors.NilTransaction()
	}
	if err := validate.Var(req.Amount, "gt=0"); err != nil {
		return pkgerrors.InvalidAmount()
	}
	if err := validate.Var(strings.ToUpper(req.Currency), currencyRule); err != nil {
		return pkgerrors.InvalidCurrency(req.Currency)
	}
	if err := validate.Var(strings.ToUpper(req.TransactionType), typeRule); err != nil {
		return pkgerrors.InvalidTransactionType(req.TransactionType)
	}
	return nil
}

func fail(span trace.Span, err error) error {
	if !pkgerrors.IsDomain(err) {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, err.Error())
	return err
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
