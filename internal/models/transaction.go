package models

import "time"

type Transaction struct {
	ID                   string    `json:"id"`
	Amount               float64   `json:"amount"`
	Currency             string    `json:"currency"`
	TransactionType      string    `json:"transactionType"`
	TransactionReference string    `json:"transactionReference,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

func NewTransaction(id string, req *TransactionRequest, now time.Time) *Transaction {
	return &Transaction{
		ID:                   id,
		Amount:               req.Amount,
		Currency:             req.Currency,
		TransactionType:      req.TransactionType,
		TransactionReference: req.TransactionReference,
		Timestamp:            now,
	}
}

type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeTransfer   TransactionType = "TRANSFER"
)

var (
	SupportedCurrencies       = []string{"USD", "EUR", "GBP", "JPY", "CNY", "AUD", "CAD"}
	SupportedTransactionTypes = []TransactionType{TypeDeposit, TypeWithdrawal, TypeTransfer}
)

type TransactionRequest struct {
	Amount               float64 `json:"amount"`
	Currency             string  `json:"currency"`
	TransactionType      string  `json:"transactionType"`
	TransactionReference string  `json:"transactionReference,omitempty"`
}

type TransactionResponse struct {
	ID                   string    `json:"id"`
	Amount               float64   `json:"amount"`
	Currency             string    `json:"currency"`
	TransactionType      string    `json:"transactionType"`
	TransactionReference string    `json:"transactionReference,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

func ToResponse(tx *Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                   tx.ID,
		Amount:               tx.Amount,
		Currency:             tx.Currency,
		TransactionType:      tx.TransactionType,
		TransactionReference: tx.TransactionReference,
		Timestamp:            tx.Timestamp,
	}
}

// PageResponse is the pagination envelope returned by list queries.
type PageResponse struct {
	Content       []*TransactionResponse `json:"content"`
	Page          int                    `json:"page"`
	Size          int                    `json:"size"`
	TotalElements int64                  `json:"totalElements"`
	TotalPages    int                    `json:"totalPages"`
	First         bool                   `json:"first"`
	Last          bool                   `json:"last"`
}

func NewPageResponse(content []*TransactionResponse, page, size int, totalElements int64) *PageResponse {
	if content == nil {
		content = []*TransactionResponse{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((totalElements + int64(size) - 1) / int64(size))
	}
	return &PageResponse{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: totalElements,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}
}
