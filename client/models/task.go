package models

import (
	"time"
)

// TaskStatus is the state of a backend task as observed through status reads.
type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusProcessing TaskStatus = "processing"
	StatusSucceeded  TaskStatus = "succeeded"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition is expected.
func (s TaskStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

type ImportKind string

const (
	ImportReceipt      ImportKind = "receipt"
	ImportDeposit      ImportKind = "deposit"
	ImportExchangeRate ImportKind = "exchange_rate"
)

// Path returns the create-task endpoint for the import kind.
func (k ImportKind) Path() string {
	switch k {
	case ImportReceipt:
		return "/import/receipts"
	case ImportDeposit:
		return "/import/deposit"
	case ImportExchangeRate:
		return "/import/exchange-rates"
	default:
		return ""
	}
}

func ParseImportKind(s string) (ImportKind, bool) {
	switch s {
	case "receipt", "receipts":
		return ImportReceipt, true
	case "deposit", "deposits":
		return ImportDeposit, true
	case "rates", "exchange-rates", "exchange_rate":
		return ImportExchangeRate, true
	default:
		return "", false
	}
}

// ImportRun is one submitted import as recorded in the local history table.
type ImportRun struct {
	ID           string
	TraceID      string
	TaskID       string
	Kind         ImportKind
	Filename     string
	Size         int64
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}
