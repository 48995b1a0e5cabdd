package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Kind distinguishes incoming and outgoing documents. Both share one
// structure; the per-line unit value is a cost for IN and a price for OUT.
type Kind string

const (
	KindIn  Kind = "IN"
	KindOut Kind = "OUT"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindIn || k == KindOut
}

// Module names the kind for idempotency keys, audit logs and metrics.
func (k Kind) Module() string {
	if k == KindOut {
		return "stockout"
	}
	return "stockin"
}

// Status enumerates document lifecycle states.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusCompleted Status = "COMPLETED"
)

// ConsistencyMode selects how concurrent writers to one document are kept apart.
type ConsistencyMode string

const (
	// ModeIsolation relies on transaction isolation alone; versions are bumped but not checked.
	ModeIsolation ConsistencyMode = "isolation"
	// ModeVersioned additionally rejects writes whose expected version is stale.
	ModeVersioned ConsistencyMode = "versioned"
)

// ParseConsistencyMode validates the STOCK_CONSISTENCY_MODE setting.
func ParseConsistencyMode(s string) (ConsistencyMode, error) {
	switch ConsistencyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeIsolation:
		return ModeIsolation, nil
	case ModeVersioned:
		return ModeVersioned, nil
	default:
		return "", fmt.Errorf("stock: unknown consistency mode %q", s)
	}
}

// Line is one product/quantity/unit value tuple of a document.
type Line struct {
	ID         int64           `json:"id"`
	DocumentID int64           `json:"documentId"`
	ProductID  int64           `json:"productId"`
	Count      int64           `json:"count"`
	UnitValue  decimal.Decimal `json:"unitValue"`
	VendorID   *int64          `json:"vendorId,omitempty"`
}

// Amount returns count × unit value.
func (l Line) Amount() decimal.Decimal {
	return l.UnitValue.Mul(decimal.NewFromInt(l.Count))
}

// Document is a stock-in or stock-out header with its current lines.
type Document struct {
	ID          int64           `json:"id"`
	Kind        Kind            `json:"kind"`
	Remark      string          `json:"remark"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CompletedAt *time.Time      `json:"completedAt"`
	DeletedAt   *time.Time      `json:"deletedAt"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Lines       []Line          `json:"lines"`
}

// HistoryCost records the unit cost assigned by one stock-in line.
type HistoryCost struct {
	ID         int64
	ProductID  int64
	DocumentID int64
	LineID     int64
	Cost       decimal.Decimal
	CreatedAt  time.Time
}

// LineInput is a caller-supplied line before merging.
type LineInput struct {
	ProductID int64
	Count     int64
	UnitValue decimal.Decimal
	VendorID  *int64
}

// CreateInput creates a DRAFT document.
type CreateInput struct {
	Kind           Kind
	Remark         string
	Lines          []LineInput
	IdempotencyKey string
}

// UpdateInput replaces the line set of a DRAFT document. A nil Remark keeps
// the stored one. Version is the caller's expected version in versioned mode.
type UpdateInput struct {
	Kind    Kind
	ID      int64
	Remark  *string
	Lines   []LineInput
	Version *int64
}

// UpdateResult reports the outcome of an update. Removed is set when a
// stock-out update with no lines deleted the document outright.
type UpdateResult struct {
	Document Document
	Removed  bool
	Added    int
	Modified int
	Deleted  int
}

// ConfirmInput moves a document to COMPLETED.
type ConfirmInput struct {
	Kind        Kind
	ID          int64
	CompletedAt *time.Time
	Version     *int64
}

// DeleteInput soft deletes a document.
type DeleteInput struct {
	Kind    Kind
	ID      int64
	Version *int64
}

// ListFilter narrows document listings. Without a deleted range only live
// documents are returned.
type ListFilter struct {
	ProductName    string
	VendorName     string
	Status         Status
	DeletedStart   *time.Time
	DeletedEnd     *time.Time
	CompletedStart *time.Time
	CompletedEnd   *time.Time
	Page           shared.PageRequest
}

var (
	// ErrDocumentNotFound indicates the document does not exist or is deleted.
	ErrDocumentNotFound = fmt.Errorf("%w: stock document", shared.ErrNotFound)
	// ErrNotDraft blocks line edits and confirmation of completed documents.
	ErrNotDraft = fmt.Errorf("%w: stock document is not in DRAFT", shared.ErrConflict)
	// ErrVersionMismatch indicates the document changed since the caller read it.
	ErrVersionMismatch = fmt.Errorf("%w: stock document was modified concurrently", shared.ErrConflict)
	// ErrOvercommit rejects stock-out lines exceeding the available balance.
	ErrOvercommit = fmt.Errorf("%w: stock-out count exceeds available balance", shared.ErrConflict)
	// ErrNoLines rejects documents without lines where lines are required.
	ErrNoLines = fmt.Errorf("%w: at least one line is required", shared.ErrValidation)
	// ErrUnknownKind indicates an unsupported document kind.
	ErrUnknownKind = fmt.Errorf("%w: unknown stock document kind", shared.ErrValidation)
)
