package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-stock/internal/catalog"
	"github.com/odyssey-erp/odyssey-stock/internal/productcode"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// RepositoryPort abstracts document persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, kind Kind, id int64) (Document, error)
	List(ctx context.Context, kind Kind, filter ListFilter) ([]Document, int, error)
}

// TxRepository exposes the writes performed inside one document transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, kind Kind, id int64) (Document, error)
	InsertDocument(ctx context.Context, doc Document) (Document, error)
	UpdateDocument(ctx context.Context, doc Document, expectedVersion *int64) error
	DeleteDocument(ctx context.Context, kind Kind, id int64) error
	InsertLine(ctx context.Context, kind Kind, line Line) (Line, error)
	UpdateLine(ctx context.Context, kind Kind, line Line) error
	DeleteLine(ctx context.Context, kind Kind, lineID int64) error
	UpsertHistoryCost(ctx context.Context, h HistoryCost) error
	DeleteHistoryCost(ctx context.Context, lineID int64) error
	ProductVendors(ctx context.Context, productIDs []int64) (map[int64]int64, error)
	ApplyProductDelta(ctx context.Context, productID int64, delta catalog.ProductDelta) error
}

// ProductLookup loads products and line vendors for the pre-transaction
// existence check.
type ProductLookup interface {
	GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error)
	GetVendorsByIDs(ctx context.Context, ids []int64) ([]catalog.Vendor, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards create requests carrying an Idempotency-Key.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Release(ctx context.Context, key, module string) error
}

// ServiceConfig groups optional settings and collaborators.
type ServiceConfig struct {
	Mode     ConsistencyMode
	Clock    shared.Clock
	Logger   *slog.Logger
	Notifier Notifier
	Metrics  MetricsPort
}

// Service runs the stock document state machine.
type Service struct {
	repo        RepositoryPort
	products    ProductLookup
	audit       AuditPort
	idempotency IdempotencyPort
	mode        ConsistencyMode
	clock       shared.Clock
	logger      *slog.Logger
	notifier    Notifier
	metrics     MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductLookup, audit AuditPort, idem IdempotencyPort, cfg ServiceConfig) *Service {
	if cfg.Mode == "" {
		cfg.Mode = ModeIsolation
	}
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		products:    products,
		audit:       audit,
		idempotency: idem,
		mode:        cfg.Mode,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
	}
}

// Get returns a document with its lines.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Document, error) {
	if !kind.Valid() {
		return Document{}, ErrUnknownKind
	}
	return s.repo.Get(ctx, kind, id)
}

// List returns a page of documents and the total match count.
func (s *Service) List(ctx context.Context, kind Kind, filter ListFilter) ([]Document, int, error) {
	if !kind.Valid() {
		return nil, 0, ErrUnknownKind
	}
	if filter.DeletedStart != nil && filter.DeletedEnd != nil && filter.DeletedEnd.Before(*filter.DeletedStart) {
		return nil, 0, shared.ValidationErrorf("deletedEnd is before deletedStart")
	}
	if filter.CompletedStart != nil && filter.CompletedEnd != nil && filter.CompletedEnd.Before(*filter.CompletedStart) {
		return nil, 0, shared.ValidationErrorf("completedEnd is before completedStart")
	}
	filter.Page = filter.Page.Normalize()
	return s.repo.List(ctx, kind, filter)
}

// Create stores a DRAFT document and reserves its quantities.
func (s *Service) Create(ctx context.Context, input CreateInput) (Document, error) {
	if !input.Kind.Valid() {
		return Document{}, ErrUnknownKind
	}
	if len(input.Lines) == 0 {
		return Document{}, ErrNoLines
	}
	lines, err := MergeLines(input.Lines)
	if err != nil {
		return Document{}, err
	}
	if err := s.precheck(ctx, input.Kind, lines, nil); err != nil {
		return Document{}, err
	}

	module := input.Kind.Module()
	insertedKey := false
	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, module); err != nil {
			return Document{}, err
		}
		insertedKey = true
	}

	var created Document
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.InsertDocument(ctx, Document{
			Kind:        input.Kind,
			Remark:      input.Remark,
			Status:      StatusDraft,
			TotalAmount: TotalAmount(lines),
			Version:     1,
		})
		if err != nil {
			return err
		}
		for _, l := range lines {
			l.DocumentID = doc.ID
			stored, err := tx.InsertLine(ctx, input.Kind, l)
			if err != nil {
				return err
			}
			if input.Kind == KindIn {
				if err := tx.UpsertHistoryCost(ctx, historyFor(stored)); err != nil {
					return err
				}
			}
			doc.Lines = append(doc.Lines, stored)
		}
		if err := applyPlan(ctx, tx, PlanCreate(input.Kind, lines)); err != nil {
			return err
		}
		created = doc
		return nil
	})
	if err != nil {
		if insertedKey {
			if relErr := s.idempotency.Release(context.WithoutCancel(ctx), input.IdempotencyKey, module); relErr != nil {
				s.logger.Warn("release idempotency key failed", slog.String("module", module), slog.Any("error", relErr))
			}
		}
		return Document{}, err
	}

	s.record(ctx, created, "create", map[string]any{"lines": len(created.Lines), "total": created.TotalAmount.String()})
	return created, nil
}

// Update replaces the line set of a DRAFT document and applies the balance
// differences. An empty line set deletes a stock-out document outright after
// reversing all of its reservations.
func (s *Service) Update(ctx context.Context, input UpdateInput) (UpdateResult, error) {
	if !input.Kind.Valid() {
		return UpdateResult{}, ErrUnknownKind
	}
	lines, err := MergeLines(input.Lines)
	if err != nil {
		return UpdateResult{}, err
	}
	current, err := s.loadDraft(ctx, input.Kind, input.ID)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := s.precheck(ctx, input.Kind, lines, current.Lines); err != nil {
		return UpdateResult{}, err
	}

	var result UpdateResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := s.lockDraft(ctx, tx, input.Kind, input.ID)
		if err != nil {
			return err
		}
		expected := s.expectedVersion(input.Version, doc)

		if input.Kind == KindOut && len(lines) == 0 {
			if expected != nil && *expected != doc.Version {
				return ErrVersionMismatch
			}
			if err := applyPlan(ctx, tx, PlanReverse(input.Kind, doc.Lines)); err != nil {
				return err
			}
			if err := tx.DeleteDocument(ctx, input.Kind, doc.ID); err != nil {
				return err
			}
			result = UpdateResult{Document: doc, Removed: true, Deleted: len(doc.Lines)}
			return nil
		}

		stored := make(map[int64]Line, len(doc.Lines))
		for _, l := range doc.Lines {
			stored[l.ProductID] = l
		}
		diff := DiffLines(doc.Lines, lines)

		for _, l := range diff.Deleted {
			if input.Kind == KindIn {
				if err := tx.DeleteHistoryCost(ctx, l.ID); err != nil {
					return err
				}
			}
			if err := tx.DeleteLine(ctx, input.Kind, l.ID); err != nil {
				return err
			}
		}
		for _, l := range diff.Added {
			l.DocumentID = doc.ID
			inserted, err := tx.InsertLine(ctx, input.Kind, l)
			if err != nil {
				return err
			}
			if input.Kind == KindIn {
				if err := tx.UpsertHistoryCost(ctx, historyFor(inserted)); err != nil {
					return err
				}
			}
		}
		for _, l := range diff.Modified {
			l.ID = stored[l.ProductID].ID
			l.DocumentID = doc.ID
			if err := tx.UpdateLine(ctx, input.Kind, l); err != nil {
				return err
			}
			if input.Kind == KindIn {
				if err := tx.UpsertHistoryCost(ctx, historyFor(l)); err != nil {
					return err
				}
			}
		}
		if err := applyPlan(ctx, tx, PlanUpdate(input.Kind, diff, stored)); err != nil {
			return err
		}

		if input.Remark != nil {
			doc.Remark = *input.Remark
		}
		doc.TotalAmount = TotalAmount(lines)
		doc.Version++
		if err := tx.UpdateDocument(ctx, doc, expected); err != nil {
			return err
		}
		updated, err := tx.GetForUpdate(ctx, input.Kind, doc.ID)
		if err != nil {
			return err
		}
		result = UpdateResult{Document: updated, Added: len(diff.Added), Modified: len(diff.Modified), Deleted: len(diff.Deleted)}
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}

	action := "update"
	if result.Removed {
		action = "remove"
	}
	s.record(ctx, result.Document, action, map[string]any{
		"added": result.Added, "modified": result.Modified, "deleted": result.Deleted,
	})
	return result, nil
}

// Confirm settles a DRAFT document. Stock-in lines move from pending-in to
// balance and receive a product code; stock-out lines clear pending-out.
func (s *Service) Confirm(ctx context.Context, input ConfirmInput) (Document, error) {
	if !input.Kind.Valid() {
		return Document{}, ErrUnknownKind
	}
	current, err := s.loadDraft(ctx, input.Kind, input.ID)
	if err != nil {
		return Document{}, err
	}
	if len(current.Lines) == 0 {
		return Document{}, ErrNoLines
	}

	now := s.clock.Now()
	completedAt := now
	if input.CompletedAt != nil {
		completedAt = *input.CompletedAt
	}

	var confirmed Document
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := s.lockDraft(ctx, tx, input.Kind, input.ID)
		if err != nil {
			return err
		}
		if len(doc.Lines) == 0 {
			return ErrNoLines
		}
		expected := s.expectedVersion(input.Version, doc)

		codes := map[int64]string{}
		if input.Kind == KindIn {
			codes, err = s.productCodes(ctx, tx, doc.Lines, now)
			if err != nil {
				return err
			}
		}
		if err := applyPlan(ctx, tx, PlanConfirm(input.Kind, doc.Lines, codes)); err != nil {
			return err
		}

		doc.Status = StatusCompleted
		doc.CompletedAt = &completedAt
		doc.Version++
		if err := tx.UpdateDocument(ctx, doc, expected); err != nil {
			return err
		}
		confirmed = doc
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	s.record(ctx, confirmed, "confirm", map[string]any{"completed_at": completedAt})
	s.publishConfirmed(ctx, confirmed)
	return confirmed, nil
}

// Delete soft deletes a document from either state. Balances are left as they
// are for both kinds.
func (s *Service) Delete(ctx context.Context, input DeleteInput) (Document, error) {
	if !input.Kind.Valid() {
		return Document{}, ErrUnknownKind
	}
	if _, err := s.loadLive(ctx, input.Kind, input.ID); err != nil {
		return Document{}, err
	}

	var deleted Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, input.Kind, input.ID)
		if err != nil {
			return err
		}
		if doc.DeletedAt != nil {
			return fmt.Errorf("%w %d", ErrDocumentNotFound, input.ID)
		}
		expected := s.expectedVersion(input.Version, doc)
		now := s.clock.Now()
		doc.DeletedAt = &now
		doc.Version++
		if err := tx.UpdateDocument(ctx, doc, expected); err != nil {
			return err
		}
		deleted = doc
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	s.record(ctx, deleted, "delete", nil)
	return deleted, nil
}

// precheck verifies every referenced product exists and, for stock-out, that
// the additional quantity requested fits the current balance. stored holds the
// lines already reserved by the document being updated.
func (s *Service) precheck(ctx context.Context, kind Kind, lines, stored []Line) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return shared.ValidationErrorf("unknown product ids %v", missing)
	}
	if err := s.checkVendors(ctx, lines); err != nil {
		return err
	}
	if kind != KindOut {
		return nil
	}
	reserved := make(map[int64]int64, len(stored))
	for _, l := range stored {
		reserved[l.ProductID] = l.Count
	}
	for _, l := range lines {
		extra := l.Count - reserved[l.ProductID]
		if extra > 0 && extra > byID[l.ProductID].Balance {
			return fmt.Errorf("%w: product %d requests %d, available %d", ErrOvercommit, l.ProductID, extra, byID[l.ProductID].Balance)
		}
	}
	return nil
}

func (s *Service) checkVendors(ctx context.Context, lines []Line) error {
	var ids []int64
	seen := make(map[int64]bool)
	for _, l := range lines {
		if l.VendorID != nil && !seen[*l.VendorID] {
			seen[*l.VendorID] = true
			ids = append(ids, *l.VendorID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	vendors, err := s.products.GetVendorsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, v := range vendors {
		delete(seen, v.ID)
	}
	if len(seen) == 0 {
		return nil
	}
	missing := make([]int64, 0, len(seen))
	for id := range seen {
		missing = append(missing, id)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return shared.ValidationErrorf("unknown vendor ids %v", missing)
}

func (s *Service) loadLive(ctx context.Context, kind Kind, id int64) (Document, error) {
	doc, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return Document{}, err
	}
	if doc.DeletedAt != nil {
		return Document{}, fmt.Errorf("%w %d", ErrDocumentNotFound, id)
	}
	return doc, nil
}

func (s *Service) loadDraft(ctx context.Context, kind Kind, id int64) (Document, error) {
	doc, err := s.loadLive(ctx, kind, id)
	if err != nil {
		return Document{}, err
	}
	if doc.Status != StatusDraft {
		return Document{}, ErrNotDraft
	}
	return doc, nil
}

func (s *Service) lockDraft(ctx context.Context, tx TxRepository, kind Kind, id int64) (Document, error) {
	doc, err := tx.GetForUpdate(ctx, kind, id)
	if err != nil {
		return Document{}, err
	}
	if doc.DeletedAt != nil {
		return Document{}, fmt.Errorf("%w %d", ErrDocumentNotFound, id)
	}
	if doc.Status != StatusDraft {
		return Document{}, ErrNotDraft
	}
	return doc, nil
}

// expectedVersion returns the version the write must match, or nil when the
// service runs in isolation mode.
func (s *Service) expectedVersion(requested *int64, loaded Document) *int64 {
	if s.mode != ModeVersioned {
		return nil
	}
	if requested != nil {
		v := *requested
		return &v
	}
	v := loaded.Version
	return &v
}

func (s *Service) productCodes(ctx context.Context, tx TxRepository, lines []Line, today time.Time) (map[int64]string, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	vendors, err := tx.ProductVendors(ctx, ids)
	if err != nil {
		return nil, err
	}
	codes := make(map[int64]string, len(lines))
	for _, l := range lines {
		vendorID, ok := vendors[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w %d", catalog.ErrProductNotFound, l.ProductID)
		}
		if l.VendorID != nil {
			vendorID = *l.VendorID
		}
		code, err := productcode.Generate(l.ProductID, vendorID, today)
		if err != nil {
			return nil, err
		}
		codes[l.ProductID] = code
	}
	return codes, nil
}

func (s *Service) publishConfirmed(ctx context.Context, doc Document) {
	if s.notifier == nil {
		return
	}
	ids := make([]int64, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		ids = append(ids, l.ProductID)
	}
	evt := DocumentConfirmed{Kind: doc.Kind, DocumentID: doc.ID, TotalAmount: doc.TotalAmount, ProductIDs: ids}
	if doc.CompletedAt != nil {
		evt.CompletedAt = *doc.CompletedAt
	}
	if err := s.notifier.DocumentConfirmed(ctx, evt); err != nil {
		s.logger.Warn("publish document confirmed failed",
			slog.String("module", doc.Kind.Module()), slog.Int64("document_id", doc.ID), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, doc Document, action string, meta map[string]any) {
	module := doc.Kind.Module()
	s.logger.Info("stock document "+action,
		slog.String("module", module), slog.Int64("document_id", doc.ID), slog.Int64("version", doc.Version))
	if s.metrics != nil {
		s.metrics.ObserveStockTransition(module, action)
	}
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   fmt.Sprintf("%s:%s", module, action),
		Entity:   module,
		EntityID: strconv.FormatInt(doc.ID, 10),
		Meta:     meta,
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("module", module), slog.Any("error", err))
	}
}

func applyPlan(ctx context.Context, tx TxRepository, plan *Plan) error {
	for _, change := range plan.Changes() {
		if err := tx.ApplyProductDelta(ctx, change.ProductID, change.Delta); err != nil {
			return err
		}
	}
	return nil
}

func historyFor(l Line) HistoryCost {
	return HistoryCost{ProductID: l.ProductID, DocumentID: l.DocumentID, LineID: l.ID, Cost: l.UnitValue}
}
