package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/catalog"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

type appliedChange struct {
	ProductID int64
	Delta     catalog.ProductDelta
}

type memoryState struct {
	docs     map[Kind]map[int64]Document
	lines    map[Kind]map[int64]Line
	history  map[int64]HistoryCost
	products map[int64]catalog.Product
	nextID   int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		docs:     map[Kind]map[int64]Document{KindIn: {}, KindOut: {}},
		lines:    map[Kind]map[int64]Line{KindIn: {}, KindOut: {}},
		history:  map[int64]HistoryCost{},
		products: map[int64]catalog.Product{},
		nextID:   s.nextID,
	}
	for k, docs := range s.docs {
		for id, d := range docs {
			out.docs[k][id] = d
		}
	}
	for k, lines := range s.lines {
		for id, l := range lines {
			out.lines[k][id] = l
		}
	}
	for id, h := range s.history {
		out.history[id] = h
	}
	for id, p := range s.products {
		out.products[id] = p
	}
	return out
}

// memoryRepo is an in-memory RepositoryPort, TxRepository and ProductLookup.
// WithTx runs callbacks serially and restores the prior state on error.
type memoryRepo struct {
	mu      sync.Mutex
	state   memoryState
	clock   shared.Clock
	applied []appliedChange
	failOn  func(productID int64) error
	vendors map[int64]bool
}

func newMemoryRepo(clock shared.Clock) *memoryRepo {
	return &memoryRepo{
		state: memoryState{
			docs:     map[Kind]map[int64]Document{KindIn: {}, KindOut: {}},
			lines:    map[Kind]map[int64]Line{KindIn: {}, KindOut: {}},
			history:  map[int64]HistoryCost{},
			products: map[int64]catalog.Product{},
			nextID:   100,
		},
		clock:   clock,
		vendors: map[int64]bool{},
	}
}

func (m *memoryRepo) addProduct(id, vendorID, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[id] = catalog.Product{ID: id, Name: fmt.Sprintf("P%d", id), VendorID: vendorID, Balance: balance}
	m.vendors[vendorID] = true
}

func (m *memoryRepo) addVendor(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vendors[id] = true
}

func (m *memoryRepo) product(id int64) catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[id]
}

func (m *memoryRepo) historyFor(kind Kind, docID int64) []HistoryCost {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryCost
	for _, h := range m.state.history {
		if h.DocumentID == docID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (m *memoryRepo) resetApplied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	applied := len(m.applied)
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.state = snapshot
		m.applied = m.applied[:applied]
		return err
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, kind Kind, id int64) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(kind, id)
}

func (m *memoryRepo) List(_ context.Context, kind Kind, filter ListFilter) ([]Document, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Document{}
	for id := range m.state.docs[kind] {
		doc, _ := m.load(kind, id)
		if filter.DeletedStart == nil && filter.DeletedEnd == nil && doc.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) GetVendorsByIDs(_ context.Context, ids []int64) ([]catalog.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []catalog.Vendor{}
	for _, id := range ids {
		if m.vendors[id] {
			out = append(out, catalog.Vendor{ID: id})
		}
	}
	return out, nil
}

func (m *memoryRepo) GetProductsByIDs(_ context.Context, ids []int64) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []catalog.Product{}
	for _, id := range ids {
		if p, ok := m.state.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) load(kind Kind, id int64) (Document, error) {
	doc, ok := m.state.docs[kind][id]
	if !ok {
		return Document{}, fmt.Errorf("%w %d", ErrDocumentNotFound, id)
	}
	doc.Lines = nil
	for _, l := range m.state.lines[kind] {
		if l.DocumentID == id {
			doc.Lines = append(doc.Lines, l)
		}
	}
	sort.Slice(doc.Lines, func(i, j int) bool { return doc.Lines[i].ID < doc.Lines[j].ID })
	return doc, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) id() int64 {
	t.repo.state.nextID++
	return t.repo.state.nextID
}

func (t *memoryTx) GetForUpdate(_ context.Context, kind Kind, id int64) (Document, error) {
	return t.repo.load(kind, id)
}

func (t *memoryTx) InsertDocument(_ context.Context, doc Document) (Document, error) {
	doc.ID = t.id()
	doc.CreatedAt = t.repo.clock.Now()
	doc.UpdatedAt = doc.CreatedAt
	doc.Lines = nil
	t.repo.state.docs[doc.Kind][doc.ID] = doc
	return doc, nil
}

func (t *memoryTx) UpdateDocument(_ context.Context, doc Document, expectedVersion *int64) error {
	stored, ok := t.repo.state.docs[doc.Kind][doc.ID]
	if !ok {
		return fmt.Errorf("%w %d", ErrDocumentNotFound, doc.ID)
	}
	if expectedVersion != nil && stored.Version != *expectedVersion {
		return ErrVersionMismatch
	}
	doc.Lines = nil
	doc.UpdatedAt = t.repo.clock.Now()
	t.repo.state.docs[doc.Kind][doc.ID] = doc
	return nil
}

func (t *memoryTx) DeleteDocument(_ context.Context, kind Kind, id int64) error {
	for lineID, l := range t.repo.state.lines[kind] {
		if l.DocumentID == id {
			delete(t.repo.state.lines[kind], lineID)
			delete(t.repo.state.history, lineID)
		}
	}
	delete(t.repo.state.docs[kind], id)
	return nil
}

func (t *memoryTx) InsertLine(_ context.Context, kind Kind, line Line) (Line, error) {
	line.ID = t.id()
	t.repo.state.lines[kind][line.ID] = line
	return line, nil
}

func (t *memoryTx) UpdateLine(_ context.Context, kind Kind, line Line) error {
	if _, ok := t.repo.state.lines[kind][line.ID]; !ok {
		return errors.New("line not found")
	}
	t.repo.state.lines[kind][line.ID] = line
	return nil
}

func (t *memoryTx) DeleteLine(_ context.Context, kind Kind, lineID int64) error {
	delete(t.repo.state.lines[kind], lineID)
	return nil
}

func (t *memoryTx) UpsertHistoryCost(_ context.Context, h HistoryCost) error {
	t.repo.state.history[h.LineID] = h
	return nil
}

func (t *memoryTx) DeleteHistoryCost(_ context.Context, lineID int64) error {
	delete(t.repo.state.history, lineID)
	return nil
}

func (t *memoryTx) ProductVendors(_ context.Context, ids []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	for _, id := range ids {
		if p, ok := t.repo.state.products[id]; ok {
			out[id] = p.VendorID
		}
	}
	return out, nil
}

func (t *memoryTx) ApplyProductDelta(_ context.Context, productID int64, d catalog.ProductDelta) error {
	if t.repo.failOn != nil {
		if err := t.repo.failOn(productID); err != nil {
			return err
		}
	}
	p, ok := t.repo.state.products[productID]
	if !ok {
		return fmt.Errorf("%w %d", catalog.ErrProductNotFound, productID)
	}
	if d.RequireAvailable && p.Balance+d.BalanceDelta < 0 {
		return fmt.Errorf("%w: product %d", catalog.ErrInsufficientStock, productID)
	}
	p.Balance += d.BalanceDelta
	p.PendingIn += d.PendingInDelta
	p.PendingOut += d.PendingOutDelta
	if d.LatestCost != nil {
		p.LatestCost = *d.LatestCost
	}
	if d.LatestPrice != nil {
		p.LatestPrice = *d.LatestPrice
	}
	if d.ProductCode != nil {
		code := *d.ProductCode
		p.ProductCode = &code
	}
	t.repo.state.products[productID] = p
	t.repo.applied = append(t.repo.applied, appliedChange{ProductID: productID, Delta: d})
	return nil
}

type fakeIdempotency struct {
	keys     map[string]bool
	released []string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]bool{}}
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	k := module + ":" + key
	if f.keys[k] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[k] = true
	return nil
}

func (f *fakeIdempotency) Release(ctx context.Context, key, module string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := module + ":" + key
	delete(f.keys, k)
	f.released = append(f.released, k)
	return nil
}

type recordingNotifier struct {
	events []DocumentConfirmed
}

func (n *recordingNotifier) DocumentConfirmed(_ context.Context, evt DocumentConfirmed) error {
	n.events = append(n.events, evt)
	return nil
}

type countingMetrics struct {
	counts map[string]int
}

func (c *countingMetrics) ObserveStockTransition(module, action string) {
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[module+":"+action]++
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var testNow = time.Date(2026, 1, 20, 9, 30, 0, 0, time.UTC)
