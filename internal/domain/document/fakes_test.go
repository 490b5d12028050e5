package document

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"tradebook/internal/core/apperror"
	appctx "tradebook/internal/core/context"
	"tradebook/internal/core/id"
	"tradebook/internal/domain"
	"tradebook/internal/domain/audit"
	"tradebook/internal/domain/catalogs/party"
)

var errInjected = errors.New("injected storage failure")

// memStore is an in-memory database shared by memRepo, memTx and memAudit.
// A failed transaction restores the state captured when it began.
type memStore struct {
	mu     sync.Mutex
	docs   map[id.ID]Document
	lines  map[id.ID][]LineItem
	audit  []audit.Entry
	failOn string
}

func newMemStore() *memStore {
	return &memStore{
		docs:  make(map[id.ID]Document),
		lines: make(map[id.ID][]LineItem),
	}
}

type memState struct {
	docs  map[id.ID]Document
	lines map[id.ID][]LineItem
	audit []audit.Entry
}

func (s *memStore) capture() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := memState{
		docs:  make(map[id.ID]Document, len(s.docs)),
		lines: make(map[id.ID][]LineItem, len(s.lines)),
		audit: append([]audit.Entry(nil), s.audit...),
	}
	for k, v := range s.docs {
		st.docs[k] = v
	}
	for k, v := range s.lines {
		st.lines[k] = append([]LineItem(nil), v...)
	}
	return st
}

func (s *memStore) restore(st memState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs, s.lines, s.audit = st.docs, st.lines, st.audit
}

func (s *memStore) fail(op string) error {
	if s.failOn == op {
		return errInjected
	}
	return nil
}

func (s *memStore) lineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += len(l)
	}
	return n
}

type memTx struct {
	store    *memStore
	readOnly []*appctx.DocumentScope
}

func (m *memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := m.store.capture()
	if err := fn(ctx); err != nil {
		m.store.restore(snapshot)
		return err
	}
	return nil
}

func (m *memTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readOnly = append(m.readOnly, appctx.GetDocument(ctx))
	return fn(ctx)
}

type memRepo struct {
	kind  Kind
	store *memStore
}

func (r *memRepo) Kind() Kind { return r.kind }

func (r *memRepo) notFound(docID id.ID) *apperror.AppError {
	return apperror.NewDocumentNotFound(string(r.kind), docID.String())
}

func (r *memRepo) Insert(ctx context.Context, doc *Document) error {
	if err := r.store.fail("Insert"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row := *doc
	row.Lines = nil
	r.store.docs[doc.ID] = row
	return nil
}

func (r *memRepo) UpdateHeader(ctx context.Context, doc *Document) error {
	if err := r.store.fail("UpdateHeader"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.docs[doc.ID]; !ok {
		return r.notFound(doc.ID)
	}
	row := *doc
	row.Lines = nil
	r.store.docs[doc.ID] = row
	return nil
}

func (r *memRepo) Delete(ctx context.Context, docID id.ID) (bool, error) {
	if err := r.store.fail("Delete"); err != nil {
		return false, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.docs[docID]; !ok {
		return false, nil
	}
	delete(r.store.docs, docID)
	return true, nil
}

func (r *memRepo) InsertLines(ctx context.Context, docID id.ID, lines []LineItem) error {
	if err := r.store.fail("InsertLines"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.lines[docID] = append(r.store.lines[docID], lines...)
	return nil
}

func (r *memRepo) DeleteLines(ctx context.Context, docID id.ID) (int64, error) {
	if err := r.store.fail("DeleteLines"); err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := len(r.store.lines[docID])
	delete(r.store.lines, docID)
	return int64(n), nil
}

func (r *memRepo) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row, ok := r.store.docs[docID]
	if !ok {
		return nil, r.notFound(docID)
	}
	return &row, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, docID id.ID) (*Document, error) {
	return r.GetByID(ctx, docID)
}

func (r *memRepo) GetLines(ctx context.Context, docID id.ID) ([]LineItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	lines := append([]LineItem{}, r.store.lines[docID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })
	return lines, nil
}

func (r *memRepo) GetLine(ctx context.Context, docID, lineID id.ID) (*LineItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.lines[docID] {
		if l.LineID == lineID {
			line := l
			return &line, nil
		}
	}
	return nil, r.notFound(docID).WithDetail("line_id", lineID.String())
}

func (r *memRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[Summary], error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var items []Summary
	for _, d := range r.store.docs {
		if filter.Search != "" && !strings.Contains(strings.ToLower(d.DocumentNo), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.CounterpartyID != nil && (d.CounterpartyID == nil || *d.CounterpartyID != *filter.CounterpartyID) {
			continue
		}
		items = append(items, Summary{
			ID:               d.ID,
			DocumentNo:       d.DocumentNo,
			CounterpartyID:   d.CounterpartyID,
			CounterpartyName: d.CounterpartyName,
			DocumentDate:     d.DocumentDate,
			Subtotal:         d.Subtotal,
			TaxTotal:         d.TaxTotal,
			GrandTotal:       d.GrandTotal,
			LineCount:        len(r.store.lines[d.ID]),
			CreatedAt:        d.CreatedAt,
			UpdatedAt:        d.UpdatedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DocumentNo < items[j].DocumentNo })

	result := domain.ListResult[Summary]{TotalCount: int64(len(items)), Limit: filter.Limit, Offset: filter.Offset}
	if filter.Offset < len(items) {
		items = items[filter.Offset:]
	} else {
		items = nil
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	result.Items = items
	return result, nil
}

type memAudit struct {
	store *memStore
}

func (a *memAudit) Record(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	if err := a.store.fail("Record"); err != nil {
		return err
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	a.store.audit = append(a.store.audit, audit.Entry{
		ID: id.New(), EntityType: entityType, EntityID: entityID, Action: action,
		Changes: raw, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (a *memAudit) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	var out []audit.Entry
	for i := len(a.store.audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := a.store.audit[i]
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockParties struct {
	mock.Mock
}

func (m *mockParties) Resolve(ctx context.Context, partyID *id.ID, role party.Type) *string {
	args := m.Called(ctx, partyID, role)
	if v := args.Get(0); v != nil {
		return v.(*string)
	}
	return nil
}

type harness struct {
	store   *memStore
	parties *mockParties
	service *Service
	reader  *Reader
}

func newHarness(kind Kind) *harness {
	store := newMemStore()
	repo := &memRepo{kind: kind, store: store}
	txm := &memTx{store: store}
	rec := &memAudit{store: store}
	parties := new(mockParties)
	return &harness{
		store:   store,
		parties: parties,
		service: NewService(repo, txm, parties, rec),
		reader:  NewReader(repo, txm, rec),
	}
}
