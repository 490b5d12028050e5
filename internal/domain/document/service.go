package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tradebook/internal/core/apperror"
	appctx "tradebook/internal/core/context"
	"tradebook/internal/core/id"
	"tradebook/internal/core/tx"
	"tradebook/internal/core/types"
	"tradebook/internal/domain"
	"tradebook/internal/domain/audit"
	"tradebook/pkg/logger"
)

var tracer = otel.Tracer("tradebook/document")

// Service is the write side of the engine for one document kind.
// Every mutation runs in exactly one transaction; validation happens before it starts.
type Service struct {
	kind      Kind
	repo      Repository
	txManager tx.Manager
	parties   PartyResolver
	audit     audit.Recorder // optional
	hooks     *domain.HookRegistry[*Document]
	now       func() time.Time
}

// NewService creates a document service. recorder may be nil.
func NewService(repo Repository, txManager tx.Manager, parties PartyResolver, recorder audit.Recorder) *Service {
	return &Service{
		kind:      repo.Kind(),
		repo:      repo,
		txManager: txManager,
		parties:   parties,
		audit:     recorder,
		hooks:     domain.NewHookRegistry[*Document](),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Kind returns the document kind served.
func (s *Service) Kind() Kind {
	return s.kind
}

// Hooks returns the registry of after-commit callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Document] {
	return s.hooks
}

// Post validates, values and stores a new document with all its lines.
func (s *Service) Post(ctx context.Context, draft Draft) (*Document, error) {
	docID := id.New()
	ctx, span := startSpan(ctx, s.kind, "document.post", &docID)
	defer span.End()

	docNo, err := normalizeDocumentNo(draft.DocumentNo)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:             docID,
		Kind:           s.kind,
		DocumentNo:     docNo,
		CounterpartyID: draft.CounterpartyID,
		DocumentDate:   types.Today(),
		Notes:          draft.Notes,
	}
	if draft.DocumentDate != nil {
		doc.DocumentDate = types.DateOnly(*draft.DocumentDate)
	}

	lines, totals, err := buildLines(doc.ID, draft.Lines)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	doc.applyTotals(totals)
	doc.CounterpartyName = s.parties.Resolve(ctx, draft.CounterpartyID, s.kind.PartyRole())
	doc.CreatedAt = s.now()
	doc.UpdatedAt = doc.CreatedAt

	var stored *Document
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, doc); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		if err := s.repo.InsertLines(ctx, doc.ID, lines); err != nil {
			return fmt.Errorf("insert lines: %w", err)
		}
		if err := s.record(ctx, doc.ID, audit.ActionPost, doc.snapshot()); err != nil {
			return err
		}

		var loadErr error
		stored, loadErr = load(ctx, s.repo, doc.ID)
		return loadErr
	})
	if err != nil {
		return nil, storageError(ctx, s.kind, "post", &doc.ID, err)
	}

	s.runHooks(ctx, domain.AfterCreate, stored)
	logger.Info(ctx, "document posted",
		"document_no", stored.DocumentNo,
		"lines", len(stored.Lines),
		"grand_total", types.FormatMoney(stored.GrandTotal))

	return stored, nil
}

// ReplaceLines swaps the full line set of an existing document and
// recomputes its aggregates. The header row is locked for the duration.
func (s *Service) ReplaceLines(ctx context.Context, docID id.ID, drafts []DraftLine) (*Document, error) {
	ctx, span := startSpan(ctx, s.kind, "document.replace_lines", &docID)
	defer span.End()

	lines, totals, err := buildLines(docID, drafts)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, "replace_lines", audit.ActionReplaceLines, docID, func(ctx context.Context, doc *Document) error {
		return s.swapLines(ctx, doc, lines, totals)
	})
}

// UpdateHeader changes header fields without touching lines or aggregates.
func (s *Service) UpdateHeader(ctx context.Context, docID id.ID, patch HeaderPatch) (*Document, error) {
	ctx, span := startSpan(ctx, s.kind, "document.update_header", &docID)
	defer span.End()

	resolved, err := s.preparePatch(ctx, &patch)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, "update_header", audit.ActionUpdateHeader, docID, func(ctx context.Context, doc *Document) error {
		applyPatch(doc, patch, resolved)
		return nil
	})
}

// Amend applies a header patch and replaces all lines in one transaction.
func (s *Service) Amend(ctx context.Context, docID id.ID, patch HeaderPatch, drafts []DraftLine) (*Document, error) {
	ctx, span := startSpan(ctx, s.kind, "document.amend", &docID)
	defer span.End()

	resolved, err := s.preparePatch(ctx, &patch)
	if err != nil {
		return nil, err
	}
	lines, totals, err := buildLines(docID, drafts)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, "amend", audit.ActionAmend, docID, func(ctx context.Context, doc *Document) error {
		applyPatch(doc, patch, resolved)
		return s.swapLines(ctx, doc, lines, totals)
	})
}

// Delete removes a document and its lines.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	ctx, span := startSpan(ctx, s.kind, "document.delete", &docID)
	defer span.End()

	var deleted *Document
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Lines, err = s.repo.GetLines(ctx, docID); err != nil {
			return fmt.Errorf("get lines: %w", err)
		}

		if _, err := s.repo.DeleteLines(ctx, docID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		removed, err := s.repo.Delete(ctx, docID)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if !removed {
			return apperror.NewDocumentNotFound(string(s.kind), docID.String())
		}

		deleted = doc
		return s.record(ctx, docID, audit.ActionDelete, doc.snapshot())
	})
	if err != nil {
		return storageError(ctx, s.kind, "delete", &docID, err)
	}

	s.runHooks(ctx, domain.AfterDelete, deleted)
	logger.Info(ctx, "document deleted", "document_no", deleted.DocumentNo)
	return nil
}

// mutate locks the header, applies fn, rewrites the header row and records
// the before/after difference.
func (s *Service) mutate(
	ctx context.Context,
	op string,
	action audit.Action,
	docID id.ID,
	fn func(ctx context.Context, doc *Document) error,
) (*Document, error) {
	var stored *Document
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Lines, err = s.repo.GetLines(ctx, docID); err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		before := doc.snapshot()

		if err := fn(ctx, doc); err != nil {
			return err
		}

		doc.UpdatedAt = s.now()
		if err := s.repo.UpdateHeader(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		stored, err = load(ctx, s.repo, docID)
		if err != nil {
			return err
		}
		return s.record(ctx, docID, action, audit.Diff(before, stored.snapshot()))
	})
	if err != nil {
		return nil, storageError(ctx, s.kind, op, &docID, err)
	}

	s.runHooks(ctx, domain.AfterUpdate, stored)
	logger.Info(ctx, "document updated",
		"lines", len(stored.Lines),
		"grand_total", types.FormatMoney(stored.GrandTotal))

	return stored, nil
}

func (s *Service) swapLines(ctx context.Context, doc *Document, lines []LineItem, totals Totals) error {
	if _, err := s.repo.DeleteLines(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	if err := s.repo.InsertLines(ctx, doc.ID, lines); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	doc.Lines = lines
	doc.applyTotals(totals)
	return nil
}

// preparePatch validates the patch and resolves a new counterparty name.
func (s *Service) preparePatch(ctx context.Context, patch *HeaderPatch) (*string, error) {
	if patch.DocumentNo != nil {
		docNo, err := normalizeDocumentNo(*patch.DocumentNo)
		if err != nil {
			return nil, err
		}
		patch.DocumentNo = &docNo
	}
	if patch.ClearCounterparty && patch.CounterpartyID != nil {
		return nil, apperror.NewValidation("counterparty cannot be both set and cleared").
			WithDetail("field", "counterparty_id")
	}
	if patch.CounterpartyID == nil {
		return nil, nil
	}
	return s.parties.Resolve(ctx, patch.CounterpartyID, s.kind.PartyRole()), nil
}

func applyPatch(doc *Document, patch HeaderPatch, resolvedName *string) {
	if patch.DocumentNo != nil {
		doc.DocumentNo = *patch.DocumentNo
	}
	if patch.ClearCounterparty {
		doc.CounterpartyID = nil
		doc.CounterpartyName = nil
	}
	if patch.CounterpartyID != nil {
		doc.CounterpartyID = patch.CounterpartyID
		doc.CounterpartyName = resolvedName
	}
	if patch.DocumentDate != nil {
		doc.DocumentDate = types.DateOnly(*patch.DocumentDate)
	}
	if patch.Notes != nil {
		doc.Notes = patch.Notes
	}
}

func (s *Service) record(ctx context.Context, docID id.ID, action audit.Action, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Record(ctx, string(s.kind), docID, action, changes); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func (s *Service) runHooks(ctx context.Context, event domain.HookEvent, doc *Document) {
	if err := s.hooks.Run(ctx, event, doc); err != nil {
		logger.Warn(ctx, "document hook failed", "event", event, "error", err)
	}
}

// startSpan opens a span for a document operation and records the document
// on ctx so log lines written under it carry the same scope.
func startSpan(ctx context.Context, kind Kind, name string, docID *id.ID) (context.Context, trace.Span) {
	scope := &appctx.DocumentScope{Kind: string(kind), Operation: name}
	attrs := []attribute.KeyValue{attribute.String("document.kind", string(kind))}
	if docID != nil {
		scope.ID = docID.String()
		attrs = append(attrs, attribute.String("document.id", scope.ID))
	}
	ctx = appctx.WithDocument(ctx, scope)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func normalizeDocumentNo(raw string) (string, error) {
	docNo := strings.TrimSpace(raw)
	if docNo == "" {
		return "", apperror.NewValidation("document_no is required").WithDetail("field", "document_no")
	}
	return docNo, nil
}

// load reads a header and its lines.
func load(ctx context.Context, repo Repository, docID id.ID) (*Document, error) {
	doc, err := repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	lines, err := repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Kind = repo.Kind()
	doc.Lines = lines
	return doc, nil
}

// storageError passes AppErrors through and wraps anything else as STORAGE_ERROR.
func storageError(ctx context.Context, kind Kind, op string, docID *id.ID, err error) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}

	var docRef any
	if docID != nil {
		docRef = docID.String()
	}
	logger.Error(ctx, "document storage failure",
		"code", apperror.CodeStorage,
		"operation", op,
		"error", err)
	return apperror.NewStorage(op, docRef, err).WithDetail("kind", string(kind))
}
