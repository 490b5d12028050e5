package document_repo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/catalogs/party"
	"tradebook/internal/domain/document"
	"tradebook/internal/infrastructure/storage/postgres"
	"tradebook/internal/infrastructure/storage/postgres/catalog_repo"
)

// openTestDB connects to TRADEBOOK_TEST_DATABASE_URL and migrates it.
func openTestDB(t *testing.T) *postgres.TxManager {
	t.Helper()

	dsn := os.Getenv("TRADEBOOK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TRADEBOOK_TEST_DATABASE_URL not set")
	}

	migrator, err := postgres.NewMigrator(dsn)
	require.NoError(t, err)
	_, err = migrator.Up()
	require.NoError(t, err)
	require.NoError(t, migrator.Close())

	pool, err := postgres.NewPool(context.Background(), postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return postgres.NewTxManager(pool, postgres.TxOptions{})
}

func TestIntegration_PostReadDelete(t *testing.T) {
	txm := openTestDB(t)
	ctx := context.Background()

	parties := catalog_repo.NewPartyRepo(txm)
	vendor := party.NewParty("Northwind Supplies", party.TypeVendor)
	require.NoError(t, parties.Create(ctx, vendor))

	auditSvc, err := postgres.NewAuditService(txm, 0)
	require.NoError(t, err)

	repo := NewPurchaseBillRepo(txm)
	svc := document.NewService(repo, txm, party.NewResolver(parties), auditSvc)
	reader := document.NewReader(repo, txm, auditSvc)

	discount := types.MustMoney("10")
	tax := types.MustMoney("18")
	posted, err := svc.Post(ctx, document.Draft{
		DocumentNo:     "BILL-IT-1",
		CounterpartyID: &vendor.ID,
		Lines: []document.DraftLine{{
			Quantity:   types.MustMoney("2"),
			UnitPrice:  types.MustMoney("100"),
			Discount:   &discount,
			TaxPercent: &tax,
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, posted.CounterpartyName)
	assert.Equal(t, "Northwind Supplies", *posted.CounterpartyName)
	assert.Equal(t, "224.20", types.FormatMoney(posted.GrandTotal))

	got, err := reader.Get(ctx, posted.ID)
	require.NoError(t, err)
	assert.True(t, posted.GrandTotal.Equal(got.GrandTotal))
	require.Len(t, got.Lines, 1)

	list, err := reader.List(ctx, document.ListFilter{Search: "BILL-IT-1"})
	require.NoError(t, err)
	require.NotEmpty(t, list.Items)
	assert.Equal(t, 1, list.Items[0].LineCount)

	require.NoError(t, svc.Delete(ctx, posted.ID))
	_, err = reader.Get(ctx, posted.ID)
	assert.True(t, apperror.IsDocumentNotFound(err))

	history, err := reader.History(ctx, posted.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// cancelBeforeLines cancels the caller's context after the header insert,
// so the line insert runs on a dead context inside the open transaction.
type cancelBeforeLines struct {
	*Repo
	cancel context.CancelFunc
}

func (r *cancelBeforeLines) InsertLines(ctx context.Context, docID id.ID, lines []document.LineItem) error {
	r.cancel()
	return r.Repo.InsertLines(ctx, docID, lines)
}

func TestIntegration_CancelledPostRollsBack(t *testing.T) {
	txm := openTestDB(t)

	base := NewSalesInvoiceRepo(txm)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := document.NewService(&cancelBeforeLines{Repo: base, cancel: cancel}, txm, party.NewResolver(catalog_repo.NewPartyRepo(txm)), nil)
	reader := document.NewReader(base, txm, nil)

	docNo := "INV-CANCEL-" + id.New().String()
	_, err := svc.Post(ctx, document.Draft{
		DocumentNo: docNo,
		Lines: []document.DraftLine{{
			Quantity:  types.MustMoney("1"),
			UnitPrice: types.MustMoney("10"),
		}},
	})
	require.Error(t, err)

	list, err := reader.List(context.Background(), document.ListFilter{Search: docNo})
	require.NoError(t, err)
	assert.Empty(t, list.Items, "header insert was rolled back")
	assert.Zero(t, list.TotalCount)
}
