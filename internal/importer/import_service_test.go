package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// fakeStore records upserts in memory keyed by order id, mimicking the
// created-vs-updated behavior of the real repository.
type fakeStore struct {
	commissions map[string]*models.Commission
	failOrderID string
}

func newFakeStore() *fakeStore {
	return &fakeStore{commissions: map[string]*models.Commission{}}
}

func (s *fakeStore) UpsertByOrderID(_ context.Context, commission *models.Commission) (bool, error) {
	if commission.OrderID == s.failOrderID {
		return false, assert.AnError
	}
	_, exists := s.commissions[commission.OrderID]
	s.commissions[commission.OrderID] = commission
	return !exists, nil
}

const sampleCSV = "ID do pedido,Status do Pedido,Comissão líquida do afiliado(R$),Qtd\n" +
	"ORD-1,Concluído,\"R$ 12,50\",1\n" +
	"ORD-2,Pendente,\"R$ 3,00\",2\n" +
	",Concluído,\"R$ 9,99\",1\n"

// ============================================================================
// TEST SUITE 1: FILE-LEVEL VALIDATION
// ============================================================================

func TestImport_RejectsNonCSV(t *testing.T) {
	service := NewImportService(newFakeStore(), nil, 1024)

	_, err := service.Import(context.Background(), uuid.New(), "report.xlsx", strings.NewReader("data"))

	assert.ErrorIs(t, err, ErrNotCSV)
}

func TestImport_RejectsOversizedFile(t *testing.T) {
	service := NewImportService(newFakeStore(), nil, 10)

	_, err := service.Import(context.Background(), uuid.New(), "report.csv", strings.NewReader(sampleCSV))

	assert.ErrorIs(t, err, ErrFileTooLarge)
}

// ============================================================================
// TEST SUITE 2: ROW PROCESSING
// ============================================================================

func TestImport_CountsImportedAndSkipped(t *testing.T) {
	store := newFakeStore()
	service := NewImportService(store, nil, 1024*1024)

	result, err := service.Import(context.Background(), uuid.New(), "report.csv", strings.NewReader(sampleCSV))

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Skipped, "the row without an order id is skipped")
	assert.Empty(t, result.Errors)
	assert.Len(t, store.commissions, 2)
}

func TestImport_ReimportUpdatesInsteadOfDuplicating(t *testing.T) {
	store := newFakeStore()
	service := NewImportService(store, nil, 1024*1024)
	userID := uuid.New()

	first, err := service.Import(context.Background(), userID, "report.csv", strings.NewReader(sampleCSV))
	assert.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := service.Import(context.Background(), userID, "report.csv", strings.NewReader(sampleCSV))
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Updated, "re-imported rows update the existing records")
	assert.Len(t, store.commissions, 2, "row count must not grow on re-import")
}

func TestImport_RowErrorDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	store.failOrderID = "ORD-1"
	service := NewImportService(store, nil, 1024*1024)

	result, err := service.Import(context.Background(), uuid.New(), "report.csv", strings.NewReader(sampleCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Imported, "the healthy row still lands")
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Line, "errors carry the source line number")
}

func TestImport_Summary(t *testing.T) {
	result := &Result{Imported: 3, Updated: 1, Skipped: 2, Errors: []RowError{{Line: 5, Message: "boom"}}}

	assert.Equal(t, "3 imported, 1 updated, 2 skipped, 1 errors", result.Summary())
}

// ============================================================================
// TEST SUITE 3: ENCODING
// ============================================================================

func TestImport_StripsUTF8BOM(t *testing.T) {
	store := newFakeStore()
	service := NewImportService(store, nil, 1024*1024)
	data := "\xEF\xBB\xBF" + sampleCSV

	result, err := service.Import(context.Background(), uuid.New(), "report.csv", strings.NewReader(data))

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Imported, "BOM must not corrupt the first header")
}

func TestImport_DecodesLatin1(t *testing.T) {
	store := newFakeStore()
	service := NewImportService(store, nil, 1024*1024)
	// "Comissão líquida do afiliado(R$)" and "Concluído" in ISO-8859-1 bytes.
	data := "ID do pedido,Status do Pedido,Comiss\xe3o l\xedquida do afiliado(R$)\n" +
		"ORD-9,Conclu\xeddo,\"R$ 7,70\"\n"

	result, err := service.Import(context.Background(), uuid.New(), "report.csv", strings.NewReader(data))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	stored := store.commissions["ORD-9"]
	assert.NotNil(t, stored)
	assert.Equal(t, models.StatusCompleted, stored.OrderStatus, "re-decoded accents must still normalize")
	assert.Equal(t, "7.7", stored.AffiliateCommission.String())
}
