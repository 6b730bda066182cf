package importer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// ============================================================================
// TEST SUITE 1: MONEY AND PERCENT PARSING
// ============================================================================

func TestParseMoney_BrazilianFormat(t *testing.T) {
	result := ParseMoney("R$ 12,50")

	assert.True(t, decimal.NewFromFloat(12.50).Equal(result), "R$ 12,50 should parse to 12.50")
}

func TestParseMoney_ThousandsSeparator(t *testing.T) {
	result := ParseMoney("R$ 1.234,56")

	assert.True(t, decimal.NewFromFloat(1234.56).Equal(result), "R$ 1.234,56 should parse to 1234.56")
}

func TestParseMoney_PlainDotDecimal(t *testing.T) {
	result := ParseMoney("12.50")

	assert.True(t, decimal.NewFromFloat(12.50).Equal(result), "12.50 should parse unchanged")
}

func TestParseMoney_MalformedFallsBackToZero(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(ParseMoney("R$ --")), "placeholder should degrade to zero")
	assert.True(t, decimal.Zero.Equal(ParseMoney("abc")), "garbage should degrade to zero")
	assert.True(t, decimal.Zero.Equal(ParseMoney("")), "empty should degrade to zero")
}

func TestParseMoney_NonBreakingSpace(t *testing.T) {
	result := ParseMoney("R$ 12,50")

	assert.True(t, decimal.NewFromFloat(12.50).Equal(result), "NBSP after R$ should be stripped")
}

func TestParsePercent(t *testing.T) {
	assert.True(t, decimal.NewFromFloat(3.5).Equal(ParsePercent("3,5%")), "3,5%% should parse to 3.5")
	assert.True(t, decimal.NewFromFloat(10).Equal(ParsePercent("10%")), "10%% should parse to 10")
	assert.True(t, decimal.Zero.Equal(ParsePercent("")), "empty should degrade to zero")
	assert.True(t, decimal.Zero.Equal(ParsePercent("n/a")), "garbage should degrade to zero")
}

// ============================================================================
// TEST SUITE 2: DATE AND STATUS NORMALIZATION
// ============================================================================

func TestParseDateTime_KnownLayouts(t *testing.T) {
	parsed := ParseDateTime("2025-03-10 14:30:00")
	assert.NotNil(t, parsed)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), *parsed)

	parsed = ParseDateTime("10/03/2025 14:30:00")
	assert.NotNil(t, parsed)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), *parsed)
}

func TestParseDateTime_PlaceholderYieldsNil(t *testing.T) {
	assert.Nil(t, ParseDateTime("--"), "placeholder dates should yield nil")
	assert.Nil(t, ParseDateTime(""), "blank dates should yield nil")
	assert.Nil(t, ParseDateTime("not a date"), "unparseable dates should yield nil")
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, models.StatusCompleted, NormalizeStatus("Concluído"))
	assert.Equal(t, models.StatusCompleted, NormalizeStatus("concluido"))
	assert.Equal(t, models.StatusCompleted, NormalizeStatus("COMPLETED"))
	assert.Equal(t, models.StatusPending, NormalizeStatus("Pendente"))
	assert.Equal(t, models.StatusCancelled, NormalizeStatus("Cancelado"))
	assert.Equal(t, models.StatusCancelled, NormalizeStatus("canceled"))
	assert.Equal(t, "em análise", NormalizeStatus(" Em Análise "), "unknown statuses pass through lowercased")
}

// ============================================================================
// TEST SUITE 3: ROW NORMALIZATION
// ============================================================================

func TestNormalizeRow_FullRow(t *testing.T) {
	userID := uuid.New()
	row := Row{
		"ID do pedido":                    "  2503105QWERTY  ",
		"Status do Pedido":                "Concluído",
		"Horário do pedido":               "2025-03-10 14:30:00",
		"Nome do Item":                    "Fone Bluetooth",
		"ID do item":                      "998877",
		"Categoria Global L1":             "Eletrônicos",
		"Preço(R$)":                       "R$ 89,90",
		"Qtd":                             "2",
		"Valor de Compra(R$)":             "R$ 179,80",
		"Comissão líquida do afiliado(R$)": "R$ 12,50",
		"Sub_id1":                         "campanha-a",
		"Canal":                           "Instagram",
	}

	commission, ok := NormalizeRow(userID, row)

	assert.True(t, ok)
	assert.Equal(t, userID, commission.UserID)
	assert.Equal(t, "2503105QWERTY", commission.OrderID, "order id should be trimmed")
	assert.Equal(t, models.SourceCSV, commission.Source)
	assert.Equal(t, models.StatusCompleted, commission.OrderStatus)
	assert.True(t, decimal.NewFromFloat(12.50).Equal(commission.AffiliateCommission))
	assert.True(t, decimal.NewFromFloat(179.80).Equal(commission.PurchaseValue))
	assert.Equal(t, 2, commission.Quantity)
	assert.Equal(t, "Fone Bluetooth", *commission.ItemName)
	assert.Equal(t, "Eletrônicos", *commission.CategoryL1)
	assert.Equal(t, "campanha-a", *commission.SubID1)
	assert.Equal(t, "Instagram", *commission.Channel)
	assert.Equal(t, "BRL", commission.Currency)
	assert.NotNil(t, commission.OrderDate)
}

func TestNormalizeRow_MissingOrderIDSkips(t *testing.T) {
	row := Row{
		"Status do Pedido": "Concluído",
		"Preço(R$)":        "R$ 10,00",
	}

	commission, ok := NormalizeRow(uuid.New(), row)

	assert.False(t, ok)
	assert.Nil(t, commission)
}

func TestNormalizeRow_BlankOrderIDSkips(t *testing.T) {
	row := Row{"ID do pedido": "   "}

	_, ok := NormalizeRow(uuid.New(), row)

	assert.False(t, ok)
}

func TestNormalizeRow_HeaderVariants(t *testing.T) {
	// Accent-free export headers must resolve to the same fields.
	row := Row{
		"Order ID":                        "ABC-1",
		"Comissao liquida do afiliado(R$)": "R$ 5,00",
		"Status do pedido":                "pendente",
	}

	commission, ok := NormalizeRow(uuid.New(), row)

	assert.True(t, ok)
	assert.Equal(t, "ABC-1", commission.OrderID)
	assert.Equal(t, models.StatusPending, commission.OrderStatus)
	assert.True(t, decimal.NewFromFloat(5).Equal(commission.AffiliateCommission))
}

func TestNormalizeRow_MalformedCellsDegrade(t *testing.T) {
	row := Row{
		"ID do pedido":       "ORD-9",
		"Preço(R$)":          "n/a",
		"Qtd":                "??",
		"Horário do pedido":  "--",
		"Tempo de Conclusão": "",
	}

	commission, ok := NormalizeRow(uuid.New(), row)

	assert.True(t, ok, "bad cells never fail the row")
	assert.True(t, decimal.Zero.Equal(commission.Price))
	assert.Equal(t, 0, commission.Quantity)
	assert.Nil(t, commission.OrderDate)
	assert.Nil(t, commission.CompletionTime)
}
