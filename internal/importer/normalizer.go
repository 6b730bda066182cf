package importer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// Row is one raw CSV line keyed by header name.
type Row map[string]string

// fieldCandidates maps each canonical commission field to the CSV header
// spellings seen in Shopee affiliate exports, tried in priority order.
var fieldCandidates = map[string][]string{
	"order_id":               {"ID do pedido", "ID do Pedido", "Order ID"},
	"order_status":           {"Status do Pedido", "Status do pedido", "Order Status"},
	"payment_id":             {"ID do pagamento", "Payment ID"},
	"order_date":             {"Horário do pedido", "Horario do pedido", "Order Time"},
	"completion_time":        {"Tempo de Conclusão", "Tempo de Conclusao", "Completion Time"},
	"click_time":             {"Tempo dos Cliques", "Tempo do Clique", "Click Time"},
	"store_name":             {"Nome da loja", "Nome da Loja", "Store Name"},
	"store_id":               {"ID da loja", "ID da Loja", "Store ID"},
	"store_type":             {"Tipo da Loja", "Tipo da loja", "Store Type"},
	"item_id":                {"ID do item", "ID do Item", "Item ID"},
	"item_name":              {"Nome do Item", "Nome do item", "Item Name"},
	"product_type":           {"Tipo de Produto", "Tipo de produto", "Product Type"},
	"category_l1":            {"Categoria Global L1", "Category L1"},
	"category_l2":            {"Categoria Global L2", "Category L2"},
	"category_l3":            {"Categoria Global L3", "Category L3"},
	"price":                  {"Preço(R$)", "Preco(R$)", "Price"},
	"quantity":               {"Qtd", "Quantidade", "Qty"},
	"purchase_value":         {"Valor de Compra(R$)", "Valor de compra(R$)", "Purchase Value"},
	"refund_value":           {"Valor do Reembolso(R$)", "Refund Value"},
	"shopee_commission_rate": {"Taxa de comissão Shopee do item", "Taxa de comissao Shopee do item"},
	"shopee_commission":      {"Comissão do Item da Shopee(R$)", "Comissao do Item da Shopee(R$)"},
	"seller_commission_rate": {"Taxa de comissão do vendedor do item", "Taxa de comissao do vendedor do item"},
	"seller_commission":      {"Comissão do Item da Marca(R$)", "Comissao do Item da Marca(R$)"},
	"total_item_commission":  {"Comissão total do item(R$)", "Comissao total do item(R$)"},
	"total_order_commission": {"Comissão total do pedido(R$)", "Comissao total do pedido(R$)"},
	"affiliate_commission":   {"Comissão líquida do afiliado(R$)", "Comissao liquida do afiliado(R$)"},
	"affiliate_status":       {"Status do item do afiliado", "Affiliate Status"},
	"attribution_type":       {"Tipo de atribuição", "Tipo de atribuicao", "Attribution Type"},
	"buyer_status":           {"Status do Comprador", "Buyer Status"},
	"sub_id1":                {"Sub_id1", "SubID1", "Sub ID 1"},
	"sub_id2":                {"Sub_id2", "SubID2", "Sub ID 2"},
	"sub_id3":                {"Sub_id3", "SubID3", "Sub ID 3"},
	"sub_id4":                {"Sub_id4", "SubID4", "Sub ID 4"},
	"sub_id5":                {"Sub_id5", "SubID5", "Sub ID 5"},
	"channel":                {"Canal", "Channel"},
}

// datetime layouts seen across exports and API payloads.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2006-01-02",
}

// lookup returns the first non-empty value among the candidate headers for a
// canonical field.
func lookup(row Row, field string) string {
	for _, header := range fieldCandidates[field] {
		if value, ok := row[header]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// ParseMoney converts a source-locale monetary string ("R$ 1.234,56") into a
// decimal. Malformed values degrade to zero so a bad cell never fails the row.
func ParseMoney(value string) decimal.Decimal {
	cleaned := strings.NewReplacer("R$", "", " ", "", " ", "", "\t", "").Replace(value)
	if cleaned == "" {
		return decimal.Zero
	}
	if strings.Contains(cleaned, ",") {
		// "." is a thousands marker when "," is the decimal separator.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	parsed, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// ParsePercent converts a percentage string ("3,5%") into a decimal, with the
// same zero fallback as ParseMoney.
func ParsePercent(value string) decimal.Decimal {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if cleaned == "" {
		return decimal.Zero
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	parsed, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// ParseDateTime parses a timestamp against the known layouts. Blank and
// placeholder values ("--") yield nil, as does any unparseable value.
func ParseDateTime(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "--" {
		return nil
	}
	for _, layout := range datetimeLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return &parsed
		}
	}
	return nil
}

// NormalizeStatus maps a source status onto the closed completed/pending/
// cancelled set, falling back to a lowercase pass-through when unrecognized.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "concluído", "concluido", "completed":
		return models.StatusCompleted
	case "pendente", "pending":
		return models.StatusPending
	case "cancelado", "cancelled", "canceled":
		return models.StatusCancelled
	default:
		return strings.ToLower(strings.TrimSpace(status))
	}
}

// ParseQuantity parses an integer quantity with a zero fallback.
func ParseQuantity(value string) int {
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return int(parsed.IntPart())
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// NormalizeRow converts one raw CSV row into a Commission. The order id is
// the only required field: rows without it return (nil, false) and are
// counted as skipped by the caller. Malformed numeric and date cells degrade
// to zero/nil and never fail the row.
func NormalizeRow(userID uuid.UUID, row Row) (*models.Commission, bool) {
	// The order id is also the cross-source join key, so surrounding
	// whitespace is trimmed before matching.
	orderID := lookup(row, "order_id")
	if orderID == "" {
		return nil, false
	}

	return &models.Commission{
		UserID:               userID,
		OrderID:              orderID,
		Source:               models.SourceCSV,
		PaymentID:            optional(lookup(row, "payment_id")),
		OrderStatus:          NormalizeStatus(lookup(row, "order_status")),
		OrderDate:            ParseDateTime(lookup(row, "order_date")),
		CompletionTime:       ParseDateTime(lookup(row, "completion_time")),
		ClickTime:            ParseDateTime(lookup(row, "click_time")),
		StoreID:              optional(lookup(row, "store_id")),
		StoreName:            optional(lookup(row, "store_name")),
		StoreType:            optional(lookup(row, "store_type")),
		ItemID:               optional(lookup(row, "item_id")),
		ItemName:             optional(lookup(row, "item_name")),
		ProductType:          optional(lookup(row, "product_type")),
		CategoryL1:           optional(lookup(row, "category_l1")),
		CategoryL2:           optional(lookup(row, "category_l2")),
		CategoryL3:           optional(lookup(row, "category_l3")),
		Price:                ParseMoney(lookup(row, "price")),
		Quantity:             ParseQuantity(lookup(row, "quantity")),
		PurchaseValue:        ParseMoney(lookup(row, "purchase_value")),
		RefundValue:          ParseMoney(lookup(row, "refund_value")),
		ShopeeCommissionRate: ParsePercent(lookup(row, "shopee_commission_rate")),
		ShopeeCommission:     ParseMoney(lookup(row, "shopee_commission")),
		SellerCommissionRate: ParsePercent(lookup(row, "seller_commission_rate")),
		SellerCommission:     ParseMoney(lookup(row, "seller_commission")),
		TotalItemCommission:  ParseMoney(lookup(row, "total_item_commission")),
		TotalOrderCommission: ParseMoney(lookup(row, "total_order_commission")),
		AffiliateCommission:  ParseMoney(lookup(row, "affiliate_commission")),
		AffiliateStatus:      optional(lookup(row, "affiliate_status")),
		AttributionType:      optional(lookup(row, "attribution_type")),
		BuyerStatus:          optional(lookup(row, "buyer_status")),
		SubID1:               optional(lookup(row, "sub_id1")),
		SubID2:               optional(lookup(row, "sub_id2")),
		SubID3:               optional(lookup(row, "sub_id3")),
		SubID4:               optional(lookup(row, "sub_id4")),
		SubID5:               optional(lookup(row, "sub_id5")),
		Channel:              optional(lookup(row, "channel")),
		Currency:             "BRL",
	}, true
}
