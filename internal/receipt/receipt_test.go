package receipt

import (
	"register-service/internal/models"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSale() (*models.Sale, []models.SaleItem) {
	milkID := int64(1)
	sale := &models.Sale{
		SaleID:        42,
		Total:         decimal.RequireFromString("23.49"),
		PaymentMethod: models.PaymentCard,
		CreatedAt:     time.Date(2026, 3, 14, 9, 30, 5, 0, time.UTC),
	}
	items := []models.SaleItem{
		{
			SaleID:      42,
			ProductID:   &milkID,
			ProductName: "Milk",
			Quantity:    7,
			UnitPrice:   decimal.RequireFromString("3.00"),
			Subtotal:    decimal.RequireFromString("21.00"),
		},
		{
			SaleID:      42,
			ProductName: "Whole Grain Sourdough Bread Loaf",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("2.49"),
			Subtotal:    decimal.RequireFromString("2.49"),
		},
	}
	return sale, items
}

func TestFormatLayout(t *testing.T) {
	sale, items := sampleSale()

	out := Format(sale, items, decimal.RequireFromString("1.17"))
	lines := strings.Split(out, "\n")

	expected := []string{
		"========================================",
		"              SUPERMARKET               ",
		"           Management System            ",
		"========================================",
		"",
		"  Date:    2026-03-14 09:30:05",
		"  Receipt: #42",
		"  Payment: Card",
		"",
		"----------------------------------------",
		"  Item                Qty   Price     Sub",
		"----------------------------------------",
		"  Milk                  7    3.00   21.00",
		"  Whole Grain Sourdo    1    2.49    2.49",
		"----------------------------------------",
		"  Subtotal:                  $   23.49",
		"  Tax:                       $    1.17",
		"  TOTAL:                     $   24.66",
		"",
		"========================================",
		"        Thank you for shopping!         ",
		"========================================",
	}
	assert.Equal(t, expected, lines)
}

func TestFormatIsDeterministic(t *testing.T) {
	sale, items := sampleSale()
	tax := decimal.RequireFromString("1.17")

	assert.Equal(t, Format(sale, items, tax), Format(sale, items, tax))
}

func TestFormatTruncatesNamesByRune(t *testing.T) {
	sale, items := sampleSale()
	items[1].ProductName = "Ćevapčići Spezialität Großpackung"

	lines := strings.Split(Format(sale, items, decimal.Zero), "\n")
	header := lines[10]
	row := lines[13]

	assert.Equal(t, "  Ćevapčići Speziali    1    2.49    2.49", row)
	assert.Equal(t, utf8.RuneCountInString(header), utf8.RuneCountInString(row))
}

func TestFormatterCustomHeader(t *testing.T) {
	sale, items := sampleSale()
	f := Formatter{Title: "CORNER SHOP", Subtitle: "Main Street 1", Footer: "See you soon"}

	lines := strings.Split(f.Format(sale, items, decimal.Zero), "\n")
	require.Greater(t, len(lines), 3)
	assert.Equal(t, "CORNER SHOP", strings.TrimSpace(lines[1]))
	assert.Equal(t, "Main Street 1", strings.TrimSpace(lines[2]))
	assert.Equal(t, "See you soon", strings.TrimSpace(lines[len(lines)-2]))
	assert.Contains(t, lines, "  TOTAL:                     $   23.49")
}

func TestFormatEmptyDate(t *testing.T) {
	sale, items := sampleSale()
	sale.CreatedAt = time.Time{}

	assert.Contains(t, Format(sale, items, decimal.Zero), "  Date:    N/A")
}
