// Package receipt renders committed sales as fixed-width receipt text.
package receipt

import (
	"fmt"
	"register-service/internal/models"
	"register-service/internal/money"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Width        = 40
	nameWidth    = 18
	dateLayout   = "2006-01-02 15:04:05"
	defaultTitle = "SUPERMARKET"
)

type Formatter struct {
	Title    string
	Subtitle string
	Footer   string
}

func DefaultFormatter() Formatter {
	return Formatter{
		Title:    defaultTitle,
		Subtitle: "Management System",
		Footer:   "Thank you for shopping!",
	}
}

// Format renders the receipt with the default header and footer.
func Format(sale *models.Sale, items []models.SaleItem, tax decimal.Decimal) string {
	return DefaultFormatter().Format(sale, items, tax)
}

// Format is pure: the same sale, items and tax always produce the same text.
// The printed total is the stored pre-tax total plus tax.
func (f Formatter) Format(sale *models.Sale, items []models.SaleItem, tax decimal.Decimal) string {
	rule := strings.Repeat("=", Width)
	thin := strings.Repeat("-", Width)

	date := "N/A"
	if !sale.CreatedAt.IsZero() {
		date = sale.CreatedAt.Format(dateLayout)
	}

	lines := []string{
		rule,
		center(f.Title, Width),
		center(f.Subtitle, Width),
		rule,
		"",
		"  Date:    " + date,
		fmt.Sprintf("  Receipt: #%d", sale.SaleID),
		"  Payment: " + sale.PaymentMethod,
		"",
		thin,
		fmt.Sprintf("  %-18s %4s %7s %7s", "Item", "Qty", "Price", "Sub"),
		thin,
	}

	subtotals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		subtotals = append(subtotals, item.Subtotal)
		lines = append(lines, fmt.Sprintf("  %s %4d %7s %7s",
			padName(item.ProductName),
			item.Quantity,
			money.Format(item.UnitPrice),
			money.Format(item.Subtotal),
		))
	}

	tax = money.Round(tax)
	lines = append(lines,
		thin,
		amountLine("Subtotal:", money.Sum(subtotals...)),
		amountLine("Tax:", tax),
		amountLine("TOTAL:", money.Round(sale.Total.Add(tax))),
		"",
		rule,
		center(f.Footer, Width),
		rule,
	)

	return strings.Join(lines, "\n")
}

func amountLine(label string, amount decimal.Decimal) string {
	return fmt.Sprintf("  %-26s $%8s", label, money.Format(amount))
}

// padName truncates to the item column by runes and pads to its width.
func padName(name string) string {
	runes := []rune(name)
	if len(runes) > nameWidth {
		runes = runes[:nameWidth]
	}
	return string(runes) + strings.Repeat(" ", nameWidth-len(runes))
}

func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
