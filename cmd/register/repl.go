package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"register-service/internal/cart"
	"register-service/internal/models"
	"register-service/internal/money"
	"register-service/internal/receipt"
	"register-service/internal/repository"
	"register-service/internal/sales"
	"strconv"
	"strings"
)

const helpText = `commands:
  scan <barcode> [qty]   add a product by barcode
  add <id> [qty]         add a product by id
  remove <line>          remove a cart line (numbered as shown)
  clear                  empty the cart
  cart                   show the cart and totals
  find <text>            search the catalog
  pay [method]           complete the sale (Cash, Card, Mobile)
  recent                 list recent sales
  receipt <sale id>      print a receipt
  help                   show this text
  quit                   leave the register`

type saleReader interface {
	cart.Committer
	GetSale(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, error)
	ListRecentSales(ctx context.Context, limit int) ([]models.SaleSummary, error)
}

// register is a single-cashier terminal holding one in-process cart.
type register struct {
	products repository.ProductRepository
	sales    saleReader
	receipts receipt.Formatter
	cart     *cart.Cart
	out      io.Writer
}

func newRegister(products repository.ProductRepository, sales saleReader, receipts receipt.Formatter, out io.Writer) *register {
	return &register{
		products: products,
		sales:    sales,
		receipts: receipts,
		cart:     cart.New(),
		out:      out,
	}
}

func (r *register) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(r.out, "> ")

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			if fields[0] == "quit" || fields[0] == "exit" {
				return nil
			}
			if err := r.exec(ctx, fields[0], fields[1:]); err != nil {
				fmt.Fprintf(r.out, "error: %s\n", describe(err))
			}
		}
		fmt.Fprint(r.out, "> ")
	}

	return scanner.Err()
}

func (r *register) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "scan":
		if len(args) == 0 {
			return usage("scan <barcode> [qty]")
		}
		qty, err := quantityArg(args[1:])
		if err != nil {
			return err
		}
		if err := r.cart.AddByBarcode(ctx, r.products, args[0], qty); err != nil {
			return err
		}
		r.printCart()

	case "add":
		if len(args) == 0 {
			return usage("add <id> [qty]")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return usage("add <id> [qty]")
		}
		qty, err := quantityArg(args[1:])
		if err != nil {
			return err
		}
		if err := r.cart.Add(ctx, r.products, id, qty); err != nil {
			return err
		}
		r.printCart()

	case "remove":
		if len(args) != 1 {
			return usage("remove <line>")
		}
		line, err := strconv.Atoi(args[0])
		if err != nil {
			return usage("remove <line>")
		}
		if err := r.cart.Remove(line - 1); err != nil {
			return err
		}
		r.printCart()

	case "clear":
		r.cart.Clear()
		fmt.Fprintln(r.out, "cart cleared")

	case "cart":
		r.printCart()

	case "find":
		return r.find(ctx, strings.Join(args, " "))

	case "pay":
		return r.pay(ctx, strings.Join(args, " "))

	case "recent":
		return r.recent(ctx)

	case "receipt":
		if len(args) != 1 {
			return usage("receipt <sale id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return usage("receipt <sale id>")
		}
		return r.printReceipt(ctx, id)

	case "help":
		fmt.Fprintln(r.out, helpText)

	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}

	return nil
}

func (r *register) printCart() {
	lines := r.cart.Snapshot()
	if len(lines) == 0 {
		fmt.Fprintln(r.out, "cart is empty")
		return
	}

	for i, l := range lines {
		fmt.Fprintf(r.out, "%2d. %-24s %3d x %7s = %8s\n",
			i+1, l.Name, l.Quantity, money.Format(l.UnitPrice), money.Format(l.Subtotal))
	}

	totals := r.cart.Totals()
	fmt.Fprintf(r.out, "    items: %d  subtotal: %s  tax: %s  total: %s\n",
		totals.ItemCount, money.Format(totals.Subtotal), money.Format(totals.Tax), money.Format(totals.Total))
}

func (r *register) find(ctx context.Context, keyword string) error {
	products, err := r.products.Search(ctx, models.ProductFilter{Keyword: keyword})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(r.out, "no products found")
		return nil
	}

	for _, p := range products {
		barcode := "-"
		if p.Barcode != nil {
			barcode = *p.Barcode
		}
		fmt.Fprintf(r.out, "%4d  %-14s %-24s %7s  stock %d\n",
			p.ProductID, barcode, p.Name, money.Format(p.Price), p.Stock)
	}
	return nil
}

func (r *register) pay(ctx context.Context, method string) error {
	total := r.cart.Totals().Total

	saleID, err := r.cart.Checkout(ctx, r.sales, method)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "sale #%d completed, charged %s\n", saleID, money.Format(total))
	return r.printReceipt(ctx, saleID)
}

func (r *register) recent(ctx context.Context) error {
	summaries, err := r.sales.ListRecentSales(ctx, repository.DefaultRecentSalesLimit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(r.out, "no sales yet")
		return nil
	}

	for _, s := range summaries {
		fmt.Fprintf(r.out, "#%-5d %s  %-8s %2d lines  %8s\n",
			s.SaleID, s.CreatedAt.Format("2006-01-02 15:04"), s.PaymentMethod, s.ItemCount, money.Format(s.Total))
	}
	return nil
}

func (r *register) printReceipt(ctx context.Context, saleID int64) error {
	sale, items, err := r.sales.GetSale(ctx, saleID)
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, r.receipts.Format(sale, items, money.Tax(sale.Total)))
	return nil
}

func quantityArg(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	qty, err := strconv.Atoi(args[0])
	if err != nil || qty <= 0 {
		return 0, fmt.Errorf("%w: quantity must be a positive number", repository.ErrInvalidInput)
	}
	return qty, nil
}

func usage(text string) error {
	return fmt.Errorf("%w: usage: %s", repository.ErrInvalidInput, text)
}

// describe turns the errors a cashier can fix into short messages.
func describe(err error) string {
	var stockErr *sales.StockError
	switch {
	case errors.As(err, &stockErr):
		return fmt.Sprintf("only %d of %s in stock", stockErr.Available, stockErr.Name)
	case errors.Is(err, sales.ErrEmptyCart):
		return "cart is empty"
	case errors.Is(err, cart.ErrIndexOutOfRange):
		return "no such cart line"
	case errors.Is(err, sales.ErrUnknownProduct):
		return "product not found"
	case errors.Is(err, repository.ErrNotFound):
		return "not found"
	default:
		return err.Error()
	}
}
