package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"btw-buddy/internal/format"
	"btw-buddy/internal/models"
	"btw-buddy/internal/timeutil"
	"btw-buddy/internal/vat"
)

// subcommand splits "list", "add" and friends off the argument list
func subcommand(a *app, args []string, usage string) (string, []string, error) {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return "", nil, errUsage
	}
	if err := a.requireSession(); err != nil {
		return "", nil, err
	}
	return args[0], args[1:], nil
}

func newTable(a *app) *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func cmdTransactions(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand(a, args, "Usage: btw transactions list [-period 2024-Q3] | add -date -description -kind -amount -rate")
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		fs := flag.NewFlagSet("transactions list", flag.ContinueOnError)
		fs.SetOutput(a.out)
		period := fs.String("period", "", "Only show a period: 2024-07, 2024-Q3 or 2024")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		txs, err := a.client.ListTransactions(ctx, *period)
		if err != nil {
			return err
		}
		w := newTable(a)
		fmt.Fprintln(w, "ID\tDate\tKind\tDescription\tAmount\tVAT\tReceipt")
		for _, tx := range txs {
			receipt := "-"
			if tx.ReceiptID != nil {
				receipt = fmt.Sprintf("%d", *tx.ReceiptID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s (%s)\t%s\n", tx.ID, displayDate(tx.Date), tx.Kind, tx.Description,
				format.Currency(tx.Amount), format.Currency(tx.VATAmount), format.Percent(tx.VATRate), receipt)
		}
		return w.Flush()

	case "add":
		fs := flag.NewFlagSet("transactions add", flag.ContinueOnError)
		fs.SetOutput(a.out)
		date := fs.String("date", timeutil.Now().Format(timeutil.DateLayout), "Booking date, YYYY-MM-DD")
		description := fs.String("description", "", "What the transaction was for")
		kind := fs.String("kind", models.TransactionExpense, "income or expense")
		amount := fs.String("amount", "", "Amount excluding VAT, e.g. 121,50")
		rate := fs.String("rate", "21", "VAT rate in percent")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		tx, err := a.client.CreateTransaction(ctx, models.CreateTransactionRequest{
			Date:        *date,
			Description: *description,
			Kind:        *kind,
			Amount:      vat.ParseAmount(*amount),
			VATRate:     vat.ParseAmount(*rate),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Booked transaction %d: %s + %s VAT\n", tx.ID, format.Currency(tx.Amount), format.Currency(tx.VATAmount))
		return nil
	}
	return fmt.Errorf("unknown transactions command %q", sub)
}

func cmdReceipts(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand(a, args, "Usage: btw receipts list | upload <file> | link -id -transaction | download -id [-out file]")
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		receipts, err := a.client.ListReceipts(ctx)
		if err != nil {
			return err
		}
		w := newTable(a)
		fmt.Fprintln(w, "ID\tFile\tType\tSize\tTransaction\tUploaded")
		for _, rc := range receipts {
			linked := "-"
			if rc.TransactionID != nil {
				linked = fmt.Sprintf("%d", *rc.TransactionID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", rc.ID, rc.Filename, rc.ContentType, rc.Size, linked, format.Date(rc.UploadedAt))
		}
		return w.Flush()

	case "upload":
		if len(rest) != 1 {
			fmt.Fprintln(a.out, "Usage: btw receipts upload <file>")
			return errUsage
		}
		content, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		rc, err := a.client.UploadReceipt(ctx, filepath.Base(rest[0]), content)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Uploaded receipt %d (%s, %d bytes)\n", rc.ID, rc.ContentType, rc.Size)
		return nil

	case "link":
		fs := flag.NewFlagSet("receipts link", flag.ContinueOnError)
		fs.SetOutput(a.out)
		id := fs.Int("id", 0, "Receipt id")
		txID := fs.Int("transaction", 0, "Transaction id")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		rc, err := a.client.LinkReceipt(ctx, *id, *txID)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Receipt %d linked to transaction %d\n", rc.ID, *rc.TransactionID)
		return nil

	case "download":
		fs := flag.NewFlagSet("receipts download", flag.ContinueOnError)
		fs.SetOutput(a.out)
		id := fs.Int("id", 0, "Receipt id")
		out := fs.String("out", "", "Where to save the file (default receipt-<id>)")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		data, err := a.client.DownloadReceipt(ctx, *id)
		if err != nil {
			return err
		}
		if *out == "" {
			*out = fmt.Sprintf("receipt-%d", *id)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Saved %s\n", *out)
		return nil
	}
	return fmt.Errorf("unknown receipts command %q", sub)
}

func cmdInvoices(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand(a, args, "Usage: btw invoices list | create <invoice.json> | pdf -id [-out file]")
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		invoices, err := a.client.ListInvoices(ctx)
		if err != nil {
			return err
		}
		w := newTable(a)
		fmt.Fprintln(w, "ID\tNumber\tDate\tCustomer\tSubtotal\tVAT\tTotal")
		for _, inv := range invoices {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", inv.ID, inv.InvoiceNumber, displayDate(inv.IssueDate), inv.CustomerName,
				format.Currency(inv.Totals.Subtotal), format.Currency(inv.Totals.TotalVAT), format.Currency(inv.Totals.Total))
		}
		return w.Flush()

	case "create":
		if len(rest) != 1 {
			fmt.Fprintln(a.out, "Usage: btw invoices create <invoice.json | ->")
			return errUsage
		}
		lf, err := readLineFile(a, rest[0])
		if err != nil {
			return err
		}
		if len(lf.Lines) == 0 {
			return errNoLines
		}
		inv, err := a.client.CreateInvoice(ctx, models.CreateInvoiceRequest{
			CustomerName: lf.CustomerName,
			IssueDate:    lf.IssueDate,
			Lines:        vat.Sanitize(lf.Lines),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created invoice %s (id %d)\n", inv.InvoiceNumber, inv.ID)
		printTotals(a.out, inv.Totals)
		return nil

	case "pdf":
		fs := flag.NewFlagSet("invoices pdf", flag.ContinueOnError)
		fs.SetOutput(a.out)
		id := fs.Int("id", 0, "Invoice id")
		out := fs.String("out", "", "Where to save the PDF (default invoice-<id>.pdf)")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		data, err := a.client.InvoicePDF(ctx, *id)
		if err != nil {
			return err
		}
		if *out == "" {
			*out = fmt.Sprintf("invoice-%d.pdf", *id)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Saved %s\n", *out)
		return nil
	}
	return fmt.Errorf("unknown invoices command %q", sub)
}

func cmdVATReturns(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand(a, args, "Usage: btw vat-returns list | prepare [-period 2024-Q3] | submit -id")
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		returns, err := a.client.ListVATReturns(ctx)
		if err != nil {
			return err
		}
		w := newTable(a)
		fmt.Fprintln(w, "ID\tPeriod\tOutput VAT\tInput VAT\tPayable\tStatus")
		for _, r := range returns {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Period, format.Currency(r.OutputVAT),
				format.Currency(r.InputVAT), format.Currency(r.Payable), r.Status)
		}
		return w.Flush()

	case "prepare":
		fs := flag.NewFlagSet("vat-returns prepare", flag.ContinueOnError)
		fs.SetOutput(a.out)
		period := fs.String("period", timeutil.QuarterLabel(timeutil.Now()), "Period to declare: 2024-07, 2024-Q3 or 2024")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		ret, err := a.client.PrepareVATReturn(ctx, *period)
		if err != nil {
			return err
		}
		printReturn(a, ret)
		return nil

	case "submit":
		fs := flag.NewFlagSet("vat-returns submit", flag.ContinueOnError)
		fs.SetOutput(a.out)
		id := fs.Int("id", 0, "Return id")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		ret, err := a.client.SubmitVATReturn(ctx, *id)
		if err != nil {
			return err
		}
		printReturn(a, ret)
		return nil
	}
	return fmt.Errorf("unknown vat-returns command %q", sub)
}

func printReturn(a *app, r *models.VATReturn) {
	fmt.Fprintf(a.out, "VAT return %d for %s (%s)\n", r.ID, r.Period, r.Status)
	fmt.Fprintf(a.out, "  Output VAT: %s\n", format.Currency(r.OutputVAT))
	fmt.Fprintf(a.out, "  Input VAT:  %s\n", format.Currency(r.InputVAT))
	fmt.Fprintf(a.out, "  Payable:    %s\n", format.Currency(r.Payable))
}

// displayDate shows a stored YYYY-MM-DD date as dd-mm-yyyy
func displayDate(s string) string {
	t, err := timeutil.ParseLocal(timeutil.DateLayout, s)
	if err != nil {
		return s
	}
	return format.Date(t)
}
