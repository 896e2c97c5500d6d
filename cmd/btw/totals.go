package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"btw-buddy/internal/format"
	"btw-buddy/internal/models"
	"btw-buddy/internal/pdf"
	"btw-buddy/internal/timeutil"
	"btw-buddy/internal/vat"
)

// lineFile is the accepted input: a bare array of lines or an invoice-like
// object with customer details.
type lineFile struct {
	CustomerName string        `json:"customer_name"`
	IssueDate    string        `json:"issue_date"`
	Lines        []vat.RawLine `json:"lines"`
}

func readLineFile(a *app, path string) (*lineFile, error) {
	var r io.Reader = a.in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var lf lineFile
	if err := json.Unmarshal(data, &lf.Lines); err == nil {
		return &lf, nil
	}
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON array of lines or an object with \"lines\": %w", path, err)
	}
	return &lf, nil
}

func cmdTotals(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("totals", flag.ContinueOnError)
	fs.SetOutput(a.out)
	pdfPath := fs.String("pdf", "", "Also write the totals to this PDF file")
	asJSON := fs.Bool("json", false, "Print the totals as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.out, "Usage: btw totals [-pdf out.pdf] [-json] <lines.json | ->")
		return errUsage
	}

	lf, err := readLineFile(a, fs.Arg(0))
	if err != nil {
		return err
	}
	lines := vat.Sanitize(lf.Lines)
	totals := vat.ComputeTotals(lines)

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(totals); err != nil {
			return err
		}
	} else {
		printTotals(a.out, totals)
	}

	if *pdfPath != "" {
		doc := pdf.Document{
			CustomerName: lf.CustomerName,
			Lines:        lines,
			Totals:       totals,
			GeneratedAt:  timeutil.Now(),
		}
		if lf.IssueDate != "" {
			doc.IssueDate, _ = timeutil.ParseLocal(timeutil.DateLayout, lf.IssueDate)
		}
		if err := writePDF(*pdfPath, doc); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Wrote %s\n", *pdfPath)
	}
	return nil
}

func writePDF(path string, doc pdf.Document) error {
	data, err := pdf.Render(doc)
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func printTotals(out io.Writer, t models.InvoiceTotals) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Rate\tAmount\tVAT\t")
	for _, rate := range vat.KnownRates {
		bucket := t.VATBreakdown[rate]
		fmt.Fprintf(w, "%s%%\t%s\t%s\t\n", rate, format.Currency(bucket.Amount), format.Currency(bucket.VAT))
	}
	fmt.Fprintf(w, "Subtotal\t%s\t\t\n", format.Currency(t.Subtotal))
	fmt.Fprintf(w, "VAT\t\t%s\t\n", format.Currency(t.TotalVAT))
	fmt.Fprintf(w, "Total\t%s\t\t\n", format.Currency(t.Total))
	w.Flush()

	if gap := vat.BreakdownGap(t); !gap.IsZero() {
		fmt.Fprintf(out, "Warning: %s VAT is charged at rates outside 0/9/21%% and is not in the breakdown\n",
			format.Currency(gap))
	}
}

var errNoLines = errors.New("the file has no invoice lines")
