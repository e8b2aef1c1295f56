package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/sales-etl/internal/contracts"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "DB 없이 Extract → Transform 만 실행 (dry run)",
	Long: `워크북을 읽고 정규화한 결과를 출력합니다. DATABASE_URL 이 필요 없습니다.

Example:
  go run ./cmd/salesetl transform
  go run ./cmd/salesetl transform --limit 20`,
	RunE: runTransform,
}

var transformLimit int

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().IntVar(&transformLimit, "limit", 10, "출력할 샘플 행 수")
}

func runTransform(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.timeoutContext()
	defer cancel()

	records, summary, err := a.runner.Preview(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, "Transform Preview")
	fmt.Fprintf(out, "  Rows         : %d\n", summary.Rows)
	fmt.Fprintf(out, "  Returns      : %d\n", summary.Returns)
	fmt.Fprintf(out, "  Null dates   : %d\n", summary.NullDates)
	fmt.Fprintf(out, "  Mapped       : %s\n", strings.Join(summary.MappedFields, ", "))
	if len(summary.PassThrough) > 0 {
		fmt.Fprintf(out, "  Pass-through : %s\n", strings.Join(summary.PassThrough, ", "))
	}
	fmt.Fprintln(out, singleLine)

	cleaned := 0
	for i := range records {
		if records[i].IsCleaned() {
			cleaned++
		}
	}
	fmt.Fprintf(out, "  Cleaned      : %d of %d\n\n", cleaned, len(records))

	n := transformLimit
	if n > len(records) {
		n = len(records)
	}
	if n <= 0 {
		return nil
	}

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, previewRow(&records[i]))
	}
	printTable(out, []string{"invoice", "stock_code", "quantity", "unit_price", "invoice_date", "customer_id", "total_amount", "return"}, rows)

	return nil
}

func previewRow(r *contracts.SalesRecord) []string {
	optFloat := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}

	date := "-"
	if r.InvoiceDate != nil {
		date = r.InvoiceDate.Format("2006-01-02 15:04")
	}
	customer := "-"
	if r.CustomerID != nil {
		customer = *r.CustomerID
	}

	return []string{
		r.Invoice,
		r.StockCode,
		optFloat(r.Quantity),
		optFloat(r.UnitPrice),
		date,
		customer,
		strconv.FormatFloat(r.TotalAmount, 'f', 2, 64),
		strconv.FormatBool(r.IsReturn),
	}
}
