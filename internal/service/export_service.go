package service

import (
	"strings"
	"time"
)

// CSVHeader is the first line of every transaction export
const CSVHeader = "ID,Operation,Amount,Balance,Time,Category,Tags,Memo,Ext"

// ExportService renders the transaction log for external tools
type ExportService struct {
	ledger *LedgerService
}

// NewExportService creates a new ExportService
func NewExportService(ledger *LedgerService) *ExportService {
	return &ExportService{ledger: ledger}
}

// ExportTransactionsCSV renders the log newest first. Tags are joined with
// ';' and the memo is always quoted.
func (s *ExportService) ExportTransactionsCSV() string {
	txs := s.ledger.ListTransactions()

	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteString("\n")
	for _, tx := range txs {
		fields := []string{
			csvField(tx.ID),
			csvField(string(tx.Op)),
			tx.Amount.String(),
			tx.BalanceAfter.String(),
			tx.Timestamp.UTC().Format(time.RFC3339),
			csvField(tx.Category),
			csvField(strings.Join(tx.Tags, ";")),
			quote(tx.Memo),
			csvField(tx.Extension),
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// ExportFilename names an export taken at now
func ExportFilename(now time.Time) string {
	return "transactions-" + now.UTC().Format("20060102-150405") + ".csv"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
