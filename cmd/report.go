package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"invoiceqc/pkg/models"
)

// writeJSONFile pretty-prints v as JSON to path, creating parent directories.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// printReport renders per-invoice pass/fail lines plus the batch summary
// to stdout.
func printReport(report *models.BatchReport) {
	for _, r := range report.Results {
		status := "PASS"
		if !r.IsValid {
			status = "FAIL"
		}

		rules := make([]string, 0, 3)
		for _, e := range r.Errors {
			if len(rules) == 3 {
				break
			}
			rules = append(rules, e.Rule)
		}
		detail := strings.Join(rules, ", ")
		if extra := len(r.Errors) - len(rules); extra > 0 {
			detail += fmt.Sprintf(" (+%d)", extra)
		}

		fmt.Printf("  %-24s %-4s %s\n", r.InvoiceID, status, detail)
	}

	summary := report.Summary
	fmt.Println("\nSummary:")
	fmt.Printf("  Total:   %d\n", summary.TotalInvoices)
	fmt.Printf("  Valid:   %d\n", summary.ValidInvoices)
	fmt.Printf("  Invalid: %d\n", summary.InvalidInvoices)

	if len(summary.ErrorCounts) > 0 {
		fmt.Println("\nTop validation errors:")
		for _, rc := range topErrors(summary.ErrorCounts, 5) {
			fmt.Printf("  - %s: %d\n", rc.rule, rc.count)
		}
	}
}

type ruleCount struct {
	rule  string
	count int
}

// topErrors returns up to n rules ordered by descending count, ties by name.
func topErrors(counts map[string]int, n int) []ruleCount {
	out := make([]ruleCount, 0, len(counts))
	for rule, count := range counts {
		out = append(out, ruleCount{rule, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].rule < out[j].rule
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
