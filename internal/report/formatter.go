// Package report renders correlation results and update summaries as
// human-readable text for the CLI and daemon logs.
package report

import (
	"fmt"
	"strings"

	"StockCorr/internal/correlation"
	"StockCorr/internal/model"
)

// FormatPairResult formats a single pair correlation across all windows.
func FormatPairResult(result model.CorrelationResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 相關係數 | %s vs %s\n",
		label(result.Code1, result.Name1), label(result.Code2, result.Name2)))
	b.WriteString(strings.Repeat("─", 48) + "\n")

	for _, w := range result.Windows {
		if !w.Sufficient {
			b.WriteString(fmt.Sprintf("%4d 日: %8.4f  (資料不足)\n", w.Window, w.Coefficient))
			continue
		}
		b.WriteString(fmt.Sprintf("%4d 日: %8.4f  (%s)\n",
			w.Window, w.Coefficient, correlation.FormatStrength(w.Coefficient)))
	}
	return b.String()
}

// FormatRanking formats a ranked one-vs-many result table.
func FormatRanking(reference string, results []model.CorrelationResult, windows []int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 與 %s 相關性最高的前 %d 檔股票\n", reference, len(results)))
	b.WriteString(strings.Repeat("─", 64) + "\n")

	b.WriteString(fmt.Sprintf("%-4s %-8s %-12s", "排名", "代碼", "名稱"))
	for _, w := range windows {
		b.WriteString(fmt.Sprintf(" %7d日", w))
	}
	b.WriteString("\n")

	for i, r := range results {
		b.WriteString(fmt.Sprintf("%-4d %-8s %-12s", i+1, r.Code2, r.Name2))
		for _, w := range windows {
			b.WriteString(fmt.Sprintf(" %8.4f", r.Coefficient(w)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatUpdateSummary formats the outcome of an update run.
func FormatUpdateSummary(summary model.UpdateSummary) string {
	var b strings.Builder

	b.WriteString("✅ 更新完成\n")
	b.WriteString(fmt.Sprintf("  寫入: %d 筆 | 已最新: %d 檔 | 拒絕: %d 筆 | 失敗: %d 檔\n",
		summary.Fetched, summary.Skipped, summary.Rejected, summary.Failed))
	for code, err := range summary.Errors {
		b.WriteString(fmt.Sprintf("  ✗ %s: %v\n", code, err))
	}
	return b.String()
}

// FormatStoreStats formats the diagnostics counters.
func FormatStoreStats(stocks, records int) string {
	return fmt.Sprintf("資料庫統計: 股票 %d 檔, 價格記錄 %d 筆", stocks, records)
}

func label(code, name string) string {
	if name == "" {
		return code
	}
	return code + " " + name
}
