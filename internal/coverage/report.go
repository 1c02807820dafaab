package coverage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Format names one of the three report shapes §6.5 mandates.
type Format int

const (
	FormatSummary Format = iota
	FormatHTML
	FormatLCOV
)

// ParseFormat accepts the same spellings the original CLI did.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "summary", "text":
		return FormatSummary, nil
	case "html":
		return FormatHTML, nil
	case "lcov":
		return FormatLCOV, nil
	default:
		return 0, fmt.Errorf("unknown coverage format: %s", s)
	}
}

// GenerateReport renders collector's data in the requested format.
func GenerateReport(c *Collector, format Format) string {
	switch format {
	case FormatHTML:
		return generateHTMLReport(c)
	case FormatLCOV:
		return generateLCOVReport(c)
	default:
		return generateSummaryReport(c)
	}
}

// generateSummaryReport renders a colorized text summary via tablewriter,
// the way the CLI-adjacent examples in the pack render tabular reports
// (SPEC_FULL §A.2).
func generateSummaryReport(c *Collector) string {
	summary := c.GenerateSummary()
	var b strings.Builder

	b.WriteString("\nCoverage Report\n")
	b.WriteString("===============\n\n")
	fmt.Fprintf(&b, "Lines:     %d/%d (%.1f%%)\n", summary.CoveredLines, summary.TotalLines, summary.LineCoveragePercent())
	fmt.Fprintf(&b, "Branches:  %d/%d (%.1f%%)\n", summary.CoveredBranches, summary.TotalBranches, summary.BranchCoveragePercent())
	fmt.Fprintf(&b, "Functions: %d\n\n", summary.TotalFunctions)

	if len(summary.Files) == 0 {
		return b.String()
	}

	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"Status", "File", "Lines", "Branches"})
	table.SetAutoWrapText(false)
	for _, f := range summary.Files {
		table.Append([]string{
			statusBadge(f.LineCoveragePercent),
			f.SourceFile,
			fmt.Sprintf("%.1f%%", f.LineCoveragePercent),
			fmt.Sprintf("%.1f%%", f.BranchCoveragePercent),
		})
	}
	table.Render()
	return b.String()
}

// statusBadge colorizes a line-coverage status the way coverage tooling in
// the pack's CLI-adjacent repos colorizes pass/warn/fail output.
func statusBadge(percent float64) string {
	switch {
	case percent >= 80.0:
		return color.GreenString("OK")
	case percent >= 50.0:
		return color.YellowString("WARN")
	default:
		return color.RedString("LOW")
	}
}

func generateHTMLReport(c *Collector) string {
	summary := c.GenerateSummary()
	files := c.BySourceFile()

	var h strings.Builder
	h.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	h.WriteString("<title>Stratum Coverage Report</title>\n<style>\n")
	h.WriteString(htmlStyles)
	h.WriteString("</style>\n</head>\n<body>\n")
	h.WriteString("<div class=\"header\"><h1>Stratum Coverage Report</h1></div>\n")

	h.WriteString("<div class=\"summary\"><h2>Summary</h2><table>\n")
	h.WriteString("<tr><th>Metric</th><th>Covered</th><th>Total</th><th>Coverage</th></tr>\n")
	fmt.Fprintf(&h, "<tr><td>Lines</td><td>%d</td><td>%d</td><td class=\"%s\">%.1f%%</td></tr>\n",
		summary.CoveredLines, summary.TotalLines, htmlCoverageClass(summary.LineCoveragePercent()), summary.LineCoveragePercent())
	fmt.Fprintf(&h, "<tr><td>Branches</td><td>%d</td><td>%d</td><td class=\"%s\">%.1f%%</td></tr>\n",
		summary.CoveredBranches, summary.TotalBranches, htmlCoverageClass(summary.BranchCoveragePercent()), summary.BranchCoveragePercent())
	fmt.Fprintf(&h, "<tr><td>Functions</td><td colspan=\"2\">%d</td><td>-</td></tr>\n", summary.TotalFunctions)
	h.WriteString("</table></div>\n")

	h.WriteString("<div class=\"files\"><h2>Files</h2><table>\n")
	h.WriteString("<tr><th>File</th><th>Lines</th><th>Branches</th><th>Functions</th></tr>\n")
	for _, f := range summary.Files {
		fmt.Fprintf(&h, "<tr><td>%s</td><td class=\"%s\">%.1f%%</td><td class=\"%s\">%.1f%%</td><td>%d</td></tr>\n",
			f.SourceFile, htmlCoverageClass(f.LineCoveragePercent), f.LineCoveragePercent,
			htmlCoverageClass(f.BranchCoveragePercent), f.BranchCoveragePercent, len(f.Functions))
	}
	h.WriteString("</table></div>\n")

	h.WriteString("<div class=\"uncovered\"><h2>Uncovered Lines</h2>\n")
	sourceNames := make([]string, 0, len(files))
	for name := range files {
		sourceNames = append(sourceNames, name)
	}
	sort.Strings(sourceNames)
	for _, source := range sourceNames {
		file := files[source]
		uncovered := file.UncoveredLines()
		if len(uncovered) == 0 {
			continue
		}
		fmt.Fprintf(&h, "<h3>%s</h3>\n<p class=\"uncovered-lines\">", source)
		strs := make([]string, len(uncovered))
		for i, l := range uncovered {
			strs[i] = strconv.Itoa(l)
		}
		h.WriteString(strings.Join(strs, ", "))
		h.WriteString("</p>\n")
	}
	h.WriteString("</div>\n</body>\n</html>\n")
	return h.String()
}

func htmlCoverageClass(percent float64) string {
	switch {
	case percent >= 80.0:
		return "high"
	case percent >= 50.0:
		return "medium"
	default:
		return "low"
	}
}

const htmlStyles = `
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
.header { background: #333; color: white; padding: 20px; margin: -20px -20px 20px -20px; }
.header h1 { margin: 0; }
.summary, .files, .uncovered { background: white; border-radius: 8px; padding: 20px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
h2 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
h3 { color: #666; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 10px; text-align: left; border-bottom: 1px solid #eee; }
th { background: #f9f9f9; font-weight: 600; }
.high { color: #22863a; font-weight: bold; }
.medium { color: #b08800; font-weight: bold; }
.low { color: #cb2431; font-weight: bold; }
.uncovered-lines { font-family: monospace; background: #fff3cd; padding: 10px; border-radius: 4px; word-break: break-all; }
`

// generateLCOVReport emits a bit-exact LCOV stream per §6.5: TN:, SF:,
// FN/FNDA/FNF/FNH, DA:line,hits, BRDA:line,block,branch,hits|"-", BRF/BRH,
// end_of_record, one record per source file in stable order.
func generateLCOVReport(c *Collector) string {
	files := c.BySourceFile()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, source := range names {
		file := files[source]
		b.WriteString("TN:\n")
		fmt.Fprintf(&b, "SF:%s\n", source)

		funcNames := append([]string(nil), file.Functions...)
		sort.Strings(funcNames)
		for _, name := range funcNames {
			fmt.Fprintf(&b, "FN:1,%s\n", name)
			fmt.Fprintf(&b, "FNDA:1,%s\n", name)
		}
		fmt.Fprintf(&b, "FNF:%d\n", len(file.Functions))
		fmt.Fprintf(&b, "FNH:%d\n", len(file.Functions))

		executed := sortedKeys(file.ExecutedLines)
		for _, line := range executed {
			fmt.Fprintf(&b, "DA:%d,1\n", line)
		}
		var unexecuted []int
		for line := range file.ExecutableLines {
			if !file.ExecutedLines[line] {
				unexecuted = append(unexecuted, line)
			}
		}
		sort.Ints(unexecuted)
		for _, line := range unexecuted {
			fmt.Fprintf(&b, "DA:%d,0\n", line)
		}

		fmt.Fprintf(&b, "LF:%d\n", len(file.ExecutableLines))
		fmt.Fprintf(&b, "LH:%d\n", len(file.ExecutedLines))

		branchKeys := make([]fileBranchKey, 0, len(file.Branches))
		for k := range file.Branches {
			branchKeys = append(branchKeys, k)
		}
		sort.Slice(branchKeys, func(i, j int) bool {
			if branchKeys[i].funcName != branchKeys[j].funcName {
				return branchKeys[i].funcName < branchKeys[j].funcName
			}
			return branchKeys[i].offset < branchKeys[j].offset
		})

		coveredBranches := 0
		for idx, key := range branchKeys {
			branch := file.Branches[key]
			fmt.Fprintf(&b, "BRDA:%d,%d,0,%s\n", branch.Line, idx, lcovHits(branch.TakenCount))
			fmt.Fprintf(&b, "BRDA:%d,%d,1,%s\n", branch.Line, idx, lcovHits(branch.NotTakenCount))
			if branch.TakenCount > 0 {
				coveredBranches++
			}
			if branch.NotTakenCount > 0 {
				coveredBranches++
			}
		}
		fmt.Fprintf(&b, "BRF:%d\n", len(file.Branches)*2)
		fmt.Fprintf(&b, "BRH:%d\n", coveredBranches)

		b.WriteString("end_of_record\n")
	}
	return b.String()
}

func lcovHits(count int) string {
	if count > 0 {
		return strconv.Itoa(count)
	}
	return "-"
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
