package coverage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/bytecode"
	"stratum/internal/object"
)

func sampleChunk() *bytecode.Chunk {
	c := bytecode.NewChunk("sample.strat")
	c.Emit(bytecode.OpTrue, 1)
	jumpAt := c.EmitJump(bytecode.OpJumpIfFalse, 2)
	c.Emit(bytecode.OpPop, 3)
	_ = c.PatchJump(jumpAt)
	c.Emit(bytecode.OpNull, 4)
	c.Emit(bytecode.OpReturn, 5)
	return c
}

func TestFunctionCoverageAnalyzeChunk(t *testing.T) {
	fc := NewFunctionCoverage("test_fn", "sample.strat")
	fc.AnalyzeChunk(sampleChunk())

	assert.True(t, fc.ExecutableLines[1])
	assert.True(t, fc.ExecutableLines[2])
	assert.True(t, fc.ExecutableLines[4])
	assert.True(t, fc.ExecutableLines[5])
	assert.Len(t, fc.Branches, 1)
}

func TestLineCoveragePercent(t *testing.T) {
	fc := NewFunctionCoverage("test", "")
	fc.ExecutableLines = map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	fc.ExecutedLines = map[int]bool{1: true, 2: true, 3: true}
	assert.InDelta(t, 60.0, fc.LineCoveragePercent(), 0.01)
}

func TestBranchInfoCoverage(t *testing.T) {
	b := &BranchInfo{}
	assert.False(t, b.IsPartiallyCovered())
	assert.False(t, b.IsFullyCovered())

	b.TakenCount = 1
	assert.True(t, b.IsPartiallyCovered())
	assert.False(t, b.IsFullyCovered())

	b.NotTakenCount = 1
	assert.True(t, b.IsFullyCovered())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("summary")
	require.NoError(t, err)
	assert.Equal(t, FormatSummary, f)

	f, err = ParseFormat("HTML")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)

	f, err = ParseFormat("lcov")
	require.NoError(t, err)
	assert.Equal(t, FormatLCOV, f)

	_, err = ParseFormat("bogus")
	assert.Error(t, err)
}

func TestCollectorMerge(t *testing.T) {
	fn := object.NewFunction("fn1", 0, sampleChunk())

	c1 := NewCollector()
	cov1 := NewFunctionCoverage("fn1", "sample.strat")
	cov1.ExecutableLines = map[int]bool{1: true, 2: true, 3: true}
	cov1.ExecutedLines = map[int]bool{1: true}
	c1.functions[fn] = cov1

	c2 := NewCollector()
	cov2 := NewFunctionCoverage("fn1", "sample.strat")
	cov2.ExecutableLines = map[int]bool{1: true, 2: true, 3: true}
	cov2.ExecutedLines = map[int]bool{2: true, 3: true}
	c2.functions[fn] = cov2

	c1.Merge(c2)
	assert.Len(t, c1.functions[fn].ExecutedLines, 3)
}

func TestSummaryGeneration(t *testing.T) {
	fn := object.NewFunction("test_fn", 0, sampleChunk())
	c := NewCollector()
	cov := NewFunctionCoverage("test_fn", "sample.strat")
	cov.ExecutableLines = map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	cov.ExecutedLines = map[int]bool{1: true, 2: true, 3: true}
	c.functions[fn] = cov

	summary := c.GenerateSummary()
	assert.Equal(t, 5, summary.TotalLines)
	assert.Equal(t, 3, summary.CoveredLines)
	assert.Equal(t, 1, summary.TotalFunctions)
}

func TestGenerateLCOVReportShape(t *testing.T) {
	fn := object.NewFunction("test_fn", 0, sampleChunk())
	c := NewCollector()
	c.BeginFunction(fn)
	c.RecordBranchTaken(1) // offset of the OpJumpIfFalse emitted at offset 1

	out := GenerateReport(c, FormatLCOV)
	assert.True(t, strings.Contains(out, "TN:\n"))
	assert.True(t, strings.Contains(out, "SF:sample.strat\n"))
	assert.True(t, strings.Contains(out, "FN:1,test_fn\n"))
	assert.True(t, strings.Contains(out, "end_of_record\n"))
}

func TestGenerateSummaryReportIncludesTable(t *testing.T) {
	fn := object.NewFunction("test_fn", 0, sampleChunk())
	c := NewCollector()
	c.BeginFunction(fn)

	out := GenerateReport(c, FormatSummary)
	assert.True(t, strings.Contains(out, "Coverage Report"))
	assert.True(t, strings.Contains(out, "sample.strat"))
}
