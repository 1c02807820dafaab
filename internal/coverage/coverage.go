// Package coverage implements Stratum's bytecode-level coverage tracking
// (spec §4.5/§6.5), grounded on
// original_source/crates/stratum-core/src/coverage/mod.rs: line coverage,
// branch coverage over the jump-family opcodes, and a collector that
// aggregates per-function data by source file.
package coverage

import (
	"sort"

	"stratum/internal/bytecode"
	"stratum/internal/object"
	"stratum/internal/vm"
)

// BranchInfo tracks one conditional branch point's outcomes.
type BranchInfo struct {
	Line          int
	TakenCount    int
	NotTakenCount int
}

// IsFullyCovered reports whether both outcomes of the branch were exercised.
func (b *BranchInfo) IsFullyCovered() bool {
	return b.TakenCount > 0 && b.NotTakenCount > 0
}

// IsPartiallyCovered reports whether at least one outcome was exercised.
func (b *BranchInfo) IsPartiallyCovered() bool {
	return b.TakenCount > 0 || b.NotTakenCount > 0
}

// FunctionCoverage tracks one function/chunk's executable lines, executed
// lines, and branch outcomes.
type FunctionCoverage struct {
	Name           string
	SourceFile     string
	ExecutableLines map[int]bool
	ExecutedLines   map[int]bool
	Branches        map[int]*BranchInfo // bytecode offset -> info
}

func NewFunctionCoverage(name, sourceFile string) *FunctionCoverage {
	return &FunctionCoverage{
		Name:            name,
		SourceFile:      sourceFile,
		ExecutableLines: map[int]bool{},
		ExecutedLines:   map[int]bool{},
		Branches:        map[int]*BranchInfo{},
	}
}

// isBranchOpcode is the branch set named in §9's design notes: JumpIfFalse,
// JumpIfTrue, JumpIfNull, JumpIfNotNull, and IterNext. §9 additionally names
// a sixth, "pops on taken" variant (PopJumpIfNull) that exists in the
// original's OpCode enum (coverage/mod.rs, jit/compiler.rs) but is never
// named by §4.2.2's opcode families or §6.1's encoding table — the two
// sections that actually define this opcode set. JumpIfNull/JumpIfNotNull
// here peek rather than pop (matching jit/compiler.rs), so a PopJumpIfNull
// variant would only differ in whether the branch target's frame still has
// the tested value on its stack; no codegen in this tree needs that second
// shape, so it stays unimplemented and uncounted rather than invented.
func isBranchOpcode(op bytecode.OpCode) bool {
	switch op {
	case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue,
		bytecode.OpJumpIfNull, bytecode.OpJumpIfNotNull, bytecode.OpIterNext:
		return true
	default:
		return false
	}
}

// AnalyzeChunk walks a chunk's instructions to find executable lines and
// branch points, mirroring FunctionCoverage::analyze_chunk.
func (fc *FunctionCoverage) AnalyzeChunk(chunk *bytecode.Chunk) {
	chunk.Walk(func(inst bytecode.Instruction) {
		if inst.Line > 0 {
			fc.ExecutableLines[inst.Line] = true
		}
		if isBranchOpcode(inst.Op) {
			fc.Branches[inst.Offset] = &BranchInfo{Line: inst.Line}
		}
	})
}

func (fc *FunctionCoverage) RecordLine(line int) {
	if line > 0 {
		fc.ExecutedLines[line] = true
	}
}

func (fc *FunctionCoverage) RecordBranchTaken(offset int) {
	if b, ok := fc.Branches[offset]; ok {
		b.TakenCount++
	}
}

func (fc *FunctionCoverage) RecordBranchNotTaken(offset int) {
	if b, ok := fc.Branches[offset]; ok {
		b.NotTakenCount++
	}
}

func (fc *FunctionCoverage) LineCoveragePercent() float64 {
	if len(fc.ExecutableLines) == 0 {
		return 100.0
	}
	return float64(len(fc.ExecutedLines)) / float64(len(fc.ExecutableLines)) * 100.0
}

func (fc *FunctionCoverage) BranchCoveragePercent() float64 {
	if len(fc.Branches) == 0 {
		return 100.0
	}
	total := len(fc.Branches) * 2
	covered := 0
	for _, b := range fc.Branches {
		if b.TakenCount > 0 {
			covered++
		}
		if b.NotTakenCount > 0 {
			covered++
		}
	}
	return float64(covered) / float64(total) * 100.0
}

// Collector aggregates coverage across every function the VM has entered,
// mirroring CoverageCollector. Keyed by function identity (the
// *object.Function pointer) rather than Rust's `{name}@{pointer}` format string, since Go
// pointers aren't usefully printable as stable identity either way.
type Collector struct {
	functions      map[*object.Function]*FunctionCoverage
	active         *object.Function
	sourceLineMax  map[string]int
}

func NewCollector() *Collector {
	return &Collector{
		functions:     map[*object.Function]*FunctionCoverage{},
		sourceLineMax: map[string]int{},
	}
}

// BeginFunction marks entry into fn, analyzing its chunk on first sight. It
// marks no line executed itself: lines are recorded one by one through
// RecordLine, which Attach's instruction hook calls before each instruction.
func (c *Collector) BeginFunction(fn *object.Function) {
	cov, ok := c.functions[fn]
	if !ok {
		cov = NewFunctionCoverage(fn.Name, fn.Chunk.Source)
		cov.AnalyzeChunk(fn.Chunk)
		if fn.Chunk.Source != "" {
			max := 0
			for line := range cov.ExecutableLines {
				if line > max {
					max = line
				}
			}
			if max > c.sourceLineMax[fn.Chunk.Source] {
				c.sourceLineMax[fn.Chunk.Source] = max
			}
		}
		c.functions[fn] = cov
	}
	c.active = fn
}

func (c *Collector) EndFunction() { c.active = nil }

func (c *Collector) RecordLine(line int) {
	if c.active == nil {
		return
	}
	c.functions[c.active].RecordLine(line)
}

func (c *Collector) RecordBranchTaken(offset int) {
	if c.active == nil {
		return
	}
	c.functions[c.active].RecordBranchTaken(offset)
}

func (c *Collector) RecordBranchNotTaken(offset int) {
	if c.active == nil {
		return
	}
	c.functions[c.active].RecordBranchNotTaken(offset)
}

// Merge folds another collector's data into c, summing branch counts and
// unioning executed lines by function identity.
func (c *Collector) Merge(other *Collector) {
	for fn, otherCov := range other.functions {
		selfCov, ok := c.functions[fn]
		if !ok {
			c.functions[fn] = otherCov
			continue
		}
		for line := range otherCov.ExecutedLines {
			selfCov.ExecutedLines[line] = true
		}
		for offset, otherBranch := range otherCov.Branches {
			if selfBranch, ok := selfCov.Branches[offset]; ok {
				selfBranch.TakenCount += otherBranch.TakenCount
				selfBranch.NotTakenCount += otherBranch.NotTakenCount
			}
		}
	}
	for source, lines := range other.sourceLineMax {
		if lines > c.sourceLineMax[source] {
			c.sourceLineMax[source] = lines
		}
	}
}

// FileCoverage aggregates FunctionCoverage entries by source file.
type FileCoverage struct {
	SourceFile      string
	ExecutableLines map[int]bool
	ExecutedLines   map[int]bool
	Branches        map[fileBranchKey]*BranchInfo
	Functions       []string
}

type fileBranchKey struct {
	funcName string
	offset   int
}

func newFileCoverage(source string) *FileCoverage {
	return &FileCoverage{
		SourceFile:      source,
		ExecutableLines: map[int]bool{},
		ExecutedLines:   map[int]bool{},
		Branches:        map[fileBranchKey]*BranchInfo{},
	}
}

func (f *FileCoverage) LineCoveragePercent() float64 {
	if len(f.ExecutableLines) == 0 {
		return 100.0
	}
	return float64(len(f.ExecutedLines)) / float64(len(f.ExecutableLines)) * 100.0
}

func (f *FileCoverage) BranchCoveragePercent() float64 {
	if len(f.Branches) == 0 {
		return 100.0
	}
	total := len(f.Branches) * 2
	covered := 0
	for _, b := range f.Branches {
		if b.TakenCount > 0 {
			covered++
		}
		if b.NotTakenCount > 0 {
			covered++
		}
	}
	return float64(covered) / float64(total) * 100.0
}

// UncoveredLines returns the sorted set of executable-but-unexecuted lines.
func (f *FileCoverage) UncoveredLines() []int {
	var out []int
	for line := range f.ExecutableLines {
		if !f.ExecutedLines[line] {
			out = append(out, line)
		}
	}
	sort.Ints(out)
	return out
}

// BySourceFile aggregates this collector's per-function data by source
// file, mirroring CoverageCollector::by_source_file.
func (c *Collector) BySourceFile() map[string]*FileCoverage {
	files := map[string]*FileCoverage{}
	for _, cov := range c.functions {
		source := cov.SourceFile
		if source == "" {
			source = "<unknown>"
		}
		file, ok := files[source]
		if !ok {
			file = newFileCoverage(source)
			files[source] = file
		}
		for line := range cov.ExecutableLines {
			file.ExecutableLines[line] = true
		}
		for line := range cov.ExecutedLines {
			file.ExecutedLines[line] = true
		}
		for offset, branch := range cov.Branches {
			file.Branches[fileBranchKey{cov.Name, offset}] = branch
		}
		file.Functions = append(file.Functions, cov.Name)
	}
	return files
}

// FileCoverageSummary is one file's rolled-up numbers, for a CoverageSummary.
type FileCoverageSummary struct {
	SourceFile            string
	TotalLines            int
	CoveredLines          int
	TotalBranches         int
	CoveredBranches       int
	LineCoveragePercent   float64
	BranchCoveragePercent float64
	Functions             []string
}

// Summary is coverage rolled up across every file the collector has seen.
type Summary struct {
	TotalLines      int
	CoveredLines    int
	TotalBranches   int
	CoveredBranches int
	TotalFunctions  int
	Files           []FileCoverageSummary
}

func (s *Summary) LineCoveragePercent() float64 {
	if s.TotalLines == 0 {
		return 100.0
	}
	return float64(s.CoveredLines) / float64(s.TotalLines) * 100.0
}

func (s *Summary) BranchCoveragePercent() float64 {
	if s.TotalBranches == 0 {
		return 100.0
	}
	return float64(s.CoveredBranches) / float64(s.TotalBranches) * 100.0
}

// Attach wires c into v's instruction and branch hooks, observing execution
// without touching internal/vm's dispatch switch (the same non-invasive
// approach internal/debug uses for breakpoints). Frame-depth transitions
// stand in for the original's explicit begin_function/end_function calls:
// a deeper frame on the next observed instruction means a call happened, a
// shallower one means a return happened.
func (c *Collector) Attach(v *vm.VM) {
	lastDepth := 0
	v.SetInstructionHook(func(frame *object.Frame, op bytecode.OpCode) bool {
		depth := len(v.Frames())
		switch {
		case depth > lastDepth:
			c.BeginFunction(frame.Closure.Fn)
		case depth < lastDepth:
			c.EndFunction()
			if depth > 0 {
				c.BeginFunction(frame.Closure.Fn)
			}
		}
		lastDepth = depth
		c.RecordLine(frame.Closure.Fn.Chunk.GetLine(frame.IP))
		return false
	})
	v.SetBranchHook(func(offset, _ int, taken bool) {
		if taken {
			c.RecordBranchTaken(offset)
		} else {
			c.RecordBranchNotTaken(offset)
		}
	})
}

// GenerateSummary computes a Summary across every tracked function, grouped
// by source file, with files ordered deterministically by name.
func (c *Collector) GenerateSummary() *Summary {
	files := c.BySourceFile()
	summary := &Summary{TotalFunctions: len(c.functions)}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, source := range names {
		file := files[source]
		covered := 0
		for _, b := range file.Branches {
			if b.TakenCount > 0 {
				covered++
			}
			if b.NotTakenCount > 0 {
				covered++
			}
		}
		fs := FileCoverageSummary{
			SourceFile:            source,
			TotalLines:            len(file.ExecutableLines),
			CoveredLines:          len(file.ExecutedLines),
			TotalBranches:         len(file.Branches) * 2,
			CoveredBranches:       covered,
			LineCoveragePercent:   file.LineCoveragePercent(),
			BranchCoveragePercent: file.BranchCoveragePercent(),
			Functions:             file.Functions,
		}
		summary.TotalLines += fs.TotalLines
		summary.CoveredLines += fs.CoveredLines
		summary.TotalBranches += fs.TotalBranches
		summary.CoveredBranches += fs.CoveredBranches
		summary.Files = append(summary.Files, fs)
	}
	return summary
}
