package conformance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"tram/builtins"
	"tram/eval"
	"tram/treefile"
	"tram/types"
)

// DefaultTickLimit keeps a runaway test from hanging the suite
const DefaultTickLimit = 1_000_000

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner executes conformance tests, each on a fresh processor with the
// builtins installed
type Runner struct {
	builtins *builtins.Registry
}

// NewRunner creates a new test runner
func NewRunner() *Runner {
	return &Runner{builtins: builtins.NewRegistry()}
}

// newProcessor builds the processor for one test; printed lines are
// appended to out
func (r *Runner) newProcessor(test LoadedTest, out *[]string) *eval.Processor {
	opts := eval.DefaultOptions()
	opts.TickLimit = DefaultTickLimit
	opts.Print = func(text string) { *out = append(*out, text) }

	for _, limits := range []*Limits{&test.Suite.Limits, test.Test.Limits} {
		if limits == nil {
			continue
		}
		if limits.Ticks > 0 {
			opts.TickLimit = limits.Ticks
		}
		if limits.MaxDepth > 0 {
			opts.MaxDepth = limits.MaxDepth
		}
	}

	p := eval.NewProcessor(opts)
	r.builtins.Install(p)
	return p
}

// Run executes a single test case
func (r *Runner) Run(test LoadedTest) TestResult {
	if skipped, reason := test.Test.IsSkipped(); skipped {
		return TestResult{
			Test:       test,
			Skipped:    true,
			SkipReason: reason,
		}
	}
	if test.Test.Program.Kind == 0 {
		return TestResult{
			Test:       test,
			Skipped:    true,
			SkipReason: "no program",
		}
	}

	var output []string
	p := r.newProcessor(test, &output)

	if test.Suite.Setup.Kind != 0 {
		setup, err := treefile.DecodeNode(test.File, &test.Suite.Setup)
		if err != nil {
			return TestResult{Test: test, Error: fmt.Errorf("suite setup: %w", err)}
		}
		if _, err := p.Eval(setup...); err != nil {
			return TestResult{Test: test, Error: fmt.Errorf("suite setup failed: %w", err)}
		}
		output = nil
	}

	program, err := treefile.DecodeNode(test.File, &test.Test.Program)
	if err != nil {
		return TestResult{Test: test, Error: fmt.Errorf("decode error: %w", err)}
	}
	result, runErr := p.Eval(program...)

	err = r.checkExpectation(test, p, result, runErr, output)
	return TestResult{
		Test:   test,
		Passed: err == nil,
		Error:  err,
	}
}

// RunAll executes all loaded tests
func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, len(tests))
	for i, test := range tests {
		results[i] = r.Run(test)
	}
	return results
}

// SummaryStats computes statistics from test results
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats generates statistics from test results
func ComputeStats(results []TestResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}

// checkExpectation checks if the outcome matches the expected one
func (r *Runner) checkExpectation(test LoadedTest, p *eval.Processor, result types.Value, runErr error, output []string) error {
	expect := &test.Test.Expect
	if !expect.hasExpectation() {
		return fmt.Errorf("no expectation specified")
	}

	switch {
	case expect.Error != "":
		var le *eval.LangError
		if runErr == nil {
			return fmt.Errorf("expected %s, got value %s", expect.Error, result)
		}
		if !errors.As(runErr, &le) {
			return fmt.Errorf("expected %s, got %v", expect.Error, runErr)
		}
		if le.Class.QualName != expect.Error {
			return fmt.Errorf("expected %s, got %s", expect.Error, le.Error())
		}
		if expect.Message != "" && le.Message != expect.Message {
			return fmt.Errorf("expected message %q, got %q", expect.Message, le.Message)
		}
	case expect.Fatal != "":
		if runErr == nil {
			return fmt.Errorf("expected processor error %q, got value %s", expect.Fatal, result)
		}
		if !strings.Contains(runErr.Error(), expect.Fatal) {
			return fmt.Errorf("expected processor error %q, got %v", expect.Fatal, runErr)
		}
	case runErr != nil:
		return fmt.Errorf("unexpected error: %w", runErr)
	default:
		if err := checkResult(test, p, result); err != nil {
			return err
		}
	}

	if expect.Output != nil {
		if diff := cmp.Diff(expect.Output, output); diff != "" {
			return fmt.Errorf("output mismatch (-want +got):\n%s", diff)
		}
	}
	return nil
}

// checkResult compares the final value against value, repr and type
func checkResult(test LoadedTest, p *eval.Processor, result types.Value) error {
	expect := &test.Test.Expect

	if expect.Value.Kind != 0 {
		want, err := treefile.DecodeValue(test.File, &expect.Value)
		if err != nil {
			return fmt.Errorf("failed to convert expected value: %w", err)
		}
		if result.Type() != want.Type() || !result.Equal(want) {
			return fmt.Errorf("expected %s, got %s", want, result)
		}
	}

	if expect.Repr != "" && result.String() != expect.Repr {
		return fmt.Errorf("expected %s, got %s", expect.Repr, result)
	}

	if expect.Type != "" {
		if got := p.TypeOf(result); got != expect.Type {
			return fmt.Errorf("expected type %s, got %s", expect.Type, got)
		}
	}
	return nil
}
