package conformance

import "gopkg.in/yaml.v3"

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Limits      Limits     `yaml:"limits,omitempty"`
	Setup       yaml.Node  `yaml:"setup,omitempty"` // commands run before every test
	Tests       []TestCase `yaml:"tests"`
}

// Limits configures the processor a test runs on; zero keeps the default
type Limits struct {
	Ticks    int64 `yaml:"ticks,omitempty"`
	MaxDepth int   `yaml:"max_depth,omitempty"`
}

// TestCase represents a single test within a suite
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Limits      *Limits     `yaml:"limits,omitempty"`
	Program     yaml.Node   `yaml:"program"`
	Expect      Expectation `yaml:"expect"`
}

// Expectation defines what result is expected from a test. Several fields
// may be combined; each one given must hold.
type Expectation struct {
	Value   yaml.Node `yaml:"value,omitempty"`   // equal to this YAML value
	Repr    string    `yaml:"repr,omitempty"`    // exact String() of the result
	Type    string    `yaml:"type,omitempty"`    // int, str, list, etc.
	Output  []string  `yaml:"output,omitempty"`  // printed lines
	Error   string    `yaml:"error,omitempty"`   // class of the uncaught exception
	Message string    `yaml:"message,omitempty"` // its message
	Fatal   string    `yaml:"fatal,omitempty"`   // substring of a processor error
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	if tc.Skip == nil {
		return false, ""
	}

	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
		return false, ""
	case string:
		return true, v
	default:
		return false, ""
	}
}

// hasExpectation reports whether any expectation field is set
func (e *Expectation) hasExpectation() bool {
	return e.Value.Kind != 0 || e.Repr != "" || e.Type != "" || e.Output != nil ||
		e.Error != "" || e.Fatal != ""
}
