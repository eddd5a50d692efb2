package conformance

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TestPath is the directory holding the conformance suites, relative to
// this package
const TestPath = "testdata"

// LoadedTest represents a test with its source file path
type LoadedTest struct {
	File  string
	Suite *TestSuite
	Test  TestCase
}

// LoadAllTests loads every suite under TestPath
func LoadAllTests() ([]LoadedTest, error) {
	return LoadDir(TestPath)
}

// LoadDir walks dir and loads all test cases from its .yaml files. File
// names are recorded relative to dir.
func LoadDir(dir string) ([]LoadedTest, error) {
	var loaded []LoadedTest

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			relPath = path
		}
		tests, err := ParseSuite(filepath.ToSlash(relPath), data)
		if err != nil {
			return err
		}
		loaded = append(loaded, tests...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// ParseSuite parses one suite file and returns its test cases
func ParseSuite(file string, data []byte) ([]LoadedTest, error) {
	suite := &TestSuite{}
	if err := yaml.Unmarshal(data, suite); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	tests := make([]LoadedTest, 0, len(suite.Tests))
	for _, test := range suite.Tests {
		tests = append(tests, LoadedTest{
			File:  file,
			Suite: suite,
			Test:  test,
		})
	}
	return tests, nil
}
