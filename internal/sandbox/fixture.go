// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// fixtureFiles lists the fixed fixture tree materialized at /app/test when
// a TestCase sets requires_test_folder. The layout and byte content are
// part of the external contract and must stay stable across runs:
//
//	.
//	├── file4.txt
//	├── file5.txt
//	├── folder1
//	│   ├── file1.txt
//	│   └── folder4
//	│       ├── file2.txt
//	│       └── folder5
//	│           └── file3.txt
//	├── folder2
//	│   └── file6.txt
//	└── folder3
//	    ├── file7.txt
//	    ├── file8.txt
//	    └── file9.txt
var fixtureFiles = []string{
	"file4.txt",
	"file5.txt",
	"folder1/file1.txt",
	"folder1/folder4/file2.txt",
	"folder1/folder4/folder5/file3.txt",
	"folder2/file6.txt",
	"folder3/file7.txt",
	"folder3/file8.txt",
	"folder3/file9.txt",
}

// writeFixtureTree creates the fixed fixture tree under root.
func writeFixtureTree(root string) error {
	for _, rel := range fixtureFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create fixture directory for %s: %w", rel, err)
		}
		n, err := fixtureLineCount(rel)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(fixtureContent(filepath.Base(rel), n)), 0o644); err != nil {
			return fmt.Errorf("write fixture file %s: %w", rel, err)
		}
	}
	return nil
}

// fixtureLineCount extracts the line count N from a fixture filename of
// the form "file<N>.txt".
func fixtureLineCount(rel string) (int, error) {
	name := filepath.Base(rel)
	digits := strings.TrimSuffix(strings.TrimPrefix(name, "file"), ".txt")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("fixture filename %q does not encode a line count: %w", name, err)
	}
	return n, nil
}

// fixtureContent produces "This is <name>! I have N lines. This is line 1.\n...\nThis is line N.\n".
func fixtureContent(name string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This is %s! I have %d lines. This is line 1.\n", name, n)
	for i := 2; i <= n; i++ {
		fmt.Fprintf(&b, "This is line %d.\n", i)
	}
	return b.String()
}
