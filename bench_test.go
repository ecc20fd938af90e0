package execscan

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// benchPySource is a realistic Python module with docstrings, comments and
// code for exercising the classifier.
const benchPySource = `#!/usr/bin/env python3
"""Inventory helpers.

Tracks stock levels and reorder points.
"""

import json
import os

# Default reorder threshold.
REORDER_AT = 5


class Item:
    '''A single stocked item.'''

    def __init__(self, name, qty):
        self.name = name
        self.qty = qty

    def needs_reorder(self):
        """Return True when stock is low."""
        return self.qty < REORDER_AT


def load(path):
    # Read the inventory file.
    with open(path) as fh:
        data = json.load(fh)
    return [Item(d["name"], d["qty"]) for d in data]


def report(items):
    """
    Print the items that need reordering.
    """
    for item in items:
        if item.needs_reorder():
            print(f"{item.name}: {item.qty}")


if __name__ == "__main__":
    report(load(os.environ.get("INVENTORY", "inventory.json")))
`

func BenchmarkClassifyReader(b *testing.B) {
	src := strings.Repeat(benchPySource, 100)
	b.SetBytes(int64(len(src)))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := ClassifyReader(strings.NewReader(src)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkClassifier_Line(b *testing.B) {
	lines := strings.SplitAfter(benchPySource, "\n")
	b.ReportAllocs()
	for b.Loop() {
		c := NewClassifier()
		for _, line := range lines {
			c.Line(line)
		}
	}
}

func BenchmarkIndexDirectory(b *testing.B) {
	dir := b.TempDir()
	for i := range 200 {
		path := filepath.Join(dir, "mod"+strconv.Itoa(i)+".py")
		if err := os.WriteFile(path, []byte(benchPySource), 0o644); err != nil {
			b.Fatal(err)
		}
	}

	for _, parallel := range []bool{false, true} {
		b.Run("parallel="+strconv.FormatBool(parallel), func(b *testing.B) {
			for b.Loop() {
				e, err := New(filepath.Join(b.TempDir(), "bench.db"), WithParallel(parallel))
				if err != nil {
					b.Fatal(err)
				}
				if _, err := e.IndexDirectory(context.Background(), dir); err != nil {
					b.Fatal(err)
				}
				e.Close()
			}
		})
	}
}
