package xref

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// benchCppSource builds a C++ file with n classes, each overriding a virtual
// method of the previous one and calling free helpers.
func benchCppSource(n int) string {
	var b strings.Builder
	b.WriteString("namespace bench {\n")
	b.WriteString("class Base0 {\npublic:\n  virtual int run(int x);\n  int value;\n};\n\n")
	for i := 1; i < n; i++ {
		fmt.Fprintf(&b, "class Base%d : public Base%d {\npublic:\n  int run(int x) override;\n  int extra%d;\n};\n\n", i, i-1, i)
	}
	for i := 1; i < n; i++ {
		fmt.Fprintf(&b, "int Base%d::run(int x) {\n  int acc = x + value + extra%d;\n  return helper%d(acc);\n}\n\n", i, i, i)
	}
	b.WriteString("}\n\n")
	for i := 1; i < n; i++ {
		fmt.Fprintf(&b, "int helper%d(int v) {\n  return v * %d;\n}\n\n", i, i)
	}
	return b.String()
}

func writeBenchFiles(b *testing.B, n int) []string {
	b.Helper()
	dir := b.TempDir()
	src := benchCppSource(40)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("bench%d.cc", i))
		if err := os.WriteFile(paths[i], []byte(src), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return paths
}

// BenchmarkIndexSource measures extraction into a single aggregate.
func BenchmarkIndexSource(b *testing.B) {
	ctx := context.Background()
	src := []byte(benchCppSource(40))
	e := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.IndexSource(ctx, "bench.cc", src); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIndexFiles compares the serial and parallel pipelines, committing
// to SQLite.
func BenchmarkIndexFiles(b *testing.B) {
	for _, parallel := range []bool{false, true} {
		b.Run(fmt.Sprintf("parallel=%v", parallel), func(b *testing.B) {
			ctx := context.Background()
			paths := writeBenchFiles(b, 8)
			e, err := Open(filepath.Join(b.TempDir(), "bench.db"), WithParallel(parallel))
			if err != nil {
				b.Fatal(err)
			}
			defer e.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.IndexFiles(ctx, paths); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkQuerySymbolAt measures a position lookup over a built unit.
func BenchmarkQuerySymbolAt(b *testing.B) {
	u, err := New().IndexSource(context.Background(), "bench.cc", []byte(benchCppSource(40)))
	if err != nil {
		b.Fatal(err)
	}
	q := New().Query(u)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.SymbolAt("bench.cc", 3, 15)
	}
}

// BenchmarkTransitiveCallers walks the override-free call graph from a helper.
func BenchmarkTransitiveCallers(b *testing.B) {
	u, err := New().IndexSource(context.Background(), "bench.cc", []byte(benchCppSource(40)))
	if err != nil {
		b.Fatal(err)
	}
	q := New().Query(u)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := q.TransitiveCallers("c:@F@helper1#", 10); err != nil {
			b.Fatal(err)
		}
	}
}
