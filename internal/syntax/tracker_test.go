package syntax

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/dshills/burrow/internal/engine/rope"
)

const goSource = `package main

import "fmt"

func main() {
	fmt.Println("hello")
}
`

func TestLanguageFor(t *testing.T) {
	tests := []struct {
		ext  string
		want string
		ok   bool
	}{
		{"go", "go", true},
		{".rs", "rust", true},
		{"PY", "python", true},
		{"yml", "yaml", true},
		{"sh", "bash", true},
		{"txt", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := LanguageFor(tt.ext)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LanguageFor(%q) = %q, %v; want %q, %v", tt.ext, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtension(t *testing.T) {
	if got := Extension("/tmp/x/Main.GO"); got != "go" {
		t.Errorf("Extension() = %q, want go", got)
	}
	if got := Extension("Makefile"); got != "" {
		t.Errorf("Extension() = %q, want empty", got)
	}
}

func TestNewUnsupported(t *testing.T) {
	if tr, ok := New("txt", rope.FromString("plain")); ok || tr != nil {
		t.Error("New should refuse an unknown extension")
	}
}

func TestNewParses(t *testing.T) {
	tr, ok := New("go", rope.FromString(goSource))
	if !ok {
		t.Fatal("New(go) failed")
	}
	defer tr.Close()

	if tr.Language() != "go" {
		t.Errorf("Language() = %q", tr.Language())
	}
	root := tr.Root()
	if root.Type() != "source_file" {
		t.Errorf("root type = %q, want source_file", root.Type())
	}
	if root.HasError() {
		t.Errorf("unexpected parse error: %s", root.String())
	}
	if int(root.EndByte()) > len(goSource) {
		t.Errorf("root ends at %d, past source length %d", root.EndByte(), len(goSource))
	}
}

func TestNodeAt(t *testing.T) {
	tr, ok := New("go", rope.FromString(goSource))
	if !ok {
		t.Fatal("New(go) failed")
	}
	defer tr.Close()

	start := strings.Index(goSource, `"hello"`)
	n := tr.NodeAt(start+1, start+3)
	if n == nil {
		t.Fatal("NodeAt returned nil")
	}
	if !n.IsNamed() {
		t.Errorf("NodeAt returned anonymous node %q", n.Type())
	}
	if int(n.StartByte()) > start+1 || int(n.EndByte()) < start+3 {
		t.Errorf("node [%d,%d) does not cover range", n.StartByte(), n.EndByte())
	}
	if !strings.Contains(tr.Text(n), "hello") {
		t.Errorf("node text %q does not contain literal", tr.Text(n))
	}

	if tr.NodeAt(0, len(goSource)+10) != nil {
		t.Error("NodeAt past end should return nil")
	}
}

func TestIncrementalMatchesFreshParse(t *testing.T) {
	edits := []struct {
		name  string
		start int
		end   int
		text  string
	}{
		{"insert statement", strings.Index(goSource, "}"), strings.Index(goSource, "}"), "\tfmt.Println(1)\n"},
		{"rename function", strings.Index(goSource, "main()"), strings.Index(goSource, "main()") + 4, "run"},
		{"delete import", strings.Index(goSource, "import"), strings.Index(goSource, "func"), ""},
		{"multibyte", len(goSource), len(goSource), "// 世界🌍\n"},
	}

	for _, tt := range edits {
		t.Run(tt.name, func(t *testing.T) {
			before := rope.FromString(goSource)
			tr, ok := New("go", before)
			if !ok {
				t.Fatal("New(go) failed")
			}
			defer tr.Close()

			after := before.Replace(tt.start, tt.end, tt.text)
			if err := tr.Edit(after, EditFor(before, after, tt.start, tt.end, len(tt.text))); err != nil {
				t.Fatalf("Edit: %v", err)
			}

			assertMatchesFresh(t, tr, after)
		})
	}
}

func TestRandomEditsStayAligned(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	fragments := []string{"x", "\n", "{", "}", "func f() {}\n", "\"s\"", "é", " "}

	r := rope.FromString(goSource)
	tr, ok := New("go", r)
	if !ok {
		t.Fatal("New(go) failed")
	}
	defer tr.Close()

	for i := 0; i < 200; i++ {
		chars := r.CharCount()
		startChar := rng.Intn(chars + 1)
		endChar := startChar + rng.Intn(min(chars-startChar, 5)+1)
		text := ""
		if rng.Intn(2) == 0 {
			text = fragments[rng.Intn(len(fragments))]
		}

		start, end := r.CharToByte(startChar), r.CharToByte(endChar)
		next := r.Replace(start, end, text)
		if err := tr.Edit(next, EditFor(r, next, start, end, len(text))); err != nil {
			t.Fatalf("step %d: Edit: %v", i, err)
		}
		r = next

		if got := int(tr.Root().EndByte()); got > r.Len() {
			t.Fatalf("step %d: root ends at %d, rope has %d bytes", i, got, r.Len())
		}
	}

	if !tr.Source().Equals(r) {
		t.Error("tracker source differs from rope")
	}
}

func assertMatchesFresh(t *testing.T, tr *Tracker, r rope.Rope) {
	t.Helper()
	fresh, ok := New("go", r)
	if !ok {
		t.Fatal("fresh parse failed")
	}
	defer fresh.Close()

	if got, want := tr.Root().String(), fresh.Root().String(); got != want {
		t.Errorf("incremental tree differs from fresh parse\ngot:  %s\nwant: %s", got, want)
	}
	if !tr.Source().Equals(r) {
		t.Error("tracker source differs from rope")
	}
}
