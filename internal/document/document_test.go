package document

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/burrow/internal/transform"
	"github.com/dshills/burrow/internal/tunnel"
	"github.com/dshills/burrow/internal/tunnel/tunneltest"
)

func writeFile(t *testing.T, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func openLocalT(t *testing.T, path string, opts ...Option) *Document {
	t.Helper()
	d, err := OpenLocal(path, opts...)
	if err != nil {
		t.Fatalf("OpenLocal(%s): %v", path, err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestScratch(t *testing.T) {
	d := New()
	if d.Name() != ScratchName {
		t.Errorf("Name() = %q", d.Name())
	}
	if d.Provenance().Kind != Scratch {
		t.Errorf("Provenance() = %v", d.Provenance())
	}
	d.InsertText(0, "hello")
	if !d.Modified() {
		t.Error("edit did not set Modified")
	}
	if err := d.Write(context.Background()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if d.Contents().String() != "hello" {
		t.Errorf("Contents() = %q", d.Contents().String())
	}
}

func TestOpenReadWrite(t *testing.T) {
	path := writeFile(t, "main.txt", "a long first version\n", 0o644)
	d := openLocalT(t, path)

	if got := d.Provenance(); got.Kind != LocalFile || got.ReadOnly {
		t.Fatalf("Provenance() = %+v, want rw local file", got)
	}
	if d.Transform() != transform.Text {
		t.Errorf("Transform() = %v", d.Transform())
	}

	d.ReplaceTextAt(Range{Start: 0, End: d.Contents().CharCount()}, "short\n")
	if err := d.Write(context.Background()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if d.Modified() {
		t.Error("Write did not clear Modified")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "short\n" {
		t.Errorf("file = %q, want truncated rewrite", data)
	}
}

func TestOpenFallbackReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	path := writeFile(t, "locked.txt", "original\n", 0o444)
	d := openLocalT(t, path)

	if got := d.Provenance(); got.Kind != LocalFile || !got.ReadOnly {
		t.Fatalf("Provenance() = %+v, want read-only local file", got)
	}
	if d.Contents().String() != "original\n" {
		t.Errorf("Contents() = %q", d.Contents().String())
	}

	d.InsertText(0, "changed ")
	err := d.Write(context.Background())
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Write() error = %v, want ErrReadOnly", err)
	}
	if !d.Modified() {
		t.Error("failed write cleared Modified")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "original\n" {
		t.Errorf("file changed to %q", data)
	}
}

func TestOpenFallbackUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	path := writeFile(t, "secret.txt", "hidden", 0o000)
	d := openLocalT(t, path)
	if d.Provenance().Kind != NewFile {
		t.Errorf("Provenance() = %v, want new file", d.Provenance())
	}
	if !d.Contents().IsEmpty() {
		t.Errorf("Contents() = %q, want empty", d.Contents().String())
	}
}

func TestNewFileBecomesLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.txt")
	d := openLocalT(t, path)
	if d.Provenance().Kind != NewFile {
		t.Fatalf("Provenance() = %v, want new file", d.Provenance())
	}

	d.InsertText(0, "one\n")
	if err := d.Write(context.Background()); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if got := d.Provenance(); got.Kind != LocalFile || got.ReadOnly {
		t.Fatalf("Provenance() after write = %+v", got)
	}

	d.InsertText(d.Contents().CharCount(), "two\n")
	if err := d.Write(context.Background()); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "one\ntwo\n" {
		t.Errorf("file = %q", data)
	}
}

func TestNewFileCollision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.txt")
	d := openLocalT(t, path)

	if err := os.WriteFile(path, []byte("someone else"), 0o644); err != nil {
		t.Fatal(err)
	}
	d.InsertText(0, "mine")
	err := d.Write(context.Background())
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("Write() error = %v, want fs.ErrExist", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "someone else" {
		t.Errorf("file overwritten with %q", data)
	}
}

func TestHexDocument(t *testing.T) {
	raw := []byte{0x00, 0xff, 0xfe, 0x80, 0x01}
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	d := openLocalT(t, path)

	if d.Transform() != transform.Hex {
		t.Fatalf("Transform() = %v, want hex", d.Transform())
	}
	if d.Syntax() != nil {
		t.Error("hex document has a syntax tracker")
	}

	// Overwrite the first digit pair with "7f".
	d.OverwriteChar(0, '7')
	d.OverwriteChar(1, 'f')
	if err := d.Write(context.Background()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := []byte{0x7f, 0xff, 0xfe, 0x80, 0x01}
	if !bytes.Equal(data, want) {
		t.Errorf("file = % x, want % x", data, want)
	}
}

func TestHexWriteErrorLeavesFile(t *testing.T) {
	path := writeFile(t, "dump.txt", "original", 0o644)
	d := openLocalT(t, path, WithTransform(transform.Hex))

	d.ReplaceTextAt(Range{Start: 0, End: d.Contents().CharCount()}, "0011\n2233\n4455z7\n")
	err := d.Write(context.Background())

	var hexErr *transform.HexError
	if !errors.As(err, &hexErr) {
		t.Fatalf("Write() error = %v, want *HexError", err)
	}
	if hexErr.Row != 3 || hexErr.Col != 5 || hexErr.Char != 'z' {
		t.Errorf("HexError = %+v, want row 3 col 5 'z'", hexErr)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("file changed to %q", data)
	}
}

func TestForcedTransform(t *testing.T) {
	path := writeFile(t, "hello.txt", "hi", 0o644)
	d := openLocalT(t, path, WithTransform(transform.Hex))
	if got := d.Contents().String(); got != "6869\n" {
		t.Errorf("Contents() = %q", got)
	}
}

func TestEditOperations(t *testing.T) {
	tests := []struct {
		name string
		edit func(d *Document)
		want string
	}{
		{"insert", func(d *Document) { d.InsertText(1, "X") }, "hX\u00e9世"},
		{"insert at range start", func(d *Document) { d.InsertTextAt(Range{Start: 3, End: 1}, "X") }, "hX\u00e9世"},
		{"replace", func(d *Document) { d.ReplaceTextAt(Range{Start: 1, End: 2}, "e") }, "he世"},
		{"replace clamped", func(d *Document) { d.ReplaceTextAt(Range{Start: 2, End: 99}, "!") }, "h\u00e9!"},
		{"overwrite", func(d *Document) { d.OverwriteChar(2, '界') }, "h\u00e9界"},
		{"overwrite appends", func(d *Document) { d.OverwriteChar(3, '!') }, "h\u00e9世!"},
		{"delete", func(d *Document) { d.DeleteRange(Range{Start: 0, End: 2}) }, "世"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			d.InsertText(0, "h\u00e9世")
			tt.edit(d)
			if got := d.Contents().String(); got != tt.want {
				t.Errorf("Contents() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEditsKeepSyntaxAligned(t *testing.T) {
	path := writeFile(t, "main.go", "package main\n\nfunc main() {}\n", 0o644)
	d := openLocalT(t, path)

	tracker := d.Syntax()
	if tracker == nil {
		t.Fatal("Syntax() = nil for a .go file")
	}

	edits := []func(){
		func() { d.InsertText(d.LineToChar(2), "var x = 1\n") },
		func() { d.ReplaceTextAt(Range{Start: 4 + d.LineToChar(2), End: 5 + d.LineToChar(2)}, "count") },
		func() { d.DeleteRange(Range{Start: 0, End: 0}) },
		func() { d.InsertText(d.Contents().CharCount(), "\nfunc helper() int { return 2 }\n") },
	}
	for i, edit := range edits {
		edit()
		if !tracker.Source().Equals(d.Contents()) {
			t.Fatalf("edit %d: tracker source differs from contents", i)
		}
		root := tracker.Root()
		if int(root.EndByte()) > d.Contents().Len() {
			t.Fatalf("edit %d: root ends at %d past %d bytes", i, root.EndByte(), d.Contents().Len())
		}
	}

	start := strings.Index(d.Contents().String(), "helper")
	n := tracker.NodeAt(start, start+len("helper"))
	if n == nil || tracker.Text(n) != "helper" {
		t.Errorf("NodeAt(helper) = %v", n)
	}
}

func TestGraphemeBoundaries(t *testing.T) {
	d := New()
	// "e" + combining acute, a flag pair, CRLF, then "x".
	d.InsertText(0, "e\u0301\U0001F1F3\U0001F1FF\r\nx")

	next := []struct{ from, want int }{
		{0, 2},
		{1, 2},
		{2, 4},
		{4, 6},
		{6, 7},
		{7, 7},
	}
	for _, tt := range next {
		if got := d.NextGraphemeBoundary(tt.from); got != tt.want {
			t.Errorf("NextGraphemeBoundary(%d) = %d, want %d", tt.from, got, tt.want)
		}
	}

	prev := []struct{ from, want int }{
		{7, 6},
		{6, 4},
		{4, 2},
		{3, 2},
		{2, 0},
		{0, 0},
	}
	for _, tt := range prev {
		if got := d.PrevGraphemeBoundary(tt.from); got != tt.want {
			t.Errorf("PrevGraphemeBoundary(%d) = %d, want %d", tt.from, got, tt.want)
		}
	}

	if d.LineCount() != 2 || d.CharToLine(6) != 1 || d.LineToChar(1) != 6 {
		t.Errorf("line helpers: count=%d line(6)=%d char(1)=%d", d.LineCount(), d.CharToLine(6), d.LineToChar(1))
	}
}

// remoteHost serves every dial from one scripted shell so files survive
// across sessions.
type remoteHost struct {
	mu    sync.Mutex
	shell *tunneltest.Shell
	dials int
}

func (h *remoteHost) dial(ctx context.Context, cfg tunnel.SessionConfig) (tunnel.Terminal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dials++
	h.shell = tunneltest.NewShell(cfg.PromptMarker, cfg.PasswordMarker)
	h.shell.SetFile("/etc/app.conf", []byte("port = 80\n"))
	return h.shell, nil
}

func newRemotePool(t *testing.T) (*tunnel.Pool, *remoteHost) {
	t.Helper()
	h := &remoteHost{}
	cfg := tunnel.DefaultSessionConfig()
	cfg.Timeout = 2 * time.Second
	p := tunnel.NewPool(
		tunnel.WithDialer(tunnel.DialerFunc(h.dial)),
		tunnel.WithSessionConfig(cfg),
	)
	t.Cleanup(func() { p.Close() })
	return p, h
}

func TestRemoteOpenAndWrite(t *testing.T) {
	p, h := newRemotePool(t)
	ctx := context.Background()

	d, err := Open(ctx, "ssh:example.com:/etc/app.conf", WithPool(p))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if d.Name() != "ssh:example.com:/etc/app.conf" {
		t.Errorf("Name() = %q", d.Name())
	}
	if got := d.Provenance(); got.Kind != Remote || got.Path != "/etc/app.conf" {
		t.Errorf("Provenance() = %+v", got)
	}
	if d.Contents().String() != "port = 80\n" {
		t.Fatalf("Contents() = %q", d.Contents().String())
	}

	d.ReplaceTextAt(Range{Start: 7, End: 9}, "8080")
	if err := d.Write(ctx); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if d.Modified() {
		t.Error("Write did not clear Modified")
	}

	data, ok := h.shell.File("/etc/app.conf")
	if !ok || string(data) != "port = 8080\n" {
		t.Errorf("remote file = %q, %v", data, ok)
	}
	if h.dials != 1 {
		t.Errorf("dials = %d, want one reused session", h.dials)
	}
	if p.Idle(d.Provenance().Chain) != 1 {
		t.Errorf("Idle() = %d, want session returned to pool", p.Idle(d.Provenance().Chain))
	}
}

func TestRemoteMissingFileOpensEmpty(t *testing.T) {
	p, h := newRemotePool(t)
	ctx := context.Background()

	d, err := Open(ctx, "ssh:example.com|sudo:/root/new.txt", WithPool(p))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()
	if !d.Contents().IsEmpty() {
		t.Errorf("Contents() = %q, want empty", d.Contents().String())
	}

	d.InsertText(0, "created")
	if err := d.Write(ctx); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if data, _ := h.shell.File("/root/new.txt"); string(data) != "created" {
		t.Errorf("remote file = %q", data)
	}
}

func TestRemoteWithoutPool(t *testing.T) {
	_, err := Open(context.Background(), "ssh:example.com:/etc/hosts")
	if !errors.Is(err, ErrNoPool) {
		t.Errorf("Open() error = %v, want ErrNoPool", err)
	}
}

func TestOpenLocalPathWithColon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes:draft.txt")
	if err := os.WriteFile(path, []byte("draft"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()
	if d.Provenance().Kind != LocalFile || d.Contents().String() != "draft" {
		t.Errorf("Open(%s) = %+v %q", path, d.Provenance(), d.Contents().String())
	}
}

func TestClosedWrite(t *testing.T) {
	d := New()
	d.Close()
	if err := d.Write(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() error = %v, want ErrClosed", err)
	}
}
