package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dshills/burrow/internal/engine/rope"
	"github.com/dshills/burrow/internal/syntax"
	"github.com/dshills/burrow/internal/transform"
	"github.com/dshills/burrow/internal/tunnel"
)

// ScratchName is the name of a document created by New.
const ScratchName = "[scratch]"

// Document is an editable buffer bound to its storage.
type Document struct {
	text      rope.Rope
	name      string
	storage   Storage
	modified  bool
	transform transform.Transform
	tracker   *syntax.Tracker

	file   *os.File // open handle for LocalFile
	pool   *tunnel.Pool
	logger *slog.Logger
	closed bool
}

// New creates an empty scratch document.
func New(opts ...Option) *Document {
	o := newOptions(opts)
	return &Document{
		text:      rope.New(),
		name:      ScratchName,
		storage:   Storage{Kind: Scratch},
		transform: transform.Text,
		pool:      o.pool,
		logger:    o.logger,
	}
}

// Open opens path. A path of the form "<chain>:<remote path>" whose prefix
// parses as a chain is opened through the pool given with WithPool; any
// other path is local.
func Open(ctx context.Context, path string, opts ...Option) (*Document, error) {
	o := newOptions(opts)

	in := tunnel.NewInterner()
	if o.pool != nil {
		in = o.pool.Interner()
	}
	if chain, remotePath, ok := tunnel.SplitPath(in, path); ok {
		if o.pool == nil {
			return nil, fmt.Errorf("open %s: %w", path, ErrNoPool)
		}
		return openRemote(ctx, o, chain, remotePath)
	}
	return openLocal(path, o)
}

// OpenLocal opens a local file, falling back to read-only when write
// access is denied, and to a not-yet-created file when the path is
// missing or unreadable.
func OpenLocal(path string, opts ...Option) (*Document, error) {
	return openLocal(path, newOptions(opts))
}

func openLocal(path string, o *options) (*Document, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	switch {
	case err == nil:
		return fromFile(f, Storage{Kind: LocalFile, Path: path}, o)
	case errors.Is(err, fs.ErrNotExist):
		return newFile(path, o), nil
	case !errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	f, err = os.Open(path)
	switch {
	case err == nil:
		return fromFile(f, Storage{Kind: LocalFile, Path: path, ReadOnly: true}, o)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrNotExist):
		return newFile(path, o), nil
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
}

func newFile(path string, o *options) *Document {
	d := build(nil, path, Storage{Kind: NewFile, Path: path}, o)
	t := transform.Text
	if o.transform != nil {
		t = *o.transform
	}
	d.setContent(rope.New(), t)
	d.logger.Debug("opened new file", "path", path)
	return d
}

func fromFile(f *os.File, storage Storage, o *options) (*Document, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", storage.Path, err)
	}

	d, err := decode(data, storage.Path, storage, o)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.file = f
	d.logger.Debug("opened local file", "path", storage.Path, "read_only", storage.ReadOnly, "transform", d.transform.String())
	return d, nil
}

// OpenRemote opens path on the far end of chain. A file that does not
// exist yet opens empty and is created by the first write.
func OpenRemote(ctx context.Context, pool *tunnel.Pool, chain tunnel.Chain, path string, opts ...Option) (*Document, error) {
	o := newOptions(append(opts, WithPool(pool)))
	if pool == nil {
		return nil, ErrNoPool
	}
	return openRemote(ctx, o, chain, path)
}

func openRemote(ctx context.Context, o *options, chain tunnel.Chain, path string) (*Document, error) {
	s, err := o.pool.ConnectTo(ctx, chain)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", chain, err)
	}

	data, err := readRemote(ctx, s, path)
	o.pool.Release(s, err)
	if err != nil {
		return nil, fmt.Errorf("read %s:%s: %w", chain, path, err)
	}

	storage := Storage{Kind: Remote, Path: path, Chain: chain}
	d, err := decode(data, chain.String()+":"+path, storage, o)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("opened remote file", "chain", chain.String(), "path", path, "bytes", len(data))
	return d, nil
}

func readRemote(ctx context.Context, s *tunnel.Session, path string) ([]byte, error) {
	exists, err := s.Exists(ctx, path)
	if err != nil || !exists {
		return nil, err
	}
	r, err := s.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func decode(data []byte, name string, storage Storage, o *options) (*Document, error) {
	if o.transform == nil {
		text, t := transform.ReadFrom(data)
		d := build(nil, name, storage, o)
		d.setContent(text, t)
		return d, nil
	}

	text, err := transform.ReadAs(data, *o.transform)
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", name, o.transform, err)
	}
	d := build(nil, name, storage, o)
	d.setContent(text, *o.transform)
	return d, nil
}

func build(f *os.File, name string, storage Storage, o *options) *Document {
	return &Document{
		text:      rope.New(),
		name:      name,
		storage:   storage,
		transform: transform.Text,
		file:      f,
		pool:      o.pool,
		logger:    o.logger.With("document", name),
	}
}

// setContent installs freshly decoded text and attaches a tracker when the
// content is plain text in a known language.
func (d *Document) setContent(text rope.Rope, t transform.Transform) {
	d.text = text
	d.transform = t
	if t.Kind != transform.PlainText {
		return
	}
	if tracker, ok := syntax.New(syntax.Extension(d.storage.Path), text); ok {
		d.tracker = tracker
	}
}

// Write saves the document to its storage. Scratch documents are not
// saved. On success the modified flag is cleared.
func (d *Document) Write(ctx context.Context) error {
	if d.closed {
		return ErrClosed
	}
	if d.storage.Kind == Scratch {
		return nil
	}
	if d.storage.Kind == LocalFile && d.storage.ReadOnly {
		return fmt.Errorf("write %s: %w", d.name, ErrReadOnly)
	}

	data, err := transform.Encode(d.text, d.transform)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.name, err)
	}

	switch d.storage.Kind {
	case LocalFile:
		err = d.writeLocal(data)
	case NewFile:
		err = d.createLocal(data)
	case Remote:
		err = d.writeRemote(ctx, data)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", d.name, err)
	}

	d.modified = false
	d.logger.Info("saved", "bytes", len(data), "storage", d.storage.Kind.String())
	return nil
}

func (d *Document) writeLocal(data []byte) error {
	if err := d.file.Truncate(0); err != nil {
		return err
	}
	if _, err := d.file.WriteAt(data, 0); err != nil {
		return err
	}
	return d.file.Sync()
}

// createLocal creates the file exclusively; a file that appeared since the
// document was opened is not overwritten.
func (d *Document) createLocal(data []byte) error {
	f, err := os.OpenFile(d.storage.Path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	d.file = f
	d.storage = Storage{Kind: LocalFile, Path: d.storage.Path}
	return nil
}

func (d *Document) writeRemote(ctx context.Context, data []byte) error {
	if d.pool == nil {
		return ErrNoPool
	}
	s, err := d.pool.ConnectTo(ctx, d.storage.Chain)
	if err != nil {
		return err
	}

	err = streamRemote(ctx, s, d.storage.Path, data)
	d.pool.Release(s, err)
	return err
}

func streamRemote(ctx context.Context, s *tunnel.Session, path string, data []byte) error {
	w, err := s.WriteFile(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return err
	}
	return s.FinishWriteFile(ctx)
}

// Close releases the file handle and syntax tracker. It does not save.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.tracker != nil {
		d.tracker.Close()
		d.tracker = nil
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// Contents returns the current text.
func (d *Document) Contents() rope.Rope {
	return d.text
}

// Modified reports whether the document changed since it was opened or
// last written.
func (d *Document) Modified() bool {
	return d.modified
}

// Name returns the display name: a path, "<chain>:<path>", or ScratchName.
func (d *Document) Name() string {
	return d.name
}

// Transform returns the content encoding chosen at open time.
func (d *Document) Transform() transform.Transform {
	return d.transform
}

// Provenance returns where the document is stored.
func (d *Document) Provenance() Storage {
	return d.storage
}

// Syntax returns the syntax tracker, or nil when the document has none.
func (d *Document) Syntax() *syntax.Tracker {
	return d.tracker
}
