// Package snapshot writes and reads the flat state of one page to and from files.
//
// A snapshot holds the page record and its block rows in the order Serialize emits
// them. Snapshots are written as tagged CBOR by default, or as JSON when the file name
// ends in .json. Reading a snapshot never trusts it: [Snapshot.Tree] rebuilds and so
// validates the outline.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/surrealdb/surrealoutline/internal/codec"
	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/outline"
	"github.com/surrealdb/surrealoutline/pkg/store"
)

// Version is the snapshot layout written by this package.
const Version = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type Snapshot struct {
	Version    int            `json:"version" cbor:"version"`
	ExportedAt time.Time      `json:"exported_at" cbor:"exported_at"`
	Page       models.Page    `json:"page" cbor:"page"`
	Blocks     []models.Block `json:"blocks" cbor:"blocks"`
}

// Take captures the current state of a page. The page's root block id is taken from
// the tree.
func Take(page models.Page, tree *outline.Tree) Snapshot {
	page = page.Clone()
	page.RootBlockID = tree.RootRef()
	return Snapshot{
		Version:    Version,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Page:       page,
		Blocks:     outline.Serialize(tree, page.ID),
	}
}

// Tree rebuilds the outline held by the snapshot.
func (s Snapshot) Tree() (*outline.Tree, error) {
	return outline.Build(s.Page, s.Blocks)
}

// Write encodes s to w.
func Write(w io.Writer, s Snapshot, m codec.Marshaler) error {
	if err := m.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Read decodes a snapshot from r.
func Read(r io.Reader, u codec.Unmarshaler) (Snapshot, error) {
	var s Snapshot
	if err := u.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Version != Version {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	return s, nil
}

// CodecFor picks the codec for a file name: JSON for .json, CBOR otherwise.
func CodecFor(path string) codec.Codec {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONCodec{}
	}
	return CborCodec{}
}

// WriteFile writes s to path, replacing any existing file.
func WriteFile(path string, s Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, s, CodecFor(path))
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return Read(f, CodecFor(path))
}

// Import creates a new page from s. The store assigns new ids; the returned map
// translates snapshot block ids to them.
//
// Rows are first inserted detached, then linked by a single Apply. When any step
// fails the rows inserted so far and the new page are deleted again.
func Import(ctx context.Context, st store.BlockStore, s Snapshot) (_ models.PageID, _ map[models.BlockID]models.BlockID, err error) {
	src, err := s.Tree()
	if err != nil {
		return 0, nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	pageID, err := st.InsertPage(ctx, s.Page.Title, nil)
	if err != nil {
		return 0, nil, &store.PersistenceError{Op: "import", Err: err}
	}
	var inserted []models.BlockID
	defer func() {
		if err != nil {
			err = errors.Join(err, rollbackImport(ctx, st, pageID, inserted))
		}
	}()

	ids := map[models.BlockID]models.BlockID{models.RootBlockID: models.RootBlockID}
	dst := outline.New()
	for id := range src.Preorder() {
		if id.IsRoot() {
			continue
		}
		content, _ := src.Content(id)
		parent, _ := src.Parent(id)

		newID, err := st.InsertBlock(ctx, content, nil, nil, nil)
		if err != nil {
			return 0, nil, &store.PersistenceError{Op: "import", PageID: pageID, Err: err}
		}
		inserted = append(inserted, newID)
		ids[id] = newID
		if err := dst.Attach(newID, ids[parent], len(dst.Children(ids[parent])), content); err != nil {
			return 0, nil, err
		}
	}

	if err := st.Apply(ctx, outline.Diff(dst, pageID, nil)); err != nil {
		return 0, nil, &store.PersistenceError{Op: "import", PageID: pageID, Err: err}
	}
	delete(ids, models.RootBlockID)
	return pageID, ids, nil
}

// rollbackImport deletes what a failed Import wrote. It runs even when ctx is
// cancelled.
func rollbackImport(ctx context.Context, st store.BlockStore, pageID models.PageID, inserted []models.BlockID) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, id := range inserted {
		if err := st.DeleteBlock(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if err := st.DeletePage(ctx, pageID); err != nil && !errors.Is(err, store.ErrNotFound) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to roll back import of page %s: %w", pageID, errors.Join(errs...))
	}
	return nil
}
