package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/visage/pkg/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFile(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	db, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "visage.db"))
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Backend{
		BackendFile:   file,
		BackendSQLite: db,
		BackendMemory: NewMemory(),
	}
}

func TestBackends(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		Convey("Given the "+name+" backend", t, func() {
			_ = b.Delete(ctx, KeyFaces)

			Convey("When loading a missing record", func() {
				_, err := b.Load(ctx, KeyFaces)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("When saving and overwriting a record", func() {
				So(b.Save(ctx, KeyFaces, []byte(`[1]`)), ShouldBeNil)
				So(b.Save(ctx, KeyFaces, []byte(`[2]`)), ShouldBeNil)
				data, err := b.Load(ctx, KeyFaces)

				Convey("Then the last write wins", func() {
					So(err, ShouldBeNil)
					So(string(data), ShouldEqual, `[2]`)
				})
			})

			Convey("When deleting", func() {
				So(b.Save(ctx, KeyFaces, []byte(`[]`)), ShouldBeNil)
				So(b.Delete(ctx, KeyFaces), ShouldBeNil)
				_, err := b.Load(ctx, KeyFaces)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(b.Delete(ctx, KeyFaces), ShouldBeNil)
			})

			Convey("When the key escapes the namespace", func() {
				So(errors.Is(b.Save(ctx, "../etc", nil), ErrInvalidKey), ShouldBeTrue)
				_, err := b.Load(ctx, "")
				So(errors.Is(err, ErrInvalidKey), ShouldBeTrue)
			})
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory backend", t, func() {
		b := NewMemory()

		Convey("When a value round-trips", func() {
			So(SaveJSON(ctx, b, KeySettings, map[string]bool{"adaptiveLearning": true}), ShouldBeNil)
			var got map[string]bool
			So(LoadJSON(ctx, b, KeySettings, &got), ShouldBeNil)
			So(got["adaptiveLearning"], ShouldBeTrue)
		})

		Convey("When the record is missing", func() {
			var got []int
			So(errors.Is(LoadJSON(ctx, b, KeyFaces, &got), ErrNotFound), ShouldBeTrue)
		})

		Convey("When the record is corrupt", func() {
			So(b.Save(ctx, KeyFeedback, []byte(`{not json`)), ShouldBeNil)
			var got []int
			err := LoadJSON(ctx, b, KeyFeedback, &got)

			Convey("Then it is a configuration error", func() {
				So(errs.IsConfiguration(err), ShouldBeTrue)
				So(errors.Is(err, ErrNotFound), ShouldBeFalse)
			})
		})

		Convey("When the backend is closed", func() {
			So(b.Close(), ShouldBeNil)
			err := SaveJSON(ctx, b, KeyStats, 1)
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})
	})
}

func TestFileBackendLayout(t *testing.T) {
	Convey("Given a file backend", t, func() {
		dir := t.TempDir()
		b, err := NewFile(dir)
		So(err, ShouldBeNil)

		Convey("When saving a record", func() {
			So(b.Save(context.Background(), KeyStats, []byte(`{}`)), ShouldBeNil)

			Convey("Then it lands as <key>.json with no temp files left", func() {
				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Name(), ShouldEqual, "learningStats.json")
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given backend names", t, func() {
		ctx := context.Background()

		b, err := Open(ctx, BackendMemory, "", "")
		So(err, ShouldBeNil)
		So(b, ShouldHaveSameTypeAs, &Memory{})

		b, err = Open(ctx, BackendFile, t.TempDir(), "")
		So(err, ShouldBeNil)
		So(b, ShouldHaveSameTypeAs, &File{})

		b, err = Open(ctx, BackendSQLite, "", filepath.Join(t.TempDir(), "x.db"))
		So(err, ShouldBeNil)
		So(b, ShouldHaveSameTypeAs, &SQLite{})
		So(b.Close(), ShouldBeNil)

		_, err = Open(ctx, "redis", "", "")
		So(errors.Is(err, ErrUnknownBackend), ShouldBeTrue)
	})
}
