package texture

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeUploader records GPU calls without a GL context.
type fakeUploader struct {
	next     uint32
	uploads  []*image.NRGBA
	allocs   int
	deleted  []uint32
	liveByID map[uint32]bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{next: 1, liveByID: make(map[uint32]bool)}
}

func (f *fakeUploader) UploadTexture(img *image.NRGBA) uint32 {
	f.uploads = append(f.uploads, img)
	return f.newID()
}

func (f *fakeUploader) AllocTexture() uint32 {
	f.allocs++
	return f.newID()
}

func (f *fakeUploader) DeleteTexture(id uint32) {
	f.deleted = append(f.deleted, id)
	delete(f.liveByID, id)
}

func (f *fakeUploader) newID() uint32 {
	id := f.next
	f.next++
	f.liveByID[id] = true
	return id
}

// recordingDecoder succeeds only for the paths in ok and records every call.
type recordingDecoder struct {
	ok    map[string]bool
	calls []string
}

func (d *recordingDecoder) decode(path string) (*image.NRGBA, error) {
	d.calls = append(d.calls, path)
	if d.ok[path] {
		return image.NewNRGBA(image.Rect(0, 0, 2, 2)), nil
	}
	return nil, os.ErrNotExist
}

func TestFilename(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{`C:\Users\x\textures\Bark.jpg`, "Bark.jpg"},
		{"/home/artist/maps/leaf.png", "leaf.png"},
		{"Texture/mixed\\sep/wood.tga", "wood.tga"},
		{"plain.png", "plain.png"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Filename(tt.ref); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestLoader_PathOrder(t *testing.T) {
	dec := &recordingDecoder{}
	up := newFakeUploader()
	l := NewLoader(LoaderConfig{Dir: "assets/trees", Uploader: up, Decode: dec.decode})

	res := l.LoadResult(`C:\Users\x\textures\Bark.jpg`, "texture_diffuse")

	want := []string{
		filepath.Join("assets/trees", "Texture", "Bark.jpg"),
		filepath.Join("assets/trees", "Bark.jpg"),
	}
	if len(dec.calls) != len(want) {
		t.Fatalf("expected %d decode attempts, got %v", len(want), dec.calls)
	}
	for i := range want {
		if dec.calls[i] != want[i] {
			t.Errorf("attempt %d: got %s, want %s", i, dec.calls[i], want[i])
		}
	}
	if res.Source != SourceMissing {
		t.Errorf("expected SourceMissing, got %v", res.Source)
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	dec := &recordingDecoder{}
	l := NewLoader(LoaderConfig{Uploader: newFakeUploader(), Decode: dec.decode})
	l.Load("wood.png", "texture_diffuse")

	if dec.calls[0] != filepath.Join("Texture", "wood.png") || dec.calls[1] != "wood.png" {
		t.Errorf("empty dir should resolve relative to cwd, got %v", dec.calls)
	}
}

func TestLoader_Dedup(t *testing.T) {
	primary := filepath.Join("dir", "Texture", "bark.png")
	dec := &recordingDecoder{ok: map[string]bool{primary: true}}
	up := newFakeUploader()
	l := NewLoader(LoaderConfig{Dir: "dir", Uploader: up, Decode: dec.decode})

	first := l.Load("bark.png", "texture_diffuse")
	for i := 0; i < 5; i++ {
		again := l.Load("bark.png", "texture_diffuse")
		if again.ID != first.ID {
			t.Fatalf("reuse %d: got handle %d, want %d", i, again.ID, first.ID)
		}
	}

	if len(dec.calls) != 1 {
		t.Errorf("expected 1 decode, got %d", len(dec.calls))
	}
	if len(up.uploads) != 1 {
		t.Errorf("expected 1 upload, got %d", len(up.uploads))
	}
	st := l.Stats()
	if st.Hits != 5 || st.Misses != 1 || st.Decodes != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestLoader_SharedResolvedFile(t *testing.T) {
	primary := filepath.Join("dir", "Texture", "bark.png")
	dec := &recordingDecoder{ok: map[string]bool{primary: true}}
	up := newFakeUploader()
	l := NewLoader(LoaderConfig{Dir: "dir", Uploader: up, Decode: dec.decode})

	a := l.Load(`C:\art\bark.png`, "texture_diffuse")
	b := l.Load("/mnt/art/bark.png", "texture_diffuse")

	if a.ID != b.ID {
		t.Errorf("references resolving to one file should share a handle: %d vs %d", a.ID, b.ID)
	}
	if len(up.uploads) != 1 {
		t.Errorf("expected 1 upload, got %d", len(up.uploads))
	}
	if b.Path != "/mnt/art/bark.png" {
		t.Errorf("texture should keep its own reference, got %s", b.Path)
	}
	if l.Stats().Shared != 1 {
		t.Errorf("expected 1 shared load, got %+v", l.Stats())
	}
}

func TestLoader_FailureNotCached(t *testing.T) {
	dec := &recordingDecoder{}
	up := newFakeUploader()
	l := NewLoader(LoaderConfig{Dir: "dir", Uploader: up, Decode: dec.decode})

	a := l.Load("missing.png", "texture_diffuse")
	b := l.Load("missing.png", "texture_diffuse")

	if a.ID == 0 || b.ID == 0 {
		t.Error("failed loads should still return a texture handle")
	}
	if len(dec.calls) != 4 {
		t.Errorf("failed reference should be retried, got %d decode calls", len(dec.calls))
	}
	if up.allocs != 2 {
		t.Errorf("expected 2 empty allocations, got %d", up.allocs)
	}
	if l.Len() != 0 {
		t.Errorf("failed loads must not be cached, cache has %d", l.Len())
	}
	if !errors.Is(l.Err(), ErrNotFound) {
		t.Errorf("expected ErrNotFound in Err(), got %v", l.Err())
	}
	if l.Stats().Failures != 2 {
		t.Errorf("expected 2 failures, got %+v", l.Stats())
	}
}

func TestLoader_Release(t *testing.T) {
	primary := filepath.Join("dir", "Texture", "a.png")
	dec := &recordingDecoder{ok: map[string]bool{primary: true}}
	up := newFakeUploader()
	l := NewLoader(LoaderConfig{Dir: "dir", Uploader: up, Decode: dec.decode})

	l.Load("a.png", "texture_diffuse")
	l.Load("x/a.png", "texture_diffuse") // shared
	l.Load("missing.png", "texture_diffuse")

	l.Release()
	if len(up.deleted) != 2 {
		t.Errorf("expected 2 deletions (one upload, one placeholder), got %v", up.deleted)
	}
	if len(up.liveByID) != 0 {
		t.Errorf("leaked textures: %v", up.liveByID)
	}
	if l.Len() != 0 {
		t.Error("cache should be empty after Release")
	}
}

func TestLoader_Embedded(t *testing.T) {
	data := encodePNG(t, image.NewGray(image.Rect(0, 0, 3, 3)))
	dec := &recordingDecoder{}
	up := newFakeUploader()
	l := NewLoader(LoaderConfig{
		Uploader: up,
		Decode:   dec.decode,
		Embedded: func(ref string) ([]byte, bool) {
			if ref == "*0" {
				return data, true
			}
			return nil, false
		},
	})

	res := l.LoadResult("*0", "texture_diffuse")
	if res.Source != SourceEmbedded {
		t.Fatalf("expected SourceEmbedded, got %v", res.Source)
	}
	if len(dec.calls) != 0 {
		t.Errorf("embedded textures must not touch disk, got %v", dec.calls)
	}
	if got := l.Load("*0", "texture_diffuse"); got.ID != res.Texture.ID {
		t.Error("embedded texture should be cached")
	}

	// Unknown embedded index falls through to the file system
	l.Load("*7", "texture_diffuse")
	if len(dec.calls) != 2 {
		t.Errorf("expected disk fallback for unknown embedded ref, got %v", dec.calls)
	}
}

func TestLoader_Diagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dir := filepath.Join("m")
	dec := &recordingDecoder{ok: map[string]bool{
		filepath.Join(dir, "Texture", "a.png"): true,
		filepath.Join(dir, "b.png"):            true,
	}}
	l := NewLoader(LoaderConfig{Dir: dir, Uploader: newFakeUploader(), Decode: dec.decode, Logger: zap.New(core)})

	l.Load("a.png", "texture_diffuse")
	l.Load("b.png", "texture_diffuse")
	l.Load("c.png", "texture_diffuse")

	for _, msg := range []string{"texture loaded", "texture loaded from fallback path", "texture load failed"} {
		if logs.FilterMessage(msg).Len() != 1 {
			t.Errorf("expected one %q entry, got %d", msg, logs.FilterMessage(msg).Len())
		}
	}
}

func TestLoadFile_AlwaysFourChannels(t *testing.T) {
	dir := t.TempDir()

	// JPEG decodes to YCbCr (3 channels)
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	jpgPath := filepath.Join(dir, "rgb.jpg")
	f, err := os.Create(jpgPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := jpeg.Encode(f, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	grayPath := filepath.Join(dir, "gray.png")
	if err := os.WriteFile(grayPath, encodePNG(t, image.NewGray(image.Rect(0, 0, 3, 5))), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, path := range []string{jpgPath, grayPath} {
		img, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", path, err)
		}
		b := img.Bounds()
		if len(img.Pix) != b.Dx()*b.Dy()*Channels {
			t.Errorf("%s: expected %d bytes, got %d", path, b.Dx()*b.Dy()*Channels, len(img.Pix))
		}
		if img.Pix[3] != 255 {
			t.Errorf("%s: opaque source should have alpha 255, got %d", path, img.Pix[3])
		}
	}
}

func TestLoader_EndToEndWithFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wood.png"), encodePNG(t, image.NewGray(image.Rect(0, 0, 2, 2))), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	up := newFakeUploader()
	l := NewLoader(LoaderConfig{Dir: dir, Uploader: up})

	res := l.LoadResult("wood.png", "texture_diffuse")
	if res.Source != SourceFallback {
		t.Errorf("expected fallback source, got %v", res.Source)
	}
	if len(up.uploads) != 1 || len(up.uploads[0].Pix) != 2*2*4 {
		t.Error("expected one RGBA upload of 2x2")
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmp.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}
