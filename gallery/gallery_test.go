package gallery

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNextCycles(t *testing.T) {
	g, err := New([]string{"a.jpg", "b.jpg", "c.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if g.Current() != "" {
		t.Errorf("Current before Next = %q", g.Current())
	}
	var got []string
	for range 7 {
		got = append(got, g.Next())
	}
	want := []string{"a.jpg", "b.jpg", "c.jpg", "a.jpg", "b.jpg", "c.jpg", "a.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sequence = %v, want %v", got, want)
	}
	if g.Current() != "a.jpg" {
		t.Errorf("Current = %q", g.Current())
	}
}

func TestNewEmpty(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := []string{"a.jpg"}
	g, _ := New(in)
	in[0] = "changed.jpg"
	if g.Next() != "a.jpg" {
		t.Error("gallery should not alias the caller's slice")
	}
}

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zebra.PNG", "apple.jpg", "notes.txt", "Mango.webp"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
	}
	os.Mkdir(filepath.Join(dir, "nested.jpg"), 0755)

	g, err := FromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "Mango.webp"),
		filepath.Join(dir, "apple.jpg"),
		filepath.Join(dir, "zebra.PNG"),
	}
	if got := g.Images(); !reflect.DeepEqual(got, want) {
		t.Errorf("Images() = %v, want %v", got, want)
	}
}

func TestFromDirNoImages(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "readme.md"), nil, 0644)
	if _, err := FromDir(dir); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
	if _, err := FromDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDefaultList(t *testing.T) {
	if len(Default) != 12 {
		t.Errorf("len(Default) = %d", len(Default))
	}
	for _, img := range Default {
		if !IsImage(img) {
			t.Errorf("%s not recognised as an image", img)
		}
	}
}

func TestOpenPrecedence(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		dir  string
		list []string
		want []string
	}{
		{"list wins", dir, []string{"l.jpg"}, []string{"l.jpg"}},
		{"dir", dir, nil, []string{filepath.Join(dir, "x.png")}},
		{"default", "", nil, Default},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Open(tt.dir, tt.list)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(g.Images(), tt.want) {
				t.Errorf("Images() = %v, want %v", g.Images(), tt.want)
			}
		})
	}
}
