package render

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"visiogen/internal/services"
)

// FramePattern is the printf pattern for extracted frame files, numbered from 0.
const FramePattern = "%06d.png"

// FrameSource yields decoded frames by index.
type FrameSource interface {
	Len() int
	Frame(i int) (image.Image, error)
}

// FrameSink stores frames by index.
type FrameSink interface {
	WriteFrame(i int, img image.Image) error
}

// DirFrames is a directory of sequentially numbered PNG frames. It is both a
// FrameSource and a FrameSink.
type DirFrames struct {
	dir     string
	count   int
	encoder png.Encoder
}

// OpenDirFrames counts the contiguous run of frames starting at index 0.
func OpenDirFrames(dir string) (*DirFrames, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrResourceOpen, "render", "open frame directory", dir, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrResourceOpen, "render", "open frame directory", dir+" is not a directory", nil)
	}
	d := &DirFrames{dir: dir, encoder: png.Encoder{CompressionLevel: png.BestSpeed}}
	for {
		_, err := os.Stat(d.Path(d.count))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrResourceOpen, "render", "scan frames", d.Path(d.count), err)
		}
		d.count++
	}
	return d, nil
}

// Dir returns the backing directory.
func (d *DirFrames) Dir() string { return d.dir }

// Pattern returns the ffmpeg image2 pattern addressing these frames.
func (d *DirFrames) Pattern() string { return filepath.Join(d.dir, FramePattern) }

// Path returns the file holding frame i.
func (d *DirFrames) Path(i int) string {
	return filepath.Join(d.dir, fmt.Sprintf(FramePattern, i))
}

// Len returns the number of frames found when the directory was opened.
func (d *DirFrames) Len() int { return d.count }

// Frame decodes frame i.
func (d *DirFrames) Frame(i int) (image.Image, error) {
	if i < 0 || i >= d.count {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, d.count)
	}
	file, err := os.Open(d.Path(i))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, err := png.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(d.Path(i)), err)
	}
	return img, nil
}

// WriteFrame encodes img to a temp file and renames it over frame i.
func (d *DirFrames) WriteFrame(i int, img image.Image) error {
	final := d.Path(i)
	tmp, err := os.CreateTemp(d.dir, ".frame-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	w := bufio.NewWriter(tmp)
	if err := d.encoder.Encode(w, img); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode %s: %w", filepath.Base(final), err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if i >= d.count {
		d.count = i + 1
	}
	return nil
}

// Aliases reports whether src reads the same frame files this sink writes.
func (d *DirFrames) Aliases(src FrameSource) bool {
	other, ok := src.(*DirFrames)
	if !ok {
		return false
	}
	a, errA := filepath.Abs(d.dir)
	b, errB := filepath.Abs(other.dir)
	return errA == nil && errB == nil && a == b
}
