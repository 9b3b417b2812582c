package demux

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"github.com/lanikai/alohareader/internal/media"
)

// A Format knows how to demux one container type.
type Format struct {
	// Short name, also usable as a "tag:" prefix in Open.
	Name string

	// File extensions, including the dot.
	Extensions []string

	// NewDemuxer wraps an open byte stream.
	NewDemuxer func(r io.ReadSeeker) (Demuxer, error)

	// OpenPath, if set, opens a path directly instead of reading a file.
	OpenPath func(path string) (Demuxer, error)
}

var formats = map[string]*Format{}

// Register a container format. Later registrations replace earlier ones with
// the same name.
func Register(f *Format) {
	formats[f.Name] = f
}

// Formats returns the names of all registered formats, sorted.
func Formats() []string {
	var names []string
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func byExtension(path string) *Format {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil
	}
	for _, f := range formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f
			}
		}
	}
	return nil
}

// Open a demuxer. The spec is either "tag:path", where tag names a registered
// format, or a plain file path whose extension selects the format.
func Open(spec string) (Demuxer, error) {
	log.Debug("Registered formats: %v", Formats())

	var f *Format
	path := spec
	if parts := strings.SplitN(spec, ":", 2); len(parts) == 2 {
		if found, ok := formats[parts[0]]; ok {
			f = found
			path = parts[1]
		}
	}
	if f == nil {
		f = byExtension(path)
	}
	if f == nil {
		return nil, xerrors.Errorf("%s: unknown container format: %w", spec, media.ErrNotSupported)
	}

	if f.OpenPath != nil {
		return f.OpenPath(path)
	}

	log.Info("Opening %s file %s", f.Name, path)
	file, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open %s: %w", f.Name, err)
	}
	d, err := f.NewDemuxer(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &fileDemuxer{d, file}, nil
}

// OpenReader demuxes r using the named format.
func OpenReader(r io.ReadSeeker, format string) (Demuxer, error) {
	f, ok := formats[format]
	if !ok {
		return nil, xerrors.Errorf("format %q: %w", format, media.ErrNotSupported)
	}
	return f.NewDemuxer(r)
}

type fileDemuxer struct {
	Demuxer
	file *os.File
}

func (d *fileDemuxer) Close() error {
	err := d.Demuxer.Close()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}
