package retrieve

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one member of a container-format retrieved file.
type Entry struct {
	Pathname string
	Size     int64
}

// ErrNotContainer marks a retrieved file with no enumerable members.
var ErrNotContainer = errors.New("retrieve: not a container format")

// ListMembers enumerates the members of a container-format file: zip and
// gzipped tar archives by content, git clones by directory walk.
func ListMembers(f *File) ([]Entry, error) {
	switch {
	case f.FileType == "application/x-git":
		return listDir(f.Path)
	case strings.HasSuffix(f.Name, ".zip"):
		return listZip(f.Path)
	case strings.HasSuffix(f.Name, ".tar.gz") || strings.HasSuffix(f.Name, ".tgz"):
		return listTarGz(f.Path)
	}
	return nil, ErrNotContainer
}

// ReadMember returns the bytes of one member identified by its pathname
// from ListMembers.
func ReadMember(f *File, pathname string) ([]byte, error) {
	switch {
	case f.FileType == "application/x-git":
		clean := filepath.Clean(pathname)
		if strings.HasPrefix(clean, "..") {
			return nil, fmt.Errorf("retrieve: member path escapes clone: %s", pathname)
		}
		return os.ReadFile(filepath.Join(f.Path, clean))
	case strings.HasSuffix(f.Name, ".zip"):
		return readZipMember(f.Path, pathname)
	case strings.HasSuffix(f.Name, ".tar.gz") || strings.HasSuffix(f.Name, ".tgz"):
		return readTarGzMember(f.Path, pathname)
	}
	return nil, ErrNotContainer
}

func listDir(root string) ([]Entry, error) {
	var out []Entry
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		out = append(out, Entry{Pathname: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: walk clone: %w", err)
	}
	return out, nil
}

func listZip(path string) ([]Entry, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("retrieve: open zip: %w", err)
	}
	defer r.Close()
	var out []Entry
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		out = append(out, Entry{Pathname: zf.Name, Size: int64(zf.UncompressedSize64)})
	}
	return out, nil
}

func readZipMember(path, pathname string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("retrieve: open zip: %w", err)
	}
	defer r.Close()
	for _, zf := range r.File {
		if zf.Name != pathname {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("retrieve: open zip member %s: %w", pathname, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("retrieve: no zip member %s", pathname)
}

func listTarGz(path string) ([]Entry, error) {
	var out []Entry
	err := scanTarGz(path, func(hdr *tar.Header, _ *tar.Reader) (bool, error) {
		if hdr.Typeflag == tar.TypeReg {
			out = append(out, Entry{Pathname: hdr.Name, Size: hdr.Size})
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readTarGzMember(path, pathname string) ([]byte, error) {
	var data []byte
	found := false
	err := scanTarGz(path, func(hdr *tar.Header, tr *tar.Reader) (bool, error) {
		if hdr.Typeflag != tar.TypeReg || hdr.Name != pathname {
			return false, nil
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return true, err
		}
		data = b
		found = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("retrieve: no tar member %s", pathname)
	}
	return data, nil
}

func scanTarGz(path string, fn func(*tar.Header, *tar.Reader) (stop bool, err error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("retrieve: open archive: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("retrieve: gunzip: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("retrieve: read tar: %w", err)
		}
		stop, err := fn(hdr, tr)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}
