package fetch

import (
	"archive/tar"    // For reading .tar archives
	"archive/zip"    // For reading .zip archives
	"compress/bzip2" // For reading .bz2 compressed data
	"compress/gzip"  // For reading .gz compressed data
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip" // For reading .7z archives
	"github.com/pkg/errors"
	"github.com/xi2/xz" // For reading .xz compressed data

	"tuffix/internal/logger"
)

// extractors maps archive suffixes to the function that unpacks them.
// Longer suffixes come first so ".tar.gz" is not mistaken for something else.
var extractors = []struct {
	suffix  string
	extract func(src, dest string) (string, error)
}{
	{".tar.gz", extractTar},
	{".tar.bz2", extractTar},
	{".tar.xz", extractTar},
	{".tgz", extractTar},
	{".tar", extractTar},
	{".zip", extractZip},
	{".7z", extract7z},
}

// ExtractArchive unpacks src under dest, picking the format from the file
// name, and returns the archive's top-level entry under dest. Release
// tarballs unpack into a single directory, which is what callers build in.
func ExtractArchive(src, dest string) (string, error) {
	for _, e := range extractors {
		if strings.HasSuffix(src, e.suffix) {
			logger.Debug("[DEBUG] Extracting %s (%s) to %s\n", src, e.suffix, dest)
			return e.extract(src, dest)
		}
	}
	return "", errors.Errorf("unsupported archive format: %s", src)
}

// safeJoin joins an archive entry name onto dest, refusing names that would
// escape it ("../../etc/passwd").
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", errors.Errorf("archive entry %q escapes %s", name, dest)
	}
	return target, nil
}

// topLevelOf returns the first path element of an archive entry name.
func topLevelOf(name string) string {
	name = strings.TrimPrefix(name, "./")
	first, _, _ := strings.Cut(name, "/")
	return first
}

// writeEntry copies r into target, creating parent directories.
func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// extractTar streams a tar file, decompressing on the way when the name
// says so.
func extractTar(src, dest string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", errors.Wrap(err, "failed to open tar archive")
	}
	defer f.Close()

	var reader io.Reader = f
	switch {
	case strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return "", err
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(src, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(src, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return "", err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	var topLevel string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrapf(err, "corrupt archive %s", src)
		}
		// GitHub source tarballs start with a pax global header
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		if topLevel == "" {
			topLevel = topLevelOf(hdr.Name)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return "", err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return "", err
			}
		}
	}
	return filepath.Join(dest, topLevel), nil
}

// archiveFile is one member of a random-access archive (zip or 7z).
type archiveFile struct {
	name string
	info fs.FileInfo
	open func() (io.ReadCloser, error)
}

// extractFiles writes members under dest and returns the top-level entry.
func extractFiles(dest string, files []archiveFile) (string, error) {
	var topLevel string
	for _, f := range files {
		if topLevel == "" {
			topLevel = topLevelOf(f.name)
		}
		target, err := safeJoin(dest, f.name)
		if err != nil {
			return "", err
		}
		if f.info.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", err
			}
			continue
		}
		rc, err := f.open()
		if err != nil {
			return "", errors.Wrapf(err, "cannot open %s", f.name)
		}
		err = writeEntry(target, rc, f.info.Mode())
		rc.Close()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dest, topLevel), nil
}

func extractZip(src, dest string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", errors.Wrap(err, "failed to open zip archive")
	}
	defer r.Close()

	files := make([]archiveFile, 0, len(r.File))
	for _, f := range r.File {
		files = append(files, archiveFile{name: f.Name, info: f.FileInfo(), open: f.Open})
	}
	return extractFiles(dest, files)
}

// extract7z uses the sevenzip library; its File mirrors zip.File.
func extract7z(src, dest string) (string, error) {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return "", errors.Wrap(err, "failed to open 7z archive")
	}
	defer r.Close()

	files := make([]archiveFile, 0, len(r.File))
	for _, f := range r.File {
		files = append(files, archiveFile{name: f.Name, info: f.FileInfo(), open: f.Open})
	}
	return extractFiles(dest, files)
}
