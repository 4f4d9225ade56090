package usd

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// primaryExtensions mark members that downstream usdz readers may treat as the
// container's main document. The format requires the main document to be the
// first member and uncompressed.
var primaryExtensions = []string{".usd", ".usda", ".usdc"}

func isPrimary(name string) bool {
	for _, ext := range primaryExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// WritePackage rebuilds a usdz-style container from the files under srcDir.
// The first primary (scene-description) file in sorted order is written first,
// then the remaining primaries, then everything else, all with the Store
// method and paths relative to srcDir.
func WritePackage(srcDir string, outPath string) error {
	var primaries, others []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isPrimary(rel) {
			primaries = append(primaries, rel)
		} else {
			others = append(others, rel)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", srcDir, err)
	}
	if len(primaries) == 0 {
		return fmt.Errorf("no scene-description file under %s", srcDir)
	}
	sort.Strings(primaries)
	sort.Strings(others)

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create package: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, rel := range append(primaries, others...) {
		if err := addStored(zw, srcDir, rel); err != nil {
			zw.Close()
			return fmt.Errorf("add %s to package: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize package: %w", err)
	}
	return nil
}

func addStored(zw *zip.Writer, srcDir, rel string) error {
	f, err := os.Open(filepath.Join(srcDir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = rel
	header.Method = zip.Store

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// ZipTree re-zips an entire directory tree (deflated, sorted paths relative to
// srcDir) into outPath. Used for the outer processed archive.
func ZipTree(srcDir string, outPath string) error {
	var files []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", srcDir, err)
	}
	sort.Strings(files)

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, rel := range files {
		if err := addDeflated(zw, srcDir, rel); err != nil {
			zw.Close()
			return fmt.Errorf("add %s to zip: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

func addDeflated(zw *zip.Writer, srcDir, rel string) error {
	f, err := os.Open(filepath.Join(srcDir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = rel
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Extract unpacks a zip archive into destDir, preserving member paths and
// rejecting entries that escape the destination.
func Extract(archivePath string, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, member := range zr.File {
		if err := extractMember(member, destDir); err != nil {
			return fmt.Errorf("extract %s: %w", member.Name, err)
		}
	}
	return nil
}

func extractMember(member *zip.File, destDir string) error {
	dest := filepath.Join(destDir, filepath.FromSlash(member.Name))
	if rel, err := filepath.Rel(destDir, dest); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("member path escapes destination")
	}

	if member.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
