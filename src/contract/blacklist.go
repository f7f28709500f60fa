package contract

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// BlacklistFile is the archive entry listing disallowed organisations, one per
// line.
const BlacklistFile = "blacklist.txt"

const manifestFile = "META-INF/MANIFEST.MF"

// MaxBlacklistSize bounds the uncompressed size of a blacklist.
const MaxBlacklistSize = 1 << 20

// NewBlacklistArchive returns a jar-like zip archive whose blacklist.txt lists
// names.
func NewBlacklistArchive(names []string) ([]byte, error) {
	var content bytes.Buffer
	for _, n := range names {
		content.WriteString(n)
		content.WriteString("\n")
	}
	return NewArchive(map[string][]byte{
		BlacklistFile: content.Bytes(),
	})
}

// NewArchive builds a zip archive with a manifest and the given entries.
// Entries are written in sorted order so equal inputs give equal bytes.
func NewArchive(entries map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	names := []string{manifestFile}
	for name := range entries {
		if name != manifestFile {
			names = append(names, name)
		}
	}
	sort.Strings(names[1:])

	for _, name := range names {
		content, ok := entries[name]
		if !ok && name == manifestFile {
			content = []byte("Manifest-Version: 1.0\n")
		}

		// fixed header, no modification time
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(content); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadBlacklist extracts the organisation names listed in an archive's
// blacklist.txt. Blank lines are ignored.
func ReadBlacklist(archive []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("attachment is not a jar archive: %v", err)
	}

	for _, f := range r.File {
		if f.Name != BlacklistFile {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		content, err := io.ReadAll(io.LimitReader(rc, MaxBlacklistSize+1))
		if err != nil {
			return nil, err
		}
		if len(content) > MaxBlacklistSize {
			return nil, fmt.Errorf("%s is larger than %d bytes", BlacklistFile, MaxBlacklistSize)
		}

		return readLines(bytes.NewReader(content))
	}

	return nil, fmt.Errorf("attachment does not contain %s", BlacklistFile)
}

func readLines(r io.Reader) ([]string, error) {
	res := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			res = append(res, line)
		}
	}
	return res, scanner.Err()
}
