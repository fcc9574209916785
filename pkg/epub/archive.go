package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
)

const (
	containerPath = "META-INF/container.xml"
	// Entries larger than this are never read into memory.
	maxEntryBytes int64 = 64 << 20
)

var ErrNoPackageDocument = errors.New("no opf package document found")

type container struct {
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// book is an opened EPUB archive together with its parsed package document.
type book struct {
	zr      *zip.ReadCloser
	files   map[string]*zip.File
	opfPath string
	pkg     *Package
}

func open(filename string) (*book, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	b := &book{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		b.files[f.Name] = f
	}

	b.opfPath = b.findPackageDocument()
	if b.opfPath == "" {
		zr.Close()
		return nil, errors.WithStack(ErrNoPackageDocument)
	}

	data, err := b.readFile(b.opfPath)
	if err != nil {
		zr.Close()
		return nil, err
	}
	pkg := &Package{}
	dec := xml.NewDecoder(bytes.NewReader(stripBOM(data)))
	dec.Strict = false
	if err := dec.Decode(pkg); err != nil {
		zr.Close()
		return nil, errors.Wrapf(err, "failed to parse %s", b.opfPath)
	}
	b.pkg = pkg
	return b, nil
}

func (b *book) Close() error {
	return b.zr.Close()
}

// findPackageDocument reads the rootfile from META-INF/container.xml, falling
// back to the first .opf entry in the archive.
func (b *book) findPackageDocument() string {
	if data, err := b.readFile(containerPath); err == nil {
		var c container
		if err := xml.Unmarshal(stripBOM(data), &c); err == nil {
			for _, rf := range c.RootFiles {
				p := strings.TrimSpace(rf.FullPath)
				if p != "" && b.lookup(p) != nil {
					return b.lookup(p).Name
				}
			}
		}
	}
	for _, f := range b.zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name
		}
	}
	return ""
}

// lookup finds an entry by exact name, then case-insensitively.
func (b *book) lookup(name string) *zip.File {
	if f, ok := b.files[name]; ok {
		return f
	}
	for n, f := range b.files {
		if strings.EqualFold(n, name) {
			return f
		}
	}
	return nil
}

func (b *book) readFile(name string) ([]byte, error) {
	f := b.lookup(name)
	if f == nil {
		return nil, errors.Errorf("%s not found in archive", name)
	}
	if f.UncompressedSize64 > uint64(maxEntryBytes) {
		return nil, errors.Errorf("%s is too large", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if int64(len(data)) > maxEntryBytes {
		return nil, errors.Errorf("%s is too large", name)
	}
	return data, nil
}

// resolve turns an href relative to base into an archive path. Hrefs that
// escape the archive root resolve to "".
func resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if href == "" || strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	p := path.Clean(path.Join(path.Dir(base), href))
	if p == ".." || strings.HasPrefix(p, "../") {
		return ""
	}
	return p
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
