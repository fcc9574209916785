package epub

import (
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Cover is an image item read out of an EPUB.
type Cover struct {
	// Path is the entry's path inside the archive.
	Path     string
	MimeType string
	Data     []byte
}

// ExtractCover returns the book's declared cover image, or nil when the book
// doesn't declare one. It is the first of ExtractCovers.
func ExtractCover(path string) (*Cover, error) {
	covers, err := ExtractCovers(path)
	if err != nil || len(covers) == 0 {
		return nil, err
	}
	return covers[0], nil
}

// ExtractCovers returns every readable cover candidate in the book, best
// first. Declarations are tried in order: the EPUB 3 cover-image property,
// the EPUB 2 cover meta, a guide reference of type cover, then any image item
// whose id or href mentions "cover". An item is listed once.
func ExtractCovers(path string) ([]*Cover, error) {
	b, err := open(path)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	var covers []*Cover
	seen := map[string]bool{}
	add := func(item *ManifestItem) {
		if item == nil {
			return
		}
		cover := b.loadCover(item)
		if cover == nil || seen[cover.Path] {
			return
		}
		seen[cover.Path] = true
		covers = append(covers, cover)
	}

	add(b.coverFromProperties())
	add(b.coverFromMeta())
	add(b.coverFromGuide())
	for _, item := range b.coversByName() {
		add(item)
	}
	return covers, nil
}

func (b *book) coverFromProperties() *ManifestItem {
	for i, item := range b.pkg.Manifest.Item {
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "cover-image" {
				return &b.pkg.Manifest.Item[i]
			}
		}
	}
	return nil
}

func (b *book) coverFromMeta() *ManifestItem {
	for _, m := range b.pkg.Metadata.Meta {
		if !strings.EqualFold(m.Name, "cover") || m.Content == "" {
			continue
		}
		item := b.itemByID(m.Content)
		if item == nil {
			continue
		}
		if isImage(item.MediaType) {
			return item
		}
		// The meta points at an XHTML cover page.
		if img := b.firstImageIn(resolve(b.opfPath, item.Href)); img != nil {
			return img
		}
	}
	return nil
}

func (b *book) coverFromGuide() *ManifestItem {
	for _, ref := range b.pkg.Guide.Reference {
		if !strings.EqualFold(ref.Type, "cover") {
			continue
		}
		target := resolve(b.opfPath, ref.Href)
		if item := b.itemByPath(target); item != nil && isImage(item.MediaType) {
			return item
		}
		if img := b.firstImageIn(target); img != nil {
			return img
		}
	}
	return nil
}

func (b *book) coversByName() []*ManifestItem {
	var items []*ManifestItem
	for i, item := range b.pkg.Manifest.Item {
		if !isImage(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID), "cover") || strings.Contains(strings.ToLower(item.Href), "cover") {
			items = append(items, &b.pkg.Manifest.Item[i])
		}
	}
	return items
}

func (b *book) itemByID(id string) *ManifestItem {
	for i, item := range b.pkg.Manifest.Item {
		if item.ID == id {
			return &b.pkg.Manifest.Item[i]
		}
	}
	return nil
}

func (b *book) itemByPath(p string) *ManifestItem {
	if p == "" {
		return nil
	}
	for i, item := range b.pkg.Manifest.Item {
		if strings.EqualFold(resolve(b.opfPath, item.Href), p) {
			return &b.pkg.Manifest.Item[i]
		}
	}
	return nil
}

// firstImageIn returns the manifest item of the first <img> or SVG <image>
// referenced by the XHTML document at p.
func (b *book) firstImageIn(p string) *ManifestItem {
	if p == "" {
		return nil
	}
	data, err := b.readFile(p)
	if err != nil {
		return nil
	}
	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return nil
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if tok.DataAtom != atom.Img && tok.DataAtom != atom.Image {
			continue
		}
		for _, attr := range tok.Attr {
			if attr.Key != "src" && attr.Key != "href" && attr.Key != "xlink:href" {
				continue
			}
			if item := b.itemByPath(resolve(p, attr.Val)); item != nil && isImage(item.MediaType) {
				return item
			}
		}
	}
}

func (b *book) loadCover(item *ManifestItem) *Cover {
	p := resolve(b.opfPath, item.Href)
	if p == "" {
		return nil
	}
	data, err := b.readFile(p)
	if err != nil || len(data) == 0 {
		return nil
	}
	mimeType := strings.ToLower(item.MediaType)
	if detected := mimetype.Detect(data); strings.HasPrefix(detected.String(), "image/") {
		mimeType = detected.String()
	}
	return &Cover{Path: p, MimeType: mimeType, Data: data}
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}
