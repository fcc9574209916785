package testgen

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"text/template"
)

const defaultOPFPath = "OEBPS/content.opf"

var containerTmpl = template.Must(template.New("container").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="{{.}}" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`))

var packageTmpl = template.Must(template.New("package").Funcs(template.FuncMap{"x": xmlText}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:identifier id="bookid">urn:uuid:test-book-id</dc:identifier>
{{- with .Opts.Title}}
    <dc:title>{{x .}}</dc:title>
{{- end}}
{{- range $i, $a := .Opts.Authors}}
    <dc:creator id="creator{{$i}}" opf:role="aut">{{x $a}}</dc:creator>
{{- end}}
{{- with .Opts.Description}}
    <dc:description>{{x .}}</dc:description>
{{- end}}
{{- with .Language}}
    <dc:language>{{x .}}</dc:language>
{{- end}}
{{- with .Opts.Subject}}
    <dc:subject>{{x .}}</dc:subject>
{{- end}}
{{- if .CoverMeta}}
    <meta name="cover" content="img-1"/>
{{- end}}
  </metadata>
  <manifest>
    <item id="chapter1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
{{- with .CoverHref}}
    <item id="img-1" href="{{.}}" media-type="{{$.CoverMimeType}}"{{if $.CoverProperty}} properties="cover-image"{{end}}/>
{{- end}}
  </manifest>
  <spine>
    <itemref idref="chapter1"/>
  </spine>
</package>
`))

const chapterXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter 1</title></head>
<body><h1>Chapter 1</h1><p>It was a dark and stormy night.</p></body>
</html>
`

type packageData struct {
	Opts          EPUBOptions
	Language      string
	CoverHref     string
	CoverMimeType string
	CoverMeta     bool
	CoverProperty bool
}

func newPackageData(opts EPUBOptions) packageData {
	d := packageData{Opts: opts, Language: opts.Language, CoverMimeType: opts.CoverMimeType}
	switch d.Language {
	case "":
		d.Language = "en"
	case "-":
		d.Language = ""
	}
	if d.CoverMimeType == "" {
		d.CoverMimeType = "image/png"
	}
	if opts.HasCover {
		d.CoverHref = "images/Cover.png"
		if d.CoverMimeType == "image/jpeg" {
			d.CoverHref = "images/Cover.jpg"
		}
		d.CoverMeta = opts.CoverStrategy == "" || opts.CoverStrategy == "meta"
		d.CoverProperty = opts.CoverStrategy == "properties"
	}
	return d
}

// GenerateEPUB writes a minimal EPUB to dir/filename and returns its path.
// The archive holds the stored mimetype entry, META-INF/container.xml, the
// package document, one chapter and, when requested, a cover image.
func GenerateEPUB(t *testing.T, dir, filename string, opts EPUBOptions) string {
	t.Helper()

	opfPath := opts.OPFPath
	if opfPath == "" {
		opfPath = defaultOPFPath
	}
	base := path.Dir(opfPath)
	inBase := func(name string) string {
		if base == "." {
			return name
		}
		return base + "/" + name
	}
	data := newPackageData(opts)

	var container, pkg bytes.Buffer
	if err := containerTmpl.Execute(&container, opfPath); err != nil {
		t.Fatalf("failed to render container.xml: %v", err)
	}
	if err := packageTmpl.Execute(&pkg, data); err != nil {
		t.Fatalf("failed to render package document: %v", err)
	}

	entries := []struct {
		name string
		data []byte
	}{
		{"META-INF/container.xml", container.Bytes()},
		{opfPath, pkg.Bytes()},
		{inBase("chapter1.xhtml"), []byte(chapterXHTML)},
	}
	if data.CoverHref != "" {
		entries = append(entries, struct {
			name string
			data []byte
		}{inBase(data.CoverHref), GenerateImage(t, data.CoverMimeType)})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// The mimetype entry comes first and uncompressed.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err == nil {
		_, err = w.Write([]byte("application/epub+zip"))
	}
	if err != nil {
		t.Fatalf("failed to write mimetype: %v", err)
	}
	for _, e := range entries {
		if err := writeZipFile(zw, e.name, e.data); err != nil {
			t.Fatalf("failed to write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish EPUB: %v", err)
	}

	p := filepath.Join(dir, filename)
	if err := os.WriteFile(p, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write EPUB file: %v", err)
	}
	return p
}

// GenerateCorruptFile writes bytes that no book parser will accept under the
// given name.
func GenerateCorruptFile(t *testing.T, dir, filename string) string {
	t.Helper()
	return WriteFile(t, dir, filename, []byte("PK\x03\x04 this is not a real container \x00\xff\xfe"))
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// GenerateImage encodes a 60x90 solid image as JPEG, or as PNG for any
// other mime type.
func GenerateImage(t *testing.T, mimeType string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 60, 90))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{0, 100, 200, 255}), image.Point{}, draw.Src)

	var (
		buf bytes.Buffer
		err error
	)
	if mimeType == "image/jpeg" {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("failed to encode %s: %v", mimeType, err)
	}
	return buf.Bytes()
}

func xmlText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
