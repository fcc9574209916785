package testgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// GeneratePDF writes a minimal single-page PDF with a document info
// dictionary and an accurate cross-reference table.
func GeneratePDF(t *testing.T, dir, filename string, opts PDFOptions) string {
	t.Helper()

	p := filepath.Join(dir, filename)
	if err := os.WriteFile(p, BuildPDF(opts), 0600); err != nil {
		t.Fatalf("failed to write PDF file: %v", err)
	}
	return p
}

// BuildPDF returns the bytes of a minimal single-page PDF.
func BuildPDF(opts PDFOptions) []byte {
	content := "BT /F1 12 Tf 72 712 Td (" + escapePDFString(opts.Text) + ") Tj ET"

	catalog := "<< /Type /Catalog /Pages 2 0 R"
	if opts.Lang != "" {
		catalog += " /Lang (" + escapePDFString(opts.Lang) + ")"
	}
	catalog += " >>"

	info := "<<"
	if opts.Title != "" {
		info += " /Title (" + escapePDFString(opts.Title) + ")"
	}
	if opts.Author != "" {
		info += " /Author (" + escapePDFString(opts.Author) + ")"
	}
	if opts.Subject != "" {
		info += " /Subject (" + escapePDFString(opts.Subject) + ")"
	}
	info += " /Producer (testgen) >>"

	objects := []string{
		catalog,
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		info,
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
