package testgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// GenerateOPF writes a standalone OPF sidecar document.
func GenerateOPF(t *testing.T, dir, filename string, opts OPFOptions) string {
	t.Helper()

	prefix := "dc"
	ns := `xmlns:dc="http://purl.org/dc/elements/1.1/"`
	if opts.DCTerms {
		prefix = "dcterms"
		ns = `xmlns:dcterms="http://purl.org/dc/terms/"`
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<package version="2.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="uid">` + "\n")
	fmt.Fprintf(&buf, "  <metadata %s xmlns:opf=\"http://www.idpf.org/2007/opf\">\n", ns)
	for _, el := range []struct{ name, value string }{
		{"title", opts.Title},
		{"creator", opts.Creator},
		{"description", opts.Description},
		{"language", opts.Language},
		{"subject", opts.Subject},
	} {
		if el.value == "" {
			continue
		}
		fmt.Fprintf(&buf, "    <%s:%s>%s</%s:%s>\n", prefix, el.name, xmlText(el.value), prefix, el.name)
	}
	buf.WriteString("  </metadata>\n</package>\n")

	p := filepath.Join(dir, filename)
	if err := os.WriteFile(p, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write OPF file: %v", err)
	}
	return p
}
