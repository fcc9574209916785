package importer

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/covers"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/sidecar"
	"github.com/pkg/errors"
)

type ScanOptions struct {
	// Root is joined with each unit's slash-separated path to build BookPath
	// and friends. Leave it empty to keep paths relative to fsys.
	Root             string
	IsBookExtension  func(ext string) bool
	IsImageExtension func(ext string) bool
}

// Scan walks fsys and returns one unit per book file. Units come back sorted
// by path, so scanning an unchanged tree twice yields identical results.
//
// Within a directory each book takes the sidecar named after it
// ({base}.opf) and the cover image named after it ({base}*cover*). A book
// without its own falls back to the directory's first unclaimed sidecar or
// cover; when the directory holds several books that sharing is flagged as
// an anomaly on the unit.
func Scan(fsys fs.FS, opts ScanOptions) ([]ImportUnit, error) {
	units := []ImportUnit{}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		if !d.IsDir() {
			return nil
		}
		if p != "." && isIgnored(d.Name()) {
			return fs.SkipDir
		}

		entries, err := fs.ReadDir(fsys, p)
		if err != nil {
			return errors.WithStack(err)
		}
		units = append(units, scanDirectory(p, entries, opts)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(units, func(i, j int) bool {
		return units[i].RelPath < units[j].RelPath
	})
	return units, nil
}

func scanDirectory(dir string, entries []fs.DirEntry, opts ScanOptions) []ImportUnit {
	var bookNames, sidecarNames, coverNames []string
	for _, e := range entries {
		if !e.Type().IsRegular() || isIgnored(e.Name()) {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		switch {
		case opts.IsBookExtension(ext):
			bookNames = append(bookNames, name)
		case sidecar.IsSidecar(name):
			sidecarNames = append(sidecarNames, name)
		case covers.IsCoverName(name, opts.IsImageExtension):
			coverNames = append(coverNames, name)
		}
	}
	if len(bookNames) == 0 {
		return nil
	}
	sort.Strings(bookNames)
	sort.Strings(sidecarNames)
	sort.Strings(coverNames)

	bases := make([]string, len(bookNames))
	for i, name := range bookNames {
		bases[i] = strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	}

	sidecarOwner := map[string]int{}
	for _, name := range sidecarNames {
		base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		for i, b := range bases {
			if base == b {
				sidecarOwner[name] = i
				break
			}
		}
	}
	coverOwner := map[string]int{}
	for _, name := range coverNames {
		lower := strings.ToLower(name)
		// The longest matching base wins so "book2-cover.jpg" goes to
		// "book2.pdf" rather than "book.pdf".
		best, bestLen := -1, 0
		for i, b := range bases {
			if strings.HasPrefix(lower, b) && len(b) > bestLen {
				best, bestLen = i, len(b)
			}
		}
		if best >= 0 {
			coverOwner[name] = best
		}
	}

	shared := len(bookNames) > 1
	units := make([]ImportUnit, 0, len(bookNames))
	for i, name := range bookNames {
		unit := ImportUnit{
			RelPath:          path.Join(dir, name),
			OriginalFilename: name,
			ContainerType:    mediafile.ContainerTypeFromExtension(name),
		}
		unit.BookPath = join(opts.Root, unit.RelPath)

		if sc, owned := pick(sidecarNames, sidecarOwner, i); sc != "" {
			unit.SidecarPath = join(opts.Root, path.Join(dir, sc))
			if !owned && shared {
				unit.Anomalies = append(unit.Anomalies, AnomalySharedSidecar)
			}
		}
		if cv, owned := pick(coverNames, coverOwner, i); cv != "" {
			unit.CoverPath = join(opts.Root, path.Join(dir, cv))
			if !owned && shared {
				unit.Anomalies = append(unit.Anomalies, AnomalySharedCover)
			}
		}
		units = append(units, unit)
	}
	return units
}

// pick returns the file owned by book i, or else the first file no book
// owns. The bool reports whether the file was owned.
func pick(names []string, owners map[string]int, i int) (string, bool) {
	for _, name := range names {
		if owner, ok := owners[name]; ok && owner == i {
			return name, true
		}
	}
	for _, name := range names {
		if _, ok := owners[name]; !ok {
			return name, false
		}
	}
	return "", false
}

func join(root, rel string) string {
	if root == "" {
		return filepath.FromSlash(rel)
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// isIgnored skips macOS resource forks and hidden entries.
func isIgnored(name string) bool {
	return name == "__MACOSX" || strings.HasPrefix(name, ".")
}
