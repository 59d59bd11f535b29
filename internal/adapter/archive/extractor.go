// Package archive extracts grid files from downloaded zip archives.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
)

// DefaultSuffixes are the member suffixes considered grid files when no member is named.
var DefaultSuffixes = []string{".bin", ".grib2", ".grb2", ".grb"}

// Extractor copies one member of an archive into an output directory.
type Extractor struct {
	outDir   string
	member   string
	suffixes []string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMember names the archive entry to extract. Empty means pick by suffix.
func WithMember(name string) Option {
	return func(e *Extractor) { e.member = name }
}

// WithSuffixes replaces the suffix allowlist used when no member is named.
func WithSuffixes(suffixes ...string) Option {
	return func(e *Extractor) { e.suffixes = suffixes }
}

// NewExtractor creates an extractor writing into outDir.
func NewExtractor(outDir string, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Extractor {
	e := &Extractor{
		outDir:   outDir,
		suffixes: DefaultSuffixes,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract writes the selected member to outDir and returns its path. An existing
// output file is reused without opening the archive when the member is named,
// or when an earlier suffix scan of the same archive recorded its choice.
func (e *Extractor) Extract(ctx context.Context, archivePath string) (string, error) {
	member := e.member
	if member == "" {
		member = e.resolvedMember(archivePath)
	}
	if member != "" {
		out := e.outputPath(member)
		if exists(out) {
			e.cached(out)
			return out, nil
		}
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer zr.Close()

	f := e.selectMember(zr.File)
	if f == nil {
		return "", fmt.Errorf("%w: %s in %s", domain.ErrNotFound, e.criteria(), archivePath)
	}

	out := e.outputPath(f.Name)
	if exists(out) {
		e.cached(out)
		e.recordMember(archivePath, f.Name)
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.logger.Info("extracting archive member", "archive", archivePath, "member", f.Name, "path", out)
	if err := writeMember(f, out); err != nil {
		return "", err
	}
	e.recordMember(archivePath, f.Name)
	return out, nil
}

// markerPath holds the member a suffix scan chose for archivePath.
func (e *Extractor) markerPath(archivePath string) string {
	return filepath.Join(e.outDir, "."+filepath.Base(archivePath)+".member")
}

func (e *Extractor) resolvedMember(archivePath string) string {
	data, err := os.ReadFile(e.markerPath(archivePath))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// recordMember remembers a suffix scan result. Failing to write it only costs
// an archive read on the next call.
func (e *Extractor) recordMember(archivePath, member string) {
	if e.member != "" {
		return
	}
	if err := os.WriteFile(e.markerPath(archivePath), []byte(member+"\n"), 0o644); err != nil {
		e.logger.Warn("record extracted member failed", "archive", archivePath, "error", err)
	}
}

func (e *Extractor) selectMember(files []*zip.File) *zip.File {
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if e.member != "" {
			if f.Name == e.member {
				return f
			}
			continue
		}
		if hasSuffix(f.Name, e.suffixes) {
			return f
		}
	}
	return nil
}

func (e *Extractor) criteria() string {
	if e.member != "" {
		return fmt.Sprintf("member %q", e.member)
	}
	return fmt.Sprintf("no member with suffix %s", strings.Join(e.suffixes, ", "))
}

func (e *Extractor) outputPath(member string) string {
	return filepath.Join(e.outDir, path.Base(member))
}

func (e *Extractor) cached(out string) {
	e.logger.Info("grid file already extracted, skipping", "path", out)
	e.metrics.CacheHits.WithLabelValues(observability.StageExtract).Inc()
}

func hasSuffix(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

func writeMember(f *zip.File, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", f.Name, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(out), filepath.Base(out)+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()        //nolint:errcheck // already failing
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("extract member %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, out); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
