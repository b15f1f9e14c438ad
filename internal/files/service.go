// Package files implements the file operations shared by the HTTP API and the
// terminal UI. Every operation targets the filesystem directly.
package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"nexus/internal/monitor"
)

// Resolve joins an optional location with a filename. The result is not
// normalized or checked in any way.
func Resolve(filename, location string) string {
	if location != "" {
		return location + "/" + filename
	}
	return filename
}

// BrowseResult lists the subdirectories of a browsed path.
type BrowseResult struct {
	Directories []string `json:"directories"`
	CurrentPath string   `json:"currentPath"`
}

// Service performs file operations relative to a default root.
type Service struct {
	root    string
	confine bool
	metrics *monitor.Metrics
	tracer  *monitor.Tracer
}

// Options configures a Service.
type Options struct {
	// Root is used as the location when a call passes an empty one.
	// "" and "." both mean the working directory.
	Root string
	// Confine rejects resolved paths that leave Root.
	Confine bool
	Metrics *monitor.Metrics
	Tracer  *monitor.Tracer
}

// NewService creates a file service.
func NewService(opts Options) *Service {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = monitor.NewTracer()
	}
	return &Service{
		root:    opts.Root,
		confine: opts.Confine,
		metrics: opts.Metrics,
		tracer:  tracer,
	}
}

// Root returns the default location.
func (s *Service) Root() string {
	return s.root
}

// Location returns the location a request actually targets.
func (s *Service) Location(location string) string {
	if location == "" && s.root != "." {
		return s.root
	}
	return location
}

// Path resolves filename against location, falling back to the root.
func (s *Service) Path(filename, location string) (string, error) {
	p := Resolve(filename, s.Location(location))
	if err := s.checkConfined(p); err != nil {
		return "", err
	}
	return p, nil
}

// List returns the names of the regular files in location, sorted.
func (s *Service) List(ctx context.Context, location string) ([]string, error) {
	_, span := s.tracer.StartFileOp(ctx, "list", "", location)
	defer span.End()

	dir := location
	if dir == "" {
		dir = s.dirOrDot(s.root)
	}
	if err := s.checkConfined(dir); err != nil {
		return nil, s.record(span, "list", &OpError{Op: "list", Path: dir, Err: err})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, s.record(span, "list", ioError("list", dir, err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	span.SetAttributes(monitor.AttrFileCount.Int(len(names)))
	return names, s.record(span, "list", nil)
}

// View returns the full contents of a file.
func (s *Service) View(ctx context.Context, filename, location string) (string, error) {
	_, span := s.tracer.StartFileOp(ctx, "view", filename, location)
	defer span.End()

	p, err := s.pathFor("view", filename, location)
	if err != nil {
		return "", s.record(span, "view", err)
	}

	data, err := os.ReadFile(p) // #nosec G304 -- serving user-named files is the purpose of this tool
	if err != nil {
		// Any failure to open reads as "not found".
		return "", s.record(span, "view", &OpError{Op: "view", Path: p, Err: fmt.Errorf("%w: %v", ErrNotFound, err)})
	}
	return string(data), s.record(span, "view", nil)
}

// Create writes content to a file, replacing anything already there.
func (s *Service) Create(ctx context.Context, filename, content, location string) error {
	return s.write(ctx, "create", filename, content, location)
}

// Edit overwrites a file with new content. It behaves exactly like Create.
func (s *Service) Edit(ctx context.Context, filename, content, location string) error {
	return s.write(ctx, "edit", filename, content, location)
}

func (s *Service) write(ctx context.Context, op, filename, content, location string) error {
	_, span := s.tracer.StartFileOp(ctx, op, filename, location)
	defer span.End()

	p, err := s.pathFor(op, filename, location)
	if err != nil {
		return s.record(span, op, err)
	}

	if err := os.WriteFile(p, []byte(content), 0o644); err != nil { // #nosec G306 -- user files, normal umask semantics
		return s.record(span, op, ioError(op, p, err))
	}

	log.Debug().Str("op", op).Str("path", p).Int("bytes", len(content)).Msg("file written")
	return s.record(span, op, nil)
}

// Delete removes a file.
func (s *Service) Delete(ctx context.Context, filename, location string) error {
	_, span := s.tracer.StartFileOp(ctx, "delete", filename, location)
	defer span.End()

	p, err := s.pathFor("delete", filename, location)
	if err != nil {
		return s.record(span, "delete", err)
	}

	if err := os.Remove(p); err != nil {
		return s.record(span, "delete", ioError("delete", p, err))
	}

	log.Debug().Str("path", p).Msg("file deleted")
	return s.record(span, "delete", nil)
}

// Exists reports whether the resolved path can be stat'ed. It never fails.
func (s *Service) Exists(_ context.Context, filename, location string) bool {
	p, err := s.pathFor("exists", filename, location)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Browse lists the subdirectories of path and echoes the path back.
func (s *Service) Browse(ctx context.Context, path string) (*BrowseResult, error) {
	_, span := s.tracer.StartFileOp(ctx, "browse", "", path)
	defer span.End()

	dir := s.dirOrDot(path)
	if err := s.checkConfined(dir); err != nil {
		return nil, s.record(span, "browse", &OpError{Op: "browse", Path: dir, Err: err})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, s.record(span, "browse", ioError("browse", dir, err))
	}

	result := &BrowseResult{
		Directories: make([]string, 0, len(entries)),
		CurrentPath: dir,
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != "." && e.Name() != ".." {
			result.Directories = append(result.Directories, e.Name())
		}
	}
	sort.Strings(result.Directories)

	return result, s.record(span, "browse", nil)
}

func (s *Service) pathFor(op, filename, location string) (string, error) {
	if filename == "" {
		return "", &OpError{Op: op, Path: location, Err: ErrInvalidName}
	}
	p, err := s.Path(filename, location)
	if err != nil {
		return "", &OpError{Op: op, Path: Resolve(filename, location), Err: err}
	}
	return p, nil
}

func (s *Service) dirOrDot(p string) string {
	if p == "" {
		return "."
	}
	return p
}

// checkConfined enforces Confine. Relative paths resolve against the working
// directory, as the OS would resolve them.
func (s *Service) checkConfined(p string) error {
	if !s.confine {
		return nil
	}
	root, err := filepath.Abs(s.dirOrDot(s.root))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	target, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return nil
}

func (s *Service) record(span trace.Span, op string, err error) error {
	monitor.MarkError(span, err)
	if s.metrics != nil {
		s.metrics.RecordFileOp(op, err)
	}
	return err
}
