package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/pdf/security"
)

// Service handles source document intake and output files, confined to the
// configured work and output directories
type Service struct {
	validator *Validator
	input     *security.PathValidator
	output    *security.PathValidator
}

// NewService creates an intake service
func NewService(maxFileSize int64, workDir, outputDir string) (*Service, error) {
	input, err := security.NewPathValidator(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if outputDir == "" {
		outputDir = workDir
	}
	output, err := security.NewPathValidator(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create output path validator: %w", err)
	}

	return &Service{
		validator: NewValidator(maxFileSize),
		input:     input,
		output:    output,
	}, nil
}

// WorkDir returns the directory source documents are read from
func (s *Service) WorkDir() string {
	return s.input.Root()
}

// OutputDir returns the directory results are written to
func (s *Service) OutputDir() string {
	return s.output.Root()
}

// Open validates a source document in the work directory and returns a
// Source that re-reads it from disk on every open
func (s *Service) Open(path string) (*Document, Source, error) {
	abs, err := s.input.Resolve(path)
	if err != nil {
		return nil, nil, baerrors.New(baerrors.KindInputRejected, "open document", fmt.Errorf("security validation failed: %w", err))
	}
	doc, _, err := s.validator.ValidateFile(abs)
	if err != nil {
		return nil, nil, err
	}
	return doc, FileSource(abs), nil
}

// Accept validates uploaded document bytes. The returned Source hands out
// copies of data.
func (s *Service) Accept(name string, data []byte) (*Document, Source, error) {
	doc, err := s.validator.ValidateBytes(name, data)
	if err != nil {
		return nil, nil, err
	}
	return doc, BytesSource(data), nil
}

// Save writes a finished artifact to the output directory and returns its
// absolute path. The file is written under a temporary name first so a
// failed write never leaves a partial artifact behind.
func (s *Service) Save(filename string, data []byte) (string, error) {
	if filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid output file name: %s", filename)
	}
	if err := s.output.EnsureRoot(); err != nil {
		return "", err
	}
	dst, err := s.output.Resolve(filename)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return dst, nil
}

// ReadFile reads a supporting file, such as a photo or a signature image,
// from the work directory
func (s *Service) ReadFile(path string) ([]byte, error) {
	const op = "read file"

	abs, err := s.input.Resolve(path)
	if err != nil {
		return nil, baerrors.New(baerrors.KindInputRejected, op, fmt.Errorf("security validation failed: %w", err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, baerrors.New(baerrors.KindInputRejected, op, err)
	}
	if info.IsDir() {
		return nil, baerrors.Newf(baerrors.KindInputRejected, op, "%s is a directory", path)
	}
	if s.validator.maxFileSize > 0 && info.Size() > s.validator.maxFileSize {
		return nil, baerrors.Newf(baerrors.KindInputRejected, op, "file too large: %d bytes (max: %d bytes)", info.Size(), s.validator.maxFileSize)
	}
	return os.ReadFile(abs)
}
