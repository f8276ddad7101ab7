package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/domain/commonModels"
	"github.com/akolanti/DocWatch/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrTooLarge        = errors.New("document exceeds the upload size limit")
	ErrEmptyDocument   = errors.New("document has no extractable content")
	ErrUnreadable      = errors.New("document could not be read")
)

var logger = logger_i.NewLogger("Preflight")

// Preflight is what is known about a file before it is uploaded.
type Preflight struct {
	Path        string
	Name        string
	ContentType commonModels.DocType
	SizeBytes   int64
	// TotalPages is zero for formats without pages.
	TotalPages int
}

type Inspector struct {
	maxSize int64
	allowed []string
}

func NewInspector(cfg config.PreflightConfig) *Inspector {
	return &Inspector{
		maxSize: cfg.MaxUploadSize,
		allowed: cfg.AllowedTypes,
	}
}

// Inspect rejects files the backend would refuse and counts PDF pages.
func (i *Inspector) Inspect(path string) (Preflight, error) {
	ext := strings.ToLower(filepath.Ext(path))
	result := Preflight{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: getDocType(ext),
	}
	if result.ContentType == commonModels.ERR || (len(i.allowed) > 0 && !slices.Contains(i.allowed, ext)) {
		return result, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}
	result.SizeBytes = info.Size()
	if result.SizeBytes == 0 {
		return result, ErrEmptyDocument
	}
	if i.maxSize > 0 && result.SizeBytes > i.maxSize {
		return result, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, result.SizeBytes, i.maxSize)
	}

	switch result.ContentType {
	case commonModels.PDF:
		result.TotalPages, err = countPDFPages(path)
	default:
		err = checkText(path)
	}
	if err != nil {
		return result, err
	}
	logger.Debug("preflight passed", "path", path, "type", result.ContentType, "size", result.SizeBytes, "pages", result.TotalPages)
	return result, nil
}

func getDocType(ext string) commonModels.DocType {
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx":
		return commonModels.DOCX
	case ".rtf":
		return commonModels.RTF
	case ".txt":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

func countPDFPages(path string) (pages int, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", ErrUnreadable, r)
		}
	}()

	f, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open pdf: %w", ErrUnreadable, err)
	}
	pages = f.NumPage()
	if pages == 0 {
		return 0, ErrEmptyDocument
	}
	return pages, nil
}

func checkText(path string) error {
	text, err := cat.File(path)
	if err != nil {
		return fmt.Errorf("%w: failed to extract text: %w", ErrUnreadable, err)
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyDocument
	}
	return nil
}
