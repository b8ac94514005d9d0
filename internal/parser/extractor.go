package parser

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"docqa/internal/models"
)

// ExtractPages returns a lazy sequence of the non-blank pages of the document
// at filePath. Page numbers are positions in the original document, so pages
// dropped for being blank leave gaps. When the document cannot be read the
// sequence yields a *models.DocumentError and stops.
func ExtractPages(filePath string) iter.Seq2[models.PageRecord, error] {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return pdfPages(filePath)
	case ".docx":
		return singlePage(filePath, readDOCX)
	case ".pptx":
		return pptxPages(filePath)
	case ".xlsx":
		return xlsxPages(filePath)
	case ".ods":
		return odsPages(filePath)
	case ".txt", ".md":
		return singlePage(filePath, readText)
	default:
		return failed(filePath, fmt.Errorf("unsupported file format: %s", ext))
	}
}

// CollectPages drains ExtractPages into a slice.
func CollectPages(filePath string) ([]models.PageRecord, error) {
	var pages []models.PageRecord
	for page, err := range ExtractPages(filePath) {
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func pdfPages(filePath string) iter.Seq2[models.PageRecord, error] {
	return func(yield func(models.PageRecord, error) bool) {
		f, err := os.Open(filePath)
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}

		reader, err := newPDFReader(f, stat.Size())
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}

		source := filepath.Base(filePath)
		numPages := reader.NumPage()
		log.Debug().Str("source", source).Int("pages", numPages).Msg("Extracting PDF")

		for i := 1; i <= numPages; i++ {
			pageText, err := plainText(reader, i)
			if err != nil {
				yield(models.PageRecord{}, docErr(filePath, fmt.Errorf("page %d: %w", i, err)))
				return
			}
			if strings.TrimSpace(pageText) == "" {
				continue
			}
			if !yield(models.PageRecord{Text: pageText, Source: source, Page: i}, nil) {
				return
			}
		}
	}
}

// newPDFReader turns the panics ledongthuc/pdf raises on malformed files into errors.
func newPDFReader(f *os.File, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return pdf.NewReader(f, size)
}

func plainText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed page: %v", r)
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func singlePage(filePath string, read func(string) (string, error)) iter.Seq2[models.PageRecord, error] {
	return func(yield func(models.PageRecord, error) bool) {
		text, err := read(filePath)
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}
		if strings.TrimSpace(text) == "" {
			return
		}
		yield(models.PageRecord{Text: text, Source: filepath.Base(filePath), Page: 1}, nil)
	}
}

func failed(filePath string, err error) iter.Seq2[models.PageRecord, error] {
	return func(yield func(models.PageRecord, error) bool) {
		yield(models.PageRecord{}, docErr(filePath, err))
	}
}

func docErr(filePath string, err error) error {
	return &models.DocumentError{Path: filePath, Err: err}
}

func readText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
