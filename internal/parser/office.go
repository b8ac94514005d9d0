package parser

import (
	"archive/zip"
	"cmp"
	"errors"
	"io"
	"iter"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"docqa/internal/models"
)

// caps table:number-columns-repeated, which spreadsheets set to the full
// sheet width for trailing blank cells
const maxRepeatedCells = 256

var (
	docxParagraphRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxTextRe      = regexp.MustCompile(`(?s)<w:t(?: [^>]*)?>(.*?)</w:t>`)
	slideNameRe     = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	slideParaRe     = regexp.MustCompile(`(?s)<a:p[ >].*?</a:p>`)
	slideTextRe     = regexp.MustCompile(`(?s)<a:t(?: [^>]*)?>(.*?)</a:t>`)
	odsTableRe      = regexp.MustCompile(`(?s)<table:table ([^>]*)>(.*?)</table:table>`)
	odsNameRe       = regexp.MustCompile(`table:name="([^"]*)"`)
	odsRowRe        = regexp.MustCompile(`(?s)<table:table-row[^>]*?(?:/>|>(.*?)</table:table-row>)`)
	odsCellRe       = regexp.MustCompile(`(?s)<table:(?:covered-)?table-cell([^>]*?)(?:/>|>(.*?)</table:(?:covered-)?table-cell>)`)
	odsRepeatRe     = regexp.MustCompile(`table:number-columns-repeated="(\d+)"`)
	odsParaRe       = regexp.MustCompile(`(?s)<text:p(?: [^>]*[^/>])?>(.*?)</text:p>`)
	odsSpaceRe      = regexp.MustCompile(`<text:(?:s|tab|line-break)(?: [^>]*)?/>`)
	xmlTagRe        = regexp.MustCompile(`<[^>]+>`)
	xmlEntities     = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
)

// readDOCX returns the paragraphs of a .docx file, one per line.
func readDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	return extractTextFromXML(r.Editable().GetContent()), nil
}

func extractTextFromXML(xmlContent string) string {
	return xmlParagraphs(xmlContent, docxParagraphRe, docxTextRe)
}

// xmlParagraphs writes the text runs of every paragraph on its own line.
func xmlParagraphs(xmlContent string, paraRe, textRe *regexp.Regexp) string {
	var text strings.Builder
	for _, para := range paraRe.FindAllString(xmlContent, -1) {
		for _, m := range textRe.FindAllStringSubmatch(para, -1) {
			text.WriteString(xmlEntities.Replace(m[1]))
		}
		text.WriteString("\n")
	}
	return text.String()
}

// xlsxPages yields one page per sheet, rows as tab separated lines.
func xlsxPages(filePath string) iter.Seq2[models.PageRecord, error] {
	return func(yield func(models.PageRecord, error) bool) {
		f, err := excelize.OpenFile(filePath)
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}
		defer f.Close()

		source := filepath.Base(filePath)
		for sheetNum, sheetName := range f.GetSheetList() {
			rows, err := f.GetRows(sheetName)
			if err != nil {
				yield(models.PageRecord{}, docErr(filePath, err))
				return
			}
			var text strings.Builder
			text.WriteString("## Sheet: " + sheetName + "\n")
			cells := 0
			for _, row := range rows {
				text.WriteString(strings.Join(row, "\t"))
				text.WriteString("\n")
				cells += len(row)
			}
			if cells == 0 {
				continue
			}
			if !yield(models.PageRecord{Text: text.String(), Source: source, Page: sheetNum + 1}, nil) {
				return
			}
		}
	}
}

// pptxPages yields one page per slide, numbered as in the presentation.
func pptxPages(filePath string) iter.Seq2[models.PageRecord, error] {
	return func(yield func(models.PageRecord, error) bool) {
		r, err := zip.OpenReader(filePath)
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}
		defer r.Close()

		type slide struct {
			num  int
			file *zip.File
		}
		var slides []slide
		for _, file := range r.File {
			m := slideNameRe.FindStringSubmatch(file.Name)
			if m == nil {
				continue
			}
			num, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{num: num, file: file})
		}
		if len(slides) == 0 {
			yield(models.PageRecord{}, docErr(filePath, errors.New("no slides found")))
			return
		}
		slices.SortFunc(slides, func(a, b slide) int { return cmp.Compare(a.num, b.num) })

		source := filepath.Base(filePath)
		for _, s := range slides {
			data, err := readZipFile(s.file)
			if err != nil {
				yield(models.PageRecord{}, docErr(filePath, err))
				return
			}
			text := xmlParagraphs(data, slideParaRe, slideTextRe)
			if strings.TrimSpace(text) == "" {
				continue
			}
			if !yield(models.PageRecord{Text: text, Source: source, Page: s.num}, nil) {
				return
			}
		}
	}
}

// odsPages yields one page per sheet of an OpenDocument spreadsheet, in the
// same layout as xlsxPages.
func odsPages(filePath string) iter.Seq2[models.PageRecord, error] {
	return func(yield func(models.PageRecord, error) bool) {
		r, err := zip.OpenReader(filePath)
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}
		defer r.Close()

		idx := slices.IndexFunc(r.File, func(f *zip.File) bool { return f.Name == "content.xml" })
		if idx < 0 {
			yield(models.PageRecord{}, docErr(filePath, errors.New("content.xml not found")))
			return
		}
		content, err := readZipFile(r.File[idx])
		if err != nil {
			yield(models.PageRecord{}, docErr(filePath, err))
			return
		}

		source := filepath.Base(filePath)
		for sheetNum, table := range odsTableRe.FindAllStringSubmatch(content, -1) {
			name := ""
			if m := odsNameRe.FindStringSubmatch(table[1]); m != nil {
				name = xmlEntities.Replace(m[1])
			}
			var text strings.Builder
			text.WriteString("## Sheet: " + name + "\n")
			cells := 0
			for _, row := range odsRowRe.FindAllStringSubmatch(table[2], -1) {
				values := odsRow(row[1])
				if len(values) == 0 {
					continue
				}
				text.WriteString(strings.Join(values, "\t"))
				text.WriteString("\n")
				cells += len(values)
			}
			if cells == 0 {
				continue
			}
			if !yield(models.PageRecord{Text: text.String(), Source: source, Page: sheetNum + 1}, nil) {
				return
			}
		}
	}
}

// odsRow returns the cell texts of a row without its trailing empty cells.
// Repeated cells are expanded up to maxRepeatedCells.
func odsRow(rowXML string) []string {
	var values []string
	for _, cell := range odsCellRe.FindAllStringSubmatch(rowXML, -1) {
		var paras []string
		for _, p := range odsParaRe.FindAllStringSubmatch(cell[2], -1) {
			paras = append(paras, xmlEntities.Replace(xmlTagRe.ReplaceAllString(odsSpaceRe.ReplaceAllString(p[1], " "), "")))
		}
		value := strings.Join(paras, " ")
		repeat := 1
		if m := odsRepeatRe.FindStringSubmatch(cell[1]); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 1 {
				repeat = min(n, maxRepeatedCells)
			}
		}
		for range repeat {
			values = append(values, value)
		}
	}
	for len(values) > 0 && strings.TrimSpace(values[len(values)-1]) == "" {
		values = values[:len(values)-1]
	}
	return values
}

func readZipFile(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
