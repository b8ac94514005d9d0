package parser

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"docqa/internal/models"
)

type zipEntry struct {
	name, body string
}

func writeZip(t *testing.T, name string, entries []zipEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func slideXML(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:bodyPr/>`)
	for _, p := range paragraphs {
		b.WriteString(`<a:p><a:pPr lvl="0"/><a:r><a:rPr lang="en-US"/><a:t>` + p + `</a:t></a:r></a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	return b.String()
}

func TestExtractPages_XLSXSheetsArePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Item", "Cost"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"Paper", 12}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Notes", "A1", "approved"); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	pages, err := CollectPages(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 non-empty sheets, got %d", len(pages))
	}
	if pages[0].Page != 1 || !strings.Contains(pages[0].Text, "Item\tCost\nPaper\t12") {
		t.Fatalf("unexpected first sheet %+v", pages[0])
	}
	if pages[1].Page != 3 || !strings.Contains(pages[1].Text, "## Sheet: Notes") {
		t.Fatalf("empty sheet should leave a gap, got %+v", pages[1])
	}
	if pages[0].Source != "budget.xlsx" {
		t.Fatalf("unexpected source %q", pages[0].Source)
	}
}

func TestExtractPages_GeneratedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.pdf")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range []string{"Alpha", "", "Gamma"} {
		pdf.AddPage()
		if text != "" {
			pdf.Cell(40, 10, text)
		}
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}

	pages, err := CollectPages(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages with text, got %d", len(pages))
	}
	if pages[0].Page != 1 || !strings.Contains(pages[0].Text, "Alpha") {
		t.Fatalf("unexpected first page %+v", pages[0])
	}
	if pages[1].Page != 3 || !strings.Contains(pages[1].Text, "Gamma") {
		t.Fatalf("unexpected second page %+v", pages[1])
	}
}

func TestExtractPages_PPTXSlidesArePages(t *testing.T) {
	path := writeZip(t, "deck.pptx", []zipEntry{
		{"[Content_Types].xml", `<Types/>`},
		{"ppt/slides/slide10.xml", slideXML("Wrap up &amp; questions")},
		{"ppt/slides/slide1.xml", slideXML("Intro", "Agenda")},
		{"ppt/slides/slide2.xml", slideXML()},
		{"ppt/slides/_rels/slide1.xml.rels", `<Relationships/>`},
		{"ppt/slideLayouts/slideLayout1.xml", slideXML("Layout title")},
	})

	pages, err := CollectPages(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 slides with text, got %+v", pages)
	}
	if pages[0].Page != 1 || pages[0].Text != "Intro\nAgenda\n" || pages[0].Source != "deck.pptx" {
		t.Fatalf("unexpected first slide %+v", pages[0])
	}
	if pages[1].Page != 10 || pages[1].Text != "Wrap up & questions\n" {
		t.Fatalf("unexpected last slide %+v", pages[1])
	}
}

func TestExtractPages_PPTXWithoutSlides(t *testing.T) {
	path := writeZip(t, "empty.pptx", []zipEntry{{"[Content_Types].xml", `<Types/>`}})
	if _, err := CollectPages(path); !errors.Is(err, models.ErrDocument) {
		t.Fatalf("expected a document error, got %v", err)
	}
}

func TestExtractPages_ODSSheetsArePages(t *testing.T) {
	content := `<office:document-content><office:body><office:spreadsheet>` +
		`<table:table table:name="Costs" table:style-name="ta1"><table:table-column table:number-columns-repeated="3"/>` +
		`<table:table-row><table:table-cell office:value-type="string"><text:p>Item</text:p></table:table-cell>` +
		`<table:table-cell office:value-type="string"><text:p>Cost</text:p></table:table-cell>` +
		`<table:table-cell table:number-columns-repeated="1022"/></table:table-row>` +
		`<table:table-row><table:table-cell><text:p>Paper<text:s/>A4</text:p></table:table-cell>` +
		`<table:table-cell table:number-columns-repeated="2"/>` +
		`<table:table-cell office:value-type="float" office:value="12"><text:p>12</text:p></table:table-cell></table:table-row>` +
		`<table:table-row table:number-rows-repeated="1048574"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>` +
		`</table:table>` +
		`<table:table table:name="Empty"><table:table-row><table:table-cell/></table:table-row></table:table>` +
		`<table:table table:name="R&amp;D"><table:table-row><table:table-cell><text:p>approved</text:p></table:table-cell></table:table-row></table:table>` +
		`</office:spreadsheet></office:body></office:document-content>`
	path := writeZip(t, "budget.ods", []zipEntry{
		{"mimetype", "application/vnd.oasis.opendocument.spreadsheet"},
		{"content.xml", content},
	})

	pages, err := CollectPages(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 non-empty sheets, got %+v", pages)
	}
	if want := "## Sheet: Costs\nItem\tCost\nPaper A4\t\t\t12\n"; pages[0].Page != 1 || pages[0].Text != want {
		t.Fatalf("first sheet = %q (page %d), want %q", pages[0].Text, pages[0].Page, want)
	}
	if pages[1].Page != 3 || pages[1].Text != "## Sheet: R&D\napproved\n" {
		t.Fatalf("empty sheet should leave a gap, got %+v", pages[1])
	}
}

func TestExtractPages_ODSWithoutContent(t *testing.T) {
	path := writeZip(t, "broken.ods", []zipEntry{{"mimetype", "application/vnd.oasis.opendocument.spreadsheet"}})
	if _, err := CollectPages(path); !errors.Is(err, models.ErrDocument) {
		t.Fatalf("expected a document error, got %v", err)
	}
}
