package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"docqa/internal/session"
)

// PDF renders the Markdown transcript as plain text on A4 pages. Core fonts
// only cover cp1252, so characters outside it are replaced.
func PDF(sess *session.Session) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Session "+sess.ID, true)
	pdf.AddPage()

	for _, line := range strings.Split(Markdown(sess), "\n") {
		switch {
		case strings.HasPrefix(line, "#"):
			level := len(line) - len(strings.TrimLeft(line, "#"))
			pdf.SetFont("Helvetica", "B", float64(20-2*level))
			pdf.MultiCell(0, 8, tr(strings.TrimSpace(line[level:])), "", "", false)
			pdf.Ln(2)
		case strings.TrimSpace(line) == "":
			pdf.Ln(3)
		default:
			pdf.SetFont("Helvetica", "", 11)
			_, lineHeight := pdf.GetFontSize()
			pdf.MultiCell(0, lineHeight*1.5, tr(line), "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
