package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Layout in points (1 inch = 72pt) on US Letter.
const (
	inch         = 72.0
	margin       = 1 * inch
	footerOffset = 0.75 * inch
	logoSize     = 1 * inch
	answerIndent = 18.0

	fallbackFont = "Helvetica"
	utf8Font     = "DejaVu"
	logoName     = "logo"
)

// PDFOptions locates the optional assets. Both files may be missing.
type PDFOptions struct {
	LogoPath string // e.g. static/logo.png
	FontPath string // e.g. DejaVuSans.ttf
	Compress bool   // deflate content streams; tests turn it off to inspect text
}

// PDFRenderer renders Documents with fpdf.
//
// Assets are read once by NewPDFRenderer. A missing logo is skipped and a
// missing font falls back to Helvetica with cp1252 translation; both are
// logged at warn level and never fail a render.
type PDFRenderer struct {
	logo      []byte
	logoType  string
	font      []byte
	compress  bool
	logger    *slog.Logger
	createdAt func() time.Time
}

func NewPDFRenderer(opts PDFOptions, logger *slog.Logger) *PDFRenderer {
	r := &PDFRenderer{
		compress:  opts.Compress,
		logger:    logger,
		createdAt: time.Now,
	}

	if opts.FontPath != "" {
		font, err := os.ReadFile(opts.FontPath)
		if err != nil {
			logger.Warn("report font unavailable, falling back to Helvetica",
				slog.String("path", opts.FontPath),
				slog.String("error", err.Error()),
			)
		} else {
			r.font = font
		}
	}

	if opts.LogoPath != "" {
		logo, err := os.ReadFile(opts.LogoPath)
		if err != nil {
			logger.Warn("report logo unavailable, rendering without it",
				slog.String("path", opts.LogoPath),
				slog.String("error", err.Error()),
			)
		} else {
			r.logo = logo
			r.logoType = imageType(opts.LogoPath)
		}
	}

	return r
}

// Render lays out doc and returns the PDF bytes.
func (r *PDFRenderer) Render(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(r.compress)
	pdf.SetCreationDate(r.createdAt())
	pdf.SetCreator("brief-builder", false)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)

	family, tr := r.setupFont(pdf)
	pdf.SetTitle(doc.Title, true)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-footerOffset)
		pdf.SetFont(family, "", 9)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Page %d", pdf.PageNo())), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*margin

	titleWidth := contentWidth
	hasLogo := r.drawLogo(pdf, pageWidth)
	if hasLogo {
		titleWidth -= logoSize + 8
	}

	pdf.SetFont(family, "", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(titleWidth, 22, tr(doc.Title), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont(family, "", 12)
	pdf.SetTextColor(128, 128, 128)
	pdf.MultiCell(titleWidth, 16, tr(doc.Subtitle), "", "L", false)
	pdf.Ln(16)
	if hasLogo && pdf.GetY() < margin+logoSize+8 {
		pdf.SetY(margin + logoSize + 8)
	}

	for _, e := range doc.Entries {
		pdf.SetFont(family, "", 12)
		pdf.SetTextColor(0, 0, 139)
		pdf.MultiCell(contentWidth, 16, tr("Q: "+e.Question), "", "L", false)
		pdf.Ln(2)

		pdf.SetFont(family, "", 11)
		pdf.SetTextColor(0, 0, 0)
		if e.List {
			for _, b := range e.Bullets {
				pdf.SetX(margin + answerIndent)
				pdf.MultiCell(contentWidth-answerIndent, 14, tr("• "+b), "", "L", false)
			}
		} else {
			pdf.SetX(margin + answerIndent)
			pdf.MultiCell(contentWidth-answerIndent, 14, tr(e.Answer), "", "L", false)
		}
		pdf.Ln(10)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// setupFont returns the font family to use and the text translator for it.
func (r *PDFRenderer) setupFont(pdf *fpdf.Fpdf) (string, func(string) string) {
	if r.font != nil {
		pdf.AddUTF8FontFromBytes(utf8Font, "", r.font)
		if pdf.Ok() {
			return utf8Font, func(s string) string { return s }
		}
		r.logger.Warn("report font could not be loaded, falling back to Helvetica",
			slog.String("error", pdf.Error().Error()),
		)
		pdf.ClearError()
	}
	return fallbackFont, pdf.UnicodeTranslatorFromDescriptor("")
}

// drawLogo places the logo in the top right corner of the first page.
func (r *PDFRenderer) drawLogo(pdf *fpdf.Fpdf, pageWidth float64) bool {
	if r.logo == nil {
		return false
	}

	opts := fpdf.ImageOptions{ImageType: r.logoType}
	pdf.RegisterImageOptionsReader(logoName, opts, bytes.NewReader(r.logo))
	if !pdf.Ok() {
		r.logger.Warn("report logo could not be decoded, rendering without it",
			slog.String("error", pdf.Error().Error()),
		)
		pdf.ClearError()
		return false
	}

	pdf.ImageOptions(logoName, pageWidth-margin-logoSize, margin, logoSize, logoSize, false, opts, 0, "")
	return true
}

func imageType(path string) string {
	ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "JPEG" {
		return "JPG"
	}
	return ext
}
