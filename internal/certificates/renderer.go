package certificates

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	fontFamily   = "certificate"
	dateLayout   = "January 2, 2006"
	qrImageName  = "verify-qr"
	qrPixelSize  = 256
	qrSizeMM     = 28.0
	signLineSize = 60.0
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	dejaVuRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	dejaVuBold []byte
)

// FontSet holds the TrueType faces used for every string on the page. Text
// is written as UTF-8, so coverage is whatever the faces provide.
type FontSet struct {
	Regular []byte
	Bold    []byte
}

// DefaultFonts is DejaVu Sans Condensed: Latin, Greek and Cyrillic.
func DefaultFonts() FontSet {
	return FontSet{Regular: dejaVuRegular, Bold: dejaVuBold}
}

// LoadFontSet reads TrueType files from disk. An empty boldPath reuses the
// regular face for bold text.
func LoadFontSet(regularPath, boldPath string) (FontSet, error) {
	regular, err := os.ReadFile(regularPath)
	if err != nil {
		return FontSet{}, fmt.Errorf("read certificate font: %w", err)
	}
	fonts := FontSet{Regular: regular, Bold: regular}
	if strings.TrimSpace(boldPath) != "" {
		bold, err := os.ReadFile(boldPath)
		if err != nil {
			return FontSet{}, fmt.Errorf("read certificate bold font: %w", err)
		}
		fonts.Bold = bold
	}
	return fonts, nil
}

type rgb struct{ r, g, b int }

var (
	colorAccent = rgb{59, 130, 246}
	colorInk    = rgb{17, 24, 39}
	colorMuted  = rgb{107, 114, 128}
	colorFaint  = rgb{156, 163, 175}
	colorBorder = rgb{229, 231, 235}
)

// RenderInput is the frozen certificate data laid out on the page.
type RenderInput struct {
	CertificateNo string
	StudentName   string
	ProjectTitle  string
	InnovatorName string
	Skills        []string
	StartDate     time.Time
	EndDate       time.Time
	IssuedAt      time.Time
	VerifyURL     string
	GeneratedAt   time.Time
}

func (in RenderInput) validate() error {
	switch {
	case strings.TrimSpace(in.CertificateNo) == "":
		return fmt.Errorf("certificate number required")
	case strings.TrimSpace(in.StudentName) == "":
		return fmt.Errorf("student name required")
	case strings.TrimSpace(in.ProjectTitle) == "":
		return fmt.Errorf("project title required")
	case strings.TrimSpace(in.VerifyURL) == "":
		return fmt.Errorf("verify url required")
	}
	return nil
}

// Renderer lays out the one-page A4 landscape certificate.
type Renderer struct {
	platformName string
	fonts        FontSet
}

func NewRenderer(platformName string) *Renderer {
	if strings.TrimSpace(platformName) == "" {
		platformName = "InnoInternHUB"
	}
	return &Renderer{platformName: platformName, fonts: DefaultFonts()}
}

// WithFonts swaps the embedded faces, e.g. for a script DejaVu lacks.
func (r *Renderer) WithFonts(fonts FontSet) *Renderer {
	if len(fonts.Regular) == 0 {
		return r
	}
	if len(fonts.Bold) == 0 {
		fonts.Bold = fonts.Regular
	}
	r.fonts = fonts
	return r
}

// Render writes the PDF to w. Output is byte-for-byte stable for the same
// input, GeneratedAt included.
func (r *Renderer) Render(w io.Writer, in RenderInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	qr, err := qrcode.Encode(in.VerifyURL, qrcode.Medium, qrPixelSize)
	if err != nil {
		return fmt.Errorf("encode qr code: %w", err)
	}

	generated := in.GeneratedAt.UTC()
	if in.GeneratedAt.IsZero() {
		generated = time.Now().UTC()
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(generated)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddUTF8FontFromBytes(fontFamily, "", r.fonts.Regular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", r.fonts.Bold)
	pdf.SetTitle("Certificate "+in.CertificateNo, true)
	pdf.SetAuthor(r.platformName, true)
	pdf.SetCreator(r.platformName, true)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()

	pdf.SetDrawColor(colorAccent.r, colorAccent.g, colorAccent.b)
	pdf.SetLineWidth(0.8)
	pdf.Rect(10, 10, pageW-20, pageH-20, "D")
	pdf.SetDrawColor(colorBorder.r, colorBorder.g, colorBorder.b)
	pdf.SetLineWidth(0.3)
	pdf.Rect(12, 12, pageW-24, pageH-24, "D")

	centered := func(y float64, size float64, style string, c rgb, text string) {
		pdf.SetFont(fontFamily, style, size)
		pdf.SetTextColor(c.r, c.g, c.b)
		pdf.SetXY(0, y)
		pdf.CellFormat(pageW, size*0.45, text, "", 0, "C", false, 0, "")
	}

	centered(22, 14, "B", colorAccent, r.platformName)
	centered(34, 32, "", colorInk, "Certificate of Completion")

	pdf.SetDrawColor(colorAccent.r, colorAccent.g, colorAccent.b)
	pdf.SetLineWidth(0.5)
	pdf.Line(pageW/2-35, 52, pageW/2+35, 52)

	centered(60, 13, "", colorMuted, "This is to certify that")
	centered(70, 26, "B", colorInk, in.StudentName)
	centered(86, 13, "", colorMuted, "has successfully completed the internship project")
	centered(96, 20, "", colorAccent, "\""+in.ProjectTitle+"\"")
	centered(110, 11, "", colorMuted, fmt.Sprintf("Duration: %s - %s", formatDate(in.StartDate), formatDate(in.EndDate)))
	centered(118, 11, "", colorMuted, "Skills: "+strings.Join(in.Skills, ", "))

	signY := 142.0
	r.signature(pdf, 45, signY, in.InnovatorName, "Project Lead")
	r.signature(pdf, pageW-45-signLineSize, signY, r.platformName, "Platform Verification")

	pdf.RegisterImageOptionsReader(qrImageName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qr))
	pdf.ImageOptions(qrImageName, pageW/2-qrSizeMM/2, 132, qrSizeMM, qrSizeMM, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	centered(164, 8, "", colorFaint, "Certificate ID: "+in.CertificateNo)
	centered(169, 8, "", colorFaint, "Issued on: "+formatDate(in.IssuedAt))
	centered(174, 8, "", colorFaint, "Verify at: "+in.VerifyURL)
	centered(186, 7, "", colorFaint, "Generated "+generated.Format(time.RFC3339))

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("layout certificate: %w", err)
	}
	return pdf.Output(w)
}

func (r *Renderer) signature(pdf *fpdf.Fpdf, x, y float64, name, role string) {
	pdf.SetDrawColor(colorMuted.r, colorMuted.g, colorMuted.b)
	pdf.SetLineWidth(0.3)
	pdf.Line(x, y-2, x+signLineSize, y-2)

	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(colorInk.r, colorInk.g, colorInk.b)
	pdf.SetXY(x, y)
	pdf.CellFormat(signLineSize, 5, name, "", 0, "C", false, 0, "")

	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(colorMuted.r, colorMuted.g, colorMuted.b)
	pdf.SetXY(x, y+6)
	pdf.CellFormat(signLineSize, 5, role, "", 0, "C", false, 0, "")
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
