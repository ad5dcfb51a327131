package keycap

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model2d"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Contour is one closed boundary loop of a glyph, in millimeters.
type Contour []model2d.Coord

// Font stores parsed TrueType data plus auxiliary metrics.
//
// A Font is immutable after ParseFont and safe for concurrent use; the
// per-glyph scratch state lives in a truetype.GlyphBuf allocated per call.
type Font struct {
	TTFont *truetype.Font

	ascent float64
}

// ParseFont parses a TTF/OTF (TrueType outlines) font file.
func ParseFont(ttfBytes []byte) (*Font, error) {
	ttf, err := truetype.Parse(ttfBytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse font")
	}
	res := &Font{TTFont: ttf}
	if asc, ok := parseOS2TypoAscender(ttfBytes); ok && asc > 0 {
		res.ascent = asc
	}
	return res, nil
}

// LoadFont reads and parses a font file from disk.
func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load font %s", path)
	}
	return ParseFont(data)
}

// ListFonts returns the names of .ttf/.otf files under dir. A missing
// directory yields an empty list.
func ListFonts(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var fonts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".ttf" || ext == ".otf" {
			fonts = append(fonts, e.Name())
		}
	}
	return fonts
}

// ExtractOutlines loads the vector outline of ch and returns its contours
// scaled so the font's ascent (baseline to top) maps to size millimeters.
//
// An empty result with a nil error means the character has no visible
// outline (space, or a code point the font does not map); callers must
// treat that as "nothing to engrave", not as failure. Contours with fewer
// than 3 points are dropped. curveSegs controls quadratic flattening and
// defaults to 8 when non-positive.
func ExtractOutlines(font *Font, ch rune, size float64, curveSegs int) ([]Contour, error) {
	if font == nil || font.TTFont == nil {
		return nil, errors.New("nil font")
	}
	if size <= 0 {
		return nil, errors.New("size must be > 0")
	}
	if curveSegs <= 0 {
		curveSegs = 8
	}

	ttFont := font.TTFont
	idx := ttFont.Index(ch)
	if idx == 0 {
		// .notdef: the font has no glyph for this rune. Engraving the
		// replacement box was never wanted, so treat as invisible.
		return nil, nil
	}

	// Map font ascent (baseline->top) to size in millimeters, matching
	// OpenSCAD's text(size=...).
	upem := float64(ttFont.FUnitsPerEm())
	ascent := font.ascent
	if ascent <= 0 {
		fontBounds := ttFont.Bounds(fixed.Int26_6(ttFont.FUnitsPerEm()))
		ascent = float64(fontBounds.Max.Y)
	}
	if ascent <= 0 {
		ascent = upem
	}
	scale := size / ascent

	// truetype uses a 26.6 fixed-point scale for glyph loading. Setting
	// fixedScale = 64*upem makes 1 font unit = 64 in the GlyphBuf, so
	// coordinates come out in font units before our own float scale.
	fixedScale := fixed.Int26_6(int32(upem * 64))

	var gb truetype.GlyphBuf
	if err := gb.Load(ttFont, fixedScale, idx, xfont.HintingNone); err != nil {
		// No silent bitmap fallback: outline data must be present.
		return nil, errors.Wrapf(err, "load glyph %q", ch)
	}

	return glyphContours(&gb, scale, curveSegs), nil
}

// MirrorContours returns contours flipped across the Y axis. Used for
// bottom-face engravings so text reads correctly when printed; mirroring
// must happen at the contour stage, before extrusion, because mirroring a
// finished solid inverts face winding.
func MirrorContours(contours []Contour) []Contour {
	out := make([]Contour, len(contours))
	for i, c := range contours {
		mc := make(Contour, len(c))
		for j, p := range c {
			mc[j] = model2d.Coord{X: -p.X, Y: p.Y}
		}
		out[i] = mc
	}
	return out
}

// glyphContours splits the GlyphBuf point stream at its contour-boundary
// markers and flattens each contour into a closed polyline.
func glyphContours(gb *truetype.GlyphBuf, scale float64, segs int) []Contour {
	pts := gb.Points
	ends := gb.Ends

	var out []Contour
	start := 0

	for _, end := range ends {
		contourPts := pts[start:end]
		start = end
		if len(contourPts) == 0 {
			continue
		}
		poly := flattenContour(contourPts, scale, segs)
		if len(poly) >= 3 {
			out = append(out, poly)
		}
	}

	return out
}

// flattenContour handles on-curve/off-curve quadratic points per the
// TrueType spec, including wrap-around implied points and consecutive
// off-curve points.
func flattenContour(pts []truetype.Point, scale float64, segs int) Contour {
	if len(pts) == 0 {
		return nil
	}

	toVec := func(p truetype.Point) model2d.Coord {
		return model2d.Coord{
			X: (float64(p.X) / 64.0) * scale,
			Y: (float64(p.Y) / 64.0) * scale,
		}
	}
	onCurve := func(p truetype.Point) bool { return p.Flags&0x01 != 0 }

	n := len(pts)

	// Choose the TrueType start point.
	var start model2d.Coord
	startIdx := 0
	if onCurve(pts[0]) {
		start = toVec(pts[0])
		startIdx = 0
	} else if onCurve(pts[n-1]) {
		start = toVec(pts[n-1])
		startIdx = n - 1
	} else {
		start = toVec(pts[n-1]).Mid(toVec(pts[0]))
		startIdx = 0
	}

	poly := make(Contour, 0, n*segs+4)
	poly = append(poly, start)

	prevOn := start
	var haveCtrl bool
	var ctrl model2d.Coord

	// Walk points once around the contour, starting after the chosen anchor.
	i := (startIdx + 1) % n
	for steps := 0; steps < n; steps++ {
		p := pts[i]

		if onCurve(p) {
			on := toVec(p)
			if haveCtrl {
				// Quadratic: prevOn -> ctrl -> on
				poly = append(poly, flattenQuad(prevOn, ctrl, on, segs)...)
				haveCtrl = false
			} else {
				// Line: prevOn -> on
				poly = append(poly, on)
			}
			prevOn = on
			i = (i + 1) % n
			continue
		}

		// Off-curve control point.
		c := toVec(p)
		if haveCtrl {
			// Two consecutive off-curve points => implied on-curve at midpoint.
			implied := ctrl.Mid(c)
			poly = append(poly, flattenQuad(prevOn, ctrl, implied, segs)...)
			prevOn = implied
			ctrl = c
			haveCtrl = true
		} else {
			ctrl = c
			haveCtrl = true
		}
		i = (i + 1) % n
	}

	// Close contour back to start.
	if haveCtrl {
		poly = append(poly, flattenQuad(prevOn, ctrl, start, segs)...)
	} else if poly[len(poly)-1] != start {
		poly = append(poly, start)
	}

	// Ensure explicit closure.
	if poly[len(poly)-1] != poly[0] {
		poly = append(poly, poly[0])
	}

	if len(poly) < 4 {
		return nil
	}
	return poly
}

func flattenQuad(p0, p1, p2 model2d.Coord, segs int) []model2d.Coord {
	out := make([]model2d.Coord, 0, segs)
	for i := 1; i <= segs; i++ {
		t := float64(i) / float64(segs)
		u := 1 - t
		p := p0.Scale(u * u).Add(p1.Scale(2 * u * t)).Add(p2.Scale(t * t))
		out = append(out, p)
	}
	return out
}

func parseOS2TypoAscender(data []byte) (float64, bool) {
	const (
		tableDirOffset = 12
		recordSize     = 16
		os2Tag         = "OS/2"
		typoAscOffset  = 68
	)
	if len(data) < tableDirOffset {
		return 0, false
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	if numTables < 0 || len(data) < tableDirOffset+numTables*recordSize {
		return 0, false
	}
	for i := 0; i < numTables; i++ {
		recOff := tableDirOffset + i*recordSize
		tag := string(data[recOff : recOff+4])
		if tag != os2Tag {
			continue
		}
		tableOffset := int(binary.BigEndian.Uint32(data[recOff+8 : recOff+12]))
		tableLen := int(binary.BigEndian.Uint32(data[recOff+12 : recOff+16]))
		if tableOffset < 0 || tableLen < 0 || tableOffset+tableLen > len(data) || tableLen < typoAscOffset+2 {
			return 0, false
		}
		raw := int16(binary.BigEndian.Uint16(data[tableOffset+typoAscOffset : tableOffset+typoAscOffset+2]))
		return float64(raw), raw > 0
	}
	return 0, false
}
