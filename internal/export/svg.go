// Package export serializes rendered scenes as standalone SVG documents and
// rasterizes them to PNG.
package export

import (
	"bytes"
	"encoding/xml"
	"math"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoplot/internal/render"
)

const (
	// FileName is the download name for vector exports.
	FileName = "map.svg"
	// PNGFileName is the download name for raster exports.
	PNGFileName = "map.png"

	// Declaration prefixes every exported document.
	Declaration = "<?xml version=\"1.0\" standalone=\"no\"?>\r\n"

	svgNamespace   = "http://www.w3.org/2000/svg"
	xlinkNamespace = "http://www.w3.org/1999/xlink"
)

type svgRoot struct {
	XMLName xml.Name   `xml:"svg"`
	Width   string     `xml:"width,attr"`
	Height  string     `xml:"height,attr"`
	ViewBox string     `xml:"viewBox,attr"`
	Rect    svgRect    `xml:"rect"`
	Groups  []svgGroup `xml:"g"`
}

type svgRect struct {
	Width  string `xml:"width,attr"`
	Height string `xml:"height,attr"`
	Fill   string `xml:"fill,attr"`
}

type svgGroup struct {
	Paths   []svgPath   `xml:"path"`
	Circles []svgCircle `xml:"circle"`
}

type svgPath struct {
	D           string `xml:"d,attr"`
	Fill        string `xml:"fill,attr"`
	Stroke      string `xml:"stroke,attr"`
	StrokeWidth string `xml:"stroke-width,attr"`
}

type svgCircle struct {
	CX   string `xml:"cx,attr"`
	CY   string `xml:"cy,attr"`
	R    string `xml:"r,attr"`
	Fill string `xml:"fill,attr"`
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// coord rounds screen coordinates to hundredths.
func coord(v float64) string {
	return num(math.Round(v*100) / 100)
}

// MarshalSVG serializes scene as the live document: a bare <svg> root with a
// background rect, one path per region and one circle per marker.
func MarshalSVG(scene *render.Scene) ([]byte, error) {
	if scene == nil {
		return nil, eris.New("export: no scene rendered")
	}

	root := svgRoot{
		Width:   num(scene.Width),
		Height:  num(scene.Height),
		ViewBox: "0 0 " + num(scene.Width) + " " + num(scene.Height),
		Rect:    svgRect{Width: num(scene.Width), Height: num(scene.Height), Fill: scene.Background},
	}

	regions := svgGroup{Paths: make([]svgPath, 0, len(scene.Regions))}
	for _, r := range scene.Regions {
		regions.Paths = append(regions.Paths, svgPath{
			D:           r.Path,
			Fill:        r.Fill,
			Stroke:      r.Stroke,
			StrokeWidth: num(r.StrokeWidth),
		})
	}
	root.Groups = append(root.Groups, regions)

	if len(scene.Markers) > 0 {
		markers := svgGroup{Circles: make([]svgCircle, 0, len(scene.Markers))}
		for _, m := range scene.Markers {
			markers.Circles = append(markers.Circles, svgCircle{
				CX:   coord(m.X),
				CY:   coord(m.Y),
				R:    coord(m.R),
				Fill: m.Fill,
			})
		}
		root.Groups = append(root.Groups, markers)
	}

	out, err := xml.Marshal(root)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal svg")
	}
	return out, nil
}

var (
	declPattern    = regexp.MustCompile(`^\s*<\?xml[^>]*\?>\s*`)
	rootTagPattern = regexp.MustCompile(`<svg(?:\s(?:[^>"']|"[^"]*"|'[^']*')*)?/?>`)
	attrPattern    = regexp.MustCompile(`\s([^\s=/>"']+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// declares reports whether tag carries attribute name with value ns.
func declares(tag []byte, name, ns string) bool {
	for _, m := range attrPattern.FindAllSubmatch(tag, -1) {
		if string(m[1]) != name {
			continue
		}
		if string(m[2]) == ns || string(m[3]) == ns {
			return true
		}
	}
	return false
}

// EnsureNamespaces adds the SVG and XLink namespace declarations to the root
// <svg> tag when they are missing. Quoted attribute values may contain '>'
// and the root may be self-closing. Applying it twice is a no-op.
func EnsureNamespaces(src []byte) []byte {
	loc := rootTagPattern.FindIndex(src)
	if loc == nil {
		return src
	}
	tag := src[loc[0]:loc[1]]

	var attrs []byte
	if !declares(tag, "xmlns", svgNamespace) {
		attrs = append(attrs, ` xmlns="`+svgNamespace+`"`...)
	}
	if !declares(tag, "xmlns:xlink", xlinkNamespace) {
		attrs = append(attrs, ` xmlns:xlink="`+xlinkNamespace+`"`...)
	}
	if len(attrs) == 0 {
		return src
	}

	insertAt := loc[0] + len("<svg")
	out := make([]byte, 0, len(src)+len(attrs))
	out = append(out, src[:insertAt]...)
	out = append(out, attrs...)
	out = append(out, src[insertAt:]...)
	return out
}

// Document turns a live SVG serialization into a standalone file: any
// existing XML declaration is replaced by Declaration and both namespaces
// are declared on the root.
func Document(src []byte) []byte {
	body := declPattern.ReplaceAll(src, nil)
	body = EnsureNamespaces(body)

	var buf bytes.Buffer
	buf.Grow(len(Declaration) + len(body))
	buf.WriteString(Declaration)
	buf.Write(body)
	return buf.Bytes()
}

// SVG renders scene straight to an export document.
func SVG(scene *render.Scene) ([]byte, error) {
	live, err := MarshalSVG(scene)
	if err != nil {
		return nil, err
	}
	return Document(live), nil
}
