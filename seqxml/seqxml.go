// Package seqxml decodes draw.io documents into cells.
//
// Accepted inputs are an <mxfile> with one or more <diagram> pages, where each page holds
// either an inline <mxGraphModel> or a compressed payload, or a bare <mxGraphModel>.
package seqxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"oss.terrastruct.com/xdefer"

	"seqanim/lib/geo"
	"seqanim/lib/urlenc"
	"seqanim/seqgraph"
)

type Document struct {
	Pages []*Page
}

type Page struct {
	ID    string
	Name  string
	Cells []*seqgraph.Cell
}

// Page selects a page by name, by id, or by its 0-based index. An empty ref selects the
// first page.
func (d *Document) Page(ref string) (*Page, error) {
	if len(d.Pages) == 0 {
		return nil, errors.New("document has no pages")
	}
	if ref == "" {
		return d.Pages[0], nil
	}
	for _, p := range d.Pages {
		if p.Name == ref || p.ID == ref {
			return p, nil
		}
	}
	if i, err := strconv.Atoi(ref); err == nil && 0 <= i && i < len(d.Pages) {
		return d.Pages[i], nil
	}
	return nil, fmt.Errorf("page %q not found", ref)
}

type xmlFile struct {
	XMLName  xml.Name
	Diagrams []xmlDiagram `xml:"diagram"`
	Root     *xmlRoot     `xml:"root"`
}

type xmlDiagram struct {
	ID    string    `xml:"id,attr"`
	Name  string    `xml:"name,attr"`
	Model *xmlModel `xml:"mxGraphModel"`
	Data  string    `xml:",chardata"`
}

type xmlModel struct {
	Root xmlRoot `xml:"root"`
}

type xmlRoot struct {
	Items []xmlCell `xml:",any"`
}

type xmlCell struct {
	XMLName xml.Name

	ID      string `xml:"id,attr"`
	Value   string `xml:"value,attr"`
	Label   string `xml:"label,attr"`
	Style   string `xml:"style,attr"`
	Parent  string `xml:"parent,attr"`
	Source  string `xml:"source,attr"`
	Target  string `xml:"target,attr"`
	Vertex  string `xml:"vertex,attr"`
	Edge    string `xml:"edge,attr"`
	Visible string `xml:"visible,attr"`

	Geometry *xmlGeometry `xml:"mxGeometry"`
	Inner    *xmlCell     `xml:"mxCell"`
}

type xmlGeometry struct {
	X        *string    `xml:"x,attr"`
	Y        *string    `xml:"y,attr"`
	Width    string     `xml:"width,attr"`
	Height   string     `xml:"height,attr"`
	Relative string     `xml:"relative,attr"`
	Points   []xmlPoint `xml:"mxPoint"`
}

type xmlPoint struct {
	X  string `xml:"x,attr"`
	Y  string `xml:"y,attr"`
	As string `xml:"as,attr"`
}

// Parse decodes a draw.io document.
func Parse(r io.Reader) (_ *Document, err error) {
	defer xdefer.Errorf(&err, "failed to parse diagram document")

	var f xmlFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, err
	}

	d := &Document{}
	switch f.XMLName.Local {
	case "mxGraphModel":
		if f.Root == nil {
			return nil, errors.New("mxGraphModel has no root")
		}
		cells, err := decodeCells(f.Root.Items)
		if err != nil {
			return nil, err
		}
		d.Pages = append(d.Pages, &Page{ID: "0", Cells: cells})
	case "mxfile":
		for i, xd := range f.Diagrams {
			p, err := decodeDiagram(xd)
			if err != nil {
				return nil, fmt.Errorf("page %d (%q): %w", i, xd.Name, err)
			}
			d.Pages = append(d.Pages, p)
		}
	default:
		return nil, fmt.Errorf("unexpected root element <%s>", f.XMLName.Local)
	}
	return d, nil
}

func decodeDiagram(xd xmlDiagram) (*Page, error) {
	p := &Page{ID: xd.ID, Name: xd.Name}
	model := xd.Model
	if model == nil {
		data := strings.TrimSpace(xd.Data)
		if data == "" {
			return p, nil
		}
		raw, err := urlenc.Decode(data)
		if err != nil {
			return nil, err
		}
		model = &xmlModel{}
		if err := xml.NewDecoder(bytes.NewReader([]byte(raw))).Decode(model); err != nil {
			return nil, fmt.Errorf("failed to decode compressed page: %w", err)
		}
	}
	cells, err := decodeCells(model.Root.Items)
	if err != nil {
		return nil, err
	}
	p.Cells = cells
	return p, nil
}

func decodeCells(items []xmlCell) ([]*seqgraph.Cell, error) {
	var cells []*seqgraph.Cell
	for _, it := range items {
		var c *seqgraph.Cell
		var err error
		switch it.XMLName.Local {
		case "mxCell":
			c, err = decodeCell(it, it.Value)
		case "object", "UserObject":
			// Wrappers carry id and label; the inner mxCell carries the rest.
			if it.Inner == nil {
				continue
			}
			inner := *it.Inner
			inner.ID = it.ID
			value := it.Label
			if value == "" {
				value = it.Value
			}
			c, err = decodeCell(inner, value)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, nil
}

func decodeCell(x xmlCell, value string) (*seqgraph.Cell, error) {
	c := &seqgraph.Cell{
		ID:      x.ID,
		Value:   value,
		Style:   x.Style,
		Parent:  x.Parent,
		Source:  x.Source,
		Target:  x.Target,
		Vertex:  x.Vertex == "1",
		Edge:    x.Edge == "1",
		Visible: x.Visible != "0",
	}
	if x.Geometry != nil {
		geom, err := decodeGeometry(x.Geometry)
		if err != nil {
			return nil, fmt.Errorf("cell %q: %w", x.ID, err)
		}
		c.Geometry = geom
	}
	return c, nil
}

func decodeGeometry(x *xmlGeometry) (*seqgraph.Geometry, error) {
	g := &seqgraph.Geometry{
		HasXY:    x.X != nil || x.Y != nil,
		Relative: x.Relative == "1",
	}
	var err error
	if x.X != nil {
		if g.X, err = parseFloat(*x.X); err != nil {
			return nil, err
		}
	}
	if x.Y != nil {
		if g.Y, err = parseFloat(*x.Y); err != nil {
			return nil, err
		}
	}
	if g.Width, err = parseFloat(x.Width); err != nil {
		return nil, err
	}
	if g.Height, err = parseFloat(x.Height); err != nil {
		return nil, err
	}
	for _, xp := range x.Points {
		if xp.As != "sourcePoint" && xp.As != "targetPoint" {
			continue
		}
		px, err := parseFloat(xp.X)
		if err != nil {
			return nil, err
		}
		py, err := parseFloat(xp.Y)
		if err != nil {
			return nil, err
		}
		if xp.As == "sourcePoint" {
			g.SourcePoint = geo.NewPoint(px, py)
		} else {
			g.TargetPoint = geo.NewPoint(px, py)
		}
	}
	return g, nil
}

// parseFloat treats a missing attribute as 0, as draw.io does.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}
