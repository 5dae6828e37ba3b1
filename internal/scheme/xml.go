package scheme

import (
	"bytes"
	"encoding/xml"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/scheme-cli/internal/stats"
	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

type xmlScheme struct {
	XMLName  xml.Name  `xml:"mappingscheme"`
	Taxonomy string    `xml:"taxonomy,attr"`
	Version  string    `xml:"version,attr,omitempty"`
	Zones    []xmlZone `xml:"zone"`
}

type xmlZone struct {
	Name string  `xml:"name,attr"`
	Tree xmlTree `xml:"tree"`
}

type xmlTree struct {
	Finalized bool         `xml:"finalized,attr"`
	Cases     int          `xml:"cases,attr,omitempty"`
	Order     []string     `xml:"order>group"`
	Skip      []string     `xml:"skip>group"`
	Modifiers []string     `xml:"modifiers>group"`
	Skipped   []xmlSkipped `xml:"skipped"`
	Nodes     []xmlNode    `xml:"node"`
}

type xmlSkipped struct {
	Group  string     `xml:"group,attr"`
	Values []xmlTally `xml:"value"`
}

type xmlTally struct {
	Code  string `xml:"code,attr"`
	Count int    `xml:"count,attr"`
}

type xmlNode struct {
	Attribute string    `xml:"attribute,attr"`
	Value     string    `xml:"value,attr"`
	Weight    float64   `xml:"weight,attr"`
	Count     int       `xml:"count,attr,omitempty"`
	AvgSize   *float64  `xml:"avg_size,attr,omitempty"`
	UnitCost  *float64  `xml:"unit_cost,attr,omitempty"`
	Nodes     []xmlNode `xml:"node"`
}

// Write encodes the scheme as an indented XML document.
func (s *Scheme) Write(w io.Writer) error {
	doc := xmlScheme{
		Taxonomy: s.codec.Schema().Name,
		Version:  s.codec.Schema().Version,
	}
	for _, z := range s.zones {
		doc.Zones = append(doc.Zones, xmlZone{Name: z.Name, Tree: encodeTree(z.Tree)})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return eris.Wrap(err, "scheme: write header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "scheme: encode xml")
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return eris.Wrap(err, "scheme: write trailer")
	}
	return nil
}

// ToXML returns the scheme document as a string.
func (s *Scheme) ToXML() (string, error) {
	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Save writes the scheme document to path.
func (s *Scheme) Save(path string) error {
	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec
		return eris.Wrapf(err, "scheme: save %s", path)
	}
	zap.L().Info("scheme: saved",
		zap.String("path", path),
		zap.Int("zones", len(s.zones)),
	)
	return nil
}

func encodeTree(t *stats.Tree) xmlTree {
	xt := xmlTree{
		Finalized: t.Finalized(),
		Cases:     t.Cases(),
		Order:     t.AttributeOrder(),
		Skip:      t.SkipGroups(),
		Modifiers: t.ModifierGroups(),
	}
	for _, g := range t.Codec().Schema().GroupNames() {
		tally := t.SkippedValues(g)
		if len(tally) == 0 {
			continue
		}
		sk := xmlSkipped{Group: g}
		for _, code := range slices.Sorted(maps.Keys(tally)) {
			sk.Values = append(sk.Values, xmlTally{Code: code, Count: tally[code]})
		}
		xt.Skipped = append(xt.Skipped, sk)
	}
	for _, c := range t.Children(stats.Root) {
		xt.Nodes = append(xt.Nodes, encodeNode(t, c))
	}
	return xt
}

func encodeNode(t *stats.Tree, id stats.NodeID) xmlNode {
	n, _ := t.Node(id)
	xn := xmlNode{
		Attribute: n.Attribute,
		Value:     n.Label,
		Weight:    n.Weight,
		Count:     n.Count,
		AvgSize:   n.Extras.AverageSize,
		UnitCost:  n.Extras.UnitCost,
	}
	for _, c := range n.Children {
		xn.Nodes = append(xn.Nodes, encodeNode(t, c))
	}
	return xn
}

// Read decodes a scheme document. Documents in a non-UTF-8 charset are
// converted on the fly. Node values that are not taxonomy codes are kept as
// raw labels and reported; such schemes never validate.
func Read(r io.Reader, codec *taxonomy.Codec) (*Scheme, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "scheme: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	s := New(codec)
	seenRoot := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "scheme: read token")
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "mappingscheme":
			seenRoot = true
			for _, a := range se.Attr {
				if a.Name.Local == "taxonomy" && a.Value != codec.Schema().Name {
					zap.L().Warn("scheme: document built for another taxonomy",
						zap.String("document", a.Value),
						zap.String("schema", codec.Schema().Name),
					)
				}
			}
		case "zone":
			if !seenRoot {
				return nil, eris.New("scheme: zone outside mappingscheme element")
			}
			var xz xmlZone
			if err := decoder.DecodeElement(&xz, &se); err != nil {
				return nil, eris.Wrap(err, "scheme: decode zone")
			}
			tree, err := decodeTree(codec, xz)
			if err != nil {
				return nil, err
			}
			if _, dup := s.AssignmentByName(xz.Name); dup {
				return nil, eris.Wrapf(ErrZoneExists, "scheme: zone %q listed twice", xz.Name)
			}
			if err := s.Assign(xz.Name, tree); err != nil {
				return nil, err
			}
		}
	}
	if !seenRoot {
		return nil, eris.New("scheme: missing mappingscheme element")
	}
	return s, nil
}

// FromText decodes a scheme document held in a string.
func FromText(text string, codec *taxonomy.Codec) (*Scheme, error) {
	return Read(strings.NewReader(text), codec)
}

// Load reads a scheme document from path.
func Load(path string, codec *taxonomy.Codec) (*Scheme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scheme: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	s, err := Read(f, codec)
	if err != nil {
		return nil, eris.Wrapf(err, "scheme: load %s", path)
	}
	zap.L().Debug("scheme: loaded", zap.String("path", path), zap.Int("zones", len(s.zones)))
	return s, nil
}

func decodeTree(codec *taxonomy.Codec, xz xmlZone) (*stats.Tree, error) {
	xt := xz.Tree
	t := stats.New(codec)
	if len(xt.Order) > 0 {
		if err := t.SetAttributeOrder(xt.Order); err != nil {
			return nil, eris.Wrapf(err, "scheme: zone %q", xz.Name)
		}
	}
	for _, g := range xt.Skip {
		if err := t.SetSkip(g, true); err != nil {
			return nil, eris.Wrapf(err, "scheme: zone %q", xz.Name)
		}
	}
	for _, g := range xt.Modifiers {
		if err := t.SetModifier(g, true); err != nil {
			return nil, eris.Wrapf(err, "scheme: zone %q", xz.Name)
		}
	}
	for _, sk := range xt.Skipped {
		for _, v := range sk.Values {
			t.RecordSkipped(sk.Group, v.Code, v.Count)
		}
	}
	if err := t.SetCount(stats.Root, xt.Cases); err != nil {
		return nil, eris.Wrapf(err, "scheme: zone %q", xz.Name)
	}
	for _, xn := range xt.Nodes {
		if err := decodeNode(t, stats.Root, xz.Name, xn); err != nil {
			return nil, err
		}
	}
	t.SetFinalized(xt.Finalized)
	return t, nil
}

func decodeNode(t *stats.Tree, parent stats.NodeID, zone string, xn xmlNode) error {
	id, err := t.AddChild(parent, xn.Attribute, xn.Value, xn.Weight)
	if taxonomy.IsParse(err) {
		zap.L().Warn("scheme: node value is not a taxonomy code",
			zap.String("zone", zone),
			zap.String("attribute", xn.Attribute),
			zap.String("value", xn.Value),
		)
		id, err = t.AddRawChild(parent, xn.Attribute, xn.Value, xn.Weight)
	}
	if err != nil {
		return eris.Wrapf(err, "scheme: zone %q: node %q", zone, xn.Value)
	}
	if err := t.SetCount(id, xn.Count); err != nil {
		return eris.Wrapf(err, "scheme: zone %q: node %q", zone, xn.Value)
	}
	if xn.AvgSize != nil || xn.UnitCost != nil {
		if err := t.SetExtras(id, stats.Extras{AverageSize: xn.AvgSize, UnitCost: xn.UnitCost}); err != nil {
			return err
		}
	}
	for _, c := range xn.Nodes {
		if err := decodeNode(t, id, zone, c); err != nil {
			return err
		}
	}
	return nil
}
