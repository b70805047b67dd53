package compose

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

const svgNS = "http://www.w3.org/2000/svg"

// WriteSVG writes a wrapper document that references every layer's asset in
// stacking order. Asset content is never inlined. Empty layers become empty
// groups so slot positions stay stable for the renderer.
func WriteSVG(w io.Writer, out Output, assetBase string) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "svg"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: svgNS},
			{Name: xml.Name{Local: "width"}, Value: strconv.Itoa(out.Width)},
			{Name: xml.Name{Local: "height"}, Value: strconv.Itoa(out.Height)},
			{Name: xml.Name{Local: "viewBox"}, Value: fmt.Sprintf("0 0 %d %d", out.Width, out.Height)},
		},
	}
	if len(out.Hooks) > 0 {
		root.Attr = append(root.Attr, xml.Attr{Name: xml.Name{Local: "class"}, Value: strings.Join(out.Hooks, " ")})
	}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}

	var css strings.Builder
	css.WriteString("svg {")
	for _, name := range out.ColorNames() {
		fmt.Fprintf(&css, " %s: %s;", name, out.Colors[name])
	}
	css.WriteString(" }")
	style := xml.StartElement{Name: xml.Name{Local: "style"}}
	if err := enc.EncodeElement(css.String(), style); err != nil {
		return fmt.Errorf("write svg style: %w", err)
	}

	for _, l := range out.Layers {
		if err := enc.EncodeElement("", layerElement(l, assetBase)); err != nil {
			return fmt.Errorf("write layer %s: %w", l.Slot, err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func layerElement(l Layer, assetBase string) xml.StartElement {
	attrs := []xml.Attr{
		{Name: xml.Name{Local: "class"}, Value: l.CSSClass},
		{Name: xml.Name{Local: "data-z"}, Value: strconv.Itoa(l.ZOrder)},
	}
	if l.Transform != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "transform"}, Value: l.Transform})
	}
	if l.Empty() {
		return xml.StartElement{Name: xml.Name{Local: "g"}, Attr: attrs}
	}
	href := l.AssetPath
	if assetBase != "" {
		href = joinAsset(assetBase, l.AssetPath)
	}
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "href"}, Value: href})
	return xml.StartElement{Name: xml.Name{Local: "use"}, Attr: attrs}
}

func joinAsset(base, asset string) string {
	if strings.Contains(base, "://") {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(asset, "/")
	}
	return path.Join(base, asset)
}
