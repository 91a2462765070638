package host

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/vango-dev/nativebridge/pkg/protocol"
)

// Props holds a node's properties: geometry, text, class and the typed
// field groups. Values are whatever the reactive runtime set; readers
// coerce them.
type Props map[string]any

// Float returns name as a finite float64.
func (p Props) Float(name string) (float64, bool) {
	return toFloat(p[name])
}

// String returns name as a string. Numbers are formatted.
func (p Props) String(name string) (string, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

// Bool returns the truthiness of name.
func (p Props) Bool(name string) (bool, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return false, false
	}
	return truthy(v), true
}

// Class returns the class string.
func (p Props) Class() string {
	s, _ := p.String("class")
	return s
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case protocol.NodeID:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case []byte:
		return string(s)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}

// FrameFromProps returns the node's rectangle. Missing values are zero.
func FrameFromProps(p Props) protocol.Frame {
	x, _ := p.Float("x")
	y, _ := p.Float("y")
	w, _ := p.Float("width")
	h, _ := p.Float("height")
	return protocol.Frame{X: float32(x), Y: float32(y), Width: float32(w), Height: float32(h)}
}

const opaqueWhite = 0xFFFFFFFF

// PackColor converts a color value into packed RGBA (r<<24|g<<16|b<<8|a).
//
// Accepted inputs: integers (taken as already packed), [3]/[4] byte
// arrays and slices, color.Color, "#rgb", "#rgba", "#rrggbb",
// "#rrggbbaa" and CSS color names. Nil and anything unparseable become
// opaque white.
func PackColor(v any) uint32 {
	switch c := v.(type) {
	case nil:
		return opaqueWhite
	case uint32:
		return c
	case int:
		return uint32(c)
	case int64:
		return uint32(c)
	case uint64:
		return uint32(c)
	case float64:
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return opaqueWhite
		}
		return uint32(int64(c))
	case [3]uint8:
		return packBytes(int(c[0]), int(c[1]), int(c[2]), 255)
	case [4]uint8:
		return packBytes(int(c[0]), int(c[1]), int(c[2]), int(c[3]))
	case []uint8:
		return packSlice(len(c), func(i int) int { return int(c[i]) })
	case []int:
		return packSlice(len(c), func(i int) int { return c[i] })
	case color.Color:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		return packBytes(int(n.R), int(n.G), int(n.B), int(n.A))
	case string:
		return packString(c)
	}
	return opaqueWhite
}

func packSlice(n int, at func(int) int) uint32 {
	if n < 3 {
		return opaqueWhite
	}
	a := 255
	if n > 3 {
		a = at(3)
	}
	return packBytes(at(0), at(1), at(2), a)
}

func clampByte(v int) uint32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint32(v)
}

func packBytes(r, g, b, a int) uint32 {
	return clampByte(r)<<24 | clampByte(g)<<16 | clampByte(b)<<8 | clampByte(a)
}

func packString(s string) uint32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return opaqueWhite
	}
	if !strings.HasPrefix(s, "#") {
		if c, ok := colornames.Map[strings.ToLower(s)]; ok {
			return packBytes(int(c.R), int(c.G), int(c.B), int(c.A))
		}
	}
	if v, ok := parseHex(strings.TrimPrefix(s, "#")); ok {
		return v
	}
	return opaqueWhite
}

// parseHex parses rgb, rgba, rrggbb and rrggbbaa. Other lengths are
// padded with f up to eight digits.
func parseHex(hex string) (uint32, bool) {
	switch len(hex) {
	case 3, 4:
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	switch {
	case len(hex) == 6:
		hex += "ff"
	case len(hex) < 8:
		hex += strings.Repeat("f", 8-len(hex))
	case len(hex) > 8:
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

var backgroundPalette = map[string][3]int{
	"black":    {0, 0, 0},
	"white":    {255, 255, 255},
	"gray-900": {17, 24, 39},
	"gray-800": {31, 41, 55},
	"gray-700": {55, 65, 81},
	"gray-600": {75, 85, 99},
	"gray-500": {107, 114, 128},
	"gray-400": {156, 163, 175},
	"blue-900": {30, 58, 138},
	"blue-800": {30, 64, 175},
	"blue-700": {29, 78, 216},
	"blue-600": {37, 99, 235},
	"blue-500": {59, 130, 246},
	"blue-400": {96, 165, 250},
}

// BackgroundFromClass resolves a quad background from bg-* class tokens.
// The first recognized token wins: bg-[#rrggbb], bg-[#rrggbbaa], a
// palette name such as bg-gray-800, or a CSS color name such as
// bg-crimson.
func BackgroundFromClass(class string) (uint32, bool) {
	for _, token := range strings.Fields(class) {
		name, ok := strings.CutPrefix(token, "bg-")
		if !ok {
			continue
		}
		if inner, ok := strings.CutPrefix(name, "["); ok && strings.HasSuffix(inner, "]") {
			hex := strings.TrimPrefix(strings.TrimSuffix(inner, "]"), "#")
			if len(hex) == 6 || len(hex) == 8 {
				if v, ok := parseHex(hex); ok {
					return v, true
				}
			}
		}
		if rgb, ok := backgroundPalette[name]; ok {
			return packBytes(rgb[0], rgb[1], rgb[2], 255), true
		}
		if c, ok := colornames.Map[name]; ok {
			return packBytes(int(c.R), int(c.G), int(c.B), int(c.A)), true
		}
	}
	return 0, false
}

func hasClassToken(class string, tokens ...string) bool {
	for _, t := range strings.Fields(class) {
		for _, want := range tokens {
			if t == want {
				return true
			}
		}
	}
	return false
}

// HasAbsolute reports whether class contains the absolute token.
func HasAbsolute(class string) bool {
	return hasClassToken(class, "absolute")
}

// ClipChildrenFromClass reports whether class asks for child clipping.
func ClipChildrenFromClass(class string) bool {
	return hasClassToken(class, "overflow-hidden", "overflow-clip", "clip")
}

// Field groups a property can belong to.
type group uint8

const (
	groupNone group = iota
	groupTransform
	groupVisual
	groupScroll
	groupFocus
	groupAnchor
	groupAccessibility
)

var fieldGroups = map[string]group{
	"rotation":        groupTransform,
	"scaleX":          groupTransform,
	"scaleY":          groupTransform,
	"anchorX":         groupTransform,
	"anchorY":         groupTransform,
	"translateX":      groupTransform,
	"translateY":      groupTransform,
	"opacity":         groupVisual,
	"cornerRadius":    groupVisual,
	"background":      groupVisual,
	"textColor":       groupVisual,
	"clipChildren":    groupVisual,
	"scroll":          groupScroll,
	"scrollX":         groupScroll,
	"scrollY":         groupScroll,
	"canvasWidth":     groupScroll,
	"canvasHeight":    groupScroll,
	"autoCanvas":      groupScroll,
	"tabIndex":        groupFocus,
	"focusTrap":       groupFocus,
	"roving":          groupFocus,
	"modal":           groupFocus,
	"anchorId":        groupAnchor,
	"anchorSide":      groupAnchor,
	"anchorAlign":     groupAnchor,
	"anchorOffset":    groupAnchor,
	"role":            groupAccessibility,
	"ariaLabel":       groupAccessibility,
	"ariaDescription": groupAccessibility,
	"ariaExpanded":    groupAccessibility,
	"ariaSelected":    groupAccessibility,
	"ariaChecked":     groupAccessibility,
	"ariaPressed":     groupAccessibility,
	"ariaHidden":      groupAccessibility,
	"ariaDisabled":    groupAccessibility,
	"ariaHasPopup":    groupAccessibility,
	"ariaModal":       groupAccessibility,
}

func floatPtr(p Props, name string) *float64 {
	if f, ok := p.Float(name); ok {
		return &f
	}
	return nil
}

func boolPtr(p Props, name string) *bool {
	if b, ok := p.Bool(name); ok {
		return &b
	}
	return nil
}

func stringPtr(p Props, name string) *string {
	if s, ok := p.String(name); ok {
		return &s
	}
	return nil
}

func colorPtr(p Props, name string) *uint32 {
	v, ok := p[name]
	if !ok || v == nil {
		return nil
	}
	c := PackColor(v)
	return &c
}

// TransformGroup extracts the transform fields from p.
func TransformGroup(p Props) protocol.TransformFields {
	return protocol.TransformFields{
		Rotation:   floatPtr(p, "rotation"),
		ScaleX:     floatPtr(p, "scaleX"),
		ScaleY:     floatPtr(p, "scaleY"),
		AnchorX:    floatPtr(p, "anchorX"),
		AnchorY:    floatPtr(p, "anchorY"),
		TranslateX: floatPtr(p, "translateX"),
		TranslateY: floatPtr(p, "translateY"),
	}
}

// VisualGroup extracts the visual fields from p.
func VisualGroup(p Props) protocol.VisualFields {
	return protocol.VisualFields{
		Opacity:      floatPtr(p, "opacity"),
		CornerRadius: floatPtr(p, "cornerRadius"),
		Background:   colorPtr(p, "background"),
		TextColor:    colorPtr(p, "textColor"),
		ClipChildren: boolPtr(p, "clipChildren"),
	}
}

// ScrollGroup extracts the scroll fields from p.
func ScrollGroup(p Props) protocol.ScrollFields {
	return protocol.ScrollFields{
		Scroll:       boolPtr(p, "scroll"),
		ScrollX:      floatPtr(p, "scrollX"),
		ScrollY:      floatPtr(p, "scrollY"),
		CanvasWidth:  floatPtr(p, "canvasWidth"),
		CanvasHeight: floatPtr(p, "canvasHeight"),
		AutoCanvas:   boolPtr(p, "autoCanvas"),
	}
}

// FocusGroup extracts the focus fields from p.
func FocusGroup(p Props) protocol.FocusFields {
	g := protocol.FocusFields{
		FocusTrap: boolPtr(p, "focusTrap"),
		Roving:    boolPtr(p, "roving"),
		Modal:     boolPtr(p, "modal"),
	}
	if f, ok := p.Float("tabIndex"); ok {
		i := int(f)
		g.TabIndex = &i
	}
	return g
}

// AnchorGroup extracts the anchor fields from p.
func AnchorGroup(p Props) protocol.AnchorFields {
	g := protocol.AnchorFields{AnchorOffset: floatPtr(p, "anchorOffset")}
	if f, ok := p.Float("anchorId"); ok && f >= 0 {
		id := protocol.NodeID(f)
		g.AnchorID = &id
	}
	if s, ok := p["anchorSide"].(string); ok {
		g.AnchorSide = &s
	}
	if s, ok := p["anchorAlign"].(string); ok {
		g.AnchorAlign = &s
	}
	return g
}

// AccessibilityGroup extracts role and ARIA state from p.
func AccessibilityGroup(p Props) protocol.AccessibilityFields {
	g := protocol.AccessibilityFields{
		Role:            stringPtr(p, "role"),
		AriaLabel:       stringPtr(p, "ariaLabel"),
		AriaDescription: stringPtr(p, "ariaDescription"),
		AriaExpanded:    ariaBool(p, "ariaExpanded"),
		AriaSelected:    ariaBool(p, "ariaSelected"),
		AriaChecked:     ariaTristate(p, "ariaChecked"),
		AriaPressed:     ariaTristate(p, "ariaPressed"),
		AriaHidden:      ariaBool(p, "ariaHidden"),
		AriaDisabled:    ariaBool(p, "ariaDisabled"),
		AriaModal:       ariaBool(p, "ariaModal"),
	}
	if v, ok := p["ariaHasPopup"]; ok && v != nil {
		var s string
		switch h := v.(type) {
		case string:
			s = h
		case bool:
			if h {
				s = "menu"
			}
		}
		g.AriaHasPopup = &s
	}
	return g
}

func ariaBool(p Props, name string) *bool {
	v, ok := p[name]
	if !ok || v == nil {
		return nil
	}
	var b bool
	switch t := v.(type) {
	case string:
		b = strings.EqualFold(t, "true") || (!strings.EqualFold(t, "false") && t != "")
	default:
		b = truthy(v)
	}
	return &b
}

func ariaTristate(p Props, name string) *string {
	v, ok := p[name]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case bool:
		s = strconv.FormatBool(t)
	case string:
		s = strings.ToLower(t)
		if s != "true" && s != "false" && s != "mixed" {
			return nil
		}
	default:
		return nil
	}
	return &s
}

// IconGroup extracts the icon fields from p.
func IconGroup(p Props) protocol.IconFields {
	return protocol.IconFields{
		IconKind:  stringPtr(p, "iconKind"),
		IconGlyph: stringPtr(p, "iconGlyph"),
	}
}

// GroupsFromProps extracts every field group from p.
func GroupsFromProps(p Props) protocol.Groups {
	return protocol.Groups{
		TransformFields:     TransformGroup(p),
		VisualFields:        VisualGroup(p),
		ScrollFields:        ScrollGroup(p),
		FocusFields:         FocusGroup(p),
		AnchorFields:        AnchorGroup(p),
		AccessibilityFields: AccessibilityGroup(p),
		IconFields:          IconGroup(p),
	}
}

var ariaWords = map[string]string{
	"haspopup":    "HasPopup",
	"describedby": "DescribedBy",
	"labelledby":  "LabelledBy",
	"valuenow":    "ValueNow",
	"valuemin":    "ValueMin",
	"valuemax":    "ValueMax",
}

// normalizePropName maps DOM-style names onto host property names:
// className becomes class and aria-foo-bar becomes ariaFooBar.
func normalizePropName(name string) string {
	if name == "className" {
		return "class"
	}
	rest, ok := strings.CutPrefix(name, "aria-")
	if !ok {
		return name
	}
	if w, ok := ariaWords[rest]; ok {
		return "aria" + w
	}
	var b strings.Builder
	b.WriteString("aria")
	for _, part := range strings.Split(rest, "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// eventFromProp returns the event name bound by a property name such as
// "on:click", "onClick" or "prop:onClick".
func eventFromProp(name string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(name, "on:"):
		rest = name[3:]
	case strings.HasPrefix(name, "prop:on") || strings.HasPrefix(name, "prop:On"):
		rest = name[7:]
	case strings.HasPrefix(name, "on") && len(name) > 2 && name[2] >= 'A' && name[2] <= 'Z':
		rest = name[2:]
	default:
		return "", false
	}
	if rest == "" {
		return "", false
	}
	return strings.ToLower(rest), true
}
