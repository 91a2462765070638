package host

import (
	"image/color"
	"testing"
)

func TestPackColor(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want uint32
	}{
		{"nil", nil, 0xFFFFFFFF},
		{"packed", uint32(0xFF0000FF), 0xFF0000FF},
		{"int", 0x11223344, 0x11223344},
		{"rgb array", [3]uint8{255, 0, 0}, 0xFF0000FF},
		{"rgba array", [4]uint8{1, 2, 3, 4}, 0x01020304},
		{"int slice clamped", []int{300, -5, 16}, 0xFF0010FF},
		{"hex6", "#00ff00", 0x00FF00FF},
		{"hex8", "#11223344", 0x11223344},
		{"hex3", "#f00", 0xFF0000FF},
		{"hex4", "#f008", 0xFF000088},
		{"css name", "teal", 0x008080FF},
		{"color.Color", color.RGBA{R: 10, G: 20, B: 30, A: 255}, 0x0A141EFF},
		{"garbage", "#zzzzzz", 0xFFFFFFFF},
		{"empty", "", 0xFFFFFFFF},
		{"unsupported", struct{}{}, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PackColor(tt.in); got != tt.want {
				t.Errorf("PackColor(%v) = %#08x, want %#08x", tt.in, got, tt.want)
			}
		})
	}
}

func TestBackgroundFromClass(t *testing.T) {
	tests := []struct {
		class string
		want  uint32
		ok    bool
	}{
		{"p-4 bg-gray-800", 0x1F2937FF, true},
		{"bg-[#336699]", 0x336699FF, true},
		{"bg-[#33669980]", 0x33669980, true},
		{"bg-crimson", 0xDC143CFF, true},
		{"bg-[oops] bg-black", 0x000000FF, true},
		{"text-white", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := BackgroundFromClass(tt.class)
		if ok != tt.ok || got != tt.want {
			t.Errorf("BackgroundFromClass(%q) = %#08x, %v; want %#08x, %v", tt.class, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClassTokens(t *testing.T) {
	if !HasAbsolute("flex absolute") || HasAbsolute("absolutely") {
		t.Error("HasAbsolute mismatch")
	}
	if !ClipChildrenFromClass("overflow-hidden p-2") || !ClipChildrenFromClass("clip") || ClipChildrenFromClass("clipped") {
		t.Error("ClipChildrenFromClass mismatch")
	}
}

func TestNormalizePropName(t *testing.T) {
	tests := map[string]string{
		"className":        "class",
		"aria-label":       "ariaLabel",
		"aria-haspopup":    "ariaHasPopup",
		"aria-describedby": "ariaDescribedBy",
		"aria-foo-bar":     "ariaFooBar",
		"width":            "width",
	}
	for in, want := range tests {
		if got := normalizePropName(in); got != want {
			t.Errorf("normalizePropName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupsFromProps(t *testing.T) {
	p := Props{
		"rotation":     90,
		"background":   "#000000",
		"clipChildren": 1,
		"tabIndex":     3.0,
		"anchorId":     7,
		"ariaChecked":  "MIXED",
		"ariaPressed":  "maybe",
		"ariaHasPopup": true,
		"ariaHidden":   "false",
		"iconGlyph":    "star",
		"opacity":      "half",
	}
	g := GroupsFromProps(p)

	if g.Rotation == nil || *g.Rotation != 90 {
		t.Errorf("Rotation = %v", g.Rotation)
	}
	if g.Background == nil || *g.Background != 0x000000FF {
		t.Errorf("Background = %v", g.Background)
	}
	if g.ClipChildren == nil || !*g.ClipChildren {
		t.Errorf("ClipChildren = %v", g.ClipChildren)
	}
	if g.TabIndex == nil || *g.TabIndex != 3 {
		t.Errorf("TabIndex = %v", g.TabIndex)
	}
	if g.AnchorID == nil || *g.AnchorID != 7 {
		t.Errorf("AnchorID = %v", g.AnchorID)
	}
	if g.AriaChecked == nil || *g.AriaChecked != "mixed" {
		t.Errorf("AriaChecked = %v", g.AriaChecked)
	}
	if g.AriaPressed != nil {
		t.Errorf("AriaPressed = %q, want absent", *g.AriaPressed)
	}
	if g.AriaHasPopup == nil || *g.AriaHasPopup != "menu" {
		t.Errorf("AriaHasPopup = %v", g.AriaHasPopup)
	}
	if g.AriaHidden == nil || *g.AriaHidden {
		t.Errorf("AriaHidden = %v, want false", g.AriaHidden)
	}
	if g.IconGlyph == nil || *g.IconGlyph != "star" {
		t.Errorf("IconGlyph = %v", g.IconGlyph)
	}
	if g.Opacity != nil {
		t.Errorf("non-numeric opacity should be dropped, got %v", *g.Opacity)
	}
}

func TestFrameFromProps(t *testing.T) {
	f := FrameFromProps(Props{"x": 1, "y": 2.5, "width": float32(100)})
	if f.X != 1 || f.Y != 2.5 || f.Width != 100 || f.Height != 0 {
		t.Errorf("FrameFromProps() = %+v", f)
	}
}
