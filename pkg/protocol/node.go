package protocol

// NodeID identifies a host node on both sides of the bridge.
// Zero is reserved: as a parent it means "attached to the root", as a
// target it means "no node".
type NodeID uint32

// TransformFields is the transform group of a node.
type TransformFields struct {
	Rotation   *float64 `json:"rotation,omitempty"`
	ScaleX     *float64 `json:"scaleX,omitempty"`
	ScaleY     *float64 `json:"scaleY,omitempty"`
	AnchorX    *float64 `json:"anchorX,omitempty"`
	AnchorY    *float64 `json:"anchorY,omitempty"`
	TranslateX *float64 `json:"translateX,omitempty"`
	TranslateY *float64 `json:"translateY,omitempty"`
}

// VisualFields is the visual group of a node. Colors are packed RGBA.
type VisualFields struct {
	Opacity      *float64 `json:"opacity,omitempty"`
	CornerRadius *float64 `json:"cornerRadius,omitempty"`
	Background   *uint32  `json:"background,omitempty"`
	TextColor    *uint32  `json:"textColor,omitempty"`
	ClipChildren *bool    `json:"clipChildren,omitempty"`
}

// ScrollFields is the scroll container group of a node.
type ScrollFields struct {
	Scroll       *bool    `json:"scroll,omitempty"`
	ScrollX      *float64 `json:"scrollX,omitempty"`
	ScrollY      *float64 `json:"scrollY,omitempty"`
	CanvasWidth  *float64 `json:"canvasWidth,omitempty"`
	CanvasHeight *float64 `json:"canvasHeight,omitempty"`
	AutoCanvas   *bool    `json:"autoCanvas,omitempty"`
}

// FocusFields is the focus management group of a node.
type FocusFields struct {
	TabIndex  *int  `json:"tabIndex,omitempty"`
	FocusTrap *bool `json:"focusTrap,omitempty"`
	Roving    *bool `json:"roving,omitempty"`
	Modal     *bool `json:"modal,omitempty"`
}

// AnchorFields positions a node relative to another node (popovers).
type AnchorFields struct {
	AnchorID     *NodeID  `json:"anchorId,omitempty"`
	AnchorSide   *string  `json:"anchorSide,omitempty"`
	AnchorAlign  *string  `json:"anchorAlign,omitempty"`
	AnchorOffset *float64 `json:"anchorOffset,omitempty"`
}

// AccessibilityFields carries role and ARIA state.
type AccessibilityFields struct {
	Role            *string `json:"role,omitempty"`
	AriaLabel       *string `json:"ariaLabel,omitempty"`
	AriaDescription *string `json:"ariaDescription,omitempty"`
	AriaExpanded    *bool   `json:"ariaExpanded,omitempty"`
	AriaSelected    *bool   `json:"ariaSelected,omitempty"`
	AriaChecked     *string `json:"ariaChecked,omitempty"`
	AriaPressed     *string `json:"ariaPressed,omitempty"`
	AriaHidden      *bool   `json:"ariaHidden,omitempty"`
	AriaDisabled    *bool   `json:"ariaDisabled,omitempty"`
	AriaHasPopup    *string `json:"ariaHasPopup,omitempty"`
	AriaModal       *bool   `json:"ariaModal,omitempty"`
}

// IconFields describes how an icon node resolves its source.
type IconFields struct {
	IconKind  *string `json:"iconKind,omitempty"`
	IconGlyph *string `json:"iconGlyph,omitempty"`
}

// Groups bundles every field group. It is embedded in SerializedNode and
// MutationOp so both flatten to the same JSON keys.
type Groups struct {
	TransformFields
	VisualFields
	ScrollFields
	FocusFields
	AnchorFields
	AccessibilityFields
	IconFields
}

// SerializedNode is the flattened form of one node inside a snapshot.
type SerializedNode struct {
	ID        NodeID  `json:"id"`
	Tag       string  `json:"tag"`
	Parent    NodeID  `json:"parent"`
	Text      *string `json:"text,omitempty"`
	Value     *string `json:"value,omitempty"`
	Src       *string `json:"src,omitempty"`
	ClassName string  `json:"className,omitempty"`
	Groups
}

// Snapshot is a full serialization of the host tree in pre-order.
type Snapshot struct {
	Nodes []SerializedNode `json:"nodes"`
}
