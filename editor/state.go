package editor

import "merch-studio/models"

// ViewState holds the ordered design list of every view of one product
type ViewState map[models.View][]models.Design

// Clone deep-copies vs
func (vs ViewState) Clone() ViewState {
	out := make(ViewState, len(vs))
	for v, list := range vs {
		out[v] = models.CloneDesigns(list)
	}
	return out
}

func emptyViewState() ViewState {
	vs := make(ViewState, len(models.AllViews()))
	for _, v := range models.AllViews() {
		vs[v] = []models.Design{}
	}
	return vs
}

// State is a point-in-time copy of the editor selection and layout
type State struct {
	ActiveProductID string      `json:"activeProductId"`
	GarmentColor    string      `json:"garmentColor"`
	ActiveView      models.View `json:"activeView"`
	ActiveDesignID  string      `json:"activeDesignId,omitempty"`
	DesignsByView   ViewState   `json:"designsByView"`
}

// Origin tells subscribers who caused a change
type Origin int

const (
	// OriginUI is any action dispatched by a panel or API caller
	OriginUI Origin = iota
	// OriginCanvas is a write-back from the rendering surface (drag, scale, rotate, select)
	OriginCanvas
)

func (o Origin) String() string {
	if o == OriginCanvas {
		return "canvas"
	}
	return "ui"
}

// Action names carried by Change
const (
	ActionAddDesign        = "addDesign"
	ActionRemoveDesign     = "removeDesign"
	ActionUpdateTransform  = "updateTransform"
	ActionReorder          = "reorder"
	ActionSetProduct       = "setActiveProduct"
	ActionSetView          = "setActiveView"
	ActionSetColor         = "setGarmentColor"
	ActionSetActiveDesign  = "setActiveDesign"
	ActionDuplicate        = "duplicateDesign"
	ActionToggleVisibility = "toggleVisibility"
	ActionToggleLock       = "toggleLock"
	ActionOpacity          = "updateOpacity"
	ActionBlendMode        = "updateBlendMode"
	ActionCurvature        = "updateCurvature"
	ActionRename           = "renameDesign"
	ActionClearView        = "clearView"
	ActionProducts         = "setProducts"
)

// Change describes one applied mutation
type Change struct {
	Action string
	View   models.View
	Origin Origin
}

// AffectsMockup reports whether the garment image for the active view may have changed
func (c Change) AffectsMockup() bool {
	switch c.Action {
	case ActionSetProduct, ActionSetView, ActionSetColor, ActionProducts:
		return true
	}
	return false
}

// StaleReference is reported when an action targets a design id that no longer exists
type StaleReference struct {
	Action   string
	DesignID string
	View     models.View
}
