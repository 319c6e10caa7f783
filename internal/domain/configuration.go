package domain

// OpeningFixed marks a non-operable sash.
const OpeningFixed = "fixed"

// Dimensions are expressed in millimetres.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether neither dimension was provided.
func (d Dimensions) IsZero() bool {
	return d.Width <= 0 && d.Height <= 0
}

// SideLight describes the optional glazed panels beside an entrance door.
type SideLight struct {
	Left       bool    `json:"left"`
	Right      bool    `json:"right"`
	LeftWidth  float64 `json:"leftWidth,omitempty"`
	RightWidth float64 `json:"rightWidth,omitempty"`
}

// Configuration is the customer's selection, referencing catalog items by id.
type Configuration struct {
	Manufacturer         string     `json:"manufacturer"`
	Material             string     `json:"material"`
	WindowType           string     `json:"windowType"`
	Dimensions           Dimensions `json:"dimensions"`
	GlassType            string     `json:"glassType"`
	InteriorColor        string     `json:"interiorColor"`
	ExteriorColor        string     `json:"exteriorColor"`
	RollerShutter        bool       `json:"rollerShutter"`
	RollerShutterType    string     `json:"rollerShutterType,omitempty"`
	RollerShutterControl string     `json:"rollerShutterControl,omitempty"`
	LockingOption        string     `json:"lockingOption"`

	LeftOpening       string  `json:"leftOpening,omitempty"`
	RightOpening      string  `json:"rightOpening,omitempty"`
	TopLight          bool    `json:"topLight,omitempty"`
	TopLightHeight    float64 `json:"topLightHeight,omitempty"`
	BottomLight       bool    `json:"bottomLight,omitempty"`
	BottomLightHeight float64 `json:"bottomLightHeight,omitempty"`

	FixedSash  string `json:"fixedSash,omitempty"`
	Stulp      string `json:"stulp,omitempty"`
	SashConfig string `json:"sashConfig,omitempty"`

	DoorType     string    `json:"doorType,omitempty"`
	SideLight    SideLight `json:"sideLight"`
	TopLightDoor bool      `json:"topLightDoor,omitempty"`

	SlidingDirection string `json:"slidingDirection,omitempty"`

	AdditionalOptions []string `json:"additionalOptions,omitempty"`
}

// IsOperable reports whether an opening value denotes a moving sash.
func IsOperable(opening string) bool {
	return opening != "" && opening != OpeningFixed
}

// CustomerInfo captures the contact details attached to an order.
type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// BreakdownLine is a single informational pricing line.
type BreakdownLine struct {
	Item  string  `json:"item"`
	Price float64 `json:"price"`
}

// Pricing is the computed quote for a configuration.
type Pricing struct {
	BasePrice       float64         `json:"basePrice"`
	AdditionalCosts float64         `json:"additionalCosts"`
	TotalPrice      float64         `json:"totalPrice"`
	Breakdown       []BreakdownLine `json:"breakdown"`
}
