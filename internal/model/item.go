package model

import "time"

// ItemKind distinguishes the two item collections.
type ItemKind string

// Item kinds.
const (
	KindLost  ItemKind = "lost"
	KindFound ItemKind = "found"
)

// ParseItemKind validates a kind taken from a URL or form.
func ParseItemKind(s string) (ItemKind, bool) {
	switch ItemKind(s) {
	case KindLost, KindFound:
		return ItemKind(s), true
	}
	return "", false
}

// Stage is the displayed lifecycle stage of an item.
type Stage string

// Lifecycle stages.
const (
	StageActive        Stage = "active"
	StageDisabled      Stage = "disabled"
	StageGuardReceived Stage = "guard_received"
	StageOwnerReceived Stage = "owner_received"
)

// Listing holds the descriptive fields shared by lost and found items.
type Listing struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	Color        string    `json:"color,omitempty"`
	Tags         string    `json:"tags,omitempty"`
	Course       string    `json:"course,omitempty"`
	ImageKey     *string   `json:"image_key,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PhonePrivate bool      `json:"phone_private"`
	Stage        Stage     `json:"stage"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasImage reports whether an image object is attached.
func (l *Listing) HasImage() bool {
	return l.ImageKey != nil && *l.ImageKey != ""
}

// LostItem is an item someone reported as lost.
type LostItem struct {
	Listing
	Disabled        bool   `json:"disabled"`
	DisabledReason  string `json:"disabled_reason,omitempty"`
	Requested       bool   `json:"requested"`
	RequestedReason string `json:"requested_reason,omitempty"`
}

// FoundItem is an item someone found and reported.
type FoundItem struct {
	Listing
	GuardReceived bool   `json:"guard_received"`
	OwnerReceived bool   `json:"owner_received"`
	GuardRemarks  string `json:"guard_remarks,omitempty"`
	Disabled      bool   `json:"disabled"`

	// IsActive is a legacy flag; false counts as disabled.
	IsActive *bool `json:"is_active,omitempty"`
}

// ItemFilter narrows item listings. Stage matches the derived stage
// column exactly. Status matches on the underlying flags, so one item can
// satisfy several statuses (a returned item that was later disabled is
// both owner_received and disabled).
type ItemFilter struct {
	Stage   Stage
	Status  Stage
	Query   string
	Tags    string
	Course  string
	Email   string
	Page    int
	PerPage int
}

// Paging defaults.
const (
	DefaultPerPage = 12
	MaxPerPage     = 100
)

// Normalize clamps paging values.
func (f *ItemFilter) Normalize() {
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}
