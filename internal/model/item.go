package model

import (
	"net/mail"
	"strings"
	"time"
)

// Item is a reported lost or found object.
type Item struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	DateLost     time.Time `json:"date_lost"`
	ImageMime    string    `json:"image_mime,omitempty"`
	ReporterID   *int64    `json:"reporter_id,omitempty"`
	ContactEmail string    `json:"contact_email"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasImage reports whether an image is attached to the item.
func (i Item) HasImage() bool {
	return i.ImageMime != ""
}

// Item statuses.
const (
	ItemStatusLost  = "lost"
	ItemStatusFound = "found"
)

// StatusAll is the listing sentinel that disables status filtering.
const StatusAll = "all"

// Item categories.
const (
	CategoryElectronics = "electronics"
	CategoryClothing    = "clothing"
	CategoryKeys        = "keys"
	CategoryWallet      = "wallet"
	CategoryBackpack    = "backpack"
	CategoryJewelry     = "jewelry"
	CategoryBooks       = "books"
	CategorySports      = "sports"
	CategoryOther       = "other"
)

// Choice is a value with its human readable label.
type Choice struct {
	Value string
	Label string
}

// Categories lists every category in display order.
var Categories = []Choice{
	{CategoryElectronics, "Electronics"},
	{CategoryClothing, "Clothing & Accessories"},
	{CategoryKeys, "Keys"},
	{CategoryWallet, "Wallet & IDs"},
	{CategoryBackpack, "Backpack & Bags"},
	{CategoryJewelry, "Jewelry"},
	{CategoryBooks, "Books & Notes"},
	{CategorySports, "Sports Equipment"},
	{CategoryOther, "Other"},
}

// Statuses lists both item statuses in display order.
var Statuses = []Choice{
	{ItemStatusLost, "Lost"},
	{ItemStatusFound, "Found / Claimed"},
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c string) bool {
	return label(Categories, c) != ""
}

// ValidStatus reports whether s is lost or found.
func ValidStatus(s string) bool {
	return s == ItemStatusLost || s == ItemStatusFound
}

// CategoryLabel returns the display label for a category value.
func CategoryLabel(c string) string {
	if l := label(Categories, c); l != "" {
		return l
	}
	return c
}

// StatusLabel returns the display label for a status value.
func StatusLabel(s string) string {
	if l := label(Statuses, s); l != "" {
		return l
	}
	return s
}

func label(choices []Choice, v string) string {
	for _, c := range choices {
		if c.Value == v {
			return c.Label
		}
	}
	return ""
}

// ToggledStatus returns the opposite status.
func ToggledStatus(s string) string {
	if s == ItemStatusLost {
		return ItemStatusFound
	}
	return ItemStatusLost
}

// Field limits.
const (
	MaxTitleLen    = 200
	MaxLocationLen = 200
)

// ItemDraft holds the caller-supplied fields of a new or edited item.
type ItemDraft struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	DateLost     time.Time `json:"date_lost"`
	ContactEmail string    `json:"contact_email"`
	Status       string    `json:"status"`
}

// Normalize trims text fields and applies the category and status defaults.
func (d *ItemDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Location = strings.TrimSpace(d.Location)
	d.ContactEmail = strings.TrimSpace(d.ContactEmail)
	d.Category = strings.TrimSpace(d.Category)
	d.Status = strings.TrimSpace(d.Status)
	if d.Category == "" {
		d.Category = CategoryOther
	}
	if d.Status == "" {
		d.Status = ItemStatusLost
	}
}

// Validate checks required fields and enum membership. Call Normalize first.
func (d *ItemDraft) Validate() error {
	v := &ValidationError{}
	switch {
	case d.Title == "":
		v.Add("title", "This field is required.")
	case len(d.Title) > MaxTitleLen:
		v.Add("title", "Ensure this value has at most 200 characters.")
	}
	if d.Description == "" {
		v.Add("description", "This field is required.")
	}
	switch {
	case d.Location == "":
		v.Add("location", "This field is required.")
	case len(d.Location) > MaxLocationLen:
		v.Add("location", "Ensure this value has at most 200 characters.")
	}
	if d.DateLost.IsZero() {
		v.Add("date_lost", "This field is required.")
	}
	if d.ContactEmail == "" {
		v.Add("contact_email", "This field is required.")
	} else if !ValidEmail(d.ContactEmail) {
		v.Add("contact_email", "Enter a valid email address.")
	}
	if !ValidCategory(d.Category) {
		v.Add("category", "Select a valid choice.")
	}
	if !ValidStatus(d.Status) {
		v.Add("status", "Select a valid choice.")
	}
	return v.OrNil()
}

// Apply copies the draft's fields onto an item.
func (d *ItemDraft) Apply(item *Item) {
	item.Title = d.Title
	item.Description = d.Description
	item.Category = d.Category
	item.Location = d.Location
	item.DateLost = d.DateLost
	item.ContactEmail = d.ContactEmail
	item.Status = d.Status
}

// DraftOf returns a draft holding the editable fields of an item.
func DraftOf(item *Item) ItemDraft {
	return ItemDraft{
		Title:        item.Title,
		Description:  item.Description,
		Category:     item.Category,
		Location:     item.Location,
		DateLost:     item.DateLost,
		ContactEmail: item.ContactEmail,
		Status:       item.Status,
	}
}

// ValidEmail reports whether s is a bare email address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}
