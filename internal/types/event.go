package types

// EventCategory is the unified category every provider maps into.
type EventCategory string

const (
	CategoryLiveMusic      EventCategory = "live-music"
	CategoryComedy         EventCategory = "comedy"
	CategorySportsGames    EventCategory = "sports-games"
	CategoryPerformingArts EventCategory = "performing-arts"
	CategoryFoodDrink      EventCategory = "food-drink"
	CategoryCultural       EventCategory = "cultural"
	CategorySocial         EventCategory = "social"
	CategoryEducational    EventCategory = "educational"
	CategoryOutdoor        EventCategory = "outdoor"
	CategorySpecial        EventCategory = "special"
)

// UnifiedCategories maps category keys to their display labels. "all" is a
// filter passthrough, not a category an event can carry.
var UnifiedCategories = map[string]string{
	"all":             "All Events",
	"live-music":      "Live Music",
	"comedy":          "Comedy",
	"sports-games":    "Sports & Games",
	"performing-arts": "Performing Arts",
	"food-drink":      "Food & Drink",
	"cultural":        "Cultural",
	"social":          "Social",
	"educational":     "Educational",
	"outdoor":         "Outdoor",
	"special":         "Special Events",
}

// IsValidCategory reports whether c is one of the unified event categories.
func IsValidCategory(c EventCategory) bool {
	_, ok := UnifiedCategories[string(c)]
	return ok && c != "all"
}

type EventLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

type Venue struct {
	Name        string  `json:"name"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Capacity    int     `json:"capacity,omitempty"`
	GeneralInfo string  `json:"general_info,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Reviews     int     `json:"reviews,omitempty"`
}

type Attraction struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Image string `json:"image,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Event is the canonical record every provider adapter converges to. IDs are
// prefixed with the source name so records never collide across providers.
type Event struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        string        `json:"date"` // display form, e.g. "6/1/2024"
	Time        string        `json:"time"` // display form or "Time TBA"
	Location    EventLocation `json:"location"`
	Category    EventCategory `json:"category"`
	Subcategory string        `json:"subcategory"`
	PriceRange  string        `json:"price_range,omitempty"`
	Status      string        `json:"status"`
	// Distance is miles from the query location. It is recomputed per search
	// and never stored as part of the record.
	Distance    float64      `json:"distance,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	TicketURL   string       `json:"ticket_url,omitempty"`
	Venue       Venue        `json:"venue"`
	Attractions []Attraction `json:"attractions,omitempty"`
}

// Valid reports whether the event satisfies the invariant required for
// admission into the aggregation cache: id, title, date, an address with
// non-zero coordinates, and a recognized category.
func (e *Event) Valid() bool {
	if e.ID == "" || e.Title == "" || e.Date == "" {
		return false
	}
	if e.Location.Latitude == 0 || e.Location.Longitude == 0 || e.Location.Address == "" {
		return false
	}
	return IsValidCategory(e.Category)
}

// Filter narrows an event search. PriceRange holds bucket keys
// (free, 0-25, 25-50, 50-100, 100+) with OR semantics.
type Filter struct {
	Category   string   `json:"category"`
	Date       string   `json:"date"` // all | today | tomorrow | week | month
	Distance   float64  `json:"distance"`
	PriceRange []string `json:"price_range"`
	SortBy     string   `json:"sort_by,omitempty"` // date | distance
}

// SearchParams are the geo parameters every provider adapter accepts.
type SearchParams struct {
	Latitude  float64
	Longitude float64
	Radius    float64
	Keyword   string
}

// EventSearchParams is the aggregator's full query.
type EventSearchParams struct {
	Latitude  float64
	Longitude float64
	Radius    float64
	Keyword   string
	Size      int
	Filters   *Filter
}
