package types

type RestaurantCategory struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RestaurantLocation struct {
	Address1       string   `json:"address1"`
	Address2       string   `json:"address2,omitempty"`
	Address3       string   `json:"address3,omitempty"`
	City           string   `json:"city"`
	ZipCode        string   `json:"zip_code"`
	Country        string   `json:"country"`
	State          string   `json:"state"`
	DisplayAddress []string `json:"display_address"`
}

type OpenWindow struct {
	IsOvernight bool   `json:"is_overnight"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Day         int    `json:"day"`
}

type RestaurantHours struct {
	Open      []OpenWindow `json:"open"`
	HoursType string       `json:"hours_type,omitempty"`
	IsOpenNow bool         `json:"is_open_now"`
}

// Restaurant is the canonical merged record for both restaurant upstreams.
// Distance is meters from the query location; this deliberately differs from
// Event.Distance, which is miles.
type Restaurant struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	ImageURL     string               `json:"image_url"`
	URL          string               `json:"url"`
	ReviewCount  int                  `json:"review_count"`
	Categories   []RestaurantCategory `json:"categories"`
	Rating       float64              `json:"rating"`
	Coordinates  Coordinates          `json:"coordinates"`
	Price        string               `json:"price,omitempty"` // "$".."$$$$"
	Location     RestaurantLocation   `json:"location"`
	Phone        string               `json:"phone"`
	DisplayPhone string               `json:"display_phone"`
	Distance     float64              `json:"distance"`
	IsClosed     bool                 `json:"is_closed"`
	Hours        []RestaurantHours    `json:"hours,omitempty"`
	Photos       []string             `json:"photos,omitempty"`
	Transactions []string             `json:"transactions"`
	Source       string               `json:"source,omitempty"` // yelp | rapidapi
}

// RestaurantFilter narrows a restaurant search. Price holds "$"-count strings
// ("1".."4"); Distance is miles and converted to meters at filter time.
type RestaurantFilter struct {
	Categories []string `json:"categories"`
	Price      []string `json:"price"`
	Rating     float64  `json:"rating"`
	Distance   float64  `json:"distance"`
	OpenNow    bool     `json:"open_now"`
}

type RestaurantSearchParams struct {
	Latitude  float64
	Longitude float64
	Page      int
	Filters   *RestaurantFilter
}

// RestaurantSearchResult is one page of a filtered restaurant search.
type RestaurantSearchResult struct {
	Restaurants []Restaurant `json:"restaurants"`
	TotalCount  int          `json:"total_count"`
	HasMore     bool         `json:"has_more"`
}
