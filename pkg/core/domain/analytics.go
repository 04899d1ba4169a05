package domain

import "time"

type FilterType string

const (
	FilterDevice   FilterType = "device"
	FilterBrowser  FilterType = "browser"
	FilterOS       FilterType = "os"
	FilterCountry  FilterType = "country"
	FilterCity     FilterType = "city"
	FilterReferrer FilterType = "referrer"
	FilterDomain   FilterType = "domain"
	FilterLink     FilterType = "link"
)

func (t FilterType) Valid() bool {
	switch t {
	case FilterDevice, FilterBrowser, FilterOS, FilterCountry, FilterCity,
		FilterReferrer, FilterDomain, FilterLink:
		return true
	}
	return false
}

// Filter narrows the click set of a report to one facet value.
type Filter struct {
	Type  FilterType `json:"type"`
	Value string     `json:"value"`
}

// DateRange is inclusive on both ends.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type DayPoint struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	Clicks       int     `json:"clicks"`
	UniqueClicks int     `json:"unique_clicks"`
	Earnings     float64 `json:"earnings"`
	BrokenClicks int     `json:"broken_clicks"`
}

type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type CityCount struct {
	Name    string `json:"name"` // "city, country"
	City    string `json:"city"`
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type Stats struct {
	TotalClicks  int     `json:"total_clicks"`
	UniqueClicks int     `json:"unique_clicks"`
	BrokenClicks int     `json:"broken_clicks"`
	TotalLinks   int     `json:"total_links"` // every link passed in, filters aside
	Earnings     float64 `json:"earnings"`
}

// LinkStats is the per-link rollup inside a report.
type LinkStats struct {
	LinkView
	TotalClicks  int     `json:"total_clicks"`
	UniqueClicks int     `json:"unique_clicks"`
	BrokenClicks int     `json:"broken_clicks"`
	GrowthRate   float64 `json:"growth_rate"`
	ClickHistory []int   `json:"click_history"`
}

type BrokenClick struct {
	Timestamp      time.Time `json:"timestamp"`
	LinkID         string    `json:"link_id"`
	DestinationURL string    `json:"destination_url"`
	OriginalURL    string    `json:"original_url"` // domain/slug
	Domain         string    `json:"domain"`
	Slug           string    `json:"slug"`
	Referrer       string    `json:"referrer"`
}

// Report is everything the analytics dashboard renders for one range and filter set.
type Report struct {
	Range   DateRange `json:"range"`
	Filters []Filter  `json:"filters"`
	Stats   Stats     `json:"stats"`

	Chart []DayPoint `json:"chart"`

	Devices          []Count     `json:"devices"`
	OperatingSystems []Count     `json:"operating_systems"`
	Browsers         []Count     `json:"browsers"`
	Countries        []Count     `json:"countries"`
	TopCountries     []Count     `json:"top_countries"`
	Cities           []CityCount `json:"cities"`
	TopCities        []CityCount `json:"top_cities"`
	Referrers        []Count     `json:"referrers"`

	Links           []LinkStats `json:"links"`
	TopLinks        []LinkStats `json:"top_links"`
	TrendingLinks   []LinkStats `json:"trending_links"`
	ExpiringLinks   []LinkView  `json:"expiring_links"`
	RecentlyExpired []LinkView  `json:"recently_expired"`

	BrokenClicks []BrokenClick `json:"broken_clicks"`
}
