// Package analytics turns raw clicks into the dashboard report. It does no I/O.
package analytics

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

const (
	dayLayout = "2006-01-02"
	topN      = 5
)

// Input is everything Aggregate needs. Links must carry their Domain string.
type Input struct {
	Links    []domain.Link
	Clicks   []domain.Click
	Range    domain.DateRange
	Filters  []domain.Filter
	Now      time.Time
	Location *time.Location
}

// Days lists every calendar day from from to to inclusive.
func Days(from, to time.Time, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	from, to = from.In(loc), to.In(loc)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)

	var days []string
	for !day.After(last) {
		days = append(days, day.Format(dayLayout))
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// UniqueKey identifies a visitor: same IP, country and user agent count once.
func UniqueKey(c *domain.Click) string {
	return c.IPAddress + "|" + c.Country + "|" + c.UserAgent
}

// GrowthRate compares clicks in the second half of the range with the first.
// Returns 0 when the first half has no clicks.
func GrowthRate(timestamps []time.Time, r domain.DateRange) float64 {
	mid := r.From.Add(r.To.Sub(r.From) / 2)
	var first, second int
	for _, ts := range timestamps {
		if ts.Before(mid) {
			first++
		} else {
			second++
		}
	}
	if first == 0 {
		return 0
	}
	return float64(second-first) / float64(first) * 100
}

// NormalizeReferrer reduces a referrer to origin and path; unparseable values pass through.
func NormalizeReferrer(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ref
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}

type linkAcc struct {
	link    *domain.Link
	total   int
	unique  map[string]struct{}
	broken  int
	times   []time.Time
	history []int
}

type dayAcc struct {
	clicks int
	unique map[string]struct{}
	cents  int64
	broken int
}

// Aggregate builds the full report. Clicks outside the range, on links out of
// scope, or not matching the filters are ignored.
func Aggregate(in Input) domain.Report {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	m := newMatcher(in.Filters)

	days := Days(in.Range.From, in.Range.To, loc)
	dayIndex := make(map[string]int, len(days))
	dayAccs := make([]dayAcc, len(days))
	for i, d := range days {
		dayIndex[d] = i
		dayAccs[i].unique = make(map[string]struct{})
	}

	links := make(map[string]*linkAcc)
	var order []*linkAcc
	for i := range in.Links {
		l := &in.Links[i]
		if !m.link(l) {
			continue
		}
		acc := &linkAcc{link: l, unique: make(map[string]struct{}), history: make([]int, len(days))}
		links[l.ID] = acc
		order = append(order, acc)
	}

	devices := newCounter()
	systems := newCounter()
	browsers := newCounter()
	countries := newCounter()
	referrers := newCounter()
	cities := make(map[string]*domain.CityCount)

	var stats domain.Stats
	var totalCents int64
	unique := make(map[string]struct{})
	broken := []domain.BrokenClick{}

	for i := range in.Clicks {
		c := &in.Clicks[i]
		acc, ok := links[c.LinkID]
		if !ok {
			continue
		}
		if c.Timestamp.Before(in.Range.From) || c.Timestamp.After(in.Range.To) {
			continue
		}
		if !m.click(c) {
			continue
		}

		key := UniqueKey(c)
		cents := int64(math.Round(acc.link.EPC * 100))

		stats.TotalClicks++
		unique[key] = struct{}{}
		totalCents += cents

		acc.total++
		acc.unique[key] = struct{}{}
		acc.times = append(acc.times, c.Timestamp)

		if d, ok := dayIndex[c.Timestamp.In(loc).Format(dayLayout)]; ok {
			day := &dayAccs[d]
			day.clicks++
			day.unique[key] = struct{}{}
			day.cents += cents
			if c.IsBroken {
				day.broken++
			}
			acc.history[d]++
		}

		if c.IsBroken {
			stats.BrokenClicks++
			acc.broken++
			ref := c.Referrer
			if ref == "" {
				ref = "Direct"
			}
			broken = append(broken, domain.BrokenClick{
				Timestamp:      c.Timestamp,
				LinkID:         acc.link.ID,
				DestinationURL: acc.link.DestinationURL,
				OriginalURL:    acc.link.Domain + "/" + acc.link.Slug,
				Domain:         acc.link.Domain,
				Slug:           acc.link.Slug,
				Referrer:       ref,
			})
		}

		devices.add(c.Device)
		systems.add(c.OS)
		browsers.add(c.Browser)
		countries.add(c.Country)
		if c.Referrer != "" {
			referrers.add(NormalizeReferrer(c.Referrer))
		}
		if c.City != "" {
			name := c.City + ", " + c.Country
			cc, ok := cities[name]
			if !ok {
				cc = &domain.CityCount{Name: name, City: c.City, Country: c.Country}
				cities[name] = cc
			}
			cc.Count++
		}
	}

	stats.UniqueClicks = len(unique)
	stats.TotalLinks = len(in.Links)
	stats.Earnings = centsToAmount(totalCents)

	chart := make([]domain.DayPoint, len(days))
	for i, d := range days {
		chart[i] = domain.DayPoint{
			Date:         d,
			Clicks:       dayAccs[i].clicks,
			UniqueClicks: len(dayAccs[i].unique),
			Earnings:     centsToAmount(dayAccs[i].cents),
			BrokenClicks: dayAccs[i].broken,
		}
	}

	linkStats := make([]domain.LinkStats, 0, len(order))
	for _, acc := range order {
		linkStats = append(linkStats, domain.LinkStats{
			LinkView:     domain.NewLinkView(*acc.link, in.Now),
			TotalClicks:  acc.total,
			UniqueClicks: len(acc.unique),
			BrokenClicks: acc.broken,
			GrowthRate:   GrowthRate(acc.times, in.Range),
			ClickHistory: acc.history,
		})
	}

	sort.SliceStable(broken, func(i, j int) bool { return broken[i].Timestamp.After(broken[j].Timestamp) })

	allCountries := countries.sorted()
	allCities := sortedCities(cities)
	upcoming, expired := expiring(order, in.Now)

	return domain.Report{
		Range:            in.Range,
		Filters:          in.Filters,
		Stats:            stats,
		Chart:            chart,
		Devices:          devices.sorted(),
		OperatingSystems: systems.sorted(),
		Browsers:         browsers.sorted(),
		Countries:        allCountries,
		TopCountries:     head(allCountries, topN),
		Cities:           allCities,
		TopCities:        head(allCities, topN),
		Referrers:        referrers.sorted(),
		Links:            linkStats,
		TopLinks:         rankLinks(linkStats, func(a, b domain.LinkStats) bool { return a.TotalClicks > b.TotalClicks }),
		TrendingLinks:    rankLinks(linkStats, func(a, b domain.LinkStats) bool { return a.GrowthRate > b.GrowthRate }),
		ExpiringLinks:    upcoming,
		RecentlyExpired:  expired,
		BrokenClicks:     broken,
	}
}

// expiring splits links carrying an expiry into upcoming and recently expired.
// Both lists are ordered by expiry, earliest first.
func expiring(order []*linkAcc, now time.Time) (upcoming, expired []domain.LinkView) {
	var withExpiry []*domain.Link
	for _, acc := range order {
		if acc.link.ExpireAt != nil {
			withExpiry = append(withExpiry, acc.link)
		}
	}
	sort.SliceStable(withExpiry, func(i, j int) bool { return withExpiry[i].ExpireAt.Before(*withExpiry[j].ExpireAt) })

	upcoming, expired = []domain.LinkView{}, []domain.LinkView{}
	for _, l := range withExpiry {
		if l.IsExpired(now) {
			expired = append(expired, domain.NewLinkView(*l, now))
		} else {
			upcoming = append(upcoming, domain.NewLinkView(*l, now))
		}
	}
	return head(upcoming, topN), head(expired, topN)
}

func rankLinks(stats []domain.LinkStats, less func(a, b domain.LinkStats) bool) []domain.LinkStats {
	ranked := make([]domain.LinkStats, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	return head(ranked, topN)
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

type counter map[string]int

func newCounter() counter { return counter{} }

func (c counter) add(name string) {
	if name != "" {
		c[name]++
	}
}

// sorted orders by count descending, then name.
func (c counter) sorted() []domain.Count {
	out := make([]domain.Count, 0, len(c))
	for name, n := range c {
		out = append(out, domain.Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedCities(cities map[string]*domain.CityCount) []domain.CityCount {
	out := make([]domain.CityCount, 0, len(cities))
	for _, cc := range cities {
		out = append(out, *cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
