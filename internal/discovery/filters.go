package discovery

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/loopline/thriftscout/internal/model"
)

// accentFolder strips combining marks so "brechó" matches "brecho".
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}

// ApplyFilters returns the businesses that pass every active filter. Filters
// are conjunctive; a business excluded by any single one is excluded from
// the result.
func ApplyFilters(businesses []model.Business, f model.SearchFilters) []model.Business {
	if !f.Active() {
		return businesses
	}
	out := make([]model.Business, 0, len(businesses))
	for i := range businesses {
		if passesFilters(&businesses[i], f) {
			out = append(out, businesses[i])
		}
	}
	return out
}

func passesFilters(b *model.Business, f model.SearchFilters) bool {
	if f.MinRating != nil && b.Rating < *f.MinRating {
		return false
	}
	if f.MaxRating != nil && b.Rating > *f.MaxRating {
		return false
	}
	if f.MinReviewCount != nil && b.ReviewCount < *f.MinReviewCount {
		return false
	}
	if len(f.PriceLevels) > 0 && !containsInt(f.PriceLevels, b.PriceLevel) {
		return false
	}
	if f.OpenNow != nil && *f.OpenNow && (b.OpenNow == nil || !*b.OpenNow) {
		return false
	}
	if f.HasWebsite != nil && *f.HasWebsite && b.Contact.Website == "" {
		return false
	}
	if f.HasPhotos != nil && *f.HasPhotos && len(b.PhotoURLs) == 0 {
		return false
	}
	if len(f.Categories) > 0 && !sharesCategory(b.Categories, f.Categories) {
		return false
	}
	return true
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// sharesCategory matches category tags accent-insensitively.
func sharesCategory(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if foldAccents(h) == foldAccents(w) {
				return true
			}
		}
	}
	return false
}
