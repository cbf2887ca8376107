package analyze

import (
	"fmt"
	"sort"

	"searchvolume-go/pkg/dataforseo"
)

// SortMonthlyChronological returns a copy of the monthly history sorted
// ascending by (year, month). The provider makes no ordering promise, so any
// consumer that charts or diffs months must go through here first. The sort
// is stable: duplicate (year, month) entries keep their provider order.
func SortMonthlyChronological(months []dataforseo.MonthlySearch) []dataforseo.MonthlySearch {
	out := make([]dataforseo.MonthlySearch, len(months))
	copy(out, months)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// MonthlyBreakdown flattens a monthly history into a YYYY-MM keyed map, the
// shape stored documents carry.
func MonthlyBreakdown(months []dataforseo.MonthlySearch) map[string]int64 {
	out := make(map[string]int64, len(months))
	for _, m := range months {
		out[fmt.Sprintf("%04d-%02d", m.Year, m.Month)] = m.SearchVolume
	}
	return out
}

// VolumeEntry pairs a keyword with its volume for ranking. Volume is nil
// when the provider returned null for the keyword.
type VolumeEntry struct {
	Keyword string `json:"keyword"`
	Volume  *int64 `json:"volume"`
}

// SortByVolume orders entries descending by volume, treating nil as zero
// the way the reporting scripts always have.
func SortByVolume(entries []VolumeEntry) []VolumeEntry {
	out := make([]VolumeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return volumeOrZero(out[i].Volume) > volumeOrZero(out[j].Volume)
	})
	return out
}

// TopN returns the n highest-volume entries. Out-of-range n is clamped, so
// a negative n yields an empty slice and an oversized n the whole set.
func TopN(entries []VolumeEntry, n int) []VolumeEntry {
	sorted := SortByVolume(entries)
	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Stats summarizes a set of volume entries.
type Stats struct {
	TotalKeywords      int   `json:"total_keywords"`
	KeywordsWithVolume int   `json:"keywords_with_volume"`
	KeywordsNoVolume   int   `json:"keywords_no_volume"`
	TotalVolume        int64 `json:"total_volume"`
	AverageVolume      int64 `json:"average_volume"`
}

// Summarize computes aggregate statistics. Nil and zero volumes both count
// as "no volume"; the average is taken over keywords with volume only.
func Summarize(entries []VolumeEntry) Stats {
	stats := Stats{TotalKeywords: len(entries)}
	for _, e := range entries {
		v := volumeOrZero(e.Volume)
		if v > 0 {
			stats.KeywordsWithVolume++
			stats.TotalVolume += v
		} else {
			stats.KeywordsNoVolume++
		}
	}
	if stats.KeywordsWithVolume > 0 {
		stats.AverageVolume = stats.TotalVolume / int64(stats.KeywordsWithVolume)
	}
	return stats
}

func volumeOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
