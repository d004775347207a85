package sessions

import (
	"sort"

	"github.com/stride-coaching/backend/internal/models"
)

// MonthKey is the grouping key layout for CourseSession.Month.
const MonthKey = "2006-01"

// GroupByMonth buckets sessions by month, months ascending and sessions by date then start time.
func GroupByMonth(list []models.CourseSession) []models.SessionMonth {
	sorted := make([]models.CourseSession, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.StartTime < b.StartTime
	})

	var out []models.SessionMonth
	idx := map[string]int{}
	for _, s := range sorted {
		month := s.Month
		if month == "" {
			month = s.Date.Format(MonthKey)
		}
		i, ok := idx[month]
		if !ok {
			i = len(out)
			idx[month] = i
			out = append(out, models.SessionMonth{Month: month})
		}
		out[i].Sessions = append(out[i].Sessions, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
