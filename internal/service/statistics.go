package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"parking-service/internal/model"
)

const (
	GroupByDay         = "day"
	GroupByMonth       = "month"
	GroupByYear        = "year"
	GroupByMonthOfYear = "monthofyear"
)

type StatisticsGroup struct {
	Key      string  `json:"key"`
	Count    int     `json:"count"`
	TotalFee float64 `json:"total_fee"`
}

// Statistics buckets parking events created in [start, end] by the grouping
// key. Events are fetched in one query and grouped in memory.
func (s *DetectionService) Statistics(ctx context.Context, start, end *time.Time, groupBy string) ([]StatisticsGroup, error) {
	if groupBy == "" {
		groupBy = GroupByDay
	}
	if groupBy == GroupByMonthOfYear && start == nil {
		return nil, fmt.Errorf("%w: groupBy monthofyear requires a startDate with the year", ErrInvalidInput)
	}

	events, err := s.eventRepo.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	return groupEvents(events, groupBy, start), nil
}

func groupEvents(events []model.ParkingEvent, groupBy string, start *time.Time) []StatisticsGroup {
	keyFor := func(t time.Time) (string, bool) {
		switch groupBy {
		case GroupByDay:
			return t.Format("2006-01-02"), true
		case GroupByMonth:
			return t.Format("2006-01"), true
		case GroupByYear:
			return t.Format("2006"), true
		case GroupByMonthOfYear:
			if start == nil || t.Year() != start.Year() {
				return "", false
			}
			return t.Format("2006-01"), true
		}
		return "", false
	}

	groups := make(map[string]*StatisticsGroup)
	for _, event := range events {
		key, ok := keyFor(event.CreateDate)
		if !ok {
			continue
		}
		group, exists := groups[key]
		if !exists {
			group = &StatisticsGroup{Key: key}
			groups[key] = group
		}
		group.Count++
		// Events still open carry the unset sentinel and contribute no fee.
		if event.Fee != model.FeeUnset {
			group.TotalFee += event.Fee
		}
	}

	result := make([]StatisticsGroup, 0, len(groups))
	for _, group := range groups {
		result = append(result, *group)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })

	return result
}
