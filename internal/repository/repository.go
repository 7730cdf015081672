package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	defaultSortField = "createDate"
	defaultPageSize  = 10
)

func sortSpec(field, direction string) bson.D {
	if field == "" {
		field = defaultSortField
	}
	// Anything that is not an explicit "desc" sorts ascending.
	order := 1
	if direction == "desc" {
		order = -1
	}
	return bson.D{{Key: field, Value: order}}
}

func pageSizeOrDefault(size int) int {
	if size <= 0 {
		return defaultPageSize
	}
	return size
}

func skipFor(page, size int) int64 {
	if page < 1 {
		page = 1
	}
	return int64((page - 1) * pageSizeOrDefault(size))
}

func dateRange(start, end *time.Time) bson.M {
	if start == nil && end == nil {
		return nil
	}
	rangeQuery := bson.M{}
	if start != nil {
		rangeQuery["$gte"] = *start
	}
	if end != nil {
		rangeQuery["$lte"] = *end
	}
	return rangeQuery
}
