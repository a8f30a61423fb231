package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterColumn is a plant column that list queries may filter on by equality.
// Only the values declared here are ever interpolated into SQL.
type FilterColumn string

const (
	FilterFamily          FilterColumn = "family"
	FilterType            FilterColumn = "type"
	FilterCycle           FilterColumn = "cycle"
	FilterWatering        FilterColumn = "watering"
	FilterGrowthRate      FilterColumn = "growth_rate"
	FilterCareLevel       FilterColumn = "care_level"
	FilterDimension       FilterColumn = "dimension"
	FilterFloweringSeason FilterColumn = "flowering_season"
	FilterHarvestSeason   FilterColumn = "harvest_season"
	FilterDroughtTolerant FilterColumn = "drought_tolerant"
	FilterSaltTolerant    FilterColumn = "salt_tolerant"
	FilterThorny          FilterColumn = "thorny"
	FilterInvasive        FilterColumn = "invasive"
	FilterTropical        FilterColumn = "tropical"
	FilterIndoor          FilterColumn = "indoor"
	FilterFlowers         FilterColumn = "flowers"
	FilterCones           FilterColumn = "cones"
	FilterFruits          FilterColumn = "fruits"
	FilterEdibleFruit     FilterColumn = "edible_fruit"
	FilterLeaf            FilterColumn = "leaf"
	FilterEdibleLeaf      FilterColumn = "edible_leaf"
	FilterCuisine         FilterColumn = "cuisine"
	FilterMedicinal       FilterColumn = "medicinal"
)

var filterColumns = map[FilterColumn]bool{
	FilterFamily:          false,
	FilterType:            false,
	FilterCycle:           false,
	FilterWatering:        false,
	FilterGrowthRate:      false,
	FilterCareLevel:       false,
	FilterDimension:       false,
	FilterFloweringSeason: false,
	FilterHarvestSeason:   false,
	FilterDroughtTolerant: true,
	FilterSaltTolerant:    true,
	FilterThorny:          true,
	FilterInvasive:        true,
	FilterTropical:        true,
	FilterIndoor:          true,
	FilterFlowers:         true,
	FilterCones:           true,
	FilterFruits:          true,
	FilterEdibleFruit:     true,
	FilterLeaf:            true,
	FilterEdibleLeaf:      true,
	FilterCuisine:         true,
	FilterMedicinal:       true,
}

// ParseFilterColumn returns the column for name, or false if it is not filterable.
func ParseFilterColumn(name string) (FilterColumn, bool) {
	c := FilterColumn(name)
	_, ok := filterColumns[c]
	return c, ok
}

// Valid reports whether c is an allowed filter column.
func (c FilterColumn) Valid() bool {
	_, ok := filterColumns[c]
	return ok
}

// IsBool reports whether c holds a boolean.
func (c FilterColumn) IsBool() bool { return filterColumns[c] }

// Filter is an equality predicate on one column. Value is a string or a bool.
type Filter struct {
	Column FilterColumn
	Value  any
}

// NewFilter builds a filter from a query-string pair.
func NewFilter(name, value string) (Filter, error) {
	col, ok := ParseFilterColumn(name)
	if !ok {
		return Filter{}, fmt.Errorf("unknown filter column %q", name)
	}
	if !col.IsBool() {
		return Filter{Column: col, Value: value}, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return Filter{}, fmt.Errorf("filter %q expects a boolean", name)
	}
	return Filter{Column: col, Value: b}, nil
}
