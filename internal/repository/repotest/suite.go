// Package repotest is a behavioural suite every PlantRepository must pass.
package repotest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/plantkeeper/internal/model"
	"github.com/sakif/plantkeeper/internal/repository"
)

// Run exercises repo implementations. makeRepo must return an empty,
// isolated repository; it may call t.Skip when the backend is unavailable.
func Run(t *testing.T, makeRepo func(t *testing.T) repository.PlantRepository) {
	t.Helper()

	t.Run("UpsertAndGetRoundTrip", func(t *testing.T) { testRoundTrip(t, makeRepo(t)) })
	t.Run("UpsertIsIdempotent", func(t *testing.T) { testUpsertIdempotent(t, makeRepo(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, makeRepo(t)) })
	t.Run("ListSearchAndTotal", func(t *testing.T) { testListSearch(t, makeRepo(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, makeRepo(t)) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, makeRepo(t)) })
	t.Run("UpdatePartial", func(t *testing.T) { testUpdatePartial(t, makeRepo(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, makeRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, makeRepo(t)) })
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

// FullPlant returns a record with every kind of field populated.
func FullPlant(id int64, name string) *model.Plant {
	return &model.Plant{
		ID:                id,
		CommonName:        name,
		ScientificName:    []string{"Abies alba"},
		OtherName:         []string{},
		Family:            strp("Pinaceae"),
		Cycle:             strp("Perennial"),
		Watering:          strp("Frequent"),
		Sunlight:          []string{"full sun", "part shade"},
		Dimensions:        map[string]any{"type": "Height", "min_value": float64(1), "unit": "feet"},
		Hardiness:         map[string]any{"min": "7", "max": "7"},
		DroughtTolerant:   boolp(false),
		Indoor:            boolp(true),
		PoisonousToHumans: model.ToxicityInt(1),
		PoisonousToPets:   model.ToxicityBool(false),
		DefaultImage:      map[string]any{"license": float64(45)},
		OtherImages:       json.RawMessage(`"Upgrade Plans To Premium"`),
		PruningMonth:      []string{"February"},
	}
}

func mustUpsert(t *testing.T, repo repository.PlantRepository, p *model.Plant) *model.Plant {
	t.Helper()
	stored, err := repo.Upsert(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, stored)
	return stored
}

func testRoundTrip(t *testing.T, repo repository.PlantRepository) {
	want := FullPlant(1, "European Silver Fir")
	got := mustUpsert(t, repo, want)
	assert.Equal(t, want, got)

	fetched, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, want, fetched)

	// nil list stays null, empty list stays empty
	assert.Nil(t, fetched.Origin)
	assert.NotNil(t, fetched.OtherName)
	assert.Empty(t, fetched.OtherName)
}

func testUpsertIdempotent(t *testing.T, repo repository.PlantRepository) {
	ctx := context.Background()
	mustUpsert(t, repo, FullPlant(42, "Rose"))
	mustUpsert(t, repo, &model.Plant{ID: 42, CommonName: "Wild Rose"})

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Wild Rose", got.CommonName)
	// replaced, not merged
	assert.Nil(t, got.Family)
}

func testGetMissing(t *testing.T, repo repository.PlantRepository) {
	got, err := repo.GetByID(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func testListSearch(t *testing.T, repo repository.PlantRepository) {
	for i, name := range []string{"Rose", "Desert Rose", "rosemary", "Fern", "Oak", "Tulip", "Moss Rose"} {
		mustUpsert(t, repo, &model.Plant{ID: int64(i + 1), CommonName: name})
	}

	res, err := repo.List(context.Background(), repository.ListOptions{Limit: 5, Search: "ROSE"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Total)
	require.Len(t, res.Plants, 4)
	for _, p := range res.Plants {
		assert.Contains(t, []string{"Rose", "Desert Rose", "rosemary", "Moss Rose"}, p.CommonName)
	}

	// wildcard characters are literal
	mustUpsert(t, repo, &model.Plant{ID: 100, CommonName: "100% Cotton"})
	res, err = repo.List(context.Background(), repository.ListOptions{Limit: 10, Search: "%"})
	require.NoError(t, err)
	require.Len(t, res.Plants, 1)
	assert.Equal(t, int64(100), res.Plants[0].ID)
}

func testListFilters(t *testing.T, repo repository.PlantRepository) {
	a := FullPlant(1, "Fir")
	b := FullPlant(2, "Spruce")
	b.Indoor = boolp(false)
	c := &model.Plant{ID: 3, CommonName: "Fern", Cycle: strp("Annual")}
	for _, p := range []*model.Plant{a, b, c} {
		mustUpsert(t, repo, p)
	}

	res, err := repo.List(context.Background(), repository.ListOptions{
		Limit: 10,
		Filters: []model.Filter{
			{Column: model.FilterCycle, Value: "Perennial"},
			{Column: model.FilterIndoor, Value: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Plants, 1)
	assert.Equal(t, int64(1), res.Plants[0].ID)
	assert.Equal(t, 3, res.Total)

	_, err = repo.List(context.Background(), repository.ListOptions{
		Limit:   10,
		Filters: []model.Filter{{Column: "common_name = common_name OR 1", Value: "x"}},
	})
	assert.Error(t, err)
}

func testListPagination(t *testing.T, repo repository.PlantRepository) {
	for i := 1; i <= 12; i++ {
		mustUpsert(t, repo, &model.Plant{ID: int64(i), CommonName: fmt.Sprintf("Plant %02d", i)})
	}
	ctx := context.Background()

	page, err := repo.List(ctx, repository.ListOptions{Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Len(t, page.Plants, 2)
	assert.Equal(t, int64(11), page.Plants[0].ID)
	assert.Equal(t, 12, page.Total)

	empty, err := repo.List(ctx, repository.ListOptions{Limit: 5, Offset: 50})
	require.NoError(t, err)
	assert.NotNil(t, empty.Plants)
	assert.Empty(t, empty.Plants)
}

func testUpdatePartial(t *testing.T, repo repository.PlantRepository) {
	mustUpsert(t, repo, FullPlant(7, "Fir"))

	patch := &model.Plant{ID: 999, Watering: strp("Minimum"), Sunlight: []string{}}
	got, err := repo.Update(context.Background(), 7, patch, []string{"id", "watering", "sunlight", "bogus"})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "Fir", got.CommonName)
	assert.Equal(t, "Minimum", *got.Watering)
	assert.Empty(t, got.Sunlight)
	assert.Equal(t, "Pinaceae", *got.Family)

	// setting an optional field to null clears it
	got, err = repo.Update(context.Background(), 7, &model.Plant{}, []string{"family"})
	require.NoError(t, err)
	assert.Nil(t, got.Family)

	missing, err := repo.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testUpdateMissing(t *testing.T, repo repository.PlantRepository) {
	got, err := repo.Update(context.Background(), 5, &model.Plant{Watering: strp("x")}, []string{"watering"})
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func testDelete(t *testing.T, repo repository.PlantRepository) {
	ctx := context.Background()
	want := mustUpsert(t, repo, FullPlant(3, "Fir"))

	got, err := repo.Delete(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	after, err := repo.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, after)

	again, err := repo.Delete(ctx, 3)
	assert.NoError(t, err)
	assert.Nil(t, again)
}
