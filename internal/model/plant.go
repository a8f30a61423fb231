// Package model defines the data structures used throughout the application.
package model

import "encoding/json"

// Plant is the canonical, normalized plant record.
//
// The JSON tags are the wire names used by the provider, the REST API and the
// store columns. The declaration order is also the serialization order, so two
// encodings of the same record are byte-identical.
//
// NULL VS EMPTY:
// Optional scalars are pointers, lists are nil-able slices and objects are
// nil-able maps. A nil value is encoded as JSON null; an empty list is encoded
// as [] and is preserved as such through the store.
type Plant struct {
	ID                       int64           `json:"id"`
	CommonName               string          `json:"common_name"`
	ScientificName           []string        `json:"scientific_name"`
	OtherName                []string        `json:"other_name"`
	Family                   *string         `json:"family"`
	Origin                   []string        `json:"origin"`
	Type                     *string         `json:"type"`
	Dimension                *string         `json:"dimension"`
	Dimensions               map[string]any  `json:"dimensions"`
	Cycle                    *string         `json:"cycle"`
	Watering                 *string         `json:"watering"`
	Sunlight                 []string        `json:"sunlight"`
	Propagation              []string        `json:"propagation"`
	Hardiness                map[string]any  `json:"hardiness"`
	HardinessLocation        map[string]any  `json:"hardiness_location"`
	GrowthRate               *string         `json:"growth_rate"`
	DroughtTolerant          *bool           `json:"drought_tolerant"`
	SaltTolerant             *bool           `json:"salt_tolerant"`
	Thorny                   *bool           `json:"thorny"`
	Invasive                 *bool           `json:"invasive"`
	Tropical                 *bool           `json:"tropical"`
	Indoor                   *bool           `json:"indoor"`
	CareLevel                *string         `json:"care_level"`
	PestSusceptibility       []string        `json:"pest_susceptibility"`
	Flowers                  *bool           `json:"flowers"`
	FloweringSeason          *string         `json:"flowering_season"`
	FlowerColor              *string         `json:"flower_color"`
	Cones                    *bool           `json:"cones"`
	Fruits                   *bool           `json:"fruits"`
	EdibleFruit              *bool           `json:"edible_fruit"`
	EdibleFruitTasteProfile  *string         `json:"edible_fruit_taste_profile"`
	FruitNutritionalValue    *string         `json:"fruit_nutritional_value"`
	FruitColor               []string        `json:"fruit_color"`
	HarvestSeason            *string         `json:"harvest_season"`
	Leaf                     *bool           `json:"leaf"`
	LeafColor                []string        `json:"leaf_color"`
	EdibleLeaf               *bool           `json:"edible_leaf"`
	Cuisine                  *bool           `json:"cuisine"`
	Medicinal                *bool           `json:"medicinal"`
	PoisonousToHumans        Toxicity        `json:"poisonous_to_humans"`
	PoisonousToPets          Toxicity        `json:"poisonous_to_pets"`
	Description              *string         `json:"description"`
	DefaultImage             map[string]any  `json:"default_image"`
	OtherImages              json.RawMessage `json:"other_images"`
	CareGuides               *string         `json:"care_guides"`
	PruningMonth             []string        `json:"pruning_month"`
	WateringGeneralBenchmark map[string]any  `json:"watering_general_benchmark"`
	Maintenance              *string         `json:"maintenance"`
}

// FieldKind is the value shape a field accepts.
type FieldKind int

const (
	KindInt        FieldKind = iota // positive integer identifier
	KindString                      // text
	KindStringList                  // ordered list of text
	KindObject                      // arbitrary nested key-value JSON
	KindBool                        // true/false
	KindToxicity                    // boolean or integer, passed through unchanged
	KindJSON                        // string or list, kept as raw JSON
)

func (k FieldKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindStringList:
		return "string_list"
	case KindObject:
		return "object"
	case KindBool:
		return "bool"
	case KindToxicity:
		return "toxicity"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// FieldSpec declares one field of the plant schema.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Required bool
}

// FieldSpecs is the declarative plant schema, in Plant declaration order.
// The schema validator and both store drivers are driven from this table.
var FieldSpecs = []FieldSpec{
	{Name: "id", Kind: KindInt, Required: true},
	{Name: "common_name", Kind: KindString, Required: true},
	{Name: "scientific_name", Kind: KindStringList},
	{Name: "other_name", Kind: KindStringList},
	{Name: "family", Kind: KindString},
	{Name: "origin", Kind: KindStringList},
	{Name: "type", Kind: KindString},
	{Name: "dimension", Kind: KindString},
	{Name: "dimensions", Kind: KindObject},
	{Name: "cycle", Kind: KindString},
	{Name: "watering", Kind: KindString},
	{Name: "sunlight", Kind: KindStringList},
	{Name: "propagation", Kind: KindStringList},
	{Name: "hardiness", Kind: KindObject},
	{Name: "hardiness_location", Kind: KindObject},
	{Name: "growth_rate", Kind: KindString},
	{Name: "drought_tolerant", Kind: KindBool},
	{Name: "salt_tolerant", Kind: KindBool},
	{Name: "thorny", Kind: KindBool},
	{Name: "invasive", Kind: KindBool},
	{Name: "tropical", Kind: KindBool},
	{Name: "indoor", Kind: KindBool},
	{Name: "care_level", Kind: KindString},
	{Name: "pest_susceptibility", Kind: KindStringList},
	{Name: "flowers", Kind: KindBool},
	{Name: "flowering_season", Kind: KindString},
	{Name: "flower_color", Kind: KindString},
	{Name: "cones", Kind: KindBool},
	{Name: "fruits", Kind: KindBool},
	{Name: "edible_fruit", Kind: KindBool},
	{Name: "edible_fruit_taste_profile", Kind: KindString},
	{Name: "fruit_nutritional_value", Kind: KindString},
	{Name: "fruit_color", Kind: KindStringList},
	{Name: "harvest_season", Kind: KindString},
	{Name: "leaf", Kind: KindBool},
	{Name: "leaf_color", Kind: KindStringList},
	{Name: "edible_leaf", Kind: KindBool},
	{Name: "cuisine", Kind: KindBool},
	{Name: "medicinal", Kind: KindBool},
	{Name: "poisonous_to_humans", Kind: KindToxicity},
	{Name: "poisonous_to_pets", Kind: KindToxicity},
	{Name: "description", Kind: KindString},
	{Name: "default_image", Kind: KindObject},
	{Name: "other_images", Kind: KindJSON},
	{Name: "care_guides", Kind: KindString},
	{Name: "pruning_month", Kind: KindStringList},
	{Name: "watering_general_benchmark", Kind: KindObject},
	{Name: "maintenance", Kind: KindString},
}

var specIndex = func() map[string]int {
	idx := make(map[string]int, len(FieldSpecs))
	for i, s := range FieldSpecs {
		idx[s.Name] = i
	}
	return idx
}()

// LookupField returns the FieldSpec named name.
func LookupField(name string) (FieldSpec, bool) {
	i, ok := specIndex[name]
	if !ok {
		return FieldSpec{}, false
	}
	return FieldSpecs[i], true
}

// Field pairs a FieldSpec with a pointer to the matching struct field of one Plant.
//
// Ptr is one of: *int64, *string, **string, *[]string, *map[string]any,
// **bool, *Toxicity, *json.RawMessage.
type Field struct {
	Spec FieldSpec
	Ptr  any
}

// Fields returns every field of p in schema order.
func (p *Plant) Fields() []Field {
	ptrs := p.fieldPtrs()
	fields := make([]Field, len(FieldSpecs))
	for i, spec := range FieldSpecs {
		fields[i] = Field{Spec: spec, Ptr: ptrs[i]}
	}
	return fields
}

// Field returns the named field of p.
func (p *Plant) Field(name string) (Field, bool) {
	i, ok := specIndex[name]
	if !ok {
		return Field{}, false
	}
	return Field{Spec: FieldSpecs[i], Ptr: p.fieldPtrs()[i]}, true
}

// fieldPtrs must stay aligned with FieldSpecs (plant_test.go checks it).
func (p *Plant) fieldPtrs() []any {
	return []any{
		&p.ID,
		&p.CommonName,
		&p.ScientificName,
		&p.OtherName,
		&p.Family,
		&p.Origin,
		&p.Type,
		&p.Dimension,
		&p.Dimensions,
		&p.Cycle,
		&p.Watering,
		&p.Sunlight,
		&p.Propagation,
		&p.Hardiness,
		&p.HardinessLocation,
		&p.GrowthRate,
		&p.DroughtTolerant,
		&p.SaltTolerant,
		&p.Thorny,
		&p.Invasive,
		&p.Tropical,
		&p.Indoor,
		&p.CareLevel,
		&p.PestSusceptibility,
		&p.Flowers,
		&p.FloweringSeason,
		&p.FlowerColor,
		&p.Cones,
		&p.Fruits,
		&p.EdibleFruit,
		&p.EdibleFruitTasteProfile,
		&p.FruitNutritionalValue,
		&p.FruitColor,
		&p.HarvestSeason,
		&p.Leaf,
		&p.LeafColor,
		&p.EdibleLeaf,
		&p.Cuisine,
		&p.Medicinal,
		&p.PoisonousToHumans,
		&p.PoisonousToPets,
		&p.Description,
		&p.DefaultImage,
		&p.OtherImages,
		&p.CareGuides,
		&p.PruningMonth,
		&p.WateringGeneralBenchmark,
		&p.Maintenance,
	}
}
