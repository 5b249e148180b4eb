package foodlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// CategoryFoods is one category of the catalog with its foods in catalog order.
type CategoryFoods struct {
	Category Category
	Foods    []string
}

// Catalog maps categories to their foods. Order is significant and is kept
// through JSON and YAML round trips.
//
// On the wire a catalog is an object of category to an object whose keys are
// the food names and whose values are empty objects:
//
//	{"greens": {"spinach": {}, "broccoli": {}}}
type Catalog []CategoryFoods

// SeedCatalog returns the catalog written on first launch.
func SeedCatalog() Catalog {
	return Catalog{
		{Greens, []string{"spinach", "broccoli"}},
		{OtherVeggies, []string{"yellowPeppers", "redPeppers"}},
		{Legumes, []string{"chickpeas"}},
		{Nuts, []string{"macadamiaNuts", "almonds", "chiaSeeds"}},
		{Fruits, []string{"avocado", "apple", "pineapple", "strawberry"}},
		{Grains, []string{"pintoBeans"}},
		{Others, []string{"greenTea"}},
	}
}

// Foods returns a copy of the foods in category c, or nil if c is absent.
func (c Catalog) Foods(cat Category) []string {
	for _, cf := range c {
		if cf.Category == cat {
			return slices.Clone(cf.Foods)
		}
	}
	return nil
}

// CategoryOf reports which category holds food.
func (c Catalog) CategoryOf(food string) (Category, bool) {
	for _, cf := range c {
		if slices.Contains(cf.Foods, food) {
			return cf.Category, true
		}
	}
	return "", false
}

// Names flattens the catalog into one list of food names in catalog order.
func (c Catalog) Names() []string {
	names := []string{}
	for _, cf := range c {
		names = append(names, cf.Foods...)
	}
	return names
}

// ReverseIndex derives the food name to category mapping. A food listed under
// more than one category resolves to the first.
func (c Catalog) ReverseIndex() map[string]Category {
	idx := make(map[string]Category)
	for _, cf := range c {
		for _, food := range cf.Foods {
			if _, ok := idx[food]; !ok {
				idx[food] = cf.Category
			}
		}
	}
	return idx
}

// with returns a copy of c with food appended to cat, adding cat if needed.
func (c Catalog) with(cat Category, food string) Catalog {
	out := make(Catalog, 0, len(c)+1)
	found := false
	for _, cf := range c {
		foods := slices.Clone(cf.Foods)
		if cf.Category == cat {
			foods = append(foods, food)
			found = true
		}
		out = append(out, CategoryFoods{Category: cf.Category, Foods: foods})
	}
	if !found {
		out = append(out, CategoryFoods{Category: cat, Foods: []string{food}})
	}
	return out
}

func (c Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cf := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, string(cf.Category)); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, food := range cf.Foods {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(&buf, food); err != nil {
				return nil, err
			}
			buf.WriteString(":{}")
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	var out Catalog
	for dec.More() {
		cat, err := stringToken(dec)
		if err != nil {
			return err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		foods := []string{}
		for dec.More() {
			food, err := stringToken(dec)
			if err != nil {
				return err
			}
			// The value is a set marker; its contents are ignored.
			var marker json.RawMessage
			if err := dec.Decode(&marker); err != nil {
				return fmt.Errorf("food %q: %w", food, err)
			}
			if !slices.Contains(foods, food) {
				foods = append(foods, food)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		out = append(out, CategoryFoods{Category: Category(cat), Foods: foods})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	*c = out
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("catalog: expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("catalog: expected key, got %v", tok)
	}
	return s, nil
}

// LoadCatalogYAML reads a catalog from YAML shaped as category key to a list of
// food names:
//
//	greens: [spinach, broccoli]
//	nuts:
//	  - almonds
//
// Categories must be known keys and a food may appear in only one category.
func LoadCatalogYAML(r io.Reader) (Catalog, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("catalog yaml: top level must be a mapping")
	}
	root := doc.Content[0]

	var out Catalog
	owner := make(map[string]Category)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		cat, ok := ParseCategory(keyNode.Value)
		if !ok {
			return nil, fmt.Errorf("catalog yaml line %d: %w: %q", keyNode.Line, ErrUnknownCategory, keyNode.Value)
		}
		var foods []string
		if err := valNode.Decode(&foods); err != nil {
			return nil, fmt.Errorf("catalog yaml line %d: %w", valNode.Line, err)
		}
		kept := []string{}
		for _, food := range foods {
			if food == "" {
				return nil, fmt.Errorf("catalog yaml line %d: %w", valNode.Line, ErrEmptyName)
			}
			if prev, dup := owner[food]; dup {
				if prev == cat {
					continue
				}
				return nil, fmt.Errorf("catalog yaml: %w: %q in %s and %s", ErrFoodExists, food, prev, cat)
			}
			owner[food] = cat
			kept = append(kept, food)
		}
		out = append(out, CategoryFoods{Category: cat, Foods: kept})
	}
	return out, nil
}
