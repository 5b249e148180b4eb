package foodlog

// Category is the storage key of a food group.
type Category string

const (
	Greens       Category = "greens"
	OtherVeggies Category = "otherVeggies"
	Legumes      Category = "legumes"
	Nuts         Category = "nuts"
	Fruits       Category = "fruits"
	Grains       Category = "grains"
	Others       Category = "others"
)

// CategoryInfo describes how a category is presented.
type CategoryInfo struct {
	Key   Category `json:"key"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
}

// Categories lists every category in display order.
var Categories = []CategoryInfo{
	{Key: Greens, Label: "Greens", Icon: "🥬"},
	{Key: OtherVeggies, Label: "Other Veggies", Icon: "🥕"},
	{Key: Legumes, Label: "Legumes", Icon: "🫘"},
	{Key: Nuts, Label: "Nuts", Icon: "🥜"},
	{Key: Fruits, Label: "Fruits", Icon: "🍎"},
	{Key: Grains, Label: "Grains", Icon: "🌾"},
	{Key: Others, Label: "Others", Icon: "🍵"},
}

// ParseCategory returns the category with the given key. Labels are not accepted.
func ParseCategory(key string) (Category, bool) {
	for _, c := range Categories {
		if string(c.Key) == key {
			return c.Key, true
		}
	}
	return "", false
}
