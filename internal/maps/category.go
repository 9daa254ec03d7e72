package maps

import "strings"

// Category is the fixed set of place kinds the resolver and tool accept.
type Category string

const (
	CategoryRestaurant Category = "restaurant"
	CategoryAttraction Category = "attraction"
	CategoryCafe       Category = "cafe"
)

// Categories lists the accepted values in declaration order.
var Categories = []Category{CategoryRestaurant, CategoryAttraction, CategoryCafe}

// ParseCategory accepts only the exact enum values (case-insensitive, trimmed).
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// placeType is the upstream Places API type tag for the category.
func (c Category) placeType() string {
	if c == CategoryAttraction {
		return "tourist_attraction"
	}
	return string(c)
}

// categoryLabel picks the display category for a result: the upstream type that equals the
// requested category's type tag, else the first reported type, else the requested category.
// Underscores in type tags are rendered as spaces.
func categoryLabel(requested Category, types []string) string {
	want := requested.placeType()
	for _, t := range types {
		if t == want {
			return humanizeType(t)
		}
	}
	if len(types) > 0 && types[0] != "" {
		return humanizeType(types[0])
	}
	return string(requested)
}

func humanizeType(t string) string {
	return strings.ReplaceAll(t, "_", " ")
}
