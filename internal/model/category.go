package model

// Category is one of the fixed recipe categories.
type Category string

// Categories is the only list of valid categories; validation and the
// categories endpoint both read it.
var Categories = []Category{
	"Breakfast",
	"Lunch",
	"Dinner",
	"Appetizer",
	"Soup",
	"Salad",
	"Side Dish",
	"Main Course",
	"Dessert",
	"Snack",
	"Beverage",
	"Bread",
	"Sauce",
	"Other",
}

// IsCategory reports whether s names a known category (case-sensitive).
func IsCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}
