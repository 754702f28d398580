// Package menu implements the dish selection rules for one in-progress
// cart line: how many dishes each category requires, the toggle
// semantics for checking dishes on and off, and the exact-count commit
// validation.
package menu

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/pratofino/catering-cart/internal/domain/catalog"
)

// ErrUnknownCategory is returned when a toggle names a category the
// menu does not have.
var ErrUnknownCategory = errors.New("unknown menu category")

// ErrUnknownDish is returned when a toggle names a dish that does not
// belong to the category.
var ErrUnknownDish = errors.New("dish not in category")

// CategoryLimitError rejects checking a dish in a category that is
// already at its required count. The selection is left unchanged; the
// user must uncheck another dish in the same category first.
type CategoryLimitError struct {
	Category string
	Limit    int
}

func (e *CategoryLimitError) Error() string {
	return fmt.Sprintf("você já selecionou o número máximo de %d itens para %s", e.Limit, e.Category)
}

// CategoryCountError reports one category whose selected count differs
// from its required count at commit time.
type CategoryCountError struct {
	Category string
	Required int
	Selected int
}

func (e *CategoryCountError) Error() string {
	return fmt.Sprintf("%s: selecione exatamente %d (atualmente: %d)", e.Category, e.Required, e.Selected)
}

// IncompleteSelectionError aggregates every offending category found at
// commit time. Both under- and over-selection are invalid.
type IncompleteSelectionError struct {
	Categories []CategoryCountError
}

func (e *IncompleteSelectionError) Error() string {
	msgs := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		msgs[i] = c.Error()
	}
	return "selecione a quantidade exata de itens em cada categoria:\n" + strings.Join(msgs, "\n")
}

// Selection tracks the dishes chosen for one menu while a cart line is
// being built. It is transient: committed into a cart line or discarded.
type Selection struct {
	order  []string
	limits map[string]int
	dishes map[string]map[string]struct{}
	picks  map[string][]string
}

// DeriveLimits computes the required selection count per category for
// the given menu dishes. With at most three distinct categories, each
// category requires min(3, dishes in category). With more categories,
// beverage and dessert categories (matched by case-insensitive
// substring) and any category with at most two dishes require one dish;
// every other category requires two.
func DeriveLimits(dishes []catalog.Dish) map[string]int {
	byCategory := make(map[string]int)
	for _, d := range dishes {
		byCategory[d.Category]++
	}

	limits := make(map[string]int, len(byCategory))
	if len(byCategory) <= 3 {
		for cat, n := range byCategory {
			limits[cat] = min(3, n)
		}
		return limits
	}

	for cat, n := range byCategory {
		upper := strings.ToUpper(cat)
		switch {
		case strings.Contains(upper, "BEBIDA"),
			strings.Contains(upper, "SOBREMESA"),
			strings.Contains(upper, "BOLOS"):
			limits[cat] = 1
		case n <= 2:
			limits[cat] = 1
		default:
			limits[cat] = 2
		}
	}
	return limits
}

// NewSelection builds an empty selection over the given menu dishes,
// with category limits derived once up front. Category order follows
// first appearance in the dish list.
func NewSelection(dishes []catalog.Dish) *Selection {
	s := &Selection{
		limits: DeriveLimits(dishes),
		dishes: make(map[string]map[string]struct{}),
		picks:  make(map[string][]string),
	}
	for _, d := range dishes {
		if _, ok := s.dishes[d.Category]; !ok {
			s.dishes[d.Category] = make(map[string]struct{})
			s.picks[d.Category] = nil
			s.order = append(s.order, d.Category)
		}
		s.dishes[d.Category][d.Name] = struct{}{}
	}
	return s
}

// Categories returns the menu's categories in display order.
func (s *Selection) Categories() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Limit returns the required selection count for a category.
func (s *Selection) Limit(category string) int {
	return s.limits[category]
}

// Count returns the number of dishes currently chosen in a category.
func (s *Selection) Count(category string) int {
	return len(s.picks[category])
}

// Toggle checks (checked=true) or unchecks a dish in a category.
// Checking an already-chosen dish is a no-op. Checking a dish in a
// category that is already at its limit fails with CategoryLimitError
// and leaves the selection unchanged. Unchecking always succeeds.
func (s *Selection) Toggle(category, dish string, checked bool) error {
	valid, ok := s.dishes[category]
	if !ok {
		return errors.Wrapf(ErrUnknownCategory, "%q", category)
	}
	if _, ok := valid[dish]; !ok {
		return errors.Wrapf(ErrUnknownDish, "%q in %q", dish, category)
	}

	if !checked {
		picks := s.picks[category]
		for i, p := range picks {
			if p == dish {
				s.picks[category] = append(picks[:i:i], picks[i+1:]...)
				break
			}
		}
		return nil
	}

	for _, p := range s.picks[category] {
		if p == dish {
			return nil
		}
	}
	if len(s.picks[category]) >= s.limits[category] {
		return &CategoryLimitError{Category: category, Limit: s.limits[category]}
	}
	s.picks[category] = append(s.picks[category], dish)
	return nil
}

// Complete reports whether every category is exactly at its limit.
func (s *Selection) Complete() bool {
	for _, cat := range s.order {
		if len(s.picks[cat]) != s.limits[cat] {
			return false
		}
	}
	return true
}

// Commit validates that every category holds exactly its required count
// and returns the chosen dishes per category, in pick order. On
// violation it returns an IncompleteSelectionError naming every
// offending category with required vs. actual counts, and the selection
// stays usable for further toggles.
func (s *Selection) Commit() (map[string][]string, error) {
	var bad []CategoryCountError
	for _, cat := range s.order {
		if got, want := len(s.picks[cat]), s.limits[cat]; got != want {
			bad = append(bad, CategoryCountError{Category: cat, Required: want, Selected: got})
		}
	}
	if len(bad) > 0 {
		return nil, &IncompleteSelectionError{Categories: bad}
	}

	out := make(map[string][]string, len(s.picks))
	for cat, picks := range s.picks {
		out[cat] = append([]string(nil), picks...)
	}
	return out, nil
}
