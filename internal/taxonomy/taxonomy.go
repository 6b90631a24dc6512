// Package taxonomy holds the category/subcategory tree that drives the
// guided conversation flow. A taxonomy is fetched once from the upstream API
// when a conversation starts and is immutable for the session's lifetime.
package taxonomy

import (
	"sort"
	"strings"

	"github.com/reclamo/reclamo/internal/domain"
)

// Subcategory is a leaf node carrying the canned problem/solution content.
type Subcategory struct {
	Name     string   `json:"name"`
	Problem  string   `json:"problem"`
	Solution []string `json:"solution"`
}

// Node is a top-level category with its subcategories.
type Node struct {
	Name          string                 `json:"name"`
	Subcategories map[string]Subcategory `json:"subcategories"`
}

// Taxonomy maps category ids to their nodes. The upstream payload is a JSON
// object, so ordering comes from sorted ids rather than map iteration.
type Taxonomy map[string]Node

// Options returns one selectable option per top-level category, ordered by
// category id so repeated prompts are identical.
func (t Taxonomy) Options() []domain.Option {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	opts := make([]domain.Option, 0, len(ids))
	for _, id := range ids {
		opts = append(opts, domain.Option{ID: id, Label: t[id].Name})
	}
	return opts
}

// SubcategoryOptions returns the options for one category, using composite
// "category.subcategory" ids, ordered by subcategory id.
func (t Taxonomy) SubcategoryOptions(categoryID string) ([]domain.Option, bool) {
	node, ok := t[categoryID]
	if !ok {
		return nil, false
	}

	ids := make([]string, 0, len(node.Subcategories))
	for id := range node.Subcategories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	opts := make([]domain.Option, 0, len(ids))
	for _, id := range ids {
		opts = append(opts, domain.Option{
			ID:    categoryID + "." + id,
			Label: node.Subcategories[id].Name,
		})
	}
	return opts, true
}

// IsCategory reports whether id names a top-level category.
func (t Taxonomy) IsCategory(id string) bool {
	_, ok := t[id]
	return ok
}

// Lookup resolves a composite "category.subcategory" id. The second return
// names the parent category.
func (t Taxonomy) Lookup(compositeID string) (Subcategory, string, bool) {
	categoryID, subID, found := strings.Cut(compositeID, ".")
	if !found {
		return Subcategory{}, "", false
	}
	node, ok := t[categoryID]
	if !ok {
		return Subcategory{}, "", false
	}
	sub, ok := node.Subcategories[subID]
	if !ok {
		return Subcategory{}, "", false
	}
	return sub, categoryID, true
}
