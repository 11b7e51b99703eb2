package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// Attribute names a filterable user attribute.
type Attribute string

const (
	AttrGender  Attribute = "gender"
	AttrAge     Attribute = "age"
	AttrIncome  Attribute = "income"
	AttrContext Attribute = "context"
	AttrCountry Attribute = "country"
)

// Attributes lists every filterable attribute.
var Attributes = []Attribute{AttrGender, AttrAge, AttrIncome, AttrContext, AttrCountry}

// ParseAttribute validates an attribute name.
func ParseAttribute(s string) (Attribute, error) {
	a := Attribute(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Attributes {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAttribute, s)
}

func (a Attribute) valueOf(p models.UserProfile) string {
	switch a {
	case AttrGender:
		return p.Gender
	case AttrAge:
		return p.Age
	case AttrIncome:
		return p.Income
	case AttrContext:
		return p.Context
	case AttrCountry:
		return p.Country
	}
	return ""
}

// Predicate is a user-level pass/fail test.
// Key must identify the predicate by content so that equal predicates
// produce equal keys.
type Predicate interface {
	Key() string
	Match(p models.UserProfile) bool
}

// AttributeFilter passes users whose attribute equals one of Values
// (case-insensitive). A filter with no values passes nobody.
type AttributeFilter struct {
	Attribute Attribute
	Values    []string
}

// NewAttributeFilter builds a filter with normalized, sorted, unique values.
func NewAttributeFilter(attr Attribute, values ...string) AttributeFilter {
	seen := make(map[string]struct{}, len(values))
	norm := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		norm = append(norm, v)
	}
	sort.Strings(norm)
	return AttributeFilter{Attribute: attr, Values: norm}
}

// ParseFilter parses "attribute=value1,value2".
func ParseFilter(expr string) (AttributeFilter, error) {
	name, list, ok := strings.Cut(expr, "=")
	if !ok {
		return AttributeFilter{}, fmt.Errorf("%w: %q (want attribute=value[,value])", ErrInvalidFilter, expr)
	}
	attr, err := ParseAttribute(name)
	if err != nil {
		return AttributeFilter{}, err
	}
	f := NewAttributeFilter(attr, strings.Split(list, ",")...)
	if len(f.Values) == 0 {
		return AttributeFilter{}, fmt.Errorf("%w: %q has no values", ErrInvalidFilter, expr)
	}
	return f, nil
}

func (f AttributeFilter) Key() string {
	return string(f.Attribute) + "=" + strings.Join(f.Values, ",")
}

func (f AttributeFilter) Match(p models.UserProfile) bool {
	v := strings.ToLower(f.Attribute.valueOf(p))
	for _, want := range f.Values {
		if v == want {
			return true
		}
	}
	return false
}

// FilterSet is an immutable conjunction of predicates. The zero value is the
// empty set and passes every user.
type FilterSet struct {
	preds []Predicate
	key   string
}

// NewFilterSet builds a set independent of argument order; duplicate
// predicates collapse into one.
func NewFilterSet(preds ...Predicate) FilterSet {
	byKey := make(map[string]Predicate, len(preds))
	for _, p := range preds {
		if p == nil {
			continue
		}
		byKey[p.Key()] = p
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fs := FilterSet{preds: make([]Predicate, 0, len(keys)), key: strings.Join(keys, ";")}
	for _, k := range keys {
		fs.preds = append(fs.preds, byKey[k])
	}
	return fs
}

// ParseFilterSet parses a list of "attribute=values" expressions.
func ParseFilterSet(exprs []string) (FilterSet, error) {
	preds := make([]Predicate, 0, len(exprs))
	for _, e := range exprs {
		if strings.TrimSpace(e) == "" {
			continue
		}
		f, err := ParseFilter(e)
		if err != nil {
			return FilterSet{}, err
		}
		preds = append(preds, f)
	}
	return NewFilterSet(preds...), nil
}

// Empty reports whether the set has no predicates.
func (fs FilterSet) Empty() bool { return len(fs.preds) == 0 }

// Len returns the number of predicates.
func (fs FilterSet) Len() int { return len(fs.preds) }

// Key is the canonical content key of the set.
func (fs FilterSet) Key() string { return fs.key }

// Hash is a content hash of Key, used in cache keys.
func (fs FilterSet) Hash() uint64 { return xxhash.Sum64String(fs.key) }

// Match reports whether a user with the given profile passes every predicate.
// known is false when the user has no profile; such users only pass the empty set.
func (fs FilterSet) Match(p models.UserProfile, known bool) bool {
	if len(fs.preds) == 0 {
		return true
	}
	if !known {
		return false
	}
	for _, pred := range fs.preds {
		if !pred.Match(p) {
			return false
		}
	}
	return true
}

func (fs FilterSet) String() string {
	if fs.key == "" {
		return "none"
	}
	return fs.key
}
