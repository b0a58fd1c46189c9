package catalog

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/medmatch/internal/textnorm"
)

// Required catalog columns.
const (
	ColumnBrandName = "brand_name"
	ColumnGeneric   = "generic"
	ColumnAliases   = "aliases"
)

// Entry is a reference medicine record (immutable value object).
// Identity is the case-insensitive brand name.
type Entry struct {
	brandName string
	generic   string
	aliases   []string
	extraKeys []string
	extra     map[string]string

	// precomputed match forms
	key         string
	brandForm   string
	genericForm string
	combined    string
	brandTokens []string
	aliasForms  []string
}

// New validates and creates an Entry.
// brandName is required; aliases are trimmed and empty ones dropped;
// extra holds passthrough columns in extraKeys order.
func New(brandName, generic string, aliases []string, extraKeys []string, extra map[string]string) (Entry, error) {
	brandName = strings.TrimSpace(brandName)
	if brandName == "" {
		return Entry{}, fmt.Errorf("brand_name is required")
	}
	generic = strings.TrimSpace(generic)

	cleanAliases := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if a = strings.TrimSpace(a); a != "" {
			cleanAliases = append(cleanAliases, a)
		}
	}

	e := Entry{
		brandName: brandName,
		generic:   generic,
		aliases:   cleanAliases,
		extraKeys: append([]string(nil), extraKeys...),
		extra:     cloneStringMap(extra),
	}
	e.computeForms()
	return e, nil
}

// ParseAliases splits a comma-separated alias cell.
func ParseAliases(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	return strings.Split(cell, ",")
}

func (e *Entry) computeForms() {
	e.brandForm = textnorm.Fold(e.brandName)
	e.genericForm = textnorm.Fold(e.generic)
	e.key = e.brandForm
	e.combined = textnorm.CollapseSpaces(e.brandForm + " " + e.genericForm)
	e.brandTokens = strings.Fields(e.brandForm)
	e.aliasForms = make([]string, 0, len(e.aliases))
	for _, a := range e.aliases {
		if f := textnorm.Fold(a); f != "" {
			e.aliasForms = append(e.aliasForms, f)
		}
	}
}

// BrandName returns the display brand name.
func (e Entry) BrandName() string { return e.brandName }

// Generic returns the generic (salt) name.
func (e Entry) Generic() string { return e.generic }

// Aliases returns the declared synonyms in catalog order.
func (e Entry) Aliases() []string { return e.aliases }

// ExtraKeys returns passthrough column names in source order.
func (e Entry) ExtraKeys() []string { return e.extraKeys }

// Extra returns passthrough column values.
func (e Entry) Extra() map[string]string { return e.extra }

// Key returns the identity key (folded brand name).
func (e Entry) Key() string { return e.key }

// BrandForm returns the folded brand name.
func (e Entry) BrandForm() string { return e.brandForm }

// GenericForm returns the folded generic name.
func (e Entry) GenericForm() string { return e.genericForm }

// CombinedForm returns "brand generic", folded.
func (e Entry) CombinedForm() string { return e.combined }

// BrandTokens returns the whitespace tokens of the folded brand name.
func (e Entry) BrandTokens() []string { return e.brandTokens }

// AliasForms returns the folded aliases.
func (e Entry) AliasForms() []string { return e.aliasForms }

// Names returns the set of folded match targets {brand, generic, aliases...} without duplicates.
func (e Entry) Names() []string {
	seen := make(map[string]struct{}, 2+len(e.aliasForms))
	out := make([]string, 0, 2+len(e.aliasForms))
	for _, n := range append([]string{e.brandForm, e.genericForm}, e.aliasForms...) {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// HasBrandToken reports whether s equals one whole token of the brand name.
func (e Entry) HasBrandToken(s string) bool {
	for _, t := range e.brandTokens {
		if t == s {
			return true
		}
	}
	return false
}

// HasAlias reports whether s equals one of the aliases.
func (e Entry) HasAlias(s string) bool {
	for _, a := range e.aliasForms {
		if a == s {
			return true
		}
	}
	return false
}

// AliasContains reports whether s is contained in (or equal to) any alias.
func (e Entry) AliasContains(s string) bool {
	for _, a := range e.aliasForms {
		if strings.Contains(a, s) {
			return true
		}
	}
	return false
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
