package oidc

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// ClaimPaths holds JMESPath expressions that locate identity fields in token claims.
// Empty fields fall back to DefaultClaimPaths.
type ClaimPaths struct {
	UserID     string
	Email      string
	GivenName  string
	FamilyName string
	Groups     string
}

// DefaultClaimPaths covers standard OIDC claims plus AD/ADFS shapes.
var DefaultClaimPaths = ClaimPaths{
	UserID:     "samaccountname || preferred_username || sub",
	Email:      "email || mail",
	GivenName:  "given_name || firstname",
	FamilyName: "family_name || lastname",
	Groups:     "groups || memberof || roles",
}

// ClaimExtractor evaluates ClaimPaths against decoded claims.
type ClaimExtractor struct {
	paths ClaimPaths
}

// NewClaimExtractor validates every expression up front.
func NewClaimExtractor(paths ClaimPaths) (*ClaimExtractor, error) {
	p := ClaimPaths{
		UserID:     firstNonEmpty(paths.UserID, DefaultClaimPaths.UserID),
		Email:      firstNonEmpty(paths.Email, DefaultClaimPaths.Email),
		GivenName:  firstNonEmpty(paths.GivenName, DefaultClaimPaths.GivenName),
		FamilyName: firstNonEmpty(paths.FamilyName, DefaultClaimPaths.FamilyName),
		Groups:     firstNonEmpty(paths.Groups, DefaultClaimPaths.Groups),
	}
	for name, expr := range map[string]string{
		"user_id":     p.UserID,
		"email":       p.Email,
		"given_name":  p.GivenName,
		"family_name": p.FamilyName,
		"groups":      p.Groups,
	} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid %s claim path %q: %w", name, expr, err)
		}
	}
	return &ClaimExtractor{paths: p}, nil
}

// idFields is the provider-neutral identity extracted from claims.
type idFields struct {
	userID     string
	email      string
	givenName  string
	familyName string
	groups     []string
}

// Extract reads identity fields from claims. Missing values stay empty.
func (e *ClaimExtractor) Extract(claims map[string]any) idFields {
	return idFields{
		userID:     e.str(e.paths.UserID, claims),
		email:      e.str(e.paths.Email, claims),
		givenName:  e.str(e.paths.GivenName, claims),
		familyName: e.str(e.paths.FamilyName, claims),
		groups:     e.strs(e.paths.Groups, claims),
	}
}

func (e *ClaimExtractor) str(expr string, claims map[string]any) string {
	v, err := jmespath.Search(expr, claims)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// strs accepts either a list of strings or a single (optionally comma-separated) string.
func (e *ClaimExtractor) strs(expr string, claims map[string]any) []string {
	v, err := jmespath.Search(expr, claims)
	if err != nil || v == nil {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// merge fills empty fields of f from other.
func (f *idFields) merge(other idFields) {
	if f.userID == "" {
		f.userID = other.userID
	}
	if f.email == "" {
		f.email = other.email
	}
	if f.givenName == "" {
		f.givenName = other.givenName
	}
	if f.familyName == "" {
		f.familyName = other.familyName
	}
	if len(f.groups) == 0 {
		f.groups = other.groups
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
