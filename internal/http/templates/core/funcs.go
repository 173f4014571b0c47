// Package core holds template helpers shared by every page.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/eelab/labdesk/internal/domain/auth"
)

// FriendlyDateTimeLayout is the display layout for timestamps.
const FriendlyDateTimeLayout = "Jan 2, 2006 3:04 PM"

// Deps holds optional dependencies for constructing the core template func map.
type Deps struct {
	Template           **template.Template
	ContentTemplateFor func(string) string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Funcs returns the func map used by all templates.
func Funcs(deps Deps) template.FuncMap {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	funcs := template.FuncMap{
		"sectionTmpl":  deps.ContentTemplateFor,
		"friendlyTime": friendlyTime,
		"relativeTime": func(t time.Time) string { return RelativeTime(t, now()) },
		"timeTag":      timeTag,
		"roleLabel":    roleLabel,
		"roleClass":    roleClass,
		"add":          func(a, b int) int { return a + b },
		"contains":     strings.Contains,
	}

	funcs["renderSection"] = func(page string, data any) (template.HTML, error) {
		if deps.Template == nil || *deps.Template == nil {
			return "", errors.New("template not initialized")
		}
		var buf bytes.Buffer
		if err := (*deps.Template).ExecuteTemplate(&buf, deps.ContentTemplateFor(page), data); err != nil {
			return "", err
		}
		// #nosec G203 - output of our own html/template execution; values are already escaped.
		return template.HTML(buf.String()), nil
	}

	funcs["toJSON"] = func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return funcs
}

func asTime(ts any) time.Time {
	switch v := ts.(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

func friendlyTime(ts any) string {
	t0 := asTime(ts)
	if t0.IsZero() {
		return ""
	}
	return t0.Local().Format(FriendlyDateTimeLayout)
}

func timeTag(ts any) template.HTML {
	t0 := asTime(ts)
	if t0.IsZero() {
		return ""
	}
	// #nosec G203 - built from escaped values only
	return template.HTML(fmt.Sprintf(
		"<time datetime=\"%s\" title=\"%s\">%s</time>",
		t0.UTC().Format(time.RFC3339),
		template.HTMLEscapeString(t0.Local().Format(time.RFC1123)),
		template.HTMLEscapeString(t0.Local().Format(FriendlyDateTimeLayout)),
	))
}

// RelativeTime describes how long before now t occurred. Future times read
// as "just now"; anything older than a week falls back to the date.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Local().Format(FriendlyDateTimeLayout)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return strconv.Itoa(n) + " " + unit + "s ago"
}

func roleLabel(r domainauth.Role) string {
	if !r.Valid() {
		return "No role"
	}
	return r.Label()
}

// roleClass maps a role to its badge CSS modifier.
func roleClass(r domainauth.Role) string {
	switch r {
	case domainauth.RoleAdmin:
		return "badge-admin"
	case domainauth.RoleHeadOfDepartment:
		return "badge-hod"
	case domainauth.RoleLecturer:
		return "badge-lecturer"
	case domainauth.RoleStudent:
		return "badge-student"
	case domainauth.RoleUnknown:
		return "badge-muted"
	default:
		return "badge-muted"
	}
}
