package httpx

// CurrentPage identifiers used in templates and navigation.
const (
	PageHome      = "home"
	PageSignedOut = "signed-out"
	PageDashboard = "dashboard"
	PageWaiting   = "waiting"

	// Role homes.
	PageDepartment = "department"
	PageLecturer   = "lecturer"
	PageStudent    = "student"

	// Admin area.
	PageAdmin       = "admin"
	PageAdminRoles  = "admin-roles"
	PageAdminAccess = "admin-access"
)

// Template paths used for loading templates in tests and production.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates"
)

//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageHome:        "home-content",
	PageSignedOut:   "signed-out-content",
	PageDashboard:   "dashboard-content",
	PageWaiting:     "waiting-content",
	PageDepartment:  "department-content",
	PageLecturer:    "lecturer-content",
	PageStudent:     "student-content",
	PageAdmin:       "admin-content",
	PageAdminRoles:  "admin-roles-content",
	PageAdminAccess: "admin-access-content",
}

// ContentTemplateMap returns the mapping from CurrentPage to template name.
func ContentTemplateMap() map[string]string { return contentTemplates }

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to home-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "home-content"
}
