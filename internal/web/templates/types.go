// Package templates renders the server-side HTML pages.
package templates

// Tool is one entry of the dashboard tool list.
type Tool struct {
	Name        string
	Description string
	Method      string
	Path        string
}

// Provider is one LLM provider row.
type Provider struct {
	Name         string
	DefaultModel string
	Configured   bool
}

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	Title     string
	Version   string
	Tools     []Tool
	Providers []Provider
}
