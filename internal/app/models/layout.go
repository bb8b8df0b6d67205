package models

import "github.com/a-h/templ"

type NavItem struct {
	Name string
	URL  string
	Icon string
}

type Navigation struct {
	Items []NavItem
}

type LayoutTempl struct {
	Title     string
	Session   Session
	Nav       Navigation
	ActiveNav string
	Content   templ.Component
	// Watch is the requirement query of the SSE guard stream, empty on public pages.
	Watch string
}

var PublicNav = Navigation{
	Items: []NavItem{
		{Name: "Properties", URL: "/"},
		{Name: "Sign In", URL: "/auth/login"},
	},
}

var CustomerNav = Navigation{
	Items: []NavItem{
		{Name: "Properties", URL: "/"},
		{Name: "My Page", URL: "/mypage"},
		{Name: "Subscriptions", URL: "/subscriptions"},
		{Name: "Exchange", URL: "/exchange"},
		{Name: "Account", URL: "/account"},
	},
}

var AgentNav = Navigation{
	Items: []NavItem{
		{Name: "Properties", URL: "/"},
		{Name: "Dashboard", URL: "/agent"},
		{Name: "Listings", URL: "/agent/properties"},
		{Name: "Account", URL: "/account"},
	},
}

// NavFor picks the navigation matching the viewer's session.
func NavFor(s Session) Navigation {
	if !s.Authenticated {
		return PublicNav
	}
	switch s.Role {
	case RoleAgent:
		return AgentNav
	case RoleCustomer:
		return CustomerNav
	default:
		return Navigation{Items: []NavItem{{Name: "Properties", URL: "/"}, {Name: "Account", URL: "/account"}}}
	}
}
