package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Screen represents different app screens.
type Screen int

const (
	ScreenProjects Screen = iota
	ScreenTestCases
	ScreenTestPlans
	ScreenTesters
	ScreenUsers
	ScreenDetail
)

// Tabs lists the list screens in tab order.
var Tabs = []Screen{ScreenProjects, ScreenTestCases, ScreenTestPlans, ScreenTesters, ScreenUsers}

var screenInfo = map[Screen]struct {
	title, resource, path string
}{
	ScreenProjects:  {"Projects", "projects", "projects"},
	ScreenTestCases: {"Test Cases", "test_cases", "test-cases"},
	ScreenTestPlans: {"Test Plans", "test_plans", "test-plans"},
	ScreenTesters:   {"Testers", "testers", "testers"},
	ScreenUsers:     {"Users", "users", "users"},
	ScreenDetail:    {"Detail", "", ""},
}

// Title is the tab label of the screen.
func (s Screen) Title() string { return screenInfo[s].title }

// Resource is the backend resource listed on the screen.
func (s Screen) Resource() string { return screenInfo[s].resource }

// Route is a parsed navigation target such as "/projects/7".
type Route struct {
	Screen Screen
	ID     int64
}

// IsDetail reports whether the route points at one record.
func (r Route) IsDetail() bool { return r.ID > 0 }

// DetailPath builds the navigation target of one record.
func DetailPath(s Screen, id any) string {
	return fmt.Sprintf("/%s/%v", screenInfo[s].path, id)
}

// ParseTarget resolves a navigation target.
func ParseTarget(target string) (Route, error) {
	parts := strings.Split(strings.Trim(target, "/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		return Route{}, fmt.Errorf("invalid navigation target %q", target)
	}
	for _, s := range Tabs {
		if screenInfo[s].path != parts[0] {
			continue
		}
		route := Route{Screen: s}
		if len(parts) == 2 {
			id, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil || id <= 0 {
				return Route{}, fmt.Errorf("invalid record id in %q", target)
			}
			route.ID = id
		}
		return route, nil
	}
	return Route{}, fmt.Errorf("unknown navigation target %q", target)
}
