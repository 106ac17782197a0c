package model

import (
	"sort"

	"trading-signal-console/internal/domain"
)

// Tab names one application surface of the console. The enumeration is
// fixed: AccessGate treats absence from a group's set as denied, so a tag
// outside this list must be rejected at the edge, never stored.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabSignals   Tab = "signals"
	TabChart     Tab = "chart"
	TabDemo      Tab = "demo"
	TabAutotrade Tab = "autotrade"
	TabScanner   Tab = "scanner"
	TabPnl       Tab = "pnl"
	TabSettings  Tab = "settings"
	TabAdmin     Tab = "admin"
)

var allTabs = map[Tab]struct{}{
	TabDashboard: {}, TabSignals: {}, TabChart: {}, TabDemo: {},
	TabAutotrade: {}, TabScanner: {}, TabPnl: {}, TabSettings: {}, TabAdmin: {},
}

// ParseTab validates a raw tag against the fixed enumeration.
func ParseTab(s string) (Tab, error) {
	t := Tab(s)
	if _, ok := allTabs[t]; !ok {
		return "", domain.ErrUnknownTab
	}
	return t, nil
}

// ParseTabs validates a whole set; one unknown tag rejects the lot.
func ParseTabs(raw []string) ([]Tab, error) {
	out := make([]Tab, 0, len(raw))
	seen := make(map[Tab]struct{}, len(raw))
	for _, s := range raw {
		t, err := ParseTab(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Group is a named permission set: membership in AllowedTabs is what grants
// access to a surface. Insertion order is irrelevant.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AllowedTabs []Tab  `json:"allowed_tabs"`
}

func NewGroup(name string, tabs []Tab) (*Group, error) {
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	g := &Group{Name: name}
	g.SetAllowedTabs(tabs)
	return g, nil
}

// SetAllowedTabs replaces the full set (not a merge). Tabs are kept sorted
// so persisted and serialized forms are stable.
func (g *Group) SetAllowedTabs(tabs []Tab) {
	set := make(map[Tab]struct{}, len(tabs))
	for _, t := range tabs {
		set[t] = struct{}{}
	}
	out := make([]Tab, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	g.AllowedTabs = out
}

// Allows reports whether the group's set contains the tab.
func (g *Group) Allows(tab Tab) bool {
	for _, t := range g.AllowedTabs {
		if t == tab {
			return true
		}
	}
	return false
}
