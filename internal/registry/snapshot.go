// Package registry discovers plugin scripts on disk, loads them through
// the scripthost package, and publishes an immutable snapshot of the
// resulting binding-to-plugin index.
package registry

import (
	"sort"
	"strings"
)

// RegistrySnapshot is an immutable publication of the current plugin set
// and binding index (spec §3 "Binding Index", §4.B step 4). A Registry
// never mutates one in place; reload builds a fresh snapshot and swaps a
// pointer to it.
type RegistrySnapshot struct {
	plugins []*Plugin
	index   bindingIndex
}

// bindingIndex maps a lowercased binding to the ordered sequence of
// plugins that claim it; index 0 is the active plugin, the rest are
// shadowed (spec §3 "Binding Index").
type bindingIndex map[string][]*Plugin

// buildSnapshot constructs a RegistrySnapshot from plugins, which must
// already be in discovery order (spec §4.B step 1: sorted lexicographic
// by absolute source path). shadows receives one entry per binding
// claimed by more than one plugin, sorted by binding; each entry lists
// its shadowed paths in discovery order.
func buildSnapshot(plugins []*Plugin) (*RegistrySnapshot, []shadowInfo) {
	idx := make(bindingIndex)
	for _, p := range plugins {
		for _, b := range p.Bindings {
			b = strings.ToLower(b)
			idx[b] = append(idx[b], p)
		}
	}

	var shadows []shadowInfo
	for binding, claimants := range idx {
		if len(claimants) < 2 {
			continue
		}
		shadowed := make([]string, 0, len(claimants)-1)
		for _, p := range claimants[1:] {
			shadowed = append(shadowed, p.Path)
		}
		shadows = append(shadows, shadowInfo{
			Binding:  binding,
			Active:   claimants[0].Path,
			Shadowed: shadowed,
		})
	}
	sort.Slice(shadows, func(i, j int) bool { return shadows[i].Binding < shadows[j].Binding })

	return &RegistrySnapshot{plugins: plugins, index: idx}, shadows
}

type shadowInfo struct {
	Binding  string
	Active   string
	Shadowed []string
}

// Resolve returns the active plugin for binding (already lowercased), or
// (nil, false) if no plugin claims it (spec §4.B "resolve(binding)").
func (s *RegistrySnapshot) Resolve(binding string) (*Plugin, bool) {
	claimants, ok := s.index[binding]
	if !ok || len(claimants) == 0 {
		return nil, false
	}
	return claimants[0], true
}

// List returns all active plugins, sorted by their first declared
// binding (spec §4.B "list()").
func (s *RegistrySnapshot) List() []*Plugin {
	active := make(map[*Plugin]bool)
	out := make([]*Plugin, 0, len(s.plugins))
	for _, claimants := range s.index {
		if len(claimants) == 0 {
			continue
		}
		if p := claimants[0]; !active[p] {
			active[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return firstBinding(out[i]) < firstBinding(out[j])
	})
	return out
}

func firstBinding(p *Plugin) string {
	if len(p.Bindings) == 0 {
		return ""
	}
	return p.Bindings[0]
}
