// Package ranking narrows a report to the labels a reader asked for.
package ranking

import (
	"slices"
	"strings"

	"github.com/phobologic/taskslabel/internal/model"
)

// SelectLabels returns a new Report with only the top-ranked labels.
// If maxLabels is <= 0 or >= len(labels), the report is returned unchanged.
func SelectLabels(r *model.Report, maxLabels int) *model.Report {
	if maxLabels <= 0 || maxLabels >= len(r.Labels) {
		return r
	}

	selected := make(map[string]struct{}, maxLabels)
	for i := range r.Labels[:maxLabels] {
		selected[r.Labels[i].Label] = struct{}{}
	}
	return restrict(r, selected, func(d *model.Dependency) []string {
		if _, ok := selected[d.Source]; !ok {
			return nil
		}
		return keepTargets(d.Targets, selected)
	})
}

// FilterByLabel returns a new Report containing the labels whose name
// contains substr (case-insensitive), together with the tasks they depend on
// and the tasks depending on them.
func FilterByLabel(r *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	for i := range r.Labels {
		if strings.Contains(strings.ToLower(r.Labels[i].Label), lower) {
			matched[r.Labels[i].Label] = struct{}{}
		}
	}

	// Expand to direct dependencies and dependents.
	related := make(map[string]struct{}, len(matched))
	for l := range matched {
		related[l] = struct{}{}
	}
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		if _, ok := matched[d.Source]; ok {
			for _, t := range d.Targets {
				related[t] = struct{}{}
			}
		}
		for _, t := range d.Targets {
			if _, ok := matched[t]; ok {
				related[d.Source] = struct{}{}
			}
		}
	}

	return restrict(r, related, func(d *model.Dependency) []string {
		if _, ok := matched[d.Source]; ok {
			return d.Targets
		}
		return keepTargets(d.Targets, matched)
	})
}

// FilterByFile returns a new Report limited to the labels defined in files
// whose path contains substr, and the references made from those files.
func FilterByFile(r *model.Report, substr string) *model.Report {
	defined := make(map[string]struct{})
	for i := range r.Labels {
		if strings.Contains(r.Labels[i].File, substr) {
			defined[r.Labels[i].Label] = struct{}{}
		}
	}

	out := &model.Report{Name: r.Name, Root: r.Root}
	for i := range r.Labels {
		if _, ok := defined[r.Labels[i].Label]; ok {
			out.Labels = append(out.Labels, r.Labels[i])
		}
	}
	for i := range r.References {
		if strings.Contains(r.References[i].File, substr) {
			out.References = append(out.References, r.References[i])
		}
	}
	for i := range r.Dependencies {
		if strings.Contains(r.Dependencies[i].Doc, substr) {
			out.Dependencies = append(out.Dependencies, r.Dependencies[i])
		}
	}
	for _, c := range r.Cycles {
		if slices.ContainsFunc(c, func(l string) bool {
			_, ok := defined[l]
			return ok
		}) {
			out.Cycles = append(out.Cycles, c)
		}
	}
	return out
}

func keepTargets(targets []string, keep map[string]struct{}) []string {
	var out []string
	for _, t := range targets {
		if _, ok := keep[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// restrict keeps the rows of r that concern labels in keep. targets picks
// the dependency targets to keep; a dependency left without any is dropped.
func restrict(r *model.Report, keep map[string]struct{}, targets func(*model.Dependency) []string) *model.Report {
	has := func(l string) bool {
		_, ok := keep[l]
		return ok
	}

	out := &model.Report{Name: r.Name, Root: r.Root}
	for i := range r.Labels {
		if has(r.Labels[i].Label) {
			out.Labels = append(out.Labels, r.Labels[i])
		}
	}
	for i := range r.References {
		if has(r.References[i].Label) {
			out.References = append(out.References, r.References[i])
		}
	}
	for i := range r.Dependencies {
		d := r.Dependencies[i]
		if kept := targets(&d); len(kept) > 0 {
			d.Targets = kept
			out.Dependencies = append(out.Dependencies, d)
		}
	}
	for _, c := range r.Cycles {
		if slices.ContainsFunc(c, has) {
			out.Cycles = append(out.Cycles, c)
		}
	}
	return out
}
