package validator

import (
	"fmt"

	"github.com/aretw0/cadence/pkg/domain"
)

// Severity grades a finding. Errors make a story unloadable or unplayable;
// warnings play but probably not the way the author meant.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding in a story document.
type Issue struct {
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Severity, i.Message)
}

// Result collects the findings for one document.
type Result struct {
	Issues []Issue
}

// OK reports whether the document is free of errors. Warnings do not fail
// validation.
func (r *Result) OK() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns only the error-grade findings.
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns only the warning-grade findings.
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(severity Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}

func (r *Result) errorf(format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warnf(format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

// Validate inspects a loaded story document for structural problems the
// loaders do not reject: duplicated or missing ids, references that fall
// back silently at play time, and skip flags that leave nothing to show.
func Validate(doc *domain.StoryDocument) *Result {
	result := &Result{}

	if len(doc.Beats) == 0 {
		result.errorf("story has no beats")
		return result
	}

	seen := make(map[domain.BeatID]int, len(doc.Beats))
	allSkip := true
	for i, beat := range doc.Beats {
		if beat.ID == "" {
			result.errorf("beat %d has no id", i)
			continue
		}
		if first, dup := seen[beat.ID]; dup {
			result.errorf("beat %q is defined twice (positions %d and %d)", beat.ID, first, i)
			continue
		}
		seen[beat.ID] = i
		if !beat.State.Skip() {
			allSkip = false
		}
	}

	if allSkip {
		result.warnf("every beat is skip-flagged; the story has nothing to show")
	}

	checkRef(result, doc, "settings.start", doc.Settings.Start)
	checkRef(result, doc, "settings.restart_target", doc.Settings.RestartTarget)

	if doc.Settings.ForceManualAfter >= len(doc.Beats) {
		result.warnf("settings.force_manual_after (%d) lies past the last beat and never takes effect",
			doc.Settings.ForceManualAfter)
	}

	return result
}

// checkRef verifies that a configured reference lands on a playable beat.
// Unresolvable refs are warnings: playback falls back to the first beat.
func checkRef(result *Result, doc *domain.StoryDocument, field string, ref domain.BeatRef) {
	if ref.IsZero() {
		return
	}

	index := -1
	if id, ok := ref.ID(); ok {
		for i, beat := range doc.Beats {
			if beat.ID == id {
				index = i
				break
			}
		}
		if index < 0 {
			result.warnf("%s references unknown beat %q; playback falls back to the first beat", field, id)
			return
		}
	}
	if i, ok := ref.Index(); ok {
		if i < 0 || i >= len(doc.Beats) {
			result.warnf("%s index %d is out of range [0, %d); playback falls back to the first beat",
				field, i, len(doc.Beats))
			return
		}
		index = i
	}

	if index >= 0 && doc.Beats[index].State.Skip() {
		result.warnf("%s targets skip-flagged beat %q; navigation will scan past it", field, doc.Beats[index].ID)
	}
}
