package models

// Validation status markers. "unavailable" means headless Chrome could not
// be started and only static checks ran.
const (
	ValidationOK          = "ok"
	ValidationErrors      = "errors"
	ValidationUnavailable = "unavailable"
)

// ValidationResult is a snapshot of everything found when a generated page
// was checked: browser console output, uncaught script errors, and static
// structural findings on the markup itself.
type ValidationResult struct {
	Status        string   `json:"status"`
	OK            bool     `json:"ok"`
	DOM           string   `json:"dom,omitempty"`
	ConsoleErrors []string `json:"console_errors"`
	PageErrors    []string `json:"page_errors"`
	StaticIssues  []string `json:"static_issues"`
}

// Issues flattens every finding into one list, in the order the retry
// prompt should present them.
func (v ValidationResult) Issues() []string {
	out := make([]string, 0, len(v.ConsoleErrors)+len(v.PageErrors)+len(v.StaticIssues))
	out = append(out, v.ConsoleErrors...)
	out = append(out, v.PageErrors...)
	out = append(out, v.StaticIssues...)
	return out
}

// HasErrors reports whether the result should drive a retry. An unavailable
// validator never does: its findings are limited to static checks, which
// are already included, and there is nothing new a retry could observe.
func (v ValidationResult) HasErrors() bool {
	if v.Status == ValidationUnavailable {
		return false
	}
	return len(v.Issues()) > 0
}
