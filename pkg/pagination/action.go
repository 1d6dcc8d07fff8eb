package pagination

// Action is a navigation request carried by a pagination control.
type Action string

const (
	// ActionNone marks the initial command invocation.
	ActionNone Action = ""

	ActionFirst   Action = "first"
	ActionPrev    Action = "prev"
	ActionNext    Action = "next"
	ActionLast    Action = "last"
	ActionRefresh Action = "refresh"

	// ActionPage jumps directly to the page carried by the token.
	ActionPage Action = "page"
)

// navigationActions are the controls attached to every rendered page, in display order.
var navigationActions = []Action{ActionFirst, ActionPrev, ActionRefresh, ActionNext, ActionLast}

// ParseAction validates s against the closed set of actions.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionNone, ActionFirst, ActionPrev, ActionNext, ActionLast, ActionRefresh, ActionPage:
		return a, true
	default:
		return ActionNone, false
	}
}

// String returns the wire form of the action.
func (a Action) String() string {
	return string(a)
}

// needsTotal reports whether the target page depends on the live page count.
func (a Action) needsTotal() bool {
	return a == ActionNext || a == ActionLast
}

// Resolve computes the target page of action from page, always within
// [1, totalPages].
func Resolve(action Action, page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}

	var target int
	switch action {
	case ActionFirst, ActionNone:
		target = 1
	case ActionPrev:
		target = page - 1
	case ActionNext:
		target = page + 1
	case ActionLast:
		target = totalPages
	default:
		target = page
	}

	return clamp(target, totalPages)
}

func clamp(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}
