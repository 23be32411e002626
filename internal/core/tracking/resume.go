package tracking

import "github.com/Codealike/Codealike-plugins-core/internal/core/activity"

// resumeSlot is the orchestrator's memory of the state that was open when
// the developer went idle. Together with the recorder's open state it forms
// the orchestrator state {current, suspended}:
//
//	current      input                          next current        suspended
//	Active(k)    idle timeout                   Idle                k
//	Idle         idle tick                      Idle (widened)      unchanged
//	Idle         editor event                   suspended kind      cleared
//	Debugging    editor event proposing Coding  Debugging           none
//	Active(k)    editor event proposing p       p                   none
//	any          explicit state s               s                   cleared
//
// suspended is only ever set while current is Idle.
type resumeSlot struct {
	kind activity.Kind
	set  bool
}

func (r *resumeSlot) suspend(kind activity.Kind) {
	r.kind = kind
	r.set = true
}

// take returns the suspended kind and empties the slot
func (r *resumeSlot) take() (activity.Kind, bool) {
	kind, ok := r.kind, r.set
	r.clear()
	return kind, ok
}

func (r *resumeSlot) clear() {
	r.kind = activity.KindNone
	r.set = false
}

func (r resumeSlot) suspended() activity.Kind {
	if !r.set {
		return activity.KindNone
	}
	return r.kind
}
