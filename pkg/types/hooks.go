package types

// HookOp names one of the three update operators a Hook may apply to a
// field of its target document.
type HookOp string

const (
	HookOpSet  HookOp = "set"
	HookOpPush HookOp = "push"
	HookOpInc  HookOp = "inc"
)

// Hook is a single field update: Field is a dotted path into the target
// document (e.g. "data.energies"), and Value's interpretation depends on Op
// (replacement for Set, element to append for Push, delta to add for Inc).
type Hook struct {
	Op    HookOp
	Field string
	Value interface{}
}

// HookList is the set of Hooks produced by one Task completion, all bound to
// the same target Document. Document is authoritative: HandleHooks dispatches
// on Document.Kind to choose the target collection rather than assuming a
// fixed one.
type HookList struct {
	Document DocumentRef
	Updates  []Hook
}
