package state

// View is the minimal surface the editing commands need from an editor
// view: the current state and a way to dispatch transactions.
type View interface {
	State() *EditorState
	Dispatch(tr *Transaction)
}

// Command is a function that, given a state, tries to perform an editing
// action. When dispatch is nil, the command only checks whether it is
// applicable. It returns true when it could be applied. view may be nil.
type Command func(s *EditorState, dispatch func(tr *Transaction), view View) bool

// SimpleView is a View without rendering. Each dispatched transaction is
// applied to the held state, and the first application error is kept.
type SimpleView struct {
	state *EditorState
	err   error
	// OnUpdate, when set, is called with the new state after each dispatch.
	OnUpdate func(s *EditorState)
}

// NewSimpleView creates a view over the given state.
func NewSimpleView(s *EditorState) *SimpleView {
	return &SimpleView{state: s}
}

// State returns the current state of the view.
func (v *SimpleView) State() *EditorState {
	return v.state
}

// Dispatch applies the transaction to the view's state.
func (v *SimpleView) Dispatch(tr *Transaction) {
	next, err := v.state.Apply(tr)
	if err != nil {
		if v.err == nil {
			v.err = err
		}
		return
	}
	v.state = next
	if v.OnUpdate != nil {
		v.OnUpdate(next)
	}
}

// UpdateState replaces the state of the view.
func (v *SimpleView) UpdateState(s *EditorState) {
	v.state = s
}

// Err returns the first error met while applying a transaction.
func (v *SimpleView) Err() error {
	return v.err
}

var _ View = &SimpleView{}
