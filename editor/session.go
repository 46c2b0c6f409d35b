package editor

import (
	"errors"
	"sync"
	"time"

	"github.com/shodgson/eddytor/commands"
	"github.com/shodgson/eddytor/decoration"
	"github.com/shodgson/eddytor/highlight"
	"github.com/shodgson/eddytor/keymap"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/tables"
	"go.uber.org/zap"
)

// DefaultCheckingDelay is how long a clicked checklist item keeps the
// checking class.
const DefaultCheckingDelay = 300 * time.Millisecond

// CheckingClass is the class of the checklist items being checked.
const CheckingClass = "checking"

// ErrSessionClosed is returned by the operations of a torn down session.
var ErrSessionClosed = errors.New("editor session is closed")

// Event is an input event from the host. Exactly one of its fields is set.
type Event struct {
	Key  *state.KeyEvent
	Text string
	DOM  *state.DOMEvent
	// Checkbox is the id of the checklist item whose checkbox was clicked.
	Checkbox string
}

// EventSource delivers the input events of the host to a subscriber.
// Subscribe returns the function that ends the subscription.
type EventSource interface {
	Subscribe(fn func(Event)) (unsubscribe func())
}

// SessionConfig configures a Session. Only the zero values of Schema, Doc
// and Registry get defaults.
type SessionConfig struct {
	Schema      *model.Schema
	Doc         *model.Node
	Selection   state.Selection
	Registry    *Registry
	Highlighter *highlight.Highlighter
	Logger      *zap.Logger
	// CheckingDelay defaults to DefaultCheckingDelay.
	CheckingDelay time.Duration
	// Placeholders are the placeholder texts, by node type name.
	Placeholders map[string]string
	// CodeLanguage is the language of inserted code blocks, when the
	// registry is the default one.
	CodeLanguage string
}

// Session is an editing session: it owns the editor state, the command
// registry and the plugins, and takes input events from one source. Its
// methods are not meant to be called concurrently, but they are guarded by
// a mutex shared with the timers of the session.
type Session struct {
	mu       sync.Mutex
	state    *state.EditorState
	registry *Registry
	slash    *SlashMenu
	resolver ItemResolver
	dialog   *LinkDialog
	logger   *zap.Logger
	err      error

	checkingDelay time.Duration
	checking      map[string]*time.Timer
	afterFunc     func(time.Duration, func()) *time.Timer

	unsubscribe func()
	onChange    func(*state.EditorState)
	closed      bool
	teardown    sync.Once
}

// NewSession creates a session with the Eddytor plugins.
func NewSession(cfg SessionConfig) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	schema := cfg.Schema
	if schema == nil {
		schema = eddytor.Schema
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistryWithBuiltins(schema, logger, WithCodeLanguage(cfg.CodeLanguage))
	}
	h := cfg.Highlighter
	if h == nil {
		h = highlight.New(highlight.DefaultTTL, logger)
	}
	delay := cfg.CheckingDelay
	if delay <= 0 {
		delay = DefaultCheckingDelay
	}
	s := &Session{
		registry:      registry,
		slash:         NewSlashMenu(logger),
		logger:        logger,
		checkingDelay: delay,
		checking:      map[string]*time.Timer{},
		afterFunc:     time.AfterFunc,
	}
	plugins := []*state.Plugin{
		s.slash.Plugin(),
		Keymap(schema),
		tables.Keymap(),
		keymap.New(commands.BaseKeymap()),
		highlight.Plugin(h, logger),
		tables.DragPlugin(logger),
		PlaceholderPlugin(cfg.Placeholders, false),
		ItemIDsPlugin(logger),
	}
	initial, err := state.Create(state.Config{Schema: schema, Doc: cfg.Doc, Selection: cfg.Selection, Plugins: plugins})
	if err != nil {
		return nil, err
	}
	if tr := fixItemIDs(initial, logger); tr != nil {
		if initial, err = initial.Apply(tr); err != nil {
			return nil, err
		}
	}
	s.state = initial
	return s, nil
}

// sessionView is the view given to commands and plugins. Its methods are
// called with the session lock held.
type sessionView struct {
	s *Session
}

func (v sessionView) State() *state.EditorState {
	return v.s.state
}

func (v sessionView) Dispatch(tr *state.Transaction) {
	v.s.dispatch(tr)
}

// OpenLinkDialog opens the link dialog of the session, replacing the one
// already open.
func (v sessionView) OpenLinkDialog(text, href string) {
	s := v.s
	if s.dialog != nil {
		s.dialog.closed = true
	}
	d := &LinkDialog{Text: text, URL: href, target: s}
	d.onClose = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.dialog == d {
			s.dialog = nil
		}
	}
	s.dialog = d
	s.logger.Debug("link dialog opened", zap.String("href", href))
}

func (s *Session) view() sessionView {
	return sessionView{s: s}
}

func (s *Session) dispatch(tr *state.Transaction) {
	if s.closed {
		return
	}
	prev := s.state
	next, err := prev.Apply(tr)
	if err != nil {
		s.logger.Warn("transaction rejected", zap.Error(err))
		if s.err == nil {
			s.err = err
		}
		return
	}
	s.state = next
	if tr.DocChanged() {
		logChange(s.logger, prev.Doc, next.Doc)
	}
	s.slash.Update(prev, next)
	if s.onChange != nil {
		s.onChange(next)
	}
}

// logChange logs, at debug level, the range of the document that changed.
func logChange(logger *zap.Logger, before, after *model.Node) {
	ce := logger.Check(zap.DebugLevel, "document changed")
	if ce == nil {
		return
	}
	start := before.Content.FindDiffStart(after.Content)
	if start == nil {
		ce.Write(zap.Bool("identical", true))
		return
	}
	end := before.Content.FindDiffEnd(after.Content)
	if end == nil {
		return
	}
	ce.Write(zap.Int("from", *start), zap.Int("to", end.A), zap.Int("newTo", end.B))
}

// State returns the current editor state.
func (s *Session) State() *state.EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a transaction to the state of the session.
func (s *Session) Dispatch(tr *state.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch(tr)
}

// Err returns the first transaction error of the session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Registry returns the command registry of the session.
func (s *Session) Registry() *Registry {
	return s.registry
}

// OnChange sets the function called with each new state.
func (s *Session) OnChange(fn func(*state.EditorState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// OnSlash sets the subscriber of the slash menu events.
func (s *Session) OnSlash(fn func(SlashEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slash.OnChange(fn)
}

// Attach subscribes the session to an event source. A session has a single
// subscription: attaching again ends the previous one.
func (s *Session) Attach(src EventSource) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	previous := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if previous != nil {
		previous()
	}
	unsubscribe := src.Subscribe(func(event Event) { s.HandleEvent(event) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		unsubscribe()
		return ErrSessionClosed
	}
	s.unsubscribe = unsubscribe
	return nil
}

// HandleEvent dispatches an input event to its handler. It reports whether
// the event was handled.
func (s *Session) HandleEvent(event Event) bool {
	switch {
	case event.Key != nil:
		return s.HandleKey(event.Key)
	case event.DOM != nil:
		return s.HandleDOMEvent(event.DOM)
	case event.Checkbox != "":
		return s.HandleCheckboxClick(event.Checkbox)
	case event.Text != "":
		return s.HandleTextInput(event.Text)
	}
	return false
}

// HandleKey runs the key handlers of the plugins, in order, until one
// handles the key.
func (s *Session) HandleKey(event *state.KeyEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for _, p := range s.state.Plugins() {
		if handler := p.Props().HandleKeyDown; handler != nil && handler(s.view(), event) {
			return true
		}
	}
	return false
}

// HandleTextInput inserts typed text at the selection, unless a plugin
// handles it.
func (s *Session) HandleTextInput(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	from, to := s.state.Selection.From(), s.state.Selection.To()
	for _, p := range s.state.Plugins() {
		if handler := p.Props().HandleTextInput; handler != nil && handler(s.view(), from, to, text) {
			return true
		}
	}
	tr := s.state.Tr()
	if err := tr.InsertText(text); err != nil {
		s.logger.Warn("cannot insert text", zap.Error(err))
		return false
	}
	s.dispatch(tr.ScrollIntoView())
	return true
}

// HandleDOMEvent runs the handlers of the plugins for the event type.
func (s *Session) HandleDOMEvent(event *state.DOMEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	handled := false
	for _, p := range s.state.Plugins() {
		if handler := p.Props().HandleDOMEvents[event.Type]; handler != nil && handler(s.view(), event) {
			handled = true
			break
		}
	}
	return handled
}

// HandleBlur tells the session that the editor lost the focus.
func (s *Session) HandleBlur() bool {
	return s.HandleDOMEvent(&state.DOMEvent{Type: "blur"})
}

// HandleOutsideClick tells the session that the user clicked outside of
// the editor.
func (s *Session) HandleOutsideClick() bool {
	return s.HandleDOMEvent(&state.DOMEvent{Type: "mousedown", Inside: false})
}

// HandleCheckboxClick toggles the checklist item with the given id. The
// item keeps the checking class for a short delay.
func (s *Session) HandleCheckboxClick(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	pos, ok := s.resolver.Resolve(s.state.Doc, id)
	if !ok {
		s.logger.Debug("no checklist item with this id", zap.String("id", id))
		return false
	}
	if !ToggleChecklistItem(pos)(s.state, s.dispatch, s.view()) {
		return false
	}
	if timer, ok := s.checking[id]; ok {
		timer.Stop()
	}
	// A timer that fired while the lock was held must not end a later click.
	var timer *time.Timer
	timer = s.afterFunc(s.checkingDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.checking[id] == timer {
			delete(s.checking, id)
		}
	})
	s.checking[id] = timer
	return true
}

// IsChecking reports whether the checklist item still has the checking
// class.
func (s *Session) IsChecking(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.checking[id]
	return ok
}

// Execute runs the command with the given id on the current state.
func (s *Session) Execute(id string, args map[string]interface{}) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{Message: ErrSessionClosed.Error(), Err: ErrSessionClosed}
	}
	return s.execute(id, args)
}

func (s *Session) execute(id string, args map[string]interface{}) Result {
	ctx := &Context{State: s.state, Dispatch: s.dispatch, Args: args, Links: s.view()}
	return s.registry.Execute(id, ctx)
}

// SelectSlashCommand runs a command picked in the slash menu: the trigger
// and the query are removed, then the command runs.
func (s *Session) SelectSlashCommand(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{Message: ErrSessionClosed.Error(), Err: ErrSessionClosed}
	}
	if !clearSlash(s.state, s.dispatch, s.view()) {
		return Fail("The slash menu is not open")
	}
	return s.execute(id, nil)
}

// SearchCommands returns the commands matching the term.
func (s *Session) SearchCommands(term string) []Command {
	return s.registry.Search(term)
}

// LinkDialog returns the open link dialog, or nil.
func (s *Session) LinkDialog() *LinkDialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialog
}

// Decorations returns all the decorations to show over the document:
// those of the plugins and the checking class of the clicked items.
func (s *Session) Decorations() *decoration.DecorationSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	var decos []*decoration.Decoration
	for _, p := range s.state.Plugins() {
		if fn := p.Props().Decorations; fn != nil {
			if set := fn(s.state); set != nil {
				decos = append(decos, set.All()...)
			}
		}
	}
	for id := range s.checking {
		if pos, ok := s.resolver.Resolve(s.state.Doc, id); ok {
			node := s.state.Doc.NodeAt(pos)
			decos = append(decos, decoration.NewNode(pos, pos+node.NodeSize(), map[string]string{"class": CheckingClass}))
		}
	}
	return decoration.Create(s.state.Doc, decos)
}

// HTML serializes the document of the session.
func (s *Session) HTML() (string, error) {
	return eddytor.Serialize(s.State().Doc)
}

// Teardown ends the session: the subscription to the event source, the
// timers and the link dialog are disposed. It is safe to call more than
// once.
func (s *Session) Teardown() {
	s.teardown.Do(func() {
		s.mu.Lock()
		s.closed = true
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		for id, timer := range s.checking {
			timer.Stop()
			delete(s.checking, id)
		}
		dialog := s.dialog
		s.dialog = nil
		s.slash.OnChange(nil)
		s.onChange = nil
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		if dialog != nil {
			dialog.Cancel()
		}
		s.logger.Debug("editor session torn down")
	})
}

var _ state.View = &Session{}
