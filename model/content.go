package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// MatchEdge is an outgoing edge of a content match state.
type MatchEdge struct {
	Type *NodeType
	Next *ContentMatch
}

// ContentMatch represents a match state of a node type's content expression,
// and can be used to find out whether further content matches here, and
// whether a given position is a valid end of the node.
type ContentMatch struct {
	// True when this match state represents a valid end of the node.
	ValidEnd bool
	next     []MatchEdge

	mu        sync.Mutex
	wrapCache []wrapping
}

type wrapping struct {
	target *NodeType
	types  []*NodeType
	found  bool
}

// NewContentMatch is the constructor for ContentMatch.
func NewContentMatch(validEnd bool) *ContentMatch {
	return &ContentMatch{ValidEnd: validEnd}
}

// EmptyContentMatch is the match state of an empty content expression.
var EmptyContentMatch = NewContentMatch(true)

// ParseContentMatch compiles a content expression into a deterministic
// automaton, and returns its start state.
func ParseContentMatch(str string, nodeTypes map[string]*NodeType) (*ContentMatch, error) {
	stream := newTokenStream(str, nodeTypes)
	if stream.next() == "" {
		return EmptyContentMatch, nil
	}
	expr, err := parseExpr(stream)
	if err != nil {
		return nil, err
	}
	if stream.next() != "" {
		return nil, stream.err("Unexpected trailing text")
	}
	match := dfa(nfa(expr))
	if err := checkForDeadEnds(match, stream); err != nil {
		return nil, err
	}
	return match, nil
}

// MatchType matches a node type, returning a match after that node if
// successful.
func (cm *ContentMatch) MatchType(typ *NodeType) *ContentMatch {
	for _, edge := range cm.next {
		if edge.Type == typ {
			return edge.Next
		}
	}
	return nil
}

// MatchFragment tries to match a fragment, optionally between the start and
// end child indexes. Returns the resulting match when successful.
func (cm *ContentMatch) MatchFragment(frag *Fragment, args ...int) *ContentMatch {
	start, end := 0, frag.ChildCount()
	if len(args) > 0 {
		start = args[0]
	}
	if len(args) > 1 {
		end = args[1]
	}
	cur := cm
	for i := start; cur != nil && i < end; i++ {
		cur = cur.MatchType(frag.Content[i].Type)
	}
	return cur
}

func (cm *ContentMatch) inlineContent() bool {
	return len(cm.next) > 0 && cm.next[0].Type.IsInline()
}

// DefaultType returns the first matching node type at this match position
// that can be generated, or nil.
func (cm *ContentMatch) DefaultType() *NodeType {
	for _, edge := range cm.next {
		if !(edge.Type.IsText() || edge.Type.HasRequiredAttrs()) {
			return edge.Type
		}
	}
	return nil
}

func (cm *ContentMatch) compatible(other *ContentMatch) bool {
	for _, a := range cm.next {
		for _, b := range other.next {
			if a.Type == b.Type {
				return true
			}
		}
	}
	return false
}

// FillBefore tries to match the given fragment, and if that fails, sees if
// it can be made to match by inserting nodes in front of it. When
// successful, returns a fragment of inserted nodes (which may be empty if
// nothing had to be inserted). When toEnd is true, only returns a fragment
// if the resulting match goes to the end of the content expression.
func (cm *ContentMatch) FillBefore(after *Fragment, toEnd bool, startIndex int) *Fragment {
	seen := []*ContentMatch{cm}
	var search func(match *ContentMatch, types []*NodeType) *Fragment
	search = func(match *ContentMatch, types []*NodeType) *Fragment {
		finished := match.MatchFragment(after, startIndex)
		if finished != nil && (!toEnd || finished.ValidEnd) {
			nodes := make([]*Node, 0, len(types))
			for _, tp := range types {
				node, err := tp.CreateAndFill(nil, nil, nil)
				if err != nil || node == nil {
					return nil
				}
				nodes = append(nodes, node)
			}
			return FragmentFromArray(nodes)
		}
		for _, edge := range match.next {
			if edge.Type.IsText() || edge.Type.HasRequiredAttrs() || containsMatch(seen, edge.Next) {
				continue
			}
			seen = append(seen, edge.Next)
			next := make([]*NodeType, len(types), len(types)+1)
			copy(next, types)
			if found := search(edge.Next, append(next, edge.Type)); found != nil {
				return found
			}
		}
		return nil
	}
	return search(cm, nil)
}

func containsMatch(list []*ContentMatch, m *ContentMatch) bool {
	for _, item := range list {
		if item == m {
			return true
		}
	}
	return false
}

// FindWrapping finds a set of wrapping node types that would allow a node of
// the given type to appear at this position. The result may be empty (when
// it fits directly) and ok is false when no such wrapping exists.
func (cm *ContentMatch) FindWrapping(target *NodeType) ([]*NodeType, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, w := range cm.wrapCache {
		if w.target == target {
			return w.types, w.found
		}
	}
	types, found := cm.computeWrapping(target)
	cm.wrapCache = append(cm.wrapCache, wrapping{target: target, types: types, found: found})
	return types, found
}

type wrapStep struct {
	match *ContentMatch
	typ   *NodeType
	via   *wrapStep
}

func (cm *ContentMatch) computeWrapping(target *NodeType) ([]*NodeType, bool) {
	seen := map[string]bool{}
	active := []*wrapStep{{match: cm}}
	for len(active) > 0 {
		current := active[0]
		active = active[1:]
		match := current.match
		if match.MatchType(target) != nil {
			var result []*NodeType
			for obj := current; obj.typ != nil; obj = obj.via {
				result = append([]*NodeType{obj.typ}, result...)
			}
			return result, true
		}
		for _, edge := range match.next {
			typ := edge.Type
			if !typ.IsLeaf() && !typ.HasRequiredAttrs() && !seen[typ.Name] && (current.typ == nil || edge.Next.ValidEnd) {
				active = append(active, &wrapStep{match: typ.ContentMatch, typ: typ, via: current})
				seen[typ.Name] = true
			}
		}
	}
	return nil, false
}

// EdgeCount is the number of outgoing edges this node has in the finite
// automaton that describes the content expression.
func (cm *ContentMatch) EdgeCount() int {
	return len(cm.next)
}

// Edge gets the nth outgoing edge from this node in the finite automaton
// that describes the content expression.
func (cm *ContentMatch) Edge(n int) (MatchEdge, error) {
	if n < 0 || n >= len(cm.next) {
		return MatchEdge{}, fmt.Errorf("there's no %dth edge in this content match", n)
	}
	return cm.next[n], nil
}

// String returns a debugging representation of the automaton.
func (cm *ContentMatch) String() string {
	seen := []*ContentMatch{}
	var scan func(m *ContentMatch)
	scan = func(m *ContentMatch) {
		seen = append(seen, m)
		for _, edge := range m.next {
			if !containsMatch(seen, edge.Next) {
				scan(edge.Next)
			}
		}
	}
	scan(cm)
	indexOf := func(m *ContentMatch) int {
		for i, s := range seen {
			if s == m {
				return i
			}
		}
		return -1
	}
	lines := make([]string, len(seen))
	for i, m := range seen {
		out := strconv.Itoa(i)
		if m.ValidEnd {
			out += "*"
		} else {
			out += " "
		}
		for j, edge := range m.next {
			if j > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%s->%d", edge.Type.Name, indexOf(edge.Next))
		}
		lines[i] = out
	}
	return strings.Join(lines, "\n")
}

type tokenStream struct {
	str       string
	nodeTypes map[string]*NodeType
	inline    *bool
	pos       int
	tokens    []string
}

// tokenize splits a content expression into runs of word characters and
// single punctuation characters.
func tokenize(str string) []string {
	var tokens []string
	runes := []rune(str)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isWordRune(r):
			j := i
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		default:
			tokens = append(tokens, string(r))
			i++
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func newTokenStream(str string, nodeTypes map[string]*NodeType) *tokenStream {
	return &tokenStream{
		str:       str,
		nodeTypes: nodeTypes,
		tokens:    tokenize(str),
	}
}

func (ts *tokenStream) next() string {
	if ts.pos >= len(ts.tokens) {
		return ""
	}
	return ts.tokens[ts.pos]
}

func (ts *tokenStream) eat(tok string) bool {
	if ts.next() != tok {
		return false
	}
	ts.pos++
	return true
}

func (ts *tokenStream) err(format string, args ...interface{}) error {
	str := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s (in content expression %q)", str, ts.str)
}

type exprKind int

const (
	exprChoice exprKind = iota
	exprSeq
	exprPlus
	exprStar
	exprOpt
	exprRange
	exprName
)

type expr struct {
	kind  exprKind
	exprs []*expr
	expr  *expr
	min   int
	max   int
	value *NodeType
}

func parseExpr(stream *tokenStream) (*expr, error) {
	var exprs []*expr
	for {
		seq, err := parseExprSeq(stream)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, seq)
		if !stream.eat("|") {
			break
		}
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprChoice, exprs: exprs}, nil
}

func parseExprSeq(stream *tokenStream) (*expr, error) {
	var exprs []*expr
	for {
		sub, err := parseExprSubscript(stream)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, sub)
		if next := stream.next(); next == "" || next == ")" || next == "|" {
			break
		}
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprSeq, exprs: exprs}, nil
}

func parseExprSubscript(stream *tokenStream) (*expr, error) {
	e, err := parseExprAtom(stream)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case stream.eat("+"):
			e = &expr{kind: exprPlus, expr: e}
		case stream.eat("*"):
			e = &expr{kind: exprStar, expr: e}
		case stream.eat("?"):
			e = &expr{kind: exprOpt, expr: e}
		case stream.eat("{"):
			e, err = parseExprRange(stream, e)
			if err != nil {
				return nil, err
			}
		default:
			return e, nil
		}
	}
}

func parseNum(stream *tokenStream) (int, error) {
	next := stream.next()
	result, err := strconv.Atoi(next)
	if err != nil {
		return 0, stream.err("Expected number, got %q", next)
	}
	stream.pos++
	return result, nil
}

func parseExprRange(stream *tokenStream, e *expr) (*expr, error) {
	min, err := parseNum(stream)
	if err != nil {
		return nil, err
	}
	max := min
	if stream.eat(",") {
		if stream.next() != "}" {
			max, err = parseNum(stream)
			if err != nil {
				return nil, err
			}
		} else {
			max = -1
		}
	}
	if !stream.eat("}") {
		return nil, stream.err("Unclosed braced range")
	}
	return &expr{kind: exprRange, min: min, max: max, expr: e}, nil
}

func resolveName(stream *tokenStream, name string) ([]*NodeType, error) {
	types := stream.nodeTypes
	if typ, ok := types[name]; ok {
		return []*NodeType{typ}, nil
	}
	var result []*NodeType
	for _, typ := range types {
		if typ.IsInGroup(name) {
			result = append(result, typ)
		}
	}
	if len(result) == 0 {
		return nil, stream.err("No node type or group '%s' found", name)
	}
	sortNodeTypes(result)
	return result, nil
}

func parseExprAtom(stream *tokenStream) (*expr, error) {
	if stream.eat("(") {
		e, err := parseExpr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.eat(")") {
			return nil, stream.err("Missing closing paren")
		}
		return e, nil
	}
	next := stream.next()
	if next == "" || !isWordRune([]rune(next)[0]) {
		return nil, stream.err("Unexpected token '%s'", next)
	}
	types, err := resolveName(stream, next)
	if err != nil {
		return nil, err
	}
	exprs := make([]*expr, 0, len(types))
	for _, typ := range types {
		inline := typ.IsInline()
		if stream.inline == nil {
			stream.inline = &inline
		} else if *stream.inline != inline {
			return nil, stream.err("Mixing inline and block content")
		}
		exprs = append(exprs, &expr{kind: exprName, value: typ})
	}
	stream.pos++
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &expr{kind: exprChoice, exprs: exprs}, nil
}

// The content expression is compiled to a finite automaton, first
// non-deterministic, which is then made deterministic.

type nfaEdge struct {
	term *NodeType
	to   int
}

type nfaGraph [][]*nfaEdge

func nfa(e *expr) nfaGraph {
	graph := nfaGraph{nil}
	node := func() int {
		graph = append(graph, nil)
		return len(graph) - 1
	}
	edge := func(from, to int, term *NodeType) *nfaEdge {
		ed := &nfaEdge{term: term, to: to}
		graph[from] = append(graph[from], ed)
		return ed
	}
	connect := func(edges []*nfaEdge, to int) {
		for _, ed := range edges {
			ed.to = to
		}
	}
	var compile func(e *expr, from int) []*nfaEdge
	compile = func(e *expr, from int) []*nfaEdge {
		switch e.kind {
		case exprChoice:
			var out []*nfaEdge
			for _, sub := range e.exprs {
				out = append(out, compile(sub, from)...)
			}
			return out
		case exprSeq:
			for i := 0; ; i++ {
				next := compile(e.exprs[i], from)
				if i == len(e.exprs)-1 {
					return next
				}
				from = node()
				connect(next, from)
			}
		case exprStar:
			loop := node()
			edge(from, loop, nil)
			connect(compile(e.expr, loop), loop)
			return []*nfaEdge{edge(loop, -1, nil)}
		case exprPlus:
			loop := node()
			connect(compile(e.expr, from), loop)
			connect(compile(e.expr, loop), loop)
			return []*nfaEdge{edge(loop, -1, nil)}
		case exprOpt:
			return append([]*nfaEdge{edge(from, -1, nil)}, compile(e.expr, from)...)
		case exprRange:
			cur := from
			for i := 0; i < e.min; i++ {
				next := node()
				connect(compile(e.expr, cur), next)
				cur = next
			}
			if e.max == -1 {
				connect(compile(e.expr, cur), cur)
			} else {
				for i := e.min; i < e.max; i++ {
					next := node()
					edge(cur, next, nil)
					connect(compile(e.expr, cur), next)
					cur = next
				}
			}
			return []*nfaEdge{edge(cur, -1, nil)}
		default:
			return []*nfaEdge{edge(from, -1, e.value)}
		}
	}
	end := compile(e, 0)
	connect(end, node())
	return graph
}

// nullFrom returns the sorted set of nodes reachable from node through
// null edges.
func nullFrom(graph nfaGraph, node int) []int {
	var result []int
	var scan func(n int)
	scan = func(n int) {
		edges := graph[n]
		if len(edges) == 1 && edges[0].term == nil {
			scan(edges[0].to)
			return
		}
		result = append(result, n)
		for _, ed := range edges {
			if ed.term == nil && !containsInt(result, ed.to) {
				scan(ed.to)
			}
		}
	}
	scan(node)
	sort.Ints(result)
	return result
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func stateKey(states []int) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

type dfaOut struct {
	term   *NodeType
	states []int
}

func dfa(graph nfaGraph) *ContentMatch {
	labeled := map[string]*ContentMatch{}
	var explore func(states []int) *ContentMatch
	explore = func(states []int) *ContentMatch {
		var out []*dfaOut
		for _, node := range states {
			for _, ed := range graph[node] {
				if ed.term == nil {
					continue
				}
				var set *dfaOut
				for _, o := range out {
					if o.term == ed.term {
						set = o
					}
				}
				for _, n := range nullFrom(graph, ed.to) {
					if set == nil {
						set = &dfaOut{term: ed.term}
						out = append(out, set)
					}
					if !containsInt(set.states, n) {
						set.states = append(set.states, n)
					}
				}
			}
		}
		state := NewContentMatch(containsInt(states, len(graph)-1))
		labeled[stateKey(states)] = state
		for _, o := range out {
			sort.Ints(o.states)
			next, ok := labeled[stateKey(o.states)]
			if !ok {
				next = explore(o.states)
			}
			state.next = append(state.next, MatchEdge{Type: o.term, Next: next})
		}
		return state
	}
	return explore(nullFrom(graph, 0))
}

func checkForDeadEnds(match *ContentMatch, stream *tokenStream) error {
	work := []*ContentMatch{match}
	for i := 0; i < len(work); i++ {
		state := work[i]
		dead := !state.ValidEnd
		var nodes []string
		for _, edge := range state.next {
			nodes = append(nodes, edge.Type.Name)
			if dead && !(edge.Type.IsText() || edge.Type.HasRequiredAttrs()) {
				dead = false
			}
			if !containsMatch(work, edge.Next) {
				work = append(work, edge.Next)
			}
		}
		if dead {
			return stream.err("Only non-generatable nodes (%s) in a required position", strings.Join(nodes, ", "))
		}
	}
	return nil
}
