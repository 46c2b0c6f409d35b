package transform

import (
	"github.com/shodgson/eddytor/model"
)

func canCut(node *model.Node, start, end int) bool {
	return (start == 0 || node.CanReplace(start, node.ChildCount())) &&
		(end == node.ChildCount() || node.CanReplace(0, end))
}

// LiftTarget tries to find a target depth to which the content in the given
// range can be moved (lifted). Returns false when the range can't be lifted.
func LiftTarget(rng *model.NodeRange) (int, bool) {
	parent := rng.Parent()
	content := parent.Content.CutByIndex(rng.StartIndex(), rng.EndIndex())
	for depth := rng.Depth; ; depth-- {
		node := rng.From.Node(depth)
		index, endIndex := rng.From.Index(depth), rng.To.IndexAfter(depth)
		if depth < rng.Depth && node.CanReplace(index, endIndex, content) {
			return depth, true
		}
		if depth == 0 || node.Type.Spec.Isolating || !canCut(node, index, endIndex) {
			break
		}
	}
	return 0, false
}

// FindWrapping tries to find a valid way to wrap the content in the given
// range in a node of the given type. May introduce extra nodes around and
// inside the wrapper node, if necessary. Returns false if no valid wrapping
// could be found. When innerRange is given, it is the range whose content
// must fit in the wrapper, while rng is the place where the wrapper goes.
func FindWrapping(rng *model.NodeRange, typ *model.NodeType, attrs map[string]interface{}, innerRange ...*model.NodeRange) ([]Wrapper, bool) {
	around, ok := findWrappingOutside(rng, typ)
	if !ok {
		return nil, false
	}
	innerRng := rng
	if len(innerRange) > 0 && innerRange[0] != nil {
		innerRng = innerRange[0]
	}
	inner, ok := findWrappingInside(innerRng, typ)
	if !ok {
		return nil, false
	}
	result := make([]Wrapper, 0, len(around)+1+len(inner))
	for _, t := range around {
		result = append(result, Wrapper{Type: t})
	}
	result = append(result, Wrapper{Type: typ, Attrs: attrs})
	for _, t := range inner {
		result = append(result, Wrapper{Type: t})
	}
	return result, true
}

func findWrappingOutside(rng *model.NodeRange, typ *model.NodeType) ([]*model.NodeType, bool) {
	parent, startIndex, endIndex := rng.Parent(), rng.StartIndex(), rng.EndIndex()
	match, err := parent.ContentMatchAt(startIndex)
	if err != nil {
		return nil, false
	}
	around, ok := match.FindWrapping(typ)
	if !ok {
		return nil, false
	}
	outer := typ
	if len(around) > 0 {
		outer = around[0]
	}
	if !parent.CanReplaceWith(startIndex, endIndex, outer) {
		return nil, false
	}
	return around, true
}

func findWrappingInside(rng *model.NodeRange, typ *model.NodeType) ([]*model.NodeType, bool) {
	parent, startIndex, endIndex := rng.Parent(), rng.StartIndex(), rng.EndIndex()
	inner := parent.MaybeChild(startIndex)
	if inner == nil {
		return nil, false
	}
	inside, ok := typ.ContentMatch.FindWrapping(inner.Type)
	if !ok {
		return nil, false
	}
	lastType := typ
	if len(inside) > 0 {
		lastType = inside[len(inside)-1]
	}
	innerMatch := lastType.ContentMatch
	for i := startIndex; innerMatch != nil && i < endIndex; i++ {
		innerMatch = innerMatch.MatchType(parent.Content.Content[i].Type)
	}
	if innerMatch == nil || !innerMatch.ValidEnd {
		return nil, false
	}
	return inside, true
}

// CanSplit checks whether splitting at the given position is allowed.
func CanSplit(doc *model.Node, pos int, depth int, typesAfter ...*Wrapper) bool {
	if depth < 1 {
		depth = 1
	}
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	base := rpos.Depth - depth
	innerType := rpos.Parent().Type
	if n := len(typesAfter); n > 0 && typesAfter[n-1] != nil {
		innerType = typesAfter[n-1].Type
	}
	if base < 0 || rpos.Parent().Type.Spec.Isolating ||
		!rpos.Parent().CanReplace(rpos.Index(), rpos.Parent().ChildCount()) ||
		!innerType.ValidContent(rpos.Parent().Content.CutByIndex(rpos.Index(), rpos.Parent().ChildCount())) {
		return false
	}
	for d, i := rpos.Depth-1, depth-2; d > base; d, i = d-1, i-1 {
		node, index := rpos.Node(d), rpos.Index(d)
		if node.Type.Spec.Isolating {
			return false
		}
		rest := node.Content.CutByIndex(index, node.ChildCount())
		if i+1 >= 0 && i+1 < len(typesAfter) && typesAfter[i+1] != nil {
			override, err := typesAfter[i+1].Type.Create(typesAfter[i+1].Attrs, nil, nil)
			if err != nil {
				return false
			}
			rest = rest.ReplaceChild(0, override)
		}
		afterType := node.Type
		if i >= 0 && i < len(typesAfter) && typesAfter[i] != nil {
			afterType = typesAfter[i].Type
		}
		if !node.CanReplace(index+1, node.ChildCount()) || !afterType.ValidContent(rest) {
			return false
		}
	}
	index := rpos.IndexAfter(base)
	baseType := rpos.Node(base + 1).Type
	if len(typesAfter) > 0 && typesAfter[0] != nil {
		baseType = typesAfter[0].Type
	}
	return rpos.Node(base).CanReplaceWith(index, index, baseType)
}

// CanJoin tests whether the blocks before and after a given position can be
// joined.
func CanJoin(doc *model.Node, pos int) bool {
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	index := rpos.Index()
	return joinable(rpos.NodeBefore(), rpos.NodeAfter()) && rpos.Parent().CanReplace(index, index+1)
}

func joinable(a, b *model.Node) bool {
	return a != nil && b != nil && !a.IsLeaf() && a.CanAppend(b)
}

// JoinPoint finds an ancestor of the given position that can be joined to
// the block before it (or after it if dir is positive). Returns the
// joinable point, if any.
func JoinPoint(doc *model.Node, pos int, dir int) (int, bool) {
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return 0, false
	}
	for d := rpos.Depth; ; d-- {
		var beforeNode, afterNode *model.Node
		index := rpos.Index(d)
		switch {
		case d == rpos.Depth:
			beforeNode, afterNode = rpos.NodeBefore(), rpos.NodeAfter()
		case dir > 0:
			beforeNode = rpos.Node(d + 1)
			index++
			afterNode = rpos.Node(d).MaybeChild(index)
		default:
			beforeNode = rpos.Node(d).MaybeChild(index - 1)
			afterNode = rpos.Node(d + 1)
		}
		if beforeNode != nil && !beforeNode.IsTextblock() && joinable(beforeNode, afterNode) &&
			rpos.Node(d).CanReplace(index, index+1) {
			return pos, true
		}
		if d == 0 {
			break
		}
		if dir < 0 {
			pos = before(rpos, d)
		} else {
			pos = after(rpos, d)
		}
	}
	return 0, false
}

// InsertPoint tries to find a point where a node of the given type can be
// inserted near pos, by searching up the node hierarchy when pos itself
// isn't a valid place but is at the start or end of a node.
func InsertPoint(doc *model.Node, pos int, typ *model.NodeType) (int, bool) {
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return 0, false
	}
	if rpos.Parent().CanReplaceWith(rpos.Index(), rpos.Index(), typ) {
		return pos, true
	}
	if rpos.ParentOffset == 0 {
		for d := rpos.Depth - 1; d >= 0; d-- {
			index := rpos.Index(d)
			if rpos.Node(d).CanReplaceWith(index, index, typ) {
				return before(rpos, d+1), true
			}
			if index > 0 {
				return 0, false
			}
		}
	}
	if rpos.ParentOffset == rpos.Parent().Content.Size {
		for d := rpos.Depth - 1; d >= 0; d-- {
			index := rpos.IndexAfter(d)
			if rpos.Node(d).CanReplaceWith(index, index, typ) {
				return after(rpos, d+1), true
			}
			if index < rpos.Node(d).ChildCount() {
				return 0, false
			}
		}
	}
	return 0, false
}
