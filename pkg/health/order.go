package health

import (
    "cmp"
    "slices"
)

// Comparator orders node details; it returns <0, 0 or >0.
type Comparator func(a, b NodeDetails) int

// Comparing builds a comparator on one key of the details.
func Comparing[K cmp.Ordered](key func(NodeDetails) K) Comparator {
    return func(a, b NodeDetails) int { return cmp.Compare(key(a), key(b)) }
}

// Then breaks ties of c with next.
func (c Comparator) Then(next Comparator) Comparator {
    return func(a, b NodeDetails) int {
        if r := c(a, b); r != 0 { return r }
        return next(a, b)
    }
}

// NodeOrder sorts nodes by type name, then name, host and port.
var NodeOrder = Comparing(func(d NodeDetails) string { return string(d.Type) }).
    Then(Comparing(func(d NodeDetails) string { return d.Name })).
    Then(Comparing(func(d NodeDetails) string { return d.Host })).
    Then(Comparing(func(d NodeDetails) int { return d.Port }))

// SortNodes returns a sorted copy of nodes. Nodes with equal details keep
// their relative order.
func SortNodes(nodes []NodeHealth) []NodeHealth {
    out := slices.Clone(nodes)
    slices.SortStableFunc(out, func(a, b NodeHealth) int { return NodeOrder(a.Details, b.Details) })
    return out
}
