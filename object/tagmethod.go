package object

// TagMethod enumerates the tagged-method protocol slots consulted by the
// interpreter's metatable dispatch (spec §4.10).
type TagMethod int

const (
	TMIndex TagMethod = iota
	TMNewIndex
	TMAdd
	TMSub
	TMMul
	TMDiv
	TMMod
	TMPow
	TMUnm
	TMEq
	TMLt
	TMLe
	TMLen
	TMCall
	TMToString
	TMMode
	TMGC
	tagMethodCount
)

// TagMethodNames is indexed by TagMethod and gives the metatable field name
// the VM looks up for each slot.
var TagMethodNames = [tagMethodCount]string{
	TMIndex:    "__index",
	TMNewIndex: "__newindex",
	TMAdd:      "__add",
	TMSub:      "__sub",
	TMMul:      "__mul",
	TMDiv:      "__div",
	TMMod:      "__mod",
	TMPow:      "__pow",
	TMUnm:      "__unm",
	TMEq:       "__eq",
	TMLt:       "__lt",
	TMLe:       "__le",
	TMLen:      "__len",
	TMCall:     "__call",
	TMToString: "__tostring",
	TMMode:     "__mode",
	TMGC:       "__gc",
}
