package types

// BoolValue represents a boolean
type BoolValue struct {
	Val bool
}

// True and False are the two boolean values
var (
	True  = BoolValue{Val: true}
	False = BoolValue{Val: false}
)

// NewBool creates a new BoolValue
func NewBool(val bool) BoolValue {
	return BoolValue{Val: val}
}

func (b BoolValue) Type() TypeCode {
	return TYPE_BOOL
}

func (b BoolValue) String() string {
	if b.Val {
		return "true"
	}
	return "false"
}

func (b BoolValue) Equal(other Value) bool {
	o, ok := other.(BoolValue)
	return ok && b.Val == o.Val
}

func (b BoolValue) Truthy() bool {
	return b.Val
}
