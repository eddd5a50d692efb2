package types

// TypeCode identifies the runtime type of a value
type TypeCode int

const (
	TYPE_NULL TypeCode = iota
	TYPE_BOOL
	TYPE_INT
	TYPE_FLOAT
	TYPE_STR
	TYPE_TUPLE
	TYPE_LIST
	TYPE_MAP
	TYPE_PROC
	TYPE_MODULE
	TYPE_CLASS
	TYPE_EXCEPTION
	TYPE_MACRO
	TYPE_EXTERNAL
)

// String returns the name typeof() reports for the type
func (t TypeCode) String() string {
	switch t {
	case TYPE_NULL:
		return "null"
	case TYPE_BOOL:
		return "bool"
	case TYPE_INT:
		return "int"
	case TYPE_FLOAT:
		return "float"
	case TYPE_STR:
		return "str"
	case TYPE_TUPLE:
		return "tuple"
	case TYPE_LIST:
		return "list"
	case TYPE_MAP:
		return "map"
	case TYPE_PROC:
		return "procedure"
	case TYPE_MODULE:
		return "module"
	case TYPE_CLASS:
		return "class"
	case TYPE_EXCEPTION:
		return "exception"
	case TYPE_MACRO:
		return "macro"
	case TYPE_EXTERNAL:
		return "external"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether values of this type take part in arithmetic
func (t TypeCode) IsNumeric() bool {
	return t == TYPE_INT || t == TYPE_FLOAT
}

// IsSequence reports whether values of this type can be iterated in order
func (t TypeCode) IsSequence() bool {
	return t == TYPE_STR || t == TYPE_TUPLE || t == TYPE_LIST
}
