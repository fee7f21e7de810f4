package state

// Prefix is a channel mode prefix ranked by precedence. Higher values
// outrank lower ones. The same ordering is used for roster sorting and for
// deciding whether a mode removal may clear a user's displayed prefix.
type Prefix int

const (
	PrefixNone Prefix = iota
	PrefixVoice
	PrefixHalfop
	PrefixOp
	PrefixAdmin
	PrefixOwner
)

// PrefixFromSymbol maps a name-list sigil to its prefix.
func PrefixFromSymbol(r rune) Prefix {
	switch r {
	case '~':
		return PrefixOwner
	case '&':
		return PrefixAdmin
	case '@':
		return PrefixOp
	case '%':
		return PrefixHalfop
	case '+':
		return PrefixVoice
	default:
		return PrefixNone
	}
}

// PrefixFromMode maps a channel mode letter (as in MODE +o) to its prefix.
func PrefixFromMode(r rune) Prefix {
	switch r {
	case 'q':
		return PrefixOwner
	case 'a':
		return PrefixAdmin
	case 'o':
		return PrefixOp
	case 'h':
		return PrefixHalfop
	case 'v':
		return PrefixVoice
	default:
		return PrefixNone
	}
}

// Symbol returns the display sigil for the prefix, or "" for none.
func (p Prefix) Symbol() string {
	switch p {
	case PrefixOwner:
		return "~"
	case PrefixAdmin:
		return "&"
	case PrefixOp:
		return "@"
	case PrefixHalfop:
		return "%"
	case PrefixVoice:
		return "+"
	default:
		return ""
	}
}

// Outranks reports whether p has strictly higher precedence than other.
func (p Prefix) Outranks(other Prefix) bool {
	return p > other
}
