package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Ownership engine
	OwnInfo                   Code = 1000
	OwnImmutableMutation      Code = 1001
	OwnUseAfterMove           Code = 1002
	OwnTraitSignatureMismatch Code = 1003
	OwnAmbiguousOwnership     Code = 1004
	OwnNonExhaustiveMatch     Code = 1005

	// Input / unit loading
	IOInfo            Code = 4000
	IOLoadFileError   Code = 4001
	IOMalformedUnit   Code = 4002
	IOUnsupportedNode Code = 4003
)

// ErrorKind is the category reported to code generation and tools.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindImmutableMutation  ErrorKind = "ImmutableMutation"
	KindUseAfterMove       ErrorKind = "UseAfterMove"
	KindTraitSignature     ErrorKind = "TraitSignatureMismatch"
	KindAmbiguousOwnership ErrorKind = "AmbiguousOwnership"
	KindNonExhaustiveMatch ErrorKind = "NonExhaustiveMatch"
)

var codeDescription = map[Code]string{
	UnknownCode:               "Unknown error",
	OwnInfo:                   "Ownership information",
	OwnImmutableMutation:      "Mutation of an immutable binding",
	OwnUseAfterMove:           "Use of a moved value",
	OwnTraitSignatureMismatch: "Implementation does not match trait signature",
	OwnAmbiguousOwnership:     "Ownership cannot be derived from usage",
	OwnNonExhaustiveMatch:     "Non-exhaustive match",
	IOInfo:                    "I/O information",
	IOLoadFileError:           "Failed to load unit",
	IOMalformedUnit:           "Malformed unit document",
	IOUnsupportedNode:         "Unsupported node in unit document",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("OWN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

// Kind maps a code to its error kind; non-engine codes have KindNone.
func (c Code) Kind() ErrorKind {
	switch c {
	case OwnImmutableMutation:
		return KindImmutableMutation
	case OwnUseAfterMove:
		return KindUseAfterMove
	case OwnTraitSignatureMismatch:
		return KindTraitSignature
	case OwnAmbiguousOwnership:
		return KindAmbiguousOwnership
	case OwnNonExhaustiveMatch:
		return KindNonExhaustiveMatch
	default:
		return KindNone
	}
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
