package identity

import (
	"fmt"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Kind classifies the outcome of resolving a raw identifier
type Kind int

const (
	Unresolved Kind = iota
	Resolved
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unresolved"
	}
}

// Resolution is the typed result of a lookup. Candidates is set for
// Ambiguous results in member insertion order.
type Resolution struct {
	Kind       Kind
	MemberID   string
	Candidates []string
	Raw        string
	Source     types.SourceType
}

func (r Resolution) String() string {
	switch r.Kind {
	case Resolved:
		return fmt.Sprintf("%s:%q -> %s", r.Source, r.Raw, r.MemberID)
	case Ambiguous:
		return fmt.Sprintf("%s:%q -> ambiguous %v", r.Source, r.Raw, r.Candidates)
	default:
		return fmt.Sprintf("%s:%q -> unresolved", r.Source, r.Raw)
	}
}
