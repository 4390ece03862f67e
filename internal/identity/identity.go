// Package identity generates the per-session display name a chat client
// posts under.
package identity

import (
	"math/rand/v2"
	"strconv"
)

// Prefix is prepended to every generated name.
const Prefix = "client-"

// Space is the exclusive upper bound of the numeric suffix.
const Space = 10000

// Identity is a session display name such as "client-42". Names are not
// unique across sessions.
type Identity string

// New returns a random identity.
func New() Identity {
	return FromNumber(rand.IntN(Space))
}

// FromNumber builds the identity for n. It does not range-check n.
func FromNumber(n int) Identity {
	return Identity(Prefix + strconv.Itoa(n))
}

func (i Identity) String() string {
	return string(i)
}
