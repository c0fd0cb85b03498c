package dispatch

import "errors"

// Internal failure kinds. Both collapse to the operation's sentinel at the
// public boundary, but staying distinguishable here keeps compound
// operations honest about why they short-circuited.
var (
	errUnknownHandle = errors.New("handle does not resolve")
	errEngineFailure = errors.New("engine reported failure")
)
