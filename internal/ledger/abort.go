package ledger

import (
	"regexp"
	"strconv"
)

// MoveAbort is the location and code of an aborted Move call.
type MoveAbort struct {
	Function string `json:"function"`
	Code     uint64 `json:"code"`
}

// Sui renders aborts as
//
//	MoveAbort(MoveLocation { ..., function_name: Some("redeem") }, 0) in command 0
var moveAbortRE = regexp.MustCompile(`function_name:\s*Some\("([^"]+)"\)\s*}\s*,\s*(\d+)\)`)

// ParseMoveAbort extracts the aborting function and code from a failure
// reason reported by the node.
func ParseMoveAbort(reason string) (*MoveAbort, bool) {
	m := moveAbortRE.FindStringSubmatch(reason)
	if m == nil {
		return nil, false
	}
	code, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return nil, false
	}
	return &MoveAbort{Function: m[1], Code: code}, true
}
