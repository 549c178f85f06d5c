// Package types holds the wire-level vocabulary shared by the csblob, der
// and plist packages: small integer newtypes with String()/GoString()
// methods and the name-table helpers behind them.
package types

import "strconv"

// IntName pairs a 32-bit constant with its display name, used to back the
// String()/GoString() methods on the magic/slot/flag newtypes below.
type IntName struct {
	I uint32
	S string
}

// Int64Name is IntName for 64-bit constants (exec-segment flags).
type Int64Name struct {
	I uint64
	S string
}

func StringName(i uint32, names []IntName, goSyntax bool) string {
	for _, n := range names {
		if n.I == i {
			if goSyntax {
				return "csblob." + n.S
			}
			return n.S
		}
	}
	return "0x" + strconv.FormatUint(uint64(i), 16)
}

func StringName64(i uint64, names []Int64Name, goSyntax bool) string {
	for _, n := range names {
		if n.I == i {
			if goSyntax {
				return "csblob." + n.S
			}
			return n.S
		}
	}
	return "0x" + strconv.FormatUint(i, 16)
}
