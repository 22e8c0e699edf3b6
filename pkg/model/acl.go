package model

import "fmt"

// ACL is the permission bitmask of a resource.
type ACL uint8

const (
	// ACLRead allows reading the value.
	ACLRead ACL = 1 << iota

	// ACLWrite allows writing the value.
	ACLWrite

	// ACLExecute allows executing the resource.
	ACLExecute

	// ACLDelete allows deleting the resource.
	ACLDelete

	// ACLCreate allows creating the resource.
	ACLCreate

	// ACLNone grants nothing.
	ACLNone ACL = 0

	// ACLAll grants every permission.
	ACLAll = ACLRead | ACLWrite | ACLExecute | ACLDelete | ACLCreate

	// ACLDefault is applied when a definition does not specify an ACL.
	ACLDefault = ACLRead | ACLWrite | ACLDelete
)

var aclLetters = []struct {
	bit    ACL
	letter byte
}{
	{ACLRead, 'R'},
	{ACLWrite, 'W'},
	{ACLExecute, 'E'},
	{ACLDelete, 'D'},
	{ACLCreate, 'C'},
}

// IsAllowed returns true if every bit of required is set.
func (a ACL) IsAllowed(required ACL) bool { return a&required == required }

// CanRead returns true if reading is allowed.
func (a ACL) CanRead() bool { return a.IsAllowed(ACLRead) }

// CanWrite returns true if writing is allowed.
func (a ACL) CanWrite() bool { return a.IsAllowed(ACLWrite) }

// CanExecute returns true if executing is allowed.
func (a ACL) CanExecute() bool { return a.IsAllowed(ACLExecute) }

// CanDelete returns true if deleting is allowed.
func (a ACL) CanDelete() bool { return a.IsAllowed(ACLDelete) }

// CanCreate returns true if creating is allowed.
func (a ACL) CanCreate() bool { return a.IsAllowed(ACLCreate) }

// String renders the set bits as letters in R, W, E, D, C order.
func (a ACL) String() string {
	var s []byte
	for _, l := range aclLetters {
		if a&l.bit != 0 {
			s = append(s, l.letter)
		}
	}
	return string(s)
}

// ParseACL converts a letter string such as "RWD". Unrecognized letters
// grant Read.
func ParseACL(s string) ACL {
	var a ACL
	for i := 0; i < len(s); i++ {
		matched := false
		for _, l := range aclLetters {
			if s[i] == l.letter || s[i] == l.letter+('a'-'A') {
				a |= l.bit
				matched = true
				break
			}
		}
		if !matched {
			a |= ACLRead
		}
	}
	return a
}

// ACLOf converts an ACL given as numeric mask or letter string. A nil
// value yields ACLDefault.
func ACLOf(v any) (ACL, error) {
	switch a := v.(type) {
	case nil:
		return ACLDefault, nil
	case ACL:
		return a, nil
	case string:
		return ParseACL(a), nil
	}
	n, ok := toInt64(v)
	if !ok || n < 0 || n > int64(ACLAll) {
		return ACLNone, fmt.Errorf("invalid acl %v", v)
	}
	return ACL(n), nil
}
