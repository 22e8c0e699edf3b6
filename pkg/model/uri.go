package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known object ids.
const (
	ObjectSecurity      uint16 = 0
	ObjectServer        uint16 = 1
	ObjectAccessControl uint16 = 2
	ObjectDevice        uint16 = 3
)

// Security object (0) resource ids.
const (
	SecurityServerURI     uint16 = 0
	SecurityBootstrap     uint16 = 1
	SecurityMode          uint16 = 2
	SecurityIdentity      uint16 = 3
	SecurityServerKey     uint16 = 4
	SecuritySecretKey     uint16 = 5
	SecurityShortServerID uint16 = 10
	SecurityHoldOffTime   uint16 = 11
)

// Security modes stored in SecurityMode.
const (
	SecurityModePSK         int64 = 0
	SecurityModeRPK         int64 = 1
	SecurityModeCertificate int64 = 2
	SecurityModeNone        int64 = 3
)

// Server object (1) resource ids.
const (
	ServerShortServerID uint16 = 0
	ServerLifetime      uint16 = 1
)

// Access Control object (2) resource ids.
const (
	AccessControlObjectID   uint16 = 0
	AccessControlInstanceID uint16 = 1
	AccessControlACL        uint16 = 2
	AccessControlOwner      uint16 = 3
)

// IsDefaultObject returns true for objects every client carries.
func IsDefaultObject(objectID uint16) bool {
	return objectID <= ObjectDevice
}

// URI addresses one resource.
type URI struct {
	ObjectID   uint16
	InstanceID uint16
	ResourceID uint16
}

// String returns "/{objectId}/{instanceId}/{resourceId}".
func (u URI) String() string {
	return fmt.Sprintf("/%d/%d/%d", u.ObjectID, u.InstanceID, u.ResourceID)
}

// ParseURI parses "/{objectId}/{instanceId}/{resourceId}".
func ParseURI(s string) (URI, error) {
	parts := strings.Split(strings.TrimPrefix(s, "/"), "/")
	if len(parts) != 3 {
		return URI{}, BadRequest("invalid resource uri %q", s)
	}
	var ids [3]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return URI{}, BadRequest("invalid resource uri %q", s)
		}
		ids[i] = uint16(n)
	}
	return URI{ObjectID: ids[0], InstanceID: ids[1], ResourceID: ids[2]}, nil
}

// InstancePattern matches every resource of one object instance.
func InstancePattern(objectID, instanceID uint16) string {
	return fmt.Sprintf("^/%d/%d/[0-9]+$", objectID, instanceID)
}

// ObjectPattern matches every resource of one object.
func ObjectPattern(objectID uint16) string {
	return fmt.Sprintf("^/%d/[0-9]+/[0-9]+$", objectID)
}

// ExactPattern matches exactly one URI.
func ExactPattern(u URI) string {
	return "^" + u.String() + "$"
}
