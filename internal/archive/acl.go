package archive

import (
	"encoding/binary"
	"strconv"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// ACL permission bits and entry tags of the Linux xattr encoding.
const (
	aclPermRead    = 0x4
	aclPermWrite   = 0x2
	aclPermExecute = 0x1

	aclTagUserObj  = 0x01
	aclTagUser     = 0x02
	aclTagGroupObj = 0x04
	aclTagGroup    = 0x08
	aclTagMask     = 0x10
	aclTagOther    = 0x20
)

var aclTagNames = map[uint16]string{
	aclTagUserObj:  "user:",
	aclTagUser:     "user:",
	aclTagGroupObj: "group:",
	aclTagGroup:    "group:",
	aclTagMask:     "mask:",
	aclTagOther:    "other:",
}

// formatLinuxACL converts a Linux ACL from its binary xattr format to the
// POSIX.1e long text format used by the SCHILY.acl PAX records. Named users
// and groups are printed as decimal ids.
func formatLinuxACL(acl []byte) (string, error) {
	if len(acl) < 4 || (len(acl)-4)%8 != 0 {
		return "", errors.New("wrong length")
	}
	if version := binary.LittleEndian.Uint32(acl); version != 2 {
		return "", errors.Errorf("unsupported ACL format version %d", version)
	}

	var text []byte
	for acl = acl[4:]; len(acl) >= 8; acl = acl[8:] {
		tag := binary.LittleEndian.Uint16(acl)
		perm := binary.LittleEndian.Uint16(acl[2:])
		id := binary.LittleEndian.Uint32(acl[4:])

		name, ok := aclTagNames[tag]
		if !ok {
			return "", errors.Errorf("unknown tag %#x", tag)
		}
		text = append(text, name...)
		if tag == aclTagUser || tag == aclTagGroup {
			text = strconv.AppendUint(text, uint64(id), 10)
		}
		text = append(text, ':')
		text = append(text, aclPermText(perm)...)
		text = append(text, '\n')
	}

	return string(text), nil
}

func aclPermText(p uint16) []byte {
	s := []byte("---")
	if p&aclPermRead != 0 {
		s[0] = 'r'
	}
	if p&aclPermWrite != 0 {
		s[1] = 'w'
	}
	if p&aclPermExecute != 0 {
		s[2] = 'x'
	}
	return s
}
