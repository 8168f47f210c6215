package identity

import (
	"regexp"
	"strings"

	dErrors "medshare/pkg/domain-errors"
)

// Role is the closed set of caller roles. It is resolved once from the
// credential attribute instead of being re-compared as a raw string in every
// authorization rule.
type Role int

const (
	// RoleUnrestricted covers practitioners, researchers and other staff
	// identities. No subject-self restriction applies.
	RoleUnrestricted Role = iota
	// RolePatient may only act on records whose data subject matches the
	// caller's own common name.
	RolePatient
)

// patientAttribute is the credential attribute value marking the restricted role.
const patientAttribute = "patient"

// ParseRole maps the raw credential role attribute onto the closed enum.
// Unknown or empty attributes are unrestricted; only the exact patient
// attribute triggers the subject-self carve-outs.
func ParseRole(attr string) Role {
	if attr == patientAttribute {
		return RolePatient
	}
	return RoleUnrestricted
}

func (r Role) String() string {
	if r == RolePatient {
		return patientAttribute
	}
	return "unrestricted"
}

// Identity is the verified caller assertion for one invocation. It is built
// once by the transport layer from substrate-verified credentials and treated
// as immutable by every rule.
type Identity struct {
	// MSPID is the caller's organization identifier, e.g. "Org1MSP".
	MSPID string
	// Role is resolved from the credential role attribute.
	Role Role
	// EnrollmentID is the full distinguished-name style identity string of
	// the caller, as recorded into asset ownership on create.
	EnrollmentID string
	// CommonName is the CN component extracted from EnrollmentID. Empty when
	// the credential carries no CN; an empty CommonName never matches a data
	// subject, so restricted-role checks fail closed.
	CommonName string
}

// New builds an Identity from the raw credential fields.
func New(mspID, roleAttr, enrollmentID string) Identity {
	return Identity{
		MSPID:        mspID,
		Role:         ParseRole(roleAttr),
		EnrollmentID: enrollmentID,
		CommonName:   ExtractCN(enrollmentID),
	}
}

var cnPattern = regexp.MustCompile(`CN=(.*?),`)

// ExtractCN pulls the common name out of a distinguished-name string. It
// returns the empty string when no `CN=<value>,` component is present.
func ExtractCN(dn string) string {
	m := cnPattern.FindStringSubmatch(dn)
	if m == nil {
		return ""
	}
	return m[1]
}

// OwnerOrg derives the owning organization's MSP identifier from an asset
// owner distinguished name. The O= component's first domain label is
// capitalized and suffixed with "MSP": "O=org1.example.com" yields "Org1MSP".
// Every rule that compares against the owner organization goes through here.
func OwnerOrg(ownerDN string) (string, error) {
	for _, part := range strings.Split(ownerDN, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "O=") {
			continue
		}
		domain := strings.TrimPrefix(part, "O=")
		label := strings.SplitN(domain, ".", 2)[0]
		if label == "" {
			continue
		}
		return strings.ToUpper(label[:1]) + label[1:] + "MSP", nil
	}
	return "", dErrors.New(dErrors.CodeDataError, "owner identity has no O= component: "+ownerDN)
}
