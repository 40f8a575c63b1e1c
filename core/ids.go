package core

import (
	"fmt"
	"strings"
)

// DefaultMinNameLength and DefaultMaxNameLength bound every identifier
// component unless a WSVConfig overrides them.
const (
	DefaultMinNameLength = 1
	DefaultMaxNameLength = 128
)

// Name is a length-limited identifier component. Validation against the
// configured limits happens at construction via NewName, never implicitly.
type Name string

// NewName validates s against [min, max] (inclusive) and returns it as a
// Name, or a Validate error.
func NewName(s string, min, max int) (Name, error) {
	if len(s) < min || len(s) > max {
		return "", errValidate(fmt.Sprintf("name %q length %d outside [%d, %d]", s, len(s), min, max))
	}
	if strings.ContainsAny(s, "@#") {
		return "", errValidate(fmt.Sprintf("name %q contains reserved separator", s))
	}
	return Name(s), nil
}

func (n Name) String() string { return string(n) }

// DomainId identifies a domain by its name; domains have no further
// qualification.
type DomainId struct {
	Name Name `json:"name"`
}

func (id DomainId) String() string { return id.Name.String() }

// AccountId identifies an account within a domain, canonical form
// "name@domain".
type AccountId struct {
	Name   Name     `json:"name"`
	Domain DomainId `json:"domain"`
}

func (id AccountId) String() string { return fmt.Sprintf("%s@%s", id.Name, id.Domain) }

// AssetDefinitionId identifies an asset type within a domain, canonical
// form "name#domain".
type AssetDefinitionId struct {
	Name   Name     `json:"name"`
	Domain DomainId `json:"domain"`
}

func (id AssetDefinitionId) String() string { return fmt.Sprintf("%s#%s", id.Name, id.Domain) }

// AssetId identifies a specific holding of an asset definition by a
// specific account, canonical form "def#def_domain#account@account_domain".
type AssetId struct {
	DefinitionId AssetDefinitionId `json:"definition_id"`
	AccountId    AccountId         `json:"account_id"`
}

func (id AssetId) String() string { return fmt.Sprintf("%s#%s", id.DefinitionId, id.AccountId) }

// RoleId identifies a role by name.
type RoleId struct {
	Name Name `json:"name"`
}

func (id RoleId) String() string { return id.Name.String() }

// TriggerId identifies a registered trigger by name.
type TriggerId struct {
	Name Name `json:"name"`
}

func (id TriggerId) String() string { return id.Name.String() }

// PublicKey is a tagged, algorithm-qualified public key. The algorithm tag
// and payload are both opaque to the core: signature verification is a
// pre-core concern (§7, Signature errors originate before the core).
type PublicKey struct {
	Algorithm string `json:"algorithm"`
	Payload   []byte `json:"payload"`
}

func (k PublicKey) String() string { return fmt.Sprintf("%s:%x", k.Algorithm, k.Payload) }

func (k PublicKey) Equal(other PublicKey) bool {
	if k.Algorithm != other.Algorithm || len(k.Payload) != len(other.Payload) {
		return false
	}
	for i := range k.Payload {
		if k.Payload[i] != other.Payload[i] {
			return false
		}
	}
	return true
}

// Hash is a 32-byte digest used for transaction, block, and content
// identity.
type Hash [32]byte

func (h Hash) String() string { return fmt.Sprintf("%x", h[:]) }
func (h Hash) IsZero() bool   { return h == Hash{} }

// PeerId identifies a consensus participant by its network address and
// public key; membership in World.TrustedPeers is blockchain-managed.
type PeerId struct {
	Address   string    `json:"address"`
	PublicKey PublicKey `json:"public_key"`
}

func (id PeerId) String() string { return fmt.Sprintf("%s/%s", id.Address, id.PublicKey) }
