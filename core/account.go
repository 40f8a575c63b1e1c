package core

import (
	"sort"
	"sync"
)

// Account holds signatories, assets, permission tokens, and roles for a
// single identity within a domain. Mutation goes through the owning
// Domain's lock plus Account's own lock, acquired in that fixed order
// (spec.md §5: world map → domain → account → asset).
type Account struct {
	Id                 AccountId
	mu                 sync.RWMutex
	signatories        map[string]PublicKey
	signatureCondition Expression // evaluated outside the core (pre-core signature validation)
	assets             map[string]*Asset
	permissionTokens   map[string]Permission
	roles              map[string]RoleId
	metadata           Metadata
}

// NewAccount constructs an account owned by its domain, with the given
// initial signatories.
func NewAccount(id AccountId, signatories []PublicKey) *Account {
	a := &Account{
		Id:               id,
		signatories:      make(map[string]PublicKey, len(signatories)),
		assets:           make(map[string]*Asset),
		permissionTokens: make(map[string]Permission),
		roles:            make(map[string]RoleId),
		metadata:         NewMetadata(),
	}
	for _, k := range signatories {
		a.signatories[k.String()] = k
	}
	return a
}

// AccountSnapshot is the immutable, wire-friendly projection of an Account.
type AccountSnapshot struct {
	Id               AccountId
	Signatories      []PublicKey
	Assets           []Asset
	PermissionTokens []Permission
	Roles            []RoleId
	Metadata         MetadataList
}

func (a *Account) Snapshot() AccountSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sigs := make([]PublicKey, 0, len(a.signatories))
	for _, k := range a.signatories {
		sigs = append(sigs, k)
	}
	assets := make([]Asset, 0, len(a.assets))
	for _, as := range a.assets {
		assets = append(assets, *as)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Id.String() < assets[j].Id.String() })
	perms := make([]Permission, 0, len(a.permissionTokens))
	for _, p := range a.permissionTokens {
		perms = append(perms, p)
	}
	roles := make([]RoleId, 0, len(a.roles))
	for _, r := range a.roles {
		roles = append(roles, r)
	}
	SortByStringer(roles)
	return AccountSnapshot{
		Id:               a.Id,
		Signatories:      sigs,
		Assets:           assets,
		PermissionTokens: perms,
		Roles:            roles,
		Metadata:         a.metadata.Clone().ToList(),
	}
}

// HasAssetOfDefinition reports whether a currently holds any asset minted
// from defId, consulted by Domain.unregisterAssetDefinition.
func (a *Account) HasAssetOfDefinition(defId AssetDefinitionId) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, as := range a.assets {
		if as.Id.DefinitionId == defId {
			return true
		}
	}
	return false
}

// Asset returns a copy of the asset held at id, or nil.
func (a *Account) Asset(id AssetId) *Asset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if as, ok := a.assets[id.String()]; ok {
		cp := *as
		return &cp
	}
	return nil
}

// AssetIds lists every asset id held by a, sorted.
func (a *Account) AssetIds() []AssetId {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AssetId, 0, len(a.assets))
	for _, as := range a.assets {
		out = append(out, as.Id)
	}
	SortByStringer(out)
	return out
}

func (a *Account) HasRole(id RoleId) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.roles[id.String()]
	return ok
}

func (a *Account) RoleIds() []RoleId {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]RoleId, 0, len(a.roles))
	for _, r := range a.roles {
		out = append(out, r)
	}
	SortByStringer(out)
	return out
}

func (a *Account) PermissionTokens() []Permission {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Permission, 0, len(a.permissionTokens))
	for _, p := range a.permissionTokens {
		out = append(out, p)
	}
	return out
}

// mutateAsset runs f against the asset at id (creating a zero-valued one
// first if absent and createIfMissing is set), then drops the asset from
// the account if the result is its type's zero value (spec.md §4.5).
func (a *Account) mutateAsset(id AssetId, createIfMissing bool, zero AssetValue, f func(*Asset) error) (created, removed bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := id.String()
	as, exists := a.assets[key]
	if !exists {
		if !createIfMissing {
			return false, false, errFind(FindAsset, id)
		}
		as = &Asset{Id: id, Value: zero}
		created = true
	}
	if err := f(as); err != nil {
		return false, false, err
	}
	if as.Value.IsZero() {
		delete(a.assets, key)
		return created, true, nil
	}
	a.assets[key] = as
	return created, false, nil
}

func (a *Account) grantPermission(p Permission) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := p.Name
	if _, ok := a.permissionTokens[key]; ok {
		return errRepetition("Grant", key)
	}
	a.permissionTokens[key] = p
	return nil
}

func (a *Account) revokePermission(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.permissionTokens[name]; !ok {
		return errValidate("permission not held: " + name)
	}
	delete(a.permissionTokens, name)
	return nil
}

func (a *Account) addRole(id RoleId) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := id.String()
	if _, ok := a.roles[key]; ok {
		return errRepetition("Grant<Role>", key)
	}
	a.roles[key] = id
	return nil
}

// removeRole removes id if present, reporting whether it was present. Used
// both by Revoke<Role> and by Unregister<Role>'s cascade.
func (a *Account) removeRole(id RoleId) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := id.String()
	if _, ok := a.roles[key]; !ok {
		return false
	}
	delete(a.roles, key)
	return true
}

func (a *Account) setMetadata(limits MetadataLimits, key Name, value Value) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metadata.Insert(limits, key, value)
}

func (a *Account) removeMetadata(key Name) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.metadata.Remove(key) {
		return errValidate("metadata key not present")
	}
	return nil
}

func (a *Account) hasSignatory(k PublicKey) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.signatories[k.String()]
	return ok
}
