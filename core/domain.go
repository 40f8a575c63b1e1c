package core

import "sync"

// Domain owns a set of accounts and asset definitions. Mutation always goes
// through WSV.ModifyDomain; the exported accessor methods here only read,
// each taking d.mu for reading itself (spec.md §4.2: "structural accessors
// only").
type Domain struct {
	Id   DomainId
	mu   sync.RWMutex
	logo string // empty means "no logo" (spec.md §3 optional IPFS logo)

	accounts          map[string]*Account
	assetDefinitions  map[string]*AssetDefinitionEntry
	metadata          Metadata
}

// GenesisDomainName is reserved for the domain created while applying the
// genesis block (original_source data_model/src/domain.rs GENESIS_DOMAIN_NAME).
// Register<Domain> rejects this name outside that window.
const GenesisDomainName Name = "genesis"

// NewDomain constructs an empty domain ready for registration into a World.
func NewDomain(id DomainId) *Domain {
	return &Domain{
		Id:               id,
		accounts:         make(map[string]*Account),
		assetDefinitions: make(map[string]*AssetDefinitionEntry),
		metadata:         NewMetadata(),
	}
}

// AssetValueKind enumerates the shapes an Asset.Value can take.
type AssetValueKind uint8

const (
	AssetKindQuantity AssetValueKind = iota
	AssetKindBigQuantity
	AssetKindFixed
	AssetKindStore
)

// Mintability controls whether Mint is accepted against an asset
// definition, and whether it is accepted more than once (spec.md §9
// supplemented "OnceMintable" tracking, grounded on original_source's
// wsv.rs mintability bookkeeping).
type Mintability uint8

const (
	MintableInfinitely Mintability = iota
	MintableOnce
	MintableNot
)

// AssetDefinitionEntry is the domain-owned record of an asset type: its
// value shape, mintability policy, and whether MintableOnce has already
// been consumed.
type AssetDefinitionEntry struct {
	Id         AssetDefinitionId
	ValueKind  AssetValueKind
	Mintable   Mintability
	MintedOnce bool
	Metadata   MetadataList
}

// DomainSnapshot is the immutable, wire-friendly projection of a Domain
// returned by queries and embedded in Value (maps and mutexes cannot be
// RLP-encoded, so the live Domain and its snapshot are distinct types).
type DomainSnapshot struct {
	Id               DomainId
	Logo             string
	Accounts         []AccountId
	AssetDefinitions []AssetDefinitionEntry
	Metadata         MetadataList
}

// Snapshot copies d's current state under a read lock.
func (d *Domain) Snapshot() DomainSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	accs := make([]AccountId, 0, len(d.accounts))
	for _, a := range d.accounts {
		accs = append(accs, a.Id)
	}
	SortByStringer(accs)
	defs := make([]AssetDefinitionEntry, 0, len(d.assetDefinitions))
	for _, def := range d.assetDefinitions {
		defs = append(defs, *def)
	}
	return DomainSnapshot{
		Id:               d.Id,
		Logo:             d.logo,
		Accounts:         accs,
		AssetDefinitions: defs,
		Metadata:         d.metadata.Clone().ToList(),
	}
}

// Account returns the account with the given id, or nil.
func (d *Domain) Account(id AccountId) *Account {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.accounts[id.String()]
}

// AccountIds returns every account id registered in d, lexicographically
// sorted (spec.md §4.7: deterministic iteration order).
func (d *Domain) AccountIds() []AccountId {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]AccountId, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, a.Id)
	}
	SortByStringer(out)
	return out
}

// AssetDefinition returns the asset-definition entry for id, or nil.
func (d *Domain) AssetDefinition(id AssetDefinitionId) *AssetDefinitionEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.assetDefinitions[id.String()]; ok {
		cp := *e
		return &cp
	}
	return nil
}

// AssetDefinitionIds lists every asset-definition id in d, sorted.
func (d *Domain) AssetDefinitionIds() []AssetDefinitionId {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]AssetDefinitionId, 0, len(d.assetDefinitions))
	for _, e := range d.assetDefinitions {
		out = append(out, e.Id)
	}
	SortByStringer(out)
	return out
}

// registerAccount inserts acc, failing Repetition on collision. Caller must
// hold no lock; registerAccount takes d.mu itself (it is always called as
// the sole mutation inside a WSV.ModifyDomain closure).
func (d *Domain) registerAccount(acc *Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := acc.Id.String()
	if _, exists := d.accounts[key]; exists {
		return errRepetition("Register<Account>", key)
	}
	d.accounts[key] = acc
	return nil
}

func (d *Domain) unregisterAccount(id AccountId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := id.String()
	if _, exists := d.accounts[key]; !exists {
		return errFind(FindAccount, id)
	}
	delete(d.accounts, key)
	return nil
}

func (d *Domain) registerAssetDefinition(e *AssetDefinitionEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := e.Id.String()
	if _, exists := d.assetDefinitions[key]; exists {
		return errRepetition("Register<AssetDefinition>", key)
	}
	d.assetDefinitions[key] = e
	return nil
}

// unregisterAssetDefinition removes id, failing ErrRepetition if any
// account in the domain still holds a matching asset (spec.md §9 open
// question, decided: reject rather than cascade).
func (d *Domain) unregisterAssetDefinition(id AssetDefinitionId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := id.String()
	if _, exists := d.assetDefinitions[key]; !exists {
		return errFind(FindAssetDefinition, id)
	}
	for _, acc := range d.accounts {
		if acc.HasAssetOfDefinition(id) {
			return errRepetition("Unregister<AssetDefinition>", key+" (assets remain)")
		}
	}
	delete(d.assetDefinitions, key)
	return nil
}

// markAssetDefinitionMinted flips MintedOnce on the stored entry, enforced
// by Mint against MintableOnce (spec.md §9 supplemented "OnceMintable").
func (d *Domain) markAssetDefinitionMinted(id AssetDefinitionId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.assetDefinitions[id.String()]
	if !ok {
		return errFind(FindAssetDefinition, id)
	}
	e.MintedOnce = true
	return nil
}

func (d *Domain) setMetadata(limits MetadataLimits, key Name, value Value) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metadata.Insert(limits, key, value)
}

func (d *Domain) removeMetadata(key Name) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.metadata.Remove(key) {
		return errValidate("metadata key not present")
	}
	return nil
}

func (d *Domain) setLogo(logo string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logo = logo
}

// ToList converts a live Metadata map into its deterministic wire-safe
// slice form, sorted by key for reproducible encoding.
func (m Metadata) ToList() MetadataList {
	keys := make([]Name, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	SortByStringer(keys)
	out := make(MetadataList, len(keys))
	for i, k := range keys {
		out[i] = MetadataEntry{Key: k, Value: m[k]}
	}
	return out
}

// MetadataEntry is a single key/value pair in a wire-safe MetadataList.
type MetadataEntry struct {
	Key   Name
	Value Value
}

// MetadataList is the RLP-encodable, order-stable projection of a Metadata
// map (maps have no native RLP encoding).
type MetadataList []MetadataEntry

// ToMap reconstructs a live Metadata map from a MetadataList.
func (l MetadataList) ToMap() Metadata {
	m := NewMetadata()
	for _, e := range l {
		m[e.Key] = e.Value
	}
	return m
}
