package core

// World is the root of the in-memory model: domains, roles, trusted peers,
// registered triggers, and runtime-tunable parameters (spec.md §3).
// Domains and roles live in ShardMaps for per-key locking; TrustedPeers is
// a small set guarded the same way keyed by the peer's canonical string.
type World struct {
	Parameters   Metadata
	TrustedPeers *ShardMap[PeerId]
	Domains      *ShardMap[*Domain]
	Roles        *ShardMap[*Role]
	Triggers     *TriggerSet
}

// NewWorld constructs an empty world.
func NewWorld() *World {
	return &World{
		Parameters:   NewMetadata(),
		TrustedPeers: NewShardMap[PeerId](),
		Domains:      NewShardMap[*Domain](),
		Roles:        NewShardMap[*Role](),
		Triggers:     NewTriggerSet(),
	}
}

// Domain returns the domain registered under id, or nil.
func (w *World) Domain(id DomainId) *Domain {
	d, _ := w.Domains.Get(id.String())
	return d
}

// DomainIds lists every registered domain id, lexicographically sorted
// (spec.md §4.7 "stable iteration order derived from entity IDs").
func (w *World) DomainIds() []DomainId {
	out := make([]DomainId, 0, w.Domains.Len())
	w.Domains.Range(func(_ string, d *Domain) bool {
		out = append(out, d.Id)
		return true
	})
	SortByStringer(out)
	return out
}

// Account resolves an AccountId through its owning domain.
func (w *World) Account(id AccountId) *Account {
	d := w.Domain(id.Domain)
	if d == nil {
		return nil
	}
	return d.Account(id)
}

// Asset resolves an AssetId through its owning account.
func (w *World) Asset(id AssetId) *Asset {
	acc := w.Account(id.AccountId)
	if acc == nil {
		return nil
	}
	return acc.Asset(id)
}

// AssetDefinition resolves an AssetDefinitionId through its owning domain.
func (w *World) AssetDefinition(id AssetDefinitionId) *AssetDefinitionEntry {
	d := w.Domain(id.Domain)
	if d == nil {
		return nil
	}
	return d.AssetDefinition(id)
}

// Role returns the role registered under id, or nil.
func (w *World) Role(id RoleId) *Role {
	r, _ := w.Roles.Get(id.String())
	return r
}

// RoleIds lists every registered role id, sorted.
func (w *World) RoleIds() []RoleId {
	out := make([]RoleId, 0, w.Roles.Len())
	w.Roles.Range(func(_ string, r *Role) bool {
		out = append(out, r.Id)
		return true
	})
	SortByStringer(out)
	return out
}

// IsTrustedPeer reports whether id is a member of the trusted peer set.
func (w *World) IsTrustedPeer(id PeerId) bool { return w.TrustedPeers.Has(id.String()) }

// TrustedPeerIds lists every trusted peer id, sorted.
func (w *World) TrustedPeerIds() []PeerId {
	out := make([]PeerId, 0, w.TrustedPeers.Len())
	w.TrustedPeers.Range(func(_ string, p PeerId) bool {
		out = append(out, p)
		return true
	})
	SortByStringer(out)
	return out
}

// registerDomain inserts d, failing Repetition on id collision.
func (w *World) registerDomain(d *Domain) error {
	if _, stored := w.Domains.LoadOrStore(d.Id.String(), d); !stored {
		return errRepetition("Register<Domain>", d.Id.String())
	}
	return nil
}

// unregisterDomain removes id, failing Find if absent.
func (w *World) unregisterDomain(id DomainId) error {
	if !w.Domains.Delete(id.String()) {
		return errFind(FindDomain, id)
	}
	return nil
}

// registerRole inserts r, failing Repetition on id collision.
func (w *World) registerRole(r *Role) error {
	if _, stored := w.Roles.LoadOrStore(r.Id.String(), r); !stored {
		return errRepetition("Register<Role>", r.Id.String())
	}
	return nil
}

// unregisterRole removes id, failing Find if absent. Callers are
// responsible for cascading removal from every account that holds it
// (spec.md §4.4 Unregister<Role>).
func (w *World) unregisterRole(id RoleId) error {
	if !w.Roles.Delete(id.String()) {
		return errFind(FindRole, id)
	}
	return nil
}

// registerPeer inserts id, failing Repetition on collision.
func (w *World) registerPeer(id PeerId) error {
	if _, stored := w.TrustedPeers.LoadOrStore(id.String(), id); !stored {
		return errRepetition("Register<Peer>", id.String())
	}
	return nil
}

// unregisterPeer removes id, failing Find if absent.
func (w *World) unregisterPeer(id PeerId) error {
	if !w.TrustedPeers.Delete(id.String()) {
		return errFind(FindPeer, id)
	}
	return nil
}

// allAccounts iterates every account across every domain, used by
// Unregister<Role>'s cascade.
func (w *World) allAccounts(f func(*Account)) {
	w.Domains.Range(func(_ string, d *Domain) bool {
		for _, aid := range d.AccountIds() {
			if acc := d.Account(aid); acc != nil {
				f(acc)
			}
		}
		return true
	})
}

// AccountHasValidRoles reports whether every role the account holds still
// exists in the world (invariant check helper for §3: "every RoleId inside
// any account exists in world.roles").
func (w *World) AccountHasValidRoles(acc *Account) bool {
	for _, rid := range acc.RoleIds() {
		if w.Role(rid) == nil {
			return false
		}
	}
	return true
}

// PermissionsForAccount collects every permission held directly by acc
// plus every permission granted transitively through its roles (spec.md
// §3: "A role grants every listed permission to every account holding the
// role").
func (w *World) PermissionsForAccount(acc *Account) []Permission {
	seen := make(map[string]Permission)
	for _, p := range acc.PermissionTokens() {
		seen[p.Name] = p
	}
	for _, rid := range acc.RoleIds() {
		if r := w.Role(rid); r != nil {
			for _, p := range r.Permissions {
				seen[p.Name] = p
			}
		}
	}
	out := make([]Permission, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	return out
}
