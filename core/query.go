package core

import (
	"context"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// filterConcurrency bounds how many candidates a single filterAndPage call
// evaluates in flight — the "yield between elements" suspension contract
// (spec.md §5) expressed as a bounded worker pool rather than a hand-rolled
// scheduler. Evaluation order is unaffected: results land back at their
// original index before filtering runs.
const filterConcurrency int64 = 8

// QueryKind tags a QueryBox variant (spec.md Component H).
type QueryKind uint8

const (
	FindAllDomains QueryKind = iota
	FindDomainById
	FindAllAccounts
	FindAccountById
	FindAccountsByDomainId
	FindAssetsByAccountId
	FindAssetById
	FindAllAssetsDefinitions
	FindAssetDefinitionById
	FindAllRoles
	FindRoleById
	FindRolesByAccountId
	FindAllPeers
	FindAllParameters
	FindAllActiveTriggerIds
	FindTriggerById
	FindTransactionByHash
	FindAllTransactions
	FindAllBlocks
	FindBlockByHeight
)

// QueryBox is the closed set of read-only queries the WSV answers. Only the
// id field(s) relevant to Kind are populated.
type QueryBox struct {
	Kind QueryKind

	DomainId          DomainId
	AccountId         AccountId
	AssetId           AssetId
	AssetDefinitionId AssetDefinitionId
	RoleId            RoleId
	TriggerId         TriggerId
	Hash              Hash
	Height            uint64

	Filter     PredicateBox
	Pagination Pagination
}

// PredicateBox optionally narrows a query's results. When Expr is nil every
// result passes. Expr is evaluated once per candidate with the candidate
// bound to the context name "value" — reusing the expression evaluator
// rather than inventing a second predicate language (spec.md §4.1, §4.7).
type PredicateBox struct {
	Expr *Expression
}

// Matches reports whether candidate satisfies p, treating a nil Expr as an
// unconditional match.
func (p PredicateBox) Matches(candidate Value) (bool, error) {
	if p.Expr == nil {
		return true, nil
	}
	ctx := Context{"value": candidate}
	v, err := Evaluate(p.Expr, ctx, nil)
	if err != nil {
		return false, err
	}
	return v.AsBool()
}

// Pagination bounds a query's result window (spec.md §4.7 "stable iteration
// order ... supports pagination"). A zero Pagination returns everything.
type Pagination struct {
	Start    uint32
	HasLimit bool
	Limit    uint32
}

// Apply slices a sorted result set according to p.
func (p Pagination) Apply(values []Value) []Value {
	if int(p.Start) >= len(values) {
		return nil
	}
	values = values[p.Start:]
	if p.HasLimit && int(p.Limit) < len(values) {
		values = values[:p.Limit]
	}
	return values
}

// QueryError wraps a core.Error raised while answering a query, keeping the
// Find/Validate/PermissionDenied taxonomy intact for callers (spec.md §7).
type QueryError struct {
	*Error
}

func newQueryError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return &QueryError{Error: e}
	}
	return &QueryError{Error: &Error{Kind: ErrValidate, Message: err.Error(), Wrapped: err}}
}

// queryCacheKey is the cacheable shape of a QueryBox: every comparable
// identifying field, excluding Filter (an *Expression, not comparable).
// Only filter-less queries are cached — see ExecuteQuery.
type queryCacheKey struct {
	Kind              QueryKind
	DomainId          DomainId
	AccountId         AccountId
	AssetId           AssetId
	AssetDefinitionId AssetDefinitionId
	RoleId            RoleId
	TriggerId         TriggerId
	Hash              Hash
	Height            uint64
	PagStart          uint32
	PagHasLimit       bool
	PagLimit          uint32
}

func cacheKeyFor(q QueryBox) queryCacheKey {
	return queryCacheKey{
		Kind: q.Kind, DomainId: q.DomainId, AccountId: q.AccountId,
		AssetId: q.AssetId, AssetDefinitionId: q.AssetDefinitionId,
		RoleId: q.RoleId, TriggerId: q.TriggerId, Hash: q.Hash, Height: q.Height,
		PagStart: q.Pagination.Start, PagHasLimit: q.Pagination.HasLimit, PagLimit: q.Pagination.Limit,
	}
}

// ExecuteQuery answers a QueryBox against the current world state, applying
// Filter and Pagination to every "FindAll*" variant. It implements
// QueryExecutor so Expression.Query can call it directly (spec.md §4.1,
// Component H).
//
// Filter-less queries are served from a per-query-shape LRU cache,
// invalidated wholesale on every published DataEvent and every committed
// block (wsv.go, commit.go); a query carrying
// a predicate always recomputes, since its Expression isn't a comparable
// cache key.
func (wsv *WSV) ExecuteQuery(q QueryBox) (Value, error) {
	cacheable := q.Filter.Expr == nil
	var key queryCacheKey
	if cacheable {
		key = cacheKeyFor(q)
		if v, ok := wsv.queryCache.Get(key); ok {
			return v, nil
		}
	}
	v, err := wsv.executeQuery(q)
	if err != nil {
		return Value{}, newQueryError(err)
	}
	if cacheable {
		wsv.queryCache.Add(key, v)
	}
	return v, nil
}

func (wsv *WSV) executeQuery(q QueryBox) (Value, error) {
	switch q.Kind {
	case FindAllDomains:
		ids := wsv.World.DomainIds()
		items := make([]Value, 0, len(ids))
		for _, id := range ids {
			d := wsv.World.Domain(id)
			if d == nil {
				continue
			}
			items = append(items, ValueDomain(d.Snapshot()))
		}
		return filterAndPage(items, q)

	case FindDomainById:
		d := wsv.World.Domain(q.DomainId)
		if d == nil {
			return Value{}, errFind(FindDomain, q.DomainId)
		}
		return ValueDomain(d.Snapshot()), nil

	case FindAllAccounts:
		items := make([]Value, 0)
		for _, did := range wsv.World.DomainIds() {
			d := wsv.World.Domain(did)
			for _, aid := range d.AccountIds() {
				if acc := d.Account(aid); acc != nil {
					items = append(items, ValueAccount(acc.Snapshot()))
				}
			}
		}
		return filterAndPage(items, q)

	case FindAccountById:
		acc := wsv.World.Account(q.AccountId)
		if acc == nil {
			return Value{}, errFind(FindAccount, q.AccountId)
		}
		return ValueAccount(acc.Snapshot()), nil

	case FindAccountsByDomainId:
		d := wsv.World.Domain(q.DomainId)
		if d == nil {
			return Value{}, errFind(FindDomain, q.DomainId)
		}
		items := make([]Value, 0)
		for _, aid := range d.AccountIds() {
			if acc := d.Account(aid); acc != nil {
				items = append(items, ValueAccount(acc.Snapshot()))
			}
		}
		return filterAndPage(items, q)

	case FindAssetsByAccountId:
		acc := wsv.World.Account(q.AccountId)
		if acc == nil {
			return Value{}, errFind(FindAccount, q.AccountId)
		}
		items := make([]Value, 0)
		for _, aid := range acc.AssetIds() {
			if as := acc.Asset(aid); as != nil {
				items = append(items, ValueAsset(*as))
			}
		}
		return filterAndPage(items, q)

	case FindAssetById:
		as := wsv.World.Asset(q.AssetId)
		if as == nil {
			return Value{}, errFind(FindAsset, q.AssetId)
		}
		return ValueAsset(*as), nil

	case FindAllAssetsDefinitions:
		items := make([]Value, 0)
		for _, did := range wsv.World.DomainIds() {
			d := wsv.World.Domain(did)
			for _, defId := range d.AssetDefinitionIds() {
				if e := d.AssetDefinition(defId); e != nil {
					items = append(items, ValueAssetDefinitionId(e.Id))
				}
			}
		}
		return filterAndPage(items, q)

	case FindAssetDefinitionById:
		e := wsv.World.AssetDefinition(q.AssetDefinitionId)
		if e == nil {
			return Value{}, errFind(FindAssetDefinition, q.AssetDefinitionId)
		}
		return ValueAssetDefinitionId(e.Id), nil

	case FindAllRoles:
		items := make([]Value, 0)
		for _, id := range wsv.World.RoleIds() {
			if r := wsv.World.Role(id); r != nil {
				items = append(items, ValueRole(*r))
			}
		}
		return filterAndPage(items, q)

	case FindRoleById:
		r := wsv.World.Role(q.RoleId)
		if r == nil {
			return Value{}, errFind(FindRole, q.RoleId)
		}
		return ValueRole(*r), nil

	case FindRolesByAccountId:
		acc := wsv.World.Account(q.AccountId)
		if acc == nil {
			return Value{}, errFind(FindAccount, q.AccountId)
		}
		items := make([]Value, 0)
		for _, rid := range acc.RoleIds() {
			items = append(items, ValueRoleId(rid))
		}
		return filterAndPage(items, q)

	case FindAllPeers:
		items := make([]Value, 0)
		for _, id := range wsv.World.TrustedPeerIds() {
			items = append(items, ValuePeerId(id))
		}
		return filterAndPage(items, q)

	case FindAllParameters:
		items := make([]Value, 0, len(wsv.World.Parameters))
		for _, v := range wsv.World.Parameters {
			items = append(items, v)
		}
		return filterAndPage(items, q)

	case FindAllActiveTriggerIds:
		items := make([]Value, 0)
		for _, id := range wsv.World.Triggers.Ids() {
			items = append(items, ValueTriggerId(id))
		}
		return filterAndPage(items, q)

	case FindTriggerById:
		t := wsv.World.Triggers.Get(q.TriggerId)
		if t == nil {
			return Value{}, errFind(FindTrigger, q.TriggerId)
		}
		return ValueTriggerId(t.Id), nil

	case FindTransactionByHash:
		tx, _, ok := wsv.Chain.FindTransaction(q.Hash)
		if !ok {
			return Value{}, errFind(FindTransaction, q.Hash)
		}
		return ValueHash(tx.Hash), nil

	case FindAllTransactions:
		items := make([]Value, 0)
		for _, b := range wsv.Chain.AllBlocks() {
			for _, tx := range b.Txs {
				items = append(items, ValueHash(tx.Hash))
			}
		}
		return filterAndPage(items, q)

	case FindAllBlocks:
		items := make([]Value, 0)
		for _, b := range wsv.Chain.AllBlocks() {
			items = append(items, ValueHash(b.ComputeHash()))
		}
		return filterAndPage(items, q)

	case FindBlockByHeight:
		b, ok := wsv.Chain.ByHeight(q.Height)
		if !ok {
			return Value{}, errValidate("no block at requested height")
		}
		return ValueHash(b.ComputeHash()), nil

	default:
		return Value{}, errValidate("unknown query kind")
	}
}

func filterAndPage(items []Value, q QueryBox) (Value, error) {
	if q.Filter.Expr == nil {
		return ValueVec(q.Pagination.Apply(items)), nil
	}

	matched := make([]bool, len(items))
	sem := semaphore.NewWeighted(filterConcurrency)
	g, ctx := errgroup.WithContext(context.Background())
	for i, item := range items {
		i, item := i, item
		if err := sem.Acquire(ctx, 1); err != nil {
			return Value{}, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			ok, err := q.Filter.Matches(item)
			if err != nil {
				return err
			}
			matched[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Value{}, err
	}

	out := make([]Value, 0, len(items))
	for i, item := range items {
		if matched[i] {
			out = append(out, item)
		}
	}
	return ValueVec(q.Pagination.Apply(out)), nil
}

// --- wire encoding ---------------------------------------------------------

type queryWire struct {
	Kind              QueryKind
	DomainIdVal       DomainId
	AccountIdVal      AccountId
	AssetIdVal        AssetId
	AssetDefIdVal     AssetDefinitionId
	RoleIdVal         RoleId
	TriggerIdVal      TriggerId
	HashVal           Hash
	HeightVal         uint64
	FilterExpr        []expressionWire
	PaginationStart   uint32
	PaginationHasLim  bool
	PaginationLimit   uint32
}

func (q QueryBox) toWire() queryWire {
	return queryWire{
		Kind:             q.Kind,
		DomainIdVal:      q.DomainId,
		AccountIdVal:     q.AccountId,
		AssetIdVal:       q.AssetId,
		AssetDefIdVal:    q.AssetDefinitionId,
		RoleIdVal:        q.RoleId,
		TriggerIdVal:     q.TriggerId,
		HashVal:          q.Hash,
		HeightVal:        q.Height,
		FilterExpr:       single(q.Filter.Expr),
		PaginationStart:  q.Pagination.Start,
		PaginationHasLim: q.Pagination.HasLimit,
		PaginationLimit:  q.Pagination.Limit,
	}
}

func (w queryWire) fromWire() QueryBox {
	return QueryBox{
		Kind:              w.Kind,
		DomainId:          w.DomainIdVal,
		AccountId:         w.AccountIdVal,
		AssetId:           w.AssetIdVal,
		AssetDefinitionId: w.AssetDefIdVal,
		RoleId:            w.RoleIdVal,
		TriggerId:         w.TriggerIdVal,
		Hash:              w.HashVal,
		Height:            w.HeightVal,
		Filter:            PredicateBox{Expr: fromSingle(w.FilterExpr)},
		Pagination: Pagination{
			Start:    w.PaginationStart,
			HasLimit: w.PaginationHasLim,
			Limit:    w.PaginationLimit,
		},
	}
}

func (q QueryBox) EncodeRLP(w io.Writer) error { return rlp.Encode(w, q.toWire()) }

func (q *QueryBox) DecodeRLP(s *rlp.Stream) error {
	var w queryWire
	if err := s.Decode(&w); err != nil {
		return err
	}
	*q = w.fromWire()
	return nil
}
