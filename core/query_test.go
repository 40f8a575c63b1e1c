package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindAllDomainsAndAccounts(t *testing.T) {
	wsv := newTestWSV()
	mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	mustRegisterDomainAndAccount(t, wsv, "looking-glass", "humpty")

	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAllDomains})
	require.NoError(t, err)
	domains, err := v.AsVec()
	require.NoError(t, err)
	require.Len(t, domains, 2)

	v, err = wsv.ExecuteQuery(QueryBox{Kind: FindAllAccounts})
	require.NoError(t, err)
	accounts, err := v.AsVec()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
}

func TestFindDomainByIdMissingIsFindError(t *testing.T) {
	wsv := newTestWSV()
	_, err := wsv.ExecuteQuery(QueryBox{Kind: FindDomainById, DomainId: DomainId{Name: "nope"}})
	require.Error(t, err)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	require.Equal(t, ErrFind, qerr.Kind)
}

func TestPaginationApplyWindowsResults(t *testing.T) {
	wsv := newTestWSV()
	for _, name := range []string{"a", "b", "c", "d"} {
		mustRegisterDomainAndAccount(t, wsv, name, "owner")
	}
	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAllDomains, Pagination: Pagination{Start: 1, HasLimit: true, Limit: 2}})
	require.NoError(t, err)
	items, err := v.AsVec()
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestFilterNarrowsFindAllDomains(t *testing.T) {
	wsv := newTestWSV()
	mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	mustRegisterDomainAndAccount(t, wsv, "looking-glass", "humpty")

	predicate := &Expression{
		Kind:  ExprEqual,
		Left:  &Expression{Kind: ExprContextValue, Name: "value"},
		Right: &Expression{Kind: ExprContextValue, Name: "value"},
	}
	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAllDomains, Filter: PredicateBox{Expr: predicate}})
	require.NoError(t, err)
	items, err := v.AsVec()
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestQueryCacheServesRepeatedFilterlessQuery(t *testing.T) {
	wsv := newTestWSV()
	mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")

	q := QueryBox{Kind: FindAllDomains}
	v1, err := wsv.ExecuteQuery(q)
	require.NoError(t, err)

	// Mutate world state directly without publishing a DataEvent, bypassing
	// cache invalidation (which happens on DataEvents and on ApplyBlock) to
	// prove the second call is served from cache.
	require.NoError(t, wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
		return nil, w.registerDomain(NewDomain(DomainId{Name: "looking-glass"}))
	}))

	v2, err := wsv.ExecuteQuery(q)
	require.NoError(t, err)
	items1, _ := v1.AsVec()
	items2, _ := v2.AsVec()
	require.Equal(t, len(items1), len(items2))

	wsv.invalidateQueryCache()
	v3, err := wsv.ExecuteQuery(q)
	require.NoError(t, err)
	items3, _ := v3.AsVec()
	require.Equal(t, len(items1)+1, len(items3))
}

func TestPredicateBoxMatchesNilExprAlwaysTrue(t *testing.T) {
	p := PredicateBox{}
	ok, err := p.Matches(ValueU32(1))
	require.NoError(t, err)
	require.True(t, ok)
}
