package core

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
)

// Kind tags the concrete payload carried by a Value. Value is a closed sum
// type: every Kind has exactly one valid payload shape, checked by the As*
// accessors rather than by exposing the payload directly.
type Kind uint8

const (
	KindU32 Kind = iota
	KindU128
	KindFixed
	KindBool
	KindString
	KindName
	KindVec
	KindMetadata
	KindPublicKey
	KindHash
	KindParameter
	KindPermission
	KindDomainId
	KindAccountId
	KindAssetId
	KindAssetDefinitionId
	KindRoleId
	KindTriggerId
	KindPeerId
	KindDomain
	KindAccount
	KindAsset
	KindRole
)

var kindNames = [...]string{
	"U32", "U128", "Fixed", "Bool", "String", "Name", "Vec", "LimitedMetadata",
	"PublicKey", "Hash", "Parameter", "Permission",
	"DomainId", "AccountId", "AssetId", "AssetDefinitionId", "RoleId", "TriggerId", "PeerId",
	"Domain", "Account", "Asset", "Role",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// KV is a single string key/value pair, used wherever a map would otherwise
// appear in a wire-encoded structure (the RLP codec has no native map
// support; spec.md §6 calls for "length-prefixed sequences", which a sorted
// slice of pairs satisfies deterministically).
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Permission is an opaque, validator-defined capability name plus params;
// the catalog itself is out of the core's scope (spec.md §1 Non-goals).
type Permission struct {
	Name   string `json:"name"`
	Params []KV   `json:"params,omitempty"`
}

// Parameter is a single runtime-tunable chain parameter, e.g. the maximum
// number of instructions per transaction.
type Parameter struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Value is the tagged union evaluated by expressions and returned by
// queries. The zero Value is invalid; use the constructors below.
type Value struct {
	kind    Kind
	payload interface{}
}

func ValueU32(v uint32) Value      { return Value{kind: KindU32, payload: v} }
func ValueU128(v *big.Int) Value   { return Value{kind: KindU128, payload: new(big.Int).Set(v)} }
func ValueFixed(v Fixed) Value     { return Value{kind: KindFixed, payload: v} }
func ValueBool(v bool) Value       { return Value{kind: KindBool, payload: v} }
func ValueString(v string) Value   { return Value{kind: KindString, payload: v} }
func ValueName(v Name) Value       { return Value{kind: KindName, payload: v} }
func ValueVec(v []Value) Value     { return Value{kind: KindVec, payload: v} }
func ValueMetadata(v Metadata) Value { return Value{kind: KindMetadata, payload: v} }
func ValuePublicKey(v PublicKey) Value { return Value{kind: KindPublicKey, payload: v} }
func ValueHash(v Hash) Value       { return Value{kind: KindHash, payload: v} }
func ValueParameter(v Parameter) Value { return Value{kind: KindParameter, payload: v} }
func ValuePermission(v Permission) Value { return Value{kind: KindPermission, payload: v} }
func ValueDomainId(v DomainId) Value { return Value{kind: KindDomainId, payload: v} }
func ValueAccountId(v AccountId) Value { return Value{kind: KindAccountId, payload: v} }
func ValueAssetId(v AssetId) Value { return Value{kind: KindAssetId, payload: v} }
func ValueAssetDefinitionId(v AssetDefinitionId) Value {
	return Value{kind: KindAssetDefinitionId, payload: v}
}
func ValueRoleId(v RoleId) Value       { return Value{kind: KindRoleId, payload: v} }
func ValueTriggerId(v TriggerId) Value { return Value{kind: KindTriggerId, payload: v} }
func ValuePeerId(v PeerId) Value       { return Value{kind: KindPeerId, payload: v} }
func ValueDomain(v DomainSnapshot) Value   { return Value{kind: KindDomain, payload: v} }
func ValueAccount(v AccountSnapshot) Value { return Value{kind: KindAccount, payload: v} }
func ValueAsset(v Asset) Value             { return Value{kind: KindAsset, payload: v} }
func ValueRole(v Role) Value               { return Value{kind: KindRole, payload: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsU32() (uint32, error) {
	if v.kind != KindU32 {
		return 0, errType(fmt.Sprintf("expected U32, got %s", v.kind))
	}
	return v.payload.(uint32), nil
}

func (v Value) AsU128() (*big.Int, error) {
	if v.kind != KindU128 {
		return nil, errType(fmt.Sprintf("expected U128, got %s", v.kind))
	}
	return v.payload.(*big.Int), nil
}

func (v Value) AsFixed() (Fixed, error) {
	if v.kind != KindFixed {
		return Fixed{}, errType(fmt.Sprintf("expected Fixed, got %s", v.kind))
	}
	return v.payload.(Fixed), nil
}

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, errType(fmt.Sprintf("expected Bool, got %s", v.kind))
	}
	return v.payload.(bool), nil
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", errType(fmt.Sprintf("expected String, got %s", v.kind))
	}
	return v.payload.(string), nil
}

func (v Value) AsVec() ([]Value, error) {
	if v.kind != KindVec {
		return nil, errType(fmt.Sprintf("expected Vec, got %s", v.kind))
	}
	return v.payload.([]Value), nil
}

func (v Value) AsName() (Name, error) {
	if v.kind != KindName {
		return "", errType(fmt.Sprintf("expected Name, got %s", v.kind))
	}
	return v.payload.(Name), nil
}

func (v Value) AsMetadata() (Metadata, error) {
	if v.kind != KindMetadata {
		return nil, errType(fmt.Sprintf("expected LimitedMetadata, got %s", v.kind))
	}
	return v.payload.(Metadata), nil
}

func (v Value) AsAccountId() (AccountId, error) {
	if v.kind != KindAccountId {
		return AccountId{}, errType(fmt.Sprintf("expected AccountId, got %s", v.kind))
	}
	return v.payload.(AccountId), nil
}

func (v Value) AsAssetId() (AssetId, error) {
	if v.kind != KindAssetId {
		return AssetId{}, errType(fmt.Sprintf("expected AssetId, got %s", v.kind))
	}
	return v.payload.(AssetId), nil
}

func (v Value) AsAssetDefinitionId() (AssetDefinitionId, error) {
	if v.kind != KindAssetDefinitionId {
		return AssetDefinitionId{}, errType(fmt.Sprintf("expected AssetDefinitionId, got %s", v.kind))
	}
	return v.payload.(AssetDefinitionId), nil
}

func (v Value) AsDomainId() (DomainId, error) {
	if v.kind != KindDomainId {
		return DomainId{}, errType(fmt.Sprintf("expected DomainId, got %s", v.kind))
	}
	return v.payload.(DomainId), nil
}

func (v Value) AsAsset() (Asset, error) {
	if v.kind != KindAsset {
		return Asset{}, errType(fmt.Sprintf("expected Asset, got %s", v.kind))
	}
	return v.payload.(Asset), nil
}

func (v Value) AsAccount() (AccountSnapshot, error) {
	if v.kind != KindAccount {
		return AccountSnapshot{}, errType(fmt.Sprintf("expected Account, got %s", v.kind))
	}
	return v.payload.(AccountSnapshot), nil
}

// Raw returns the untyped payload for codec and generic-display purposes
// only; evaluator and executor code must go through the typed As* methods.
func (v Value) Raw() interface{} { return v.payload }

// Equal implements structural equality over Value as required by the
// evaluator's Equal expression (spec.md §4.1).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindU128:
		a, _ := v.payload.(*big.Int)
		b, _ := other.payload.(*big.Int)
		if a == nil || b == nil {
			return a == b
		}
		return a.Cmp(b) == 0
	case KindVec:
		av := v.payload.([]Value)
		bv := other.payload.([]Value)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(v.payload, other.payload)
	}
}

// LessId is a total order over identifiers' canonical string forms, the
// same order SortByStringer applies. The query engine sorts through
// SortByStringer and does not call LessId.
func LessId(a, b fmt.Stringer) bool { return a.String() < b.String() }

// SortByStringer sorts ids in place by their canonical string form.
func SortByStringer[T fmt.Stringer](ids []T) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
