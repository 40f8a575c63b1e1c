package core

import "math/big"

// Fixed is a fixed-point decimal represented as an integer mantissa scaled
// by 10^-Scale, avoiding floating point in consensus-critical arithmetic.
type Fixed struct {
	Mantissa int64
	Scale    uint8
}

func (f Fixed) IsZero() bool { return f.Mantissa == 0 }

// AssetValue is the tagged payload of an Asset: exactly one of Quantity,
// BigQuantity, Fixed, or Store is meaningful, selected by Kind.
type AssetValue struct {
	Kind         AssetValueKind
	Quantity     uint32
	BigQuantity  *big.Int
	FixedVal     Fixed
	Store        MetadataList
}

// IsZero reports whether v is its type's zero value, the trigger for
// dropping an asset from its owning account (spec.md §3, §4.5).
func (v AssetValue) IsZero() bool {
	switch v.Kind {
	case AssetKindQuantity:
		return v.Quantity == 0
	case AssetKindBigQuantity:
		return v.BigQuantity == nil || v.BigQuantity.Sign() == 0
	case AssetKindFixed:
		return v.FixedVal.IsZero()
	case AssetKindStore:
		return len(v.Store) == 0
	default:
		return true
	}
}

// Asset is a single account's holding of an asset definition.
type Asset struct {
	Id    AssetId
	Value AssetValue
}

// ZeroValueFor returns the zero AssetValue for the given kind, used when
// creating an asset on first Mint.
func ZeroValueFor(kind AssetValueKind) AssetValue {
	switch kind {
	case AssetKindQuantity:
		return AssetValue{Kind: AssetKindQuantity, Quantity: 0}
	case AssetKindBigQuantity:
		return AssetValue{Kind: AssetKindBigQuantity, BigQuantity: big.NewInt(0)}
	case AssetKindFixed:
		return AssetValue{Kind: AssetKindFixed, FixedVal: Fixed{}}
	case AssetKindStore:
		return AssetValue{Kind: AssetKindStore, Store: MetadataList{}}
	default:
		return AssetValue{Kind: kind}
	}
}
