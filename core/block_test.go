package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func genesisBlock(txHash Hash) Block {
	return Block{
		Header: BlockHeader{Height: 1, TimestampMs: 1000},
		Txs:    []Transaction{{Hash: txHash, CreatedAtMs: 1000}},
	}
}

func TestChainAppendRejectsNonGenesisFirstBlock(t *testing.T) {
	c := NewChain()
	b := Block{Header: BlockHeader{Height: 2}}
	err := c.Append(b)
	require.Error(t, err)
}

func TestChainAppendLinksByHeightAndPrevHash(t *testing.T) {
	c := NewChain()
	g := genesisBlock(Hash{1})
	require.NoError(t, c.Append(g))

	next := Block{
		Header: BlockHeader{Height: 2, PrevHash: g.ComputeHash(), TimestampMs: 2000},
		Txs:    []Transaction{{Hash: Hash{2}, CreatedAtMs: 2000}},
	}
	require.NoError(t, c.Append(next))
	require.Equal(t, uint64(2), c.Height())

	got, ok := c.ByHeight(2)
	require.True(t, ok)
	require.Equal(t, next.Header.PrevHash, got.Header.PrevHash)
}

func TestChainAppendRejectsWrongPrevHash(t *testing.T) {
	c := NewChain()
	require.NoError(t, c.Append(genesisBlock(Hash{1})))
	bad := Block{
		Header: BlockHeader{Height: 2, PrevHash: Hash{0xff}},
		Txs:    []Transaction{{Hash: Hash{2}}},
	}
	err := c.Append(bad)
	require.Error(t, err)
}

func TestChainAppendRejectsDecreasingTimestamp(t *testing.T) {
	c := NewChain()
	require.NoError(t, c.Append(genesisBlock(Hash{1})))
	bad := Block{
		Header: BlockHeader{Height: 2, PrevHash: c.blocks[0].ComputeHash(), TimestampMs: 999},
		Txs:    []Transaction{{Hash: Hash{2}}},
	}
	err := c.Append(bad)
	require.Error(t, err)
}

func TestChainAppendRejectsDuplicateTxHash(t *testing.T) {
	c := NewChain()
	txHash := Hash{7}
	require.NoError(t, c.Append(genesisBlock(txHash)))
	dup := Block{
		Header: BlockHeader{Height: 2, PrevHash: c.blocks[0].ComputeHash(), TimestampMs: 2000},
		Txs:    []Transaction{{Hash: txHash}},
	}
	err := c.Append(dup)
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrRepetition, coreErr.Kind)
}

func TestChainHasCommittedTxServedFromCache(t *testing.T) {
	c := NewChain()
	txHash := Hash{9}
	require.NoError(t, c.Append(genesisBlock(txHash)))
	require.True(t, c.HasCommittedTx(txHash))
	require.False(t, c.HasCommittedTx(Hash{0xaa}))
}

func TestChainByHashAndFindTransaction(t *testing.T) {
	c := NewChain()
	txHash := Hash{3}
	g := genesisBlock(txHash)
	require.NoError(t, c.Append(g))

	got, ok := c.ByHash(g.ComputeHash())
	require.True(t, ok)
	require.Equal(t, g.Header.Height, got.Header.Height)

	tx, header, ok := c.FindTransaction(txHash)
	require.True(t, ok)
	require.Equal(t, txHash, tx.Hash)
	require.Equal(t, uint64(1), header.Height)

	_, _, ok = c.FindTransaction(Hash{0xbb})
	require.False(t, ok)
}
