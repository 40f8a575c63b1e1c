package core

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"
)

// txCacheSize bounds the Chain's recently-committed-hash front cache. A miss
// always falls through to the authoritative committedTxHashes map, so the
// cache only needs to be large enough to absorb a block's worth of repeat
// lookups, never correct on its own.
const txCacheSize = 4096

// BlockHeader carries everything needed to link a block to its predecessor
// and to derive its TimeEvent (spec.md §4.3 step 1).
type BlockHeader struct {
	Height                uint64
	PrevHash              Hash
	TimestampMs           int64
	TxCount               uint32
	MerkleRoot            Hash
	ConsensusEstimationMs uint64 // consensus's estimate of block interval, spec.md §3/§4.5
}

// Transaction is a signed batch of instructions executed in order by
// commit.go (spec.md §4.3, §4.4). A failing instruction rejects the
// transaction, but effects of the instructions before it are not rolled
// back. Signature verification itself happens before the core (§7
// GLOSSARY "Signature").
type Transaction struct {
	Hash         Hash
	AuthorityId  AccountId
	Instructions []Instruction
	Nonce        uint32
	CreatedAtMs  int64
}

// Block is a header plus its committed (and, separately, its rejected)
// transactions.
type Block struct {
	Header    BlockHeader
	Txs       []Transaction
	Rejected  []RejectedTransaction
}

// RejectedTransaction records a transaction that failed commit along with
// why, so clients can be told without it occupying a slot in Txs.
type RejectedTransaction struct {
	Hash   Hash
	Reason string
}

// ComputeHash computes the block's content hash over its header fields and
// transaction hashes, used as the next block's PrevHash.
func (b Block) ComputeHash() Hash {
	hasher := sha3.NewLegacyKeccak256()
	enc, _ := rlp.EncodeToBytes(struct {
		Header BlockHeader
		TxHashes []Hash
	}{b.Header, txHashes(b.Txs)})
	hasher.Write(enc)
	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

func txHashes(txs []Transaction) []Hash {
	out := make([]Hash, len(txs))
	for i, tx := range txs {
		out[i] = tx.Hash
	}
	return out
}

// Chain is the append-only, height-ordered sequence of committed blocks.
// Lookups by hash and by height are both O(1); everything is guarded by a
// single mutex since commits are already serialized upstream (spec.md §5:
// "block application is strictly sequential").
type Chain struct {
	mu                sync.RWMutex
	blocks            []Block
	byHash            map[Hash]uint64
	committedTxHashes map[Hash]struct{}
	txCache           *lru.Cache[Hash, struct{}]
}

// NewChain constructs an empty chain.
func NewChain() *Chain {
	cache, _ := lru.New[Hash, struct{}](txCacheSize)
	return &Chain{
		byHash:            make(map[Hash]uint64),
		committedTxHashes: make(map[Hash]struct{}),
		txCache:           cache,
	}
}

// Height returns the height of the most recently appended block, or 0 if
// the chain is empty (genesis is height 1).
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return 0
	}
	return c.blocks[len(c.blocks)-1].Header.Height
}

// Tip returns the most recently appended block's header, zero-valued if the
// chain is empty.
func (c *Chain) Tip() (BlockHeader, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return BlockHeader{}, false
	}
	return c.blocks[len(c.blocks)-1].Header, true
}

// Append adds b to the chain, failing Validate if its height or PrevHash
// does not continue the current tip (spec.md §4.3 step 2).
func (c *Chain) Append(b Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) == 0 {
		if b.Header.Height != 1 {
			return errValidate("genesis block must have height 1")
		}
		if !b.Header.PrevHash.IsZero() {
			return errValidate("genesis block must have zero PrevHash")
		}
	} else {
		tip := c.blocks[len(c.blocks)-1]
		if b.Header.Height != tip.Header.Height+1 {
			return errValidate("block height does not continue the chain")
		}
		if b.Header.PrevHash != tip.ComputeHash() {
			return errValidate("block PrevHash does not match tip hash")
		}
		if b.Header.TimestampMs < tip.Header.TimestampMs {
			return errValidate("block timestamp precedes previous block")
		}
	}
	for _, tx := range b.Txs {
		if _, dup := c.committedTxHashes[tx.Hash]; dup {
			return errRepetition("Transaction", tx.Hash.String())
		}
	}
	for _, tx := range b.Txs {
		c.committedTxHashes[tx.Hash] = struct{}{}
		c.txCache.Add(tx.Hash, struct{}{})
	}
	c.byHash[b.ComputeHash()] = b.Header.Height
	c.blocks = append(c.blocks, b)
	return nil
}

// ByHeight returns the block at height h, or false if out of range.
func (c *Chain) ByHeight(h uint64) (Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if h < 1 || h > uint64(len(c.blocks)) {
		return Block{}, false
	}
	return c.blocks[h-1], true
}

// ByHash returns the block with the given content hash, or false.
func (c *Chain) ByHash(h Hash) (Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	height, ok := c.byHash[h]
	if !ok {
		return Block{}, false
	}
	return c.blocks[height-1], true
}

// HasCommittedTx reports whether txHash has already appeared in a committed
// block (spec.md §4.3 step 2 duplicate-hash check).
func (c *Chain) HasCommittedTx(txHash Hash) bool {
	if c.txCache.Contains(txHash) {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.committedTxHashes[txHash]
	return ok
}

// FindTransaction locates a committed transaction by hash across every
// block, sorted by height for deterministic tie-breaking (there should
// never be ties, since hashes are deduplicated on append).
func (c *Chain) FindTransaction(h Hash) (Transaction, BlockHeader, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	heights := make([]uint64, 0, len(c.blocks))
	for _, b := range c.blocks {
		heights = append(heights, b.Header.Height)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	for _, height := range heights {
		b := c.blocks[height-1]
		for _, tx := range b.Txs {
			if tx.Hash == h {
				return tx, b.Header, true
			}
		}
	}
	return Transaction{}, BlockHeader{}, false
}

// AllBlocks returns every committed block in height order.
func (c *Chain) AllBlocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}
