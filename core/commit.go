package core

import "github.com/sirupsen/logrus"

// ApplyBlock runs the block-commit pipeline: derive the block's TimeEvent,
// drain and fire ExecuteTrigger events queued by the previous block, apply
// every transaction in order, dispatch Time- and Data-filtered triggers,
// append the result to the chain, and update metrics (spec.md §4.3).
//
// A Fatal error aborts the entire block — nothing is appended — since it
// signals a catastrophic inconsistency the caller cannot safely paper over
// (spec.md §7 GLOSSARY "Fatal"). Any other per-transaction error only
// rejects that transaction; the block still commits.
func ApplyBlock(wsv *WSV, header BlockHeader, txs []Transaction) (Block, error) {
	isGenesis := header.Height == 1
	wsv.setApplyingGenesis(isGenesis)
	defer wsv.setApplyingGenesis(false)
	defer wsv.invalidateQueryCache()

	timeEvent := deriveTimeEvent(wsv, header)

	for _, ev := range wsv.World.Triggers.DrainPendingExecuteTriggers() {
		wsv.dispatchExecuteTriggerEvent(ev)
	}

	committed := make([]Transaction, 0, len(txs))
	rejected := make([]RejectedTransaction, 0)

	for _, tx := range txs {
		if wsv.Chain.HasCommittedTx(tx.Hash) {
			rejected = append(rejected, RejectedTransaction{Hash: tx.Hash, Reason: "duplicate transaction hash"})
			wsv.Metrics.observeTxRejected()
			wsv.publishPipeline(PipelineEvent{Kind: PipelineTransactionRejected, Hash: tx.Hash, Reason: "duplicate transaction hash"})
			continue
		}
		if err := applyTransaction(wsv, tx); err != nil {
			if IsFatal(err) {
				logrus.WithFields(logrus.Fields{"height": header.Height, "tx": tx.Hash.String()}).Error("core: fatal error applying block, aborting commit")
				return Block{}, err
			}
			rejected = append(rejected, RejectedTransaction{Hash: tx.Hash, Reason: err.Error()})
			wsv.Metrics.observeTxRejected()
			wsv.publishPipeline(PipelineEvent{Kind: PipelineTransactionRejected, Hash: tx.Hash, Reason: err.Error()})
			continue
		}
		committed = append(committed, tx)
		wsv.Metrics.observeTxCommitted()
		wsv.publishPipeline(PipelineEvent{Kind: PipelineTransactionAccepted, Hash: tx.Hash})
	}

	header.TxCount = uint32(len(committed))
	block := Block{Header: header, Txs: committed, Rejected: rejected}

	wsv.dispatchTimeEvent(timeEvent)

	if err := wsv.Chain.Append(block); err != nil {
		return Block{}, errFatal("append block at height %d: %v", header.Height, err)
	}

	wsv.Events.PublishTime(timeEvent)

	wsv.Metrics.observeBlockCommitted(header.Height)
	wsv.notifyBlock(header.Height)

	return block, nil
}

func applyTransaction(wsv *WSV, tx Transaction) error {
	for _, instr := range tx.Instructions {
		if err := Execute(wsv, tx.AuthorityId, instr); err != nil {
			return err
		}
	}
	return nil
}

func deriveTimeEvent(wsv *WSV, header BlockHeader) TimeEvent {
	prev, hasPrev := wsv.Chain.Tip()
	if !hasPrev {
		return TimeEvent{HasPrev: false, Interval: TimeInterval{SinceMs: 0, LengthMs: header.TimestampMs}}
	}
	return TimeEvent{
		HasPrev:      true,
		PrevInterval: TimeInterval{SinceMs: 0, LengthMs: prev.TimestampMs},
		Interval:     TimeInterval{SinceMs: prev.TimestampMs, LengthMs: header.TimestampMs - prev.TimestampMs},
	}
}

// runTriggerAction executes t's instructions under its technical account
// and decrements its remaining repeat count. WASM executables are outside
// the core's scope (spec.md §1 Non-goals); a trigger carrying one is logged
// and skipped, and still consumes one repeat. A failing trigger never
// aborts the event that fired it (spec.md §4.6).
func (wsv *WSV) runTriggerAction(t *Trigger) {
	defer wsv.World.Triggers.Fire(t.Id)
	if t.Action.Executable.IsWasm() {
		logrus.WithField("trigger", t.Id.String()).Warn("core: WASM trigger executables are unsupported, skipping")
		return
	}
	for _, instr := range t.Action.Executable.Instructions {
		if err := ExecuteFromTrigger(wsv, t.Action.TechnicalAccount, instr); err != nil {
			logrus.WithFields(logrus.Fields{"trigger": t.Id.String(), "error": err}).Warn("core: trigger action failed")
			return
		}
	}
	wsv.Metrics.observeTriggerExecuted()
}

func (wsv *WSV) dispatchDataEvent(e DataEvent) {
	// A data event means world state changed, so cached query results
	// may be stale; drop them before any trigger action can query.
	wsv.invalidateQueryCache()
	for _, t := range wsv.World.Triggers.MatchData(e) {
		wsv.runTriggerAction(t)
	}
}

func (wsv *WSV) dispatchTimeEvent(e TimeEvent) {
	for _, t := range wsv.World.Triggers.MatchTime(e) {
		wsv.runTriggerAction(t)
	}
}

func (wsv *WSV) dispatchExecuteTriggerEvent(e ExecuteTriggerEvent) {
	for _, t := range wsv.World.Triggers.MatchExecuteTrigger(e) {
		wsv.runTriggerAction(t)
	}
}

func (wsv *WSV) dispatchPipelineEvent(e PipelineEvent) {
	for _, t := range wsv.World.Triggers.MatchPipeline(e) {
		wsv.runTriggerAction(t)
	}
}

func (wsv *WSV) publishPipeline(e PipelineEvent) {
	wsv.dispatchPipelineEvent(e)
	wsv.Events.PublishPipeline(e)
}
