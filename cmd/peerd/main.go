// Command peerd is a demonstration CLI driving the WSV core directly: each
// invocation builds a fresh, empty in-process WSV and runs one subcommand
// against it (init applies a genesis block, apply applies a block read
// from a file, query runs a read-only query). There is no persistence, P2P
// transport, or consensus here (spec.md Non-goals) — state lives only for
// the process lifetime, so nothing carries over between invocations.
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"

	"ironwsv/core"
	pkgconfig "ironwsv/pkg/config"
	"ironwsv/pkg/logging"
)

var (
	envName string
	wsv     *core.WSV
	log     *logrus.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "peerd",
		Short: "in-process demo of the WSV block-commit and query engine",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap()
		},
	}
	root.PersistentFlags().StringVar(&envName, "env", "", "environment config overlay (PEERD_ENV)")

	root.AddCommand(initCmd(), applyCmd(), queryCmd())

	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func bootstrap() error {
	cfg, err := pkgconfig.Load(envName)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err = logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logrus.SetLevel(log.Level)
	wsv = core.NewWSV(cfg.ToWSVConfig())
	return nil
}

func initCmd() *cobra.Command {
	var domainName, accountName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "apply a genesis block registering one domain and one account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			did := core.DomainId{Name: core.Name(domainName)}
			aid := core.AccountId{Name: core.Name(accountName), Domain: did}

			tx := core.Transaction{
				Hash:        hashOf("genesis-tx", domainName, accountName),
				AuthorityId: aid,
				Nonce:       nonce(),
				CreatedAtMs: time.Now().UnixMilli(),
				Instructions: []core.Instruction{
					{Kind: core.InstrRegisterDomain, DomainId: did},
					{Kind: core.InstrRegisterAccount, AccountId: aid},
				},
			}
			header := core.BlockHeader{Height: 1, TimestampMs: tx.CreatedAtMs}
			block, err := core.ApplyBlock(wsv, header, []core.Transaction{tx})
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"height": block.Header.Height, "committed": len(block.Txs)}).Info("genesis applied")
			return printJSON(block)
		},
	}
	cmd.Flags().StringVar(&domainName, "domain", "wonderland", "genesis domain name")
	cmd.Flags().StringVar(&accountName, "account", "alice", "genesis account name")
	return cmd
}

func applyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "apply a block whose transactions are read from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var txs []core.Transaction
			if err := json.Unmarshal(raw, &txs); err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}
			header := core.BlockHeader{
				Height:      wsv.Chain.Height() + 1,
				TimestampMs: time.Now().UnixMilli(),
			}
			if prev, ok := wsv.Chain.ByHeight(header.Height - 1); ok {
				header.PrevHash = prev.ComputeHash()
			}
			block, err := core.ApplyBlock(wsv, header, txs)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"height": block.Header.Height, "committed": len(block.Txs), "rejected": len(block.Rejected)}).Info("block applied")
			return printJSON(block)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a JSON array of Transaction")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func queryCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "run a read-only query against the current WSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qk, ok := queryKindByName[kind]
			if !ok {
				return fmt.Errorf("unknown query kind %q", kind)
			}
			result, err := wsv.ExecuteQuery(core.QueryBox{Kind: qk})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "find-all-domains", "query kind, one of: find-all-domains, find-all-accounts, find-all-peers, find-all-blocks")
	return cmd
}

var queryKindByName = map[string]core.QueryKind{
	"find-all-domains":  core.FindAllDomains,
	"find-all-accounts": core.FindAllAccounts,
	"find-all-peers":    core.FindAllPeers,
	"find-all-blocks":   core.FindAllBlocks,
}

// nonce generates a transaction nonce from a random uuid rather than a
// counter, since the demo CLI has no persisted sequence to advance.
func nonce() uint32 {
	id := uuid.New()
	return binary.BigEndian.Uint32(id[:4])
}

func hashOf(parts ...string) core.Hash {
	h := sha3.New256()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	var out core.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
