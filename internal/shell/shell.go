// Package shell implements the line-oriented operator console read from
// stdin by a running node.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"riacoin.node/rcn/internal/node"
	"riacoin.node/rcn/internal/types"
)

const helpText = `Commands:
  send <address> <amount> [fee]   sign, admit and broadcast a transfer
  nft <token_id>                  mint an NFT to this wallet (fee 0.1)
  vote <proposal> <choice>        send a governance vote
  balance [address]               show a balance (default: this wallet)
  status                          show wallet and chain summary
  mine                            mine the pending pool into a block
  chain                           list applied blocks
  peers                           list connected peers
  t | s | b                       quick self-transfer, demo NFT mint, balance
  help                            show this text
  quit                            exit`

// Shell reads commands from in and writes results to out.
type Shell struct {
	node *node.Node
	in   io.Reader
	out  io.Writer
}

// New creates a shell bound to n.
func New(n *node.Node, in io.Reader, out io.Writer) *Shell {
	return &Shell{node: n, in: in, out: out}
}

// Run processes lines until quit, end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Type 'help' for commands.")
	s.prompt()

	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if s.Execute(ctx, scanner.Text()) {
			return nil
		}
		s.prompt()
	}
	return scanner.Err()
}

func (s *Shell) prompt() {
	fmt.Fprint(s.out, "> ")
}

// Execute runs a single command line and reports whether the shell should
// exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "send":
		s.send(ctx, args)
	case "t":
		// self-transfer of 10 RIA paying a fee of 1
		s.report(s.node.Transfer(ctx, s.node.Address(), types.NewAmount(10), types.NewAmount(1)))
	case "nft":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: nft <token_id>")
			return false
		}
		s.report(s.node.MintNFT(ctx, args[0]))
	case "s":
		s.report(s.node.MintNFT(ctx, "Monkey_#88"))
	case "vote":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: vote <proposal> <choice>")
			return false
		}
		s.report(s.node.Vote(ctx, args[0], args[1]))
	case "balance", "b":
		addr := s.node.Address()
		if len(args) > 0 {
			addr = args[0]
		}
		fmt.Fprintf(s.out, "Balance of %s: %s RIA\n", types.ShortAddress(addr), s.node.Ledger().BalanceOf(addr))
		fmt.Fprintf(s.out, "Pending Txs: %d\n", s.node.Ledger().PendingCount())
	case "status":
		st := s.node.Status()
		fmt.Fprintf(s.out, "Address:  %s\n", st.Address)
		fmt.Fprintf(s.out, "Balance:  %s RIA\n", st.Balance)
		fmt.Fprintf(s.out, "Pending:  %d\n", st.Pending)
		fmt.Fprintf(s.out, "Height:   %d\n", st.Height)
		fmt.Fprintf(s.out, "Head:     %s\n", st.HeadHash)
		fmt.Fprintf(s.out, "Peers:    %d\n", st.Peers)
	case "mine":
		block, err := s.node.Mine(ctx)
		switch {
		case block == nil && err == nil:
			fmt.Fprintln(s.out, "Nothing to mine: pending pool is empty")
		case block != nil:
			fmt.Fprintf(s.out, "Mined %s\n", block)
			if err != nil {
				fmt.Fprintf(s.out, "Warning: %v\n", err)
			}
		}
	case "chain":
		for _, b := range s.node.Ledger().Chain() {
			fmt.Fprintln(s.out, b.String())
		}
	case "peers":
		peers := s.node.Peers()
		if len(peers) == 0 {
			fmt.Fprintln(s.out, "No connected peers")
		}
		for _, p := range peers {
			fmt.Fprintf(s.out, "%s (%s)\n", p.ID, p.Source)
		}
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help' for commands.\n", cmd)
	}
	return false
}

func (s *Shell) send(ctx context.Context, args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(s.out, "usage: send <address> <amount> [fee]")
		return
	}
	amount, err := types.ParseAmount(args[1])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid amount: %v\n", err)
		return
	}
	var fee types.Amount
	if len(args) == 3 {
		if fee, err = types.ParseAmount(args[2]); err != nil {
			fmt.Fprintf(s.out, "Invalid fee: %v\n", err)
			return
		}
	}
	s.report(s.node.Transfer(ctx, args[0], amount, fee))
}

func (s *Shell) report(tx *types.Transaction, err error) {
	switch {
	case tx == nil:
		fmt.Fprintf(s.out, "Rejected: %v\n", err)
	case errors.Is(err, node.ErrPublish):
		fmt.Fprintf(s.out, "Admitted %s locally; broadcast failed: %v\n", types.ShortAddress(tx.ID), err)
	default:
		fmt.Fprintf(s.out, "Broadcast transaction %s\n", tx.ID)
	}
}
