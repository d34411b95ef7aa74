/*
Package flowchain is the execution core of a node-graph workflow tool that builds and submits
Solana transactions.

Nodes are commands. Their inputs and outputs travel as dynamically typed values (package
value) that the bridge package converts to and from Go structs. A command that needs a
transaction assembles an instruction bundle and hands it to the execution service, which
fetches a blockhash, checks the fee payer can afford the fee, collects local and remote
signatures over the exact message bytes and submits it.

# Usage

	network := chain.New("https://api.devnet.solana.com")
	engine, err := flowchain.New(network,
		flowchain.WithJournal(memory.NewJournal()),
		flowchain.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		log.Fatal(err)
	}
	outputs, err := engine.Run(ctx, "transfer_sol", "alice", inputs)

Remote signers are keys the engine only knows the public half of. Their signatures are
requested through a ports.SignatureRequester; by default the Engine parks them in a
signing.Hub that a client answers over HTTP (package adapters/http).

# Packages

  - value: the Value union, normalization and the tagged JSON wire codec.
  - bridge: Value to Go struct marshalling, enums and reserved tokens.
  - domain: bundles, keypairs, execution records and the error taxonomy.
  - signing: the signing coordinator and the in-process signature hub.
  - execution: the execution service state machine.
  - command: the command registry and the built-in commands.
  - adapters: Solana RPC, Redis, in-memory and HTTP implementations of the ports.
*/
package flowchain
