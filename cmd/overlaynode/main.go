// Command overlaynode runs one node of the overlay mesh: it loads a
// YAML config, builds the crypto envelope, transport, and either a
// SwitchTable (layer2 mode) or RoutingTable (layer3 mode), then drives
// the dispatch loop described in SPEC_FULL.md §3.3. None of this is
// part of the core (pkg/addr, pkg/wire, pkg/crypto/envelope, pkg/layer2,
// pkg/layer3); it is the thin I/O shell spec.md §1 excludes from it.
package main

import "github.com/shadowmesh/shadowmesh/cmd/overlaynode/commands"

func main() {
	commands.Execute()
}
