package commands

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
	"github.com/shadowmesh/shadowmesh/pkg/config"
	"github.com/shadowmesh/shadowmesh/pkg/crypto/envelope"
	"github.com/shadowmesh/shadowmesh/pkg/layer2"
	"github.com/shadowmesh/shadowmesh/pkg/layer3"
	"github.com/shadowmesh/shadowmesh/pkg/logging"
	"github.com/shadowmesh/shadowmesh/pkg/transport"
	"github.com/shadowmesh/shadowmesh/pkg/wire"
)

func runCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a node: listen, decode inbound datagrams, forward by table lookup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return runNode(cfg)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to node config (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}

const maxDatagramSize = 2048

// node bundles the per-process state the dispatch loop reads and
// mutates: one crypto envelope, one transport, and exactly one of the
// two forwarding tables, selected by cfg.Mode. This is the "enclosing
// dispatcher" spec.md §5 says owns table access and is responsible for
// serializing it. Dispatch runs on a single goroutine; in layer2 mode a
// second goroutine runs Housekeep on the switch table, and the tables'
// own locks are the only synchronization between the two.
type node struct {
	cfg          *config.NodeConfig
	log          *logging.Logger
	crypto       *envelope.State
	transport    transport.PacketTransport
	switchTable  *layer2.SwitchTable
	routingTable *layer3.RoutingTable
}

func runNode(cfg *config.NodeConfig) error {
	log, err := logging.NewLogger("overlaynode", logging.ParseLevel(cfg.Logging.Level), cfg.Logging.OutputFile)
	if err != nil {
		return fmt.Errorf("run: logger: %w", err)
	}
	defer log.Close()

	crypto, err := buildCrypto(cfg.Crypto)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	tr, err := buildTransport(cfg.Transport, cfg.Listen)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer tr.Close()

	n := &node{cfg: cfg, log: log, crypto: crypto, transport: tr}

	switch cfg.Mode {
	case "layer2":
		n.switchTable = layer2.NewSwitchTable(time.Duration(cfg.SwitchTableTTL) * time.Second)
		go n.housekeepSwitchTable()
	case "layer3":
		n.routingTable = layer3.NewRoutingTable()
		for _, r := range cfg.Routes {
			rng, err := addr.ParseRange(r.CIDR)
			if err != nil {
				return fmt.Errorf("run: invalid static route %q: %w", r.CIDR, err)
			}
			n.routingTable.Learn(rng, r.Peer)
		}
	default:
		return fmt.Errorf("run: unknown mode %q", cfg.Mode)
	}

	log.Info("overlaynode started", logging.Fields{"listen": cfg.Listen, "mode": cfg.Mode})
	return n.dispatchLoop()
}

func buildCrypto(cc config.CryptoConfig) (*envelope.State, error) {
	method, err := parseMethod(cc.Method)
	if err != nil {
		return nil, err
	}
	if method == envelope.MethodNone {
		return envelope.NewNone(), nil
	}
	return envelope.FromSharedKey(method, cc.Passphrase)
}

func buildTransport(tc config.TransportConfig, listen string) (transport.PacketTransport, error) {
	switch tc.Kind {
	case "udp", "":
		return transport.ListenUDP(listen)
	case "websocket":
		return transport.DialWebSocket(tc.URL)
	default:
		return nil, fmt.Errorf("unknown transport kind %q", tc.Kind)
	}
}

// dispatchLoop is the enclosing system's context loop: decode a
// datagram, learn the sender's address against it, look up the
// destination, forward. It runs until a read error terminates it (a
// closed socket on shutdown).
func (n *node) dispatchLoop() error {
	buf := make([]byte, maxDatagramSize)
	for {
		size, peer, err := n.transport.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("dispatch: read: %w", err)
		}

		plog := n.log.WithPeer(peer.String())

		opts, msg, err := wire.Decode(buf[:size], n.crypto)
		if err != nil {
			plog.Warn("dropped undecodable datagram", logging.Fields{"error": err.Error()})
			continue
		}

		switch m := msg.(type) {
		case wire.DataMessage:
			n.handleData(m.Payload, peer, opts, plog)
		case wire.InitMessage:
			n.handleInit(m, peer, plog)
		case wire.PeersMessage:
			plog.Debug("received peers gossip", logging.Fields{"count": len(m.Peers)})
		case wire.CloseMessage:
			plog.Info("peer closed", nil)
		}
	}
}

func (n *node) handleData(payload []byte, peer net.Addr, opts wire.Options, plog *logging.Logger) {
	if n.switchTable != nil {
		frame, err := layer2.ParseFrame(payload)
		if err != nil {
			plog.Warn("dropped unparseable frame", logging.Fields{"error": err.Error()})
			return
		}
		n.switchTable.Learn(frame.Source, peer.String())
		plog.Debug("learned source address", logging.Fields{"addr": frame.Source.String()})
		if dest, ok := n.switchTable.Lookup(frame.Destination); ok {
			n.forward(dest, plog)
		}
		return
	}

	packet, err := layer3.ParsePacket(payload)
	if err != nil {
		plog.Warn("dropped unparseable packet", logging.Fields{"error": err.Error()})
		return
	}
	hostLen := packet.Source.Len * 8
	if rng, err := addr.NewRange(packet.Source, hostLen); err == nil {
		n.routingTable.Learn(rng, peer.String())
		plog.Debug("learned source range", logging.Fields{"range": rng.String()})
	}
	if dest, ok := n.routingTable.Lookup(packet.Destination); ok {
		n.forward(dest, plog)
	}
}

func (n *node) handleInit(m wire.InitMessage, peer net.Addr, plog *logging.Logger) {
	if n.routingTable == nil {
		return
	}
	for _, r := range m.Ranges {
		n.routingTable.Learn(r, peer.String())
	}
	plog.Info("learned ranges from init", logging.Fields{"count": len(m.Ranges)})
}

// forward is a placeholder for the enclosing system's actual send path
// (re-encoding and handing the datagram to the transport toward dest);
// the core's contribution ends at table lookup. plog is the sending
// peer's logger, not dest, since dest may not be the peer that is
// actually dispatched yet.
func (n *node) forward(dest string, plog *logging.Logger) {
	plog.Debug("would forward to peer", logging.Fields{"dest": dest})
}

func (n *node) housekeepSwitchTable() {
	ttl := time.Duration(n.cfg.SwitchTableTTL) * time.Second
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for range ticker.C {
		removed := n.switchTable.Housekeep()
		if removed > 0 {
			n.log.Debug("housekeeping purged expired switch entries", logging.Fields{"removed": removed})
		}
	}
}
