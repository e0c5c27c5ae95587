package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
	"github.com/shadowmesh/shadowmesh/pkg/config"
	"github.com/shadowmesh/shadowmesh/pkg/layer3"
)

func routeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Manage and inspect the static routes a config file would seed",
	}
	cmd.AddCommand(routeAddCmd())
	cmd.AddCommand(routeListCmd())
	cmd.AddCommand(routeLookupCmd())
	return cmd
}

// routeAddCmd appends a static {cidr, peer} route to a config file's
// routes block and rewrites it via config.WriteConfigFile. An existing
// entry with the same cidr has its peer replaced instead. The cidr is
// validated against addr.ParseRange before it is persisted so a typo
// fails here instead of at the next `run`.
func routeAddCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "add <cidr> <peer>",
		Short: "Add a static route to a config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cidr, peer := args[0], args[1]
			if _, err := addr.ParseRange(cidr); err != nil {
				return fmt.Errorf("route: invalid cidr %q: %w", cidr, err)
			}

			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("route: %w", err)
			}
			for i, r := range cfg.Routes {
				if r.CIDR == cidr {
					cfg.Routes[i].Peer = peer
					if err := config.WriteConfigFile(cfg, cfgPath); err != nil {
						return fmt.Errorf("route: %w", err)
					}
					fmt.Printf("updated %s -> %s\n", cidr, peer)
					return nil
				}
			}
			cfg.Routes = append(cfg.Routes, config.RouteConfig{CIDR: cidr, Peer: peer})
			if err := config.WriteConfigFile(cfg, cfgPath); err != nil {
				return fmt.Errorf("route: %w", err)
			}
			fmt.Printf("added %s -> %s\n", cidr, peer)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to node config (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}

// buildRoutingTable loads cfg.Routes into a fresh RoutingTable, the same
// static seeding cmd/overlaynode run performs at startup before any
// peer Init message is ever decoded.
func buildRoutingTable(cfgPath string) (*layer3.RoutingTable, *config.NodeConfig, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("route: %w", err)
	}
	table := layer3.NewRoutingTable()
	for _, r := range cfg.Routes {
		rng, err := addr.ParseRange(r.CIDR)
		if err != nil {
			return nil, nil, fmt.Errorf("route: invalid cidr %q: %w", r.CIDR, err)
		}
		table.Learn(rng, r.Peer)
	}
	return table, cfg, nil
}

func routeListCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the static routes configured in a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := buildRoutingTable(cfgPath)
			if err != nil {
				return err
			}
			for _, r := range cfg.Routes {
				fmt.Printf("%s -> %s\n", r.CIDR, r.Peer)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to node config (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func routeLookupCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "lookup <address>",
		Short: "Print the longest-prefix-match peer for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, _, err := buildRoutingTable(cfgPath)
			if err != nil {
				return err
			}
			a, err := addr.Parse(args[0])
			if err != nil {
				return fmt.Errorf("route: %w", err)
			}
			peer, ok := table.Lookup(a)
			if !ok {
				fmt.Println("no match")
				return nil
			}
			fmt.Println(peer)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to node config (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}
