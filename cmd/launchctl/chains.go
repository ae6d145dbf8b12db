package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"liquidityLock/internal/config"
	"liquidityLock/internal/registry"
)

func runChains(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCHAIN ID\tALIASES\tPOOL\tLOOKUP\tROUTER\tFACTORY\tLOCKER")
	for _, p := range reg.Profiles() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Key,
			p.ChainID,
			strings.Join(otherAliases(reg, p), ","),
			poolShape(p),
			p.FactoryLookup,
			p.Router.Hex(),
			p.Factory.Hex(),
			p.Locker.Hex(),
		)
	}
	return w.Flush()
}

func otherAliases(reg *registry.Registry, p registry.ChainProfile) []string {
	var out []string
	for _, alias := range reg.Aliases(p.Key) {
		if alias != p.Key {
			out = append(out, alias)
		}
	}
	return out
}

func poolShape(p registry.ChainProfile) string {
	if p.StableFlag {
		return string(p.PoolKind) + "+flag"
	}
	return string(p.PoolKind)
}
