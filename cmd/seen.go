package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/matlycreative/seo-prospects/internal/seenset"
	"github.com/matlycreative/seo-prospects/internal/urlutil"
)

var seenList bool

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "Inspect the seen-domain set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("seen"); err != nil {
			return err
		}
		seen, err := seenset.Open(cfg.Pipeline.SeenFile)
		if err != nil {
			return eris.Wrap(err, "open seen set")
		}
		defer seen.Close()

		if seenList {
			for _, d := range seen.Domains() {
				fmt.Println(d)
			}
			return nil
		}
		fmt.Printf("%s: %d domains\n", cfg.Pipeline.SeenFile, seen.Len())
		return nil
	},
}

var seenAddCmd = &cobra.Command{
	Use:   "add <domain-or-url>...",
	Short: "Register domains so they are never prospected again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("seen"); err != nil {
			return err
		}
		seen, err := seenset.Open(cfg.Pipeline.SeenFile)
		if err != nil {
			return eris.Wrap(err, "open seen set")
		}
		defer seen.Close()

		for _, arg := range args {
			domain := urlutil.RegistrableDomain(arg)
			if domain == "" {
				return eris.Errorf("no registrable domain in %q", arg)
			}
			added, err := seen.Add(domain)
			if err != nil {
				return eris.Wrapf(err, "add %s", domain)
			}
			if added {
				fmt.Printf("added %s\n", domain)
			} else {
				fmt.Printf("already present %s\n", domain)
			}
		}
		return nil
	},
}

func init() {
	seenCmd.Flags().BoolVar(&seenList, "list", false, "print every domain instead of the count")
	seenCmd.AddCommand(seenAddCmd)
	rootCmd.AddCommand(seenCmd)
}
