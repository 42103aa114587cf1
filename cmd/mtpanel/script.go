package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mtpanel/internal/panel"
)

var (
	scriptBinary bool
	scriptOutput string
	scriptFile   string
)

var scriptCmd = &cobra.Command{
	Use:   "script [variant]",
	Short: "Show a variant's init script",
	Long: `Print the init script sent during prepare, one entry per line.

--binary prints the compact encoding as a hex dump and --output writes it raw.
--file decodes a previously written encoding instead of a built-in variant.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().BoolVar(&scriptBinary, "binary", false, "Print the binary encoding as hex")
	scriptCmd.Flags().StringVarP(&scriptOutput, "output", "o", "", "Write the binary encoding to a file")
	scriptCmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Decode a binary script file")
	rootCmd.AddCommand(scriptCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	s, err := loadScript(args)
	if err != nil {
		return err
	}

	if scriptBinary || scriptOutput != "" {
		b, err := s.MarshalBinary()
		if err != nil {
			return err
		}
		if scriptOutput != "" {
			if err := os.WriteFile(scriptOutput, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", scriptOutput, err)
			}
		}
		if scriptBinary {
			fmt.Fprint(cmd.OutOrStdout(), hex.Dump(b))
		}
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), s.String())
	return nil
}

func loadScript(args []string) (panel.Script, error) {
	switch {
	case scriptFile != "" && len(args) > 0:
		return nil, fmt.Errorf("give either a variant or --file, not both")
	case scriptFile != "":
		b, err := os.ReadFile(scriptFile)
		if err != nil {
			return nil, err
		}
		return panel.ParseScript(b)
	case len(args) == 1:
		d, err := panel.Lookup(args[0])
		if err != nil {
			return nil, err
		}
		return d.Script, nil
	default:
		return nil, fmt.Errorf("a variant or --file is required")
	}
}
