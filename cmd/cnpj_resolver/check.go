package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <cnpj>...",
	Short: "Validate and format CNPJ numbers",
	Long:  "Validates each argument against the CNPJ check-digit algorithm and prints the canonical formatted form. Arguments may be formatted or bare digits. Exits non-zero when any argument is invalid.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	invalid := 0
	for _, arg := range args {
		formatted, err := formatIfBare(arg)
		if err != nil {
			fmt.Fprintf(os.Stdout, "%s\tinvalid\n", arg)
			invalid++
			continue
		}
		fmt.Fprintf(os.Stdout, "%s\tvalid\n", formatted)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d CNPJs are invalid", invalid, len(args))
	}
	return nil
}
