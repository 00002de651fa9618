// pmdata inspects and builds paymasterAndData blobs offline: decode a blob
// into its payment instructions, encode a JSON spec into a blob, or compute
// the sponsorship digest a guarantor has to sign.
package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin/binding"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/tokenlane/paymaster"
)

func main() {
	app := &cli.App{
		Name:  "pmdata",
		Usage: "inspect and build ERC-4337 paymaster data",
		Commands: []*cli.Command{
			decodeCommand(),
			encodeCommand(),
			hashCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "decode a paymasterAndData blob",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data", Usage: "0x-prefixed paymasterAndData bytes", Required: true},
			&cli.BoolFlag{Name: "universal", Usage: "decode with the universal engine layout"},
		},
		Action: func(c *cli.Context) error {
			data, err := hexutil.Decode(c.String("data"))
			if err != nil {
				return fmt.Errorf("invalid data hex: %w", err)
			}

			var decoded interface{}
			if c.Bool("universal") {
				decoded, err = paymaster.ParseSponsorData(data)
			} else {
				decoded, err = paymaster.ParsePaymasterData(data)
			}
			if err != nil {
				return err
			}
			return printJSON(decoded)
		},
	}
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "encode a JSON data spec into a paymasterAndData blob",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "spec", Usage: "path to a DataSpec JSON file", Required: true},
		},
		Action: func(c *cli.Context) error {
			spec, err := loadSpec(c.String("spec"))
			if err != nil {
				return err
			}

			pd, err := spec.PaymasterData()
			if err != nil {
				return err
			}
			encoded, err := pd.Encode(common.HexToAddress(spec.Paymaster))
			if err != nil {
				return err
			}

			fmt.Println(hexutil.Encode(encoded))
			return nil
		},
	}
}

func hashCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash",
		Usage: "compute the sponsorship digest a guarantor signs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "spec", Usage: "path to a DataSpec JSON file", Required: true},
			&cli.StringFlag{Name: "op", Usage: "path to a UserOperation JSON file", Required: true},
			&cli.Uint64Flag{Name: "chain-id", Required: true},
		},
		Action: func(c *cli.Context) error {
			spec, err := loadSpec(c.String("spec"))
			if err != nil {
				return err
			}

			opData, err := os.ReadFile(c.String("op"))
			if err != nil {
				return err
			}
			var op paymaster.UserOperation
			if err := json.Unmarshal(opData, &op); err != nil {
				return fmt.Errorf("invalid user operation: %w", err)
			}

			pd, err := spec.PaymasterData()
			if err != nil {
				return err
			}

			digest, err := paymaster.SponsorshipHash(
				&op,
				new(big.Int).SetUint64(c.Uint64("chain-id")),
				common.HexToAddress(spec.Paymaster),
				pd.ValidationGas,
				pd.ValidUntil,
				pd.ValidAfter,
				pd.TokenLimit,
			)
			if err != nil {
				return err
			}

			fmt.Println(digest.Hex())
			return nil
		},
	}
}

// loadSpec reads and validates a DataSpec file with the package's custom
// binding validators.
func loadSpec(path string) (*paymaster.DataSpec, error) {
	if err := paymaster.NewValidator(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec paymaster.DataSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("invalid spec: %w", err)
	}
	if err := binding.Validator.ValidateStruct(&spec); err != nil {
		return nil, fmt.Errorf("spec validation: %w", err)
	}
	return &spec, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
