package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
)

var escrow = cli.Command{
	Name:  "escrow",
	Usage: "open and inspect escrows",
	Subcommands: []*cli.Command{
		{
			Name:  "open",
			Usage: "open, or get if existing, the escrow between a sender and a receiver",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "sender",
					Usage: "the sender key, defaults to the configured key",
				},
				&cli.StringFlag{
					Name:     "receiver",
					Usage:    "the receiver key",
					Required: true,
				},
			},
			Action: openEscrowAction,
		},
		{
			Name:   "info",
			Usage:  "get an escrow by id",
			Flags:  []cli.Flag{escrowIDFlag()},
			Action: getEscrowAction,
		},
		{
			Name:   "list",
			Usage:  "list the escrows where the configured key is a party",
			Action: listEscrowsAction,
		},
		{
			Name:   "vaults",
			Usage:  "show the vaults of an escrow with their pending amounts",
			Flags:  []cli.Flag{escrowIDFlag()},
			Action: getVaultsAction,
		},
	},
}

func escrowIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "escrow",
		Usage:    "the escrow id",
		Required: true,
	}
}

func openEscrowAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	sender := ctx.String("sender")
	if len(sender) <= 0 {
		if sender, err = getPartyKey(); err != nil {
			return err
		}
	}

	var resp map[string]interface{}
	if err := client.do(http.MethodPost, "/v1/escrows", map[string]string{
		"sender":   sender,
		"receiver": ctx.String("receiver"),
	}, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func getEscrowAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	var resp map[string]interface{}
	path := fmt.Sprintf("/v1/escrows/%s", ctx.String("escrow"))
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func listEscrowsAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	key, err := getPartyKey()
	if err != nil {
		return err
	}

	var resp []interface{}
	path := fmt.Sprintf("/v1/parties/%s/escrows", key)
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func getVaultsAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	var resp []interface{}
	path := fmt.Sprintf("/v1/escrows/%s/vaults", ctx.String("escrow"))
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
