package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
)

var (
	balances = cli.Command{
		Name:  "balances",
		Usage: "show the token balances of a party",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "owner",
				Usage: "the party key, defaults to the configured key",
			},
		},
		Action: balancesAction,
	}
	fund = cli.Command{
		Name:  "fund",
		Usage: "credit a party account (operator only)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "owner",
				Usage:    "the party key",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "asset",
				Usage: "USDC or USDT",
				Value: "USDC",
			},
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "the amount to credit, ie. 100",
				Required: true,
			},
		},
		Action: fundAction,
	}
	reconcile = cli.Command{
		Name:  "reconcile",
		Usage: "unhalt a vault whose balance matches its pending lots again (operator only)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "vault",
				Usage:    "the vault id",
				Required: true,
			},
		},
		Action: reconcileAction,
	}
)

func balancesAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	owner := ctx.String("owner")
	if len(owner) <= 0 {
		if owner, err = getPartyKey(); err != nil {
			return err
		}
	}

	var resp []interface{}
	path := fmt.Sprintf("/v1/accounts/%s", owner)
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func fundAction(ctx *cli.Context) error {
	client, err := getOperatorClient()
	if err != nil {
		return err
	}
	amount, err := parseAmount(ctx.String("amount"))
	if err != nil {
		return err
	}

	var resp map[string]interface{}
	if err := client.do(
		http.MethodPost, "/v1/operator/accounts", map[string]interface{}{
			"owner":  ctx.String("owner"),
			"asset":  ctx.String("asset"),
			"amount": amount,
		}, &resp,
	); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func reconcileAction(ctx *cli.Context) error {
	client, err := getOperatorClient()
	if err != nil {
		return err
	}

	var resp map[string]interface{}
	path := fmt.Sprintf("/v1/operator/vaults/%s/reconcile", ctx.String("vault"))
	if err := client.do(http.MethodPost, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
