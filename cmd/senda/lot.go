package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"
)

var (
	deposit = cli.Command{
		Name:  "deposit",
		Usage: "deposit into an escrow vault creating a new lot",
		Flags: []cli.Flag{
			escrowIDFlag(),
			&cli.StringFlag{
				Name:     "counterparty",
				Usage:    "the other party of the escrow",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "asset",
				Usage: "USDC or USDT",
				Value: "USDC",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "who can release the lot: sender_only, receiver_only or dual",
				Value: "dual",
			},
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "the amount to deposit, ie. 12.5",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "expected_index",
				Usage: "fail unless the lot is bound to this discriminator",
			},
		},
		Action: depositAction,
	}
	release = cli.Command{
		Name:  "release",
		Usage: "sign the release of a lot, completing it once authorized",
		Flags:  []cli.Flag{lotIDFlag()},
		Action: releaseAction,
	}
	cancel = cli.Command{
		Name:   "cancel",
		Usage:  "cancel a pending lot, refunding the depositor",
		Flags:  []cli.Flag{lotIDFlag()},
		Action: cancelAction,
	}
	lot = cli.Command{
		Name:   "lot",
		Usage:  "get a lot by id",
		Flags:  []cli.Flag{lotIDFlag()},
		Action: getLotAction,
	}
	lots = cli.Command{
		Name:  "lots",
		Usage: "list the lots of an escrow, newest first",
		Flags: []cli.Flag{
			escrowIDFlag(),
			&cli.StringFlag{
				Name:  "state",
				Usage: "filter by state: pending, completed or cancelled",
			},
			&cli.StringFlag{
				Name:  "party",
				Usage: "filter by depositor or counterparty key",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "the page number, starting from 1",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "the page size, up to 100",
				Value: 10,
			},
		},
		Action: listLotsAction,
	}
)

func lotIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "lot",
		Usage:    "the lot id",
		Required: true,
	}
}

func depositAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	if _, err := getPartyKey(); err != nil {
		return err
	}
	amount, err := parseAmount(ctx.String("amount"))
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"counterparty": ctx.String("counterparty"),
		"asset":        ctx.String("asset"),
		"policy":       ctx.String("policy"),
		"amount":       amount,
	}
	if s := ctx.String("expected_index"); len(s) > 0 {
		index, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid expected index %q", s)
		}
		body["expected_index"] = index
	}

	var resp map[string]interface{}
	path := fmt.Sprintf("/v1/escrows/%s/deposits", ctx.String("escrow"))
	if err := client.do(http.MethodPost, path, body, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func releaseAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	if _, err := getPartyKey(); err != nil {
		return err
	}

	var resp map[string]interface{}
	path := fmt.Sprintf("/v1/lots/%s/release", ctx.String("lot"))
	if err := client.do(http.MethodPost, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func cancelAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	if _, err := getPartyKey(); err != nil {
		return err
	}

	var resp map[string]interface{}
	path := fmt.Sprintf("/v1/lots/%s/cancel", ctx.String("lot"))
	if err := client.do(http.MethodPost, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func getLotAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	var resp map[string]interface{}
	path := fmt.Sprintf("/v1/lots/%s", ctx.String("lot"))
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func listLotsAction(ctx *cli.Context) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if s := ctx.String("state"); len(s) > 0 {
		query.Set("state", s)
	}
	if s := ctx.String("party"); len(s) > 0 {
		query.Set("party", s)
	}
	query.Set("page", strconv.Itoa(ctx.Int("page")))
	query.Set("size", strconv.Itoa(ctx.Int("size")))

	var resp []interface{}
	path := fmt.Sprintf(
		"/v1/escrows/%s/lots?%s", ctx.String("escrow"), query.Encode(),
	)
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
