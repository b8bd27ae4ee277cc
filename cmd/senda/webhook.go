package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/urfave/cli/v2"
)

var (
	webhook = cli.Command{
		Name:  "webhook",
		Usage: "add or remove webhooks",
		Subcommands: []*cli.Command{
			webhookAddCmd, webhookRemoveCmd,
		},
	}
	listwebhooks = cli.Command{
		Name:  "webhooks",
		Usage: "list all webhooks, optionally filtered by target event",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "event",
				Usage: "one of DEPOSIT_CREATED, SIGNATURE_RECORDED, LOT_RELEASED, LOT_CANCELLED, VAULT_HALTED or * for any",
			},
		},
		Action: listWebhooksAction,
	}

	webhookAddCmd = &cli.Command{
		Name:  "add",
		Usage: "add a (secured) webhook endpoint called whenever a target event occurs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "endpoint",
				Usage:    "the webhook endpoint to be called whenever the target event occurs",
				Required: true,
			},
			&cli.StringFlag{
				Name: "secret",
				Usage: "the eventual secret to use to generate an OAuth token for " +
					"authenticating requests to the webhook endpoint",
			},
			&cli.StringFlag{
				Name:  "event",
				Usage: "one of DEPOSIT_CREATED, SIGNATURE_RECORDED, LOT_RELEASED, LOT_CANCELLED, VAULT_HALTED or * for any",
				Value: "*",
			},
		},
		Action: addWebhookAction,
	}

	webhookRemoveCmd = &cli.Command{
		Name:  "remove",
		Usage: "remove a webhook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "the id of the webhook to remove",
				Required: true,
			},
		},
		Action: removeWebhookAction,
	}
)

func addWebhookAction(ctx *cli.Context) error {
	client, err := getOperatorClient()
	if err != nil {
		return err
	}

	var resp map[string]string
	if err := client.do(
		http.MethodPost, "/v1/operator/webhooks", map[string]string{
			"event":    ctx.String("event"),
			"endpoint": ctx.String("endpoint"),
			"secret":   ctx.String("secret"),
		}, &resp,
	); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("webhook id:", resp["id"])
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	client, err := getOperatorClient()
	if err != nil {
		return err
	}

	hookID := ctx.String("id")
	path := fmt.Sprintf("/v1/operator/webhooks/%s", url.PathEscape(hookID))
	if err := client.do(http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("removed webhook with id:", hookID)
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	client, err := getOperatorClient()
	if err != nil {
		return err
	}

	path := "/v1/operator/webhooks"
	if event := ctx.String("event"); len(event) > 0 {
		path = fmt.Sprintf("%s?event=%s", path, url.QueryEscape(event))
	}

	var resp []interface{}
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
