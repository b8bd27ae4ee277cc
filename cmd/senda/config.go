package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
)

var (
	serverFlag = cli.StringFlag{
		Name:  "server",
		Usage: "sendad REST address http(s)://host:port",
		Value: "http://localhost:9945",
	}

	operatorServerFlag = cli.StringFlag{
		Name:  "operator_server",
		Usage: "sendad operator REST address http(s)://host:port",
		Value: "http://localhost:9947",
	}

	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "base58 key of the party using the CLI",
		Value: "",
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the senda CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&serverFlag,
				&operatorServerFlag,
				&keyFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	for key, value := range state {
		fmt.Println(key + ": " + value)
	}
	return nil
}

func configInitAction(c *cli.Context) error {
	return setState(map[string]string{
		"server":          c.String("server"),
		"operator_server": c.String("operator_server"),
		"key":             c.String("key"),
	})
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s %s has been set\n", key, value)
	return nil
}

func getPartyKey() (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	key, ok := state["key"]
	if !ok || len(key) <= 0 {
		return "", errors.New("set party key with `config set key`")
	}
	return key, nil
}
