package ipfs

import (
	"strconv"

	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Kubo CLI (ipfs add/cat against a local repo)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "ipfs-bin", Default: "ipfs", Usage: "Path to the Kubo binary"},
			{Key: "ipfs-path", Usage: "IPFS_PATH for the Kubo repo; empty uses the environment"},
			{Key: "ipfs-offline", Default: "true", Usage: "Run Kubo commands with --offline"},
			{Key: "ipfs-pin", Default: "true", Usage: "Pin added payloads"},
		},
		Open: func(cfg casregistry.Config) (storage.CAS, func() error, error) {
			offline, err := strconv.ParseBool(cfg.Get("ipfs-offline", "true"))
			if err != nil {
				return nil, nil, err
			}
			pin, err := strconv.ParseBool(cfg.Get("ipfs-pin", "true"))
			if err != nil {
				return nil, nil, err
			}
			return New(Options{
				Bin:     cfg.Get("ipfs-bin", "ipfs"),
				Env:     WithRepo(cfg.Get("ipfs-path", "")),
				Offline: offline,
				Pin:     pin,
			}), nil, nil
		},
	})
}
