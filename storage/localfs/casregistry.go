package localfs

import (
	"fmt"

	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem CAS (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "localfs-dir", Usage: "LocalFS CAS directory"},
		},
		Open: func(cfg casregistry.Config) (storage.CAS, func() error, error) {
			dir := cfg.Get("localfs-dir", "")
			if dir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			cas, err := New(dir)
			return cas, nil, err
		},
	})
}
