package unixfs

import (
	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "unixfs",
		Description: "UnixFS block store (badger on disk, or in memory when no directory is set)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "unixfs-dir", Usage: "Badger datastore directory; empty keeps blocks in memory"},
		},
		Open: func(cfg casregistry.Config) (storage.CAS, func() error, error) {
			dir := cfg.Get("unixfs-dir", "")
			if dir == "" {
				return NewMemory(), nil, nil
			}
			c, err := OpenBadger(dir)
			if err != nil {
				return nil, nil, err
			}
			return c, c.Close, nil
		},
	})
}
