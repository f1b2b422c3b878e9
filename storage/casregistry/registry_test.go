package casregistry_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"xdao.co/docreg/storage"
	"xdao.co/docreg/storage/casregistry"
	"xdao.co/docreg/storage/localfs"
	_ "xdao.co/docreg/storage/unixfs"
)

func TestRegisterRejectsIncompleteBackends(t *testing.T) {
	require.Error(t, casregistry.Register(casregistry.Backend{}))
	require.Error(t, casregistry.Register(casregistry.Backend{Name: "x", Usage: casregistry.UsageCLI}))
	require.Error(t, casregistry.Register(casregistry.Backend{
		Name:  "localfs",
		Usage: casregistry.UsageCLI,
		Open:  func(casregistry.Config) (storage.CAS, func() error, error) { return nil, nil, nil },
	}), "duplicate name")
}

func TestNamesFilteredByUsage(t *testing.T) {
	names := casregistry.Names(casregistry.UsageDaemon)
	require.Contains(t, names, "localfs")
	require.Contains(t, names, "unixfs")
}

func TestOpenFromFlags(t *testing.T) {
	dir := t.TempDir()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
	require.NoError(t, fs.Parse([]string{"--localfs-dir", dir}))

	cas, _, err := casregistry.OpenFromFlags(fs, "localfs", casregistry.UsageCLI)
	require.NoError(t, err)
	require.IsType(t, &localfs.CAS{}, cas)

	_, _, err = casregistry.OpenFromFlags(fs, "nope", casregistry.UsageCLI)
	require.Error(t, err)
}

func TestOpenWithConfigAppliesDefaults(t *testing.T) {
	_, _, err := casregistry.OpenWithConfig("localfs", casregistry.UsageCLI, nil)
	require.ErrorContains(t, err, "localfs-dir")

	cas, closeFn, err := casregistry.OpenWithConfig("unixfs", casregistry.UsageCLI, map[string]string{})
	require.NoError(t, err)
	require.NotNil(t, cas)
	require.Nil(t, closeFn)
}

func TestConfigGet(t *testing.T) {
	c := casregistry.Config{"a": " v ", "blank": "  "}
	require.Equal(t, "v", c.Get("a", "d"))
	require.Equal(t, "d", c.Get("blank", "d"))
	require.Equal(t, "d", c.Get("missing", "d"))
}
