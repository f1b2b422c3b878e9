package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type cli struct {
	t      *testing.T
	global []string
}

func newCLI(t *testing.T) cli {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "docreg.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
registry:
  backend: ledger
  ledger_dir: `+filepath.Join(dir, "ledger")+`
storage:
  backends:
    - name: localfs
      config: {localfs-dir: `+filepath.Join(dir, "blocks")+`}
retry: {max_retries: 0}
log: {level: error}
`), 0o600))
	return cli{t: t, global: []string{"--config", cfg, "--keys-dir", filepath.Join(dir, "keys")}}
}

func (c cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	code := run(append(append([]string(nil), args...), c.global...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func field(out, name string) string {
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, name+": "); ok {
			return v
		}
	}
	return ""
}

func TestUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 2, run(nil, &out, &errOut))
	require.Contains(t, errOut.String(), "Usage:")
	require.Equal(t, 2, run([]string{"nope"}, &out, &errOut))
	require.Equal(t, 0, run([]string{"help"}, &out, &errOut))
}

func TestDigestAndCID(t *testing.T) {
	p := writeFile(t, "hello")
	var out, errOut bytes.Buffer
	require.Equal(t, 0, run([]string{"digest", p}, &out, &errOut))
	require.Equal(t, "0x2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824\n", out.String())

	out.Reset()
	require.Equal(t, 0, run([]string{"cid", p}, &out, &errOut))
	require.Equal(t, "bafkreibm6jg3ux5qumhcn2b3flc3tyu6dmlb4xa7u5bf44yegnrjhc4yeq\n", out.String())
}

func TestKeyCommands(t *testing.T) {
	c := newCLI(t)
	code, out, errOut := c.run("key", "init", "--name", "alice")
	require.Equal(t, 0, code, errOut)
	addr := field(out, "Created identity")
	require.True(t, strings.HasPrefix(addr, "0x"))

	code, out, _ = c.run("key", "address", "--name", "alice")
	require.Equal(t, 0, code)
	require.Equal(t, addr+"\n", out)

	code, _, _ = c.run("key", "init", "--name", "alice")
	require.Equal(t, 1, code)

	code, _, errOut = c.run("key", "derive", "--from", "alice", "--role", "notary")
	require.Equal(t, 0, code, errOut)

	code, out, _ = c.run("key", "list")
	require.Equal(t, 0, code)
	require.Contains(t, out, "alice\t"+addr+"\troles=notary")
}

func TestRegisterVerifyDownloadList(t *testing.T) {
	c := newCLI(t)
	code, _, errOut := c.run("key", "init", "--name", "alice")
	require.Equal(t, 0, code, errOut)
	code, _, errOut = c.run("key", "init", "--name", "bob")
	require.Equal(t, 0, code, errOut)

	doc := writeFile(t, "lease agreement")
	code, out, errOut := c.run("register", doc, "--secret", "k1", "--password", "pw", "--signer", "alice")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "1", field(out, "Document"))
	require.Equal(t, "true", field(out, "Encrypted"))
	id := field(out, "Identifier")

	code, _, errOut = c.run("register", doc, "--secret", "k2", "--signer", "bob")
	require.Equal(t, 3, code, errOut)
	require.Contains(t, errOut, "Duplicate")

	code, out, errOut = c.run("verify", doc, "--secret", "k1")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Verified")

	code, _, _ = c.run("verify", doc, "--secret", "k2")
	require.Equal(t, 5, code)
	code, _, _ = c.run("verify", writeFile(t, "other"), "--secret", "k1")
	require.Equal(t, 4, code)

	code, _, errOut = c.run("verify-cid", id, "--secret", "k1")
	require.Equal(t, 0, code, errOut)

	outPath := filepath.Join(t.TempDir(), "out.txt")
	code, _, errOut = c.run("download", id, "--password", "pw", "--out", outPath)
	require.Equal(t, 0, code, errOut)
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "lease agreement", string(got))

	code, _, _ = c.run("download", id, "--password", "nope")
	require.Equal(t, 6, code)

	code, out, errOut = c.run("list", "--signer", "alice")
	require.Equal(t, 0, code, errOut)
	require.True(t, strings.HasPrefix(out, "1\t"+id+"\tencrypted=true"))
}

func TestMetricsFile(t *testing.T) {
	c := newCLI(t)
	metrics := filepath.Join(t.TempDir(), "docreg.prom")
	code, _, errOut := c.run("verify", writeFile(t, "unknown"), "--secret", "k", "--metrics-file", metrics)
	require.Equal(t, 4, code, errOut)

	b, err := os.ReadFile(metrics)
	require.NoError(t, err)
	require.Contains(t, string(b), `docreg_flow_total{flow="verify-file",outcome="NotRegistered"} 1`)
}

func TestExportImport(t *testing.T) {
	c := newCLI(t)
	code, _, errOut := c.run("key", "init", "--name", "alice")
	require.Equal(t, 0, code, errOut)

	code, out, errOut := c.run("register", writeFile(t, "deed"), "--secret", "k", "--signer", "alice")
	require.Equal(t, 0, code, errOut)
	id := field(out, "Identifier")

	tarPath := filepath.Join(t.TempDir(), "docs.tar")
	code, out, errOut = c.run("export", "--signer", "alice", "--out", tarPath)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Exported 1 documents")

	code, out, errOut = c.run("import", tarPath)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, id+"\n", out)

	code, _, _ = c.run("export", "--signer", "alice")
	require.Equal(t, 2, code)
}
