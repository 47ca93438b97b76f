package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/immutag/internal/wallet"
)

const (
	testIdentity = "1LrTstQYNZj8wCvBgipJqL9zghsofpsHEG"
	testXpriv    = "xprv9s21ZrQH143K3GJpoapnV8SFfukcVBSfeCficPSGfubmSFDxo1kuHnLisriDvSnRRuL2Qrg5ggqHKNVpxR86QEC8w35uxmGoggxtQTPvfUu"

	testMnemonic = "certain dust pave crane renew multiply stone stuff proud flee fancy knee"
	testDerived  = "xprv9s21ZrQH143K29TJGFSiEAAQM8SMBH2V6x5Aaf9bqvXftrs1v274STWWKfz8svukBLGEQgWqkgRhpt2CNFY89CFaqdsA3gicZeqexk2itxf"
)

// fakeRepos records repositories without running git.
type fakeRepos struct {
	repos map[string]bool
}

func (f *fakeRepos) InitRepository(path string) error {
	f.repos[path] = true
	return nil
}

func (f *fakeRepos) IsRepository(path string) bool {
	return f.repos[path]
}

// cliEnv runs commands against one project directory. Repositories
// created through it persist across runs.
type cliEnv struct {
	t       *testing.T
	project string
	repos   *fakeRepos
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return &cliEnv{t: t, project: t.TempDir(), repos: &fakeRepos{repos: map[string]bool{}}}
}

func (e *cliEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	cmd := newRootCommand(&RootOptions{repos: e.repos})
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--project", e.project}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run(args...)
	require.NoError(e.t, err, "immutag %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), out, errOut)
	return out
}

func (e *cliEnv) registry() string {
	return filepath.Join(e.project, ".immutag", "Immutag")
}

func (e *cliEnv) metadata(identity string) string {
	return filepath.Join(e.project, ".immutag", identity, "metadata")
}

func (e *cliEnv) read(path string) string {
	e.t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(e.t, err)
	return string(data)
}

func (e *cliEnv) setup() {
	e.t.Helper()
	e.mustRun("init")
	e.mustRun("filesys", "import", testIdentity, "--xpriv", testXpriv)
	e.mustRun("file", "init", "--identity", testIdentity, "--name", "NAME", "--author", "AUTHOR")
}

func TestInit(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("init")
	assert.Contains(t, out, "✓ Initialized registry at "+env.registry())
	assert.Equal(t, "['about']\nversion = \"0.1.0\"\n", env.read(env.registry()))

	_, _, err := env.run("init")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env.mustRun("init", "--force", "--version", "1.0.0")
	assert.Equal(t, "['about']\nversion = \"1.0.0\"\n", env.read(env.registry()))
}

func TestInit_PathArgument(t *testing.T) {
	env := newCLIEnv(t)
	other := t.TempDir()

	env.mustRun("init", other)
	_, err := os.Stat(filepath.Join(other, ".immutag", "Immutag"))
	require.NoError(t, err)
	_, err = os.Stat(env.registry())
	assert.True(t, os.IsNotExist(err))
}

func TestFilesys_ImportAndShow(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init")

	out := env.mustRun("filesys", "import", testIdentity, "--xpriv", testXpriv)
	assert.Contains(t, out, "✓ Imported "+testIdentity)
	assert.True(t, env.repos.IsRepository(filepath.Join(env.project, ".immutag", testIdentity)))

	env.mustRun("filesys", "import", "derived", "--mnemonic", testMnemonic)
	assert.Equal(t, testDerived+"\n", env.mustRun("filesys", "show", "derived"))

	want := "['about']\nversion = \"0.1.0\"\n" +
		"\n['" + testIdentity + "']\nxpriv = \"" + testXpriv + "\"\n" +
		"\n['derived']\nxpriv = \"" + testDerived + "\"\n"
	assert.Equal(t, want, env.read(env.registry()))

	out = env.mustRun("filesys", "list")
	assert.Equal(t, "✓ "+testIdentity+"\n✓ derived\n", out)
}

func TestFilesys_ImportRequiresKey(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init")

	out, _, err := env.run("filesys", "import", testIdentity)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeUsage+"]")

	_, _, err = env.run("filesys", "import", testIdentity, "--xpriv", testXpriv, "--mnemonic", testMnemonic)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err = env.run("filesys", "import", testIdentity, "--mnemonic", "not a real mnemonic")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeMnemonic+"]")

	assert.Equal(t, "['about']\nversion = \"0.1.0\"\n", env.read(env.registry()))
}

func TestFilesys_ImportRejectsRegistryFileNames(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init")

	for _, name := range []string{"Immutag", "config.yaml", "journal.db"} {
		out, _, err := env.run("filesys", "import", name, "--xpriv", testXpriv)
		require.Error(t, err, name)
		assert.Equal(t, ExitFailure, GetExitCode(err), name)
		assert.Contains(t, out, "Error ["+ErrCodeInvalidKey+"]", name)
	}
	assert.Equal(t, "['about']\nversion = \"0.1.0\"\n", env.read(env.registry()))
}

func TestFilesys_VerboseMnemonicLogsToStderr(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init")

	out, errOut, err := env.run("--verbose", "--format", "json", "filesys", "import", "derived", "--mnemonic", testMnemonic)
	require.NoError(t, err)
	assert.Contains(t, errOut, "derived key from mnemonic")
	assert.Contains(t, errOut, "english")
	assert.NotContains(t, out, "derived key")
}

func TestLanguageUsageListsWordLists(t *testing.T) {
	usage := languageUsage()
	for _, l := range wallet.Languages() {
		assert.Contains(t, usage, l.String())
	}
}

func TestFilesys_SetAndRemove(t *testing.T) {
	env := newCLIEnv(t)
	env.setup()

	env.mustRun("filesys", "set", testIdentity, "label", "laptop")
	assert.Equal(t, "laptop\n", env.mustRun("filesys", "show", testIdentity, "--field", "label"))

	env.mustRun("filesys", "rm", testIdentity)
	assert.Equal(t, "No identities\n", env.mustRun("filesys", "list"))

	out, _, err := env.run("filesys", "show", testIdentity)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInvalidKey+"]")
}

func TestFilesys_BeforeInit(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run("filesys", "list")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNoFile+"]")
}

func TestFile_Lifecycle(t *testing.T) {
	env := newCLIEnv(t)
	env.setup()

	env.mustRun("file", "add", "src/lib.rs", "Entry point to the library.", "--identity", testIdentity)
	env.mustRun("file", "add", "src/main.rs", "Binary.", "--identity", testIdentity)
	env.mustRun("file", "update", "src/main.rs", "CLI binary.", "--identity", testIdentity)
	env.mustRun("file", "set", "src/main.rs", "owner", "ops", "--identity", testIdentity)
	env.mustRun("about", "set", "author", "CHANGED_AUTHOR", "--identity", testIdentity)

	want := "['about']\nversion = \"0.1.0\"\nname = \"NAME\"\nauthor = \"CHANGED_AUTHOR\"\n" +
		"\n['src/lib.rs']\nimmutag = \"Entry point to the library.\"\n" +
		"\n['src/main.rs']\nimmutag = \"CLI binary.\"\nowner = \"ops\"\n"
	assert.Equal(t, want, env.read(env.metadata(testIdentity)))

	assert.Equal(t, "src/lib.rs\nsrc/main.rs\n", env.mustRun("file", "list", "--identity", testIdentity))
	assert.Equal(t, "immutag = CLI binary.\nowner = ops\n", env.mustRun("file", "show", "src/main.rs", "--identity", testIdentity))
	assert.Equal(t, "ops\n", env.mustRun("file", "show", "src/main.rs", "--field", "owner", "--identity", testIdentity))

	env.mustRun("file", "rm", "src/lib.rs", "--identity", testIdentity)
	assert.Equal(t, "src/main.rs\n", env.mustRun("file", "list", "--identity", testIdentity))
}

func TestFile_Errors(t *testing.T) {
	env := newCLIEnv(t)
	env.setup()
	env.mustRun("file", "add", "a.txt", "tag", "--identity", testIdentity)

	tests := []struct {
		name string
		args []string
		code string
		exit int
	}{
		{"duplicate add", []string{"file", "add", "a.txt", "again", "--identity", testIdentity}, ErrCodeDuplicateKey, ExitFailure},
		{"update missing", []string{"file", "update", "b.txt", "x", "--identity", testIdentity}, ErrCodeInvalidKey, ExitFailure},
		{"rm missing", []string{"file", "rm", "b.txt", "--identity", testIdentity}, ErrCodeInvalidKey, ExitFailure},
		{"rm about", []string{"file", "rm", "about", "--identity", testIdentity}, ErrCodeInvalidKey, ExitFailure},
		{"unknown field", []string{"file", "show", "a.txt", "--field", "nope", "--identity", testIdentity}, ErrCodeInvalidKey, ExitFailure},
		{"unprovisioned", []string{"file", "list", "--identity", "nobody"}, ErrCodeNoFile, ExitFailure},
		{"re-init", []string{"file", "init", "--identity", testIdentity, "--name", "N", "--author", "A"}, ErrCodeDuplicateKey, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := env.run(tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestFile_JSON(t *testing.T) {
	env := newCLIEnv(t)
	env.setup()
	env.mustRun("file", "add", "a.txt", "tag", "--identity", testIdentity)

	out := env.mustRun("--format", "json", "file", "show", "a.txt", "--identity", testIdentity)

	var resp struct {
		Status string           `json:"status"`
		Data   AnnotationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "a.txt", resp.Data.Target)
	require.Len(t, resp.Data.Fields, 1)
	assert.Equal(t, "tag", resp.Data.Fields[0].Value)

	out, _, err := env.run("--format", "json", "file", "add", "a.txt", "tag", "--identity", testIdentity)
	require.Error(t, err)
	var errResp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &errResp))
	assert.Equal(t, "error", errResp.Status)
	assert.Equal(t, ErrCodeDuplicateKey, errResp.Error.Code)
}

func TestDryRun(t *testing.T) {
	env := newCLIEnv(t)
	env.setup()
	before := env.read(env.metadata(testIdentity))

	out := env.mustRun("--dry-run", "file", "add", "a.txt", "tag", "--identity", testIdentity)
	assert.Contains(t, out, "+++ "+env.metadata(testIdentity)+" (dry run)")
	assert.Contains(t, out, "+['a.txt']\n+immutag = \"tag\"\n")
	assert.Equal(t, before, env.read(env.metadata(testIdentity)))

	out = env.mustRun("--dry-run", "--format", "json", "about", "set", "version", "0.2.0")
	var resp struct {
		Data ChangeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.DryRun)
	assert.True(t, resp.Data.Changed)
	assert.Contains(t, resp.Data.Diff, "-version = \"0.1.0\"\n+version = \"0.2.0\"\n")
	assert.Contains(t, env.read(env.registry()), "version = \"0.1.0\"")
}

func TestAboutSet(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("init")

	env.mustRun("about", "set", "homepage", "https://example.com", "--add")
	assert.Equal(t, "['about']\nversion = \"0.1.0\"\nhomepage = \"https://example.com\"\n", env.read(env.registry()))

	out, _, err := env.run("about", "set", "license", "MIT")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeInvalidKey+"]")

	_, _, err = env.run("about", "set", "homepage", "x", "--add")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestKeyDerive(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, testDerived+"\n", env.mustRun("key", "derive", testMnemonic))
	assert.Equal(t, testDerived+"\n", env.mustRun(append([]string{"key", "derive"}, strings.Fields(testMnemonic)...)...))

	pub := env.mustRun("key", "derive", "--public", testMnemonic)
	assert.True(t, strings.HasPrefix(pub, "xpub"), pub)

	out, _, err := env.run("key", "derive", "--language", "klingon", testMnemonic)
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeUsage+"]")

	_, _, err = env.run("key", "derive", "--language", "spanish", testMnemonic)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLog(t *testing.T) {
	env := newCLIEnv(t)
	assert.Equal(t, "No recorded changes\n", env.mustRun("log"))

	env.setup()
	env.mustRun("file", "add", "a.txt", "tag", "--identity", testIdentity)

	out := env.mustRun("--format", "json", "log")
	var resp struct {
		Data []struct {
			Seq      int64  `json:"seq"`
			Op       string `json:"op"`
			EntryKey string `json:"entry_key"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 4)
	ops := []string{resp.Data[0].Op, resp.Data[1].Op, resp.Data[2].Op, resp.Data[3].Op}
	assert.Equal(t, []string{"init", "add", "init", "add"}, ops)
	assert.Equal(t, "a.txt", resp.Data[3].EntryKey)
	assert.Equal(t, int64(4), resp.Data[3].Seq)

	out = env.mustRun("log", "--limit", "1")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "a.txt")
}

func TestConfigInitAndShow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("config", "init")
	path := filepath.Join(env.project, ".immutag", "config.yaml")
	assert.Equal(t, "✓ Wrote "+path+"\n", out)

	out = env.mustRun("config", "show")
	assert.Contains(t, out, "config file:     "+path)
	assert.Contains(t, out, "registry_dir:    .immutag")

	out, _, err := env.run("config", "init")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeConfig+"]")

	explicit := filepath.Join(t.TempDir(), "immutag.yaml")
	env.mustRun("--config", explicit, "config", "init")
	_, err = os.Stat(explicit)
	require.NoError(t, err)
}

func TestConfig_DisabledJournal(t *testing.T) {
	env := newCLIEnv(t)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("journal:\n  enabled: false\n"), 0o644))

	env.mustRun("--config", cfg, "init")
	_, err := os.Stat(filepath.Join(env.project, ".immutag", "journal.db"))
	assert.True(t, os.IsNotExist(err))

	out, _, err := env.run("--config", cfg, "log")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeConfig+"]")
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	env := newCLIEnv(t)

	_, errOut, err := env.run("--config", filepath.Join(t.TempDir(), "missing.yaml"), "init")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "Error ["+ErrCodeConfig+"]")
}
