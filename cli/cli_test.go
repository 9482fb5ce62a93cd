package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/yllada/wgconv/clipboard"
	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/config"
	"github.com/yllada/wgconv/converter"
	"github.com/yllada/wgconv/keyring"
	"github.com/yllada/wgconv/profile"
)

const sampleConfig = `[Interface]
PrivateKey = cPrivKey=
Address = 10.8.0.2/24
MTU = 1420

[Peer]
PublicKey = sPubKey=
AllowedIPs = 0.0.0.0/0
Endpoint = vpn.example.com:51820
PersistentKeepalive = 25
`

type fakeKernel struct {
	startErr error
	running  string
	started  []string
	restarts []time.Duration
	stops    int
}

func (k *fakeKernel) Running() (string, bool) {
	return k.running, k.running != ""
}

func (k *fakeKernel) Start(_ context.Context, p *profile.Profile) error {
	if k.running != "" {
		return common.ErrKernelAlreadyRunning
	}
	if k.startErr != nil {
		return k.startErr
	}
	k.started = append(k.started, p.ID)
	k.running = p.ID
	return nil
}

func (k *fakeKernel) Stop(context.Context) error {
	if k.running == "" {
		return common.ErrKernelNotRunning
	}
	k.stops++
	k.running = ""
	return nil
}

func (k *fakeKernel) Restart(_ context.Context, p *profile.Profile, delay time.Duration) error {
	k.restarts = append(k.restarts, delay)
	k.running = p.ID
	return nil
}

func (k *fakeKernel) Uptime() time.Duration {
	if k.running == "" {
		return 0
	}
	return 90 * time.Second
}

type fakeNotifier struct {
	titles []string
}

func (n *fakeNotifier) Notify(title, _ string) error {
	n.titles = append(n.titles, title)
	return nil
}

type fakePrompter struct {
	config    string
	configErr error
	pick      string
	pickErr   error

	initial string
	options []common.Option
}

func (p *fakePrompter) PromptConfig(_ context.Context, _, initial string) (string, error) {
	p.initial = initial
	return p.config, p.configErr
}

func (p *fakePrompter) Pick(_ context.Context, _ string, options []common.Option) (string, error) {
	p.options = options
	return p.pick, p.pickErr
}

type harness struct {
	dir        string
	configPath string
	store      *profile.Manager
	kernel     *fakeKernel
	clip       *clipboard.Memory
	notes      *fakeNotifier
	prompt     *fakePrompter
	history    common.CredentialStore
	app        *App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	store, err := profile.NewManager(filepath.Join(dir, "profiles.yaml"))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	return &harness{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		store:      store,
		kernel:     &fakeKernel{},
		clip:       &clipboard.Memory{},
		notes:      &fakeNotifier{},
		prompt:     &fakePrompter{},
	}
}

func (h *harness) writeConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	cfg := config.DefaultConfig()
	mutate(cfg)
	if err := cfg.SaveTo(h.configPath); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
}

func (h *harness) addProfile(t *testing.T, name string) *profile.Profile {
	t.Helper()
	p := profile.New(name)
	if err := h.store.Add(p); err != nil {
		t.Fatalf("Add(%s) error = %v", name, err)
	}
	return p
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	factory := func(cfg *config.Config) (*App, error) {
		h.app = &App{
			Config:    cfg,
			Profiles:  h.store,
			Kernel:    h.kernel,
			Clipboard: h.clip,
			Notifier:  h.notes,
			Prompter:  h.prompt,
			History:   h.history,
		}
		return h.app, nil
	}

	root, r := newRoot(BuildInfo{Version: "test"}, factory)
	var stdout, stderr bytes.Buffer
	root.SetArgs(append([]string{"--config", h.configPath}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())
	r.close()
	return stdout.String(), stderr.String(), err
}

func endpointKeys(t *testing.T, doc string) []string {
	t.Helper()
	var keys []string
	gjson.Get(doc, "endpoints.0").ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

func TestConvert_Stdin(t *testing.T) {
	h := newHarness(t)
	h.writeConfig(t, func(c *config.Config) { c.DialFields = `{"detour":"direct"}` })

	out, _, err := h.run(t, sampleConfig, "convert")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}

	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("output should end with the document and one newline: %q", out)
	}
	doc := strings.TrimSuffix(out, "\n")
	want, _ := converter.Convert(sampleConfig, converter.Fields{{Key: "detour", Value: []byte(`"direct"`)}})
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	if keys := endpointKeys(t, doc); len(keys) == 0 || keys[0] != "detour" {
		t.Errorf("first endpoint key = %v, want detour", keys)
	}
}

func TestConvert_DialFieldsFlag(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		wantDetour string
	}{
		{"override", `{"detour":"proxy"}`, "proxy"},
		{"empty override drops configured fields", "", ""},
		{"malformed falls back to none", `{"detour":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.writeConfig(t, func(c *config.Config) { c.DialFields = `{"detour":"direct"}` })

			out, _, err := h.run(t, sampleConfig, "convert", "--dial-fields", tt.flag)
			if err != nil {
				t.Fatalf("convert error = %v", err)
			}
			if got := gjson.Get(out, "endpoints.0.detour").String(); got != tt.wantDetour {
				t.Errorf("detour = %q, want %q", got, tt.wantDetour)
			}
			if got := gjson.Get(out, "endpoints.0.peers.0.port").Int(); got != 51820 {
				t.Errorf("port = %d, want 51820", got)
			}
		})
	}
}

func TestConvert_File(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "wg0.conf")
	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		t.Fatal(err)
	}

	out, _, err := h.run(t, "", "convert", path)
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if got := gjson.Get(out, "endpoints.0.peers.0.address").String(); got != "vpn.example.com" {
		t.Errorf("peer address = %q", got)
	}
	if got := gjson.Get(out, "endpoints.0.mtu").Int(); got != 1420 {
		t.Errorf("mtu = %d, want 1420", got)
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"missing peer", "[Interface]\nAddress = 10.0.0.2/32\n", converter.ErrMissingField},
		{"missing endpoint", "[Peer]\nPublicKey = x\n", converter.ErrMissingField},
		{"bad port", "[Peer]\nEndpoint = host:abc\n", converter.ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			out, _, err := h.run(t, tt.input, "convert")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("convert error = %v, want %v", err, tt.wantErr)
			}
			if out != "" {
				t.Errorf("nothing should be printed on error, got %q", out)
			}
		})
	}

	h := newHarness(t)
	if _, _, err := h.run(t, "  \n", "convert"); err == nil {
		t.Error("empty input should fail")
	}
}

func TestConvert_Clipboard(t *testing.T) {
	h := newHarness(t)

	out, errOut, err := h.run(t, sampleConfig, "convert", "--clipboard")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
	if !strings.Contains(errOut, "Copied to clipboard") {
		t.Errorf("stderr = %q", errOut)
	}
	if !gjson.Valid(h.clip.Text) || gjson.Get(h.clip.Text, "endpoints.0.tag").String() != converter.EndpointTag {
		t.Errorf("clipboard does not hold the document: %q", h.clip.Text)
	}
	if diff := cmp.Diff([]string{"Copied to clipboard"}, h.notes.titles); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestApply(t *testing.T) {
	h := newHarness(t)
	office := h.addProfile(t, "Office")
	h.addProfile(t, "Home")

	out, _, err := h.run(t, sampleConfig, "apply", "--profile", "office")
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if !strings.Contains(out, "Updated profile Office") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "Kernel restarted") {
		t.Error("inactive profile should not restart the kernel")
	}

	got, err := h.store.Get(office.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want, _ := converter.Convert(sampleConfig, nil)
	if got.Mixin.Config != want {
		t.Errorf("mixin config = %q, want converted document", got.Mixin.Config)
	}
	if got.Mixin.Priority != office.Mixin.Priority || got.Mixin.Format != office.Mixin.Format {
		t.Errorf("mixin settings changed: %+v", got.Mixin)
	}
	if len(h.kernel.restarts) != 0 {
		t.Errorf("restarts = %v, want none", h.kernel.restarts)
	}
}

func TestApply_ActiveProfileRestartsKernel(t *testing.T) {
	h := newHarness(t)
	office := h.addProfile(t, "Office")
	h.kernel.running = office.ID
	h.writeConfig(t, func(c *config.Config) { c.Kernel.RestartDelay = 250 * time.Millisecond })

	out, _, err := h.run(t, sampleConfig, "apply", "-p", office.ID)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if !strings.Contains(out, "Kernel restarted") {
		t.Errorf("output = %q", out)
	}
	if diff := cmp.Diff([]time.Duration{250 * time.Millisecond}, h.kernel.restarts); diff != "" {
		t.Errorf("restarts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Profile updated", "Kernel restarted"}, h.notes.titles); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_ConfiguredActiveProfile(t *testing.T) {
	h := newHarness(t)
	office := h.addProfile(t, "Office")
	h.writeConfig(t, func(c *config.Config) { c.ActiveProfile = office.ID })

	if _, _, err := h.run(t, sampleConfig, "apply", "-p", "Office"); err != nil {
		t.Fatalf("apply error = %v", err)
	}
	if len(h.kernel.restarts) != 1 {
		t.Errorf("restarts = %v, want one", h.kernel.restarts)
	}
}

func TestApply_Errors(t *testing.T) {
	h := newHarness(t)
	h.addProfile(t, "Office")

	if _, _, err := h.run(t, sampleConfig, "apply", "--profile", "Nowhere"); !errors.Is(err, common.ErrProfileNotFound) {
		t.Errorf("unknown profile error = %v, want ErrProfileNotFound", err)
	}
	if _, _, err := h.run(t, sampleConfig, "apply"); err == nil {
		t.Error("apply without --profile should fail")
	}
	if _, _, err := h.run(t, "[Peer]\n", "apply", "-p", "Office"); !errors.Is(err, converter.ErrMissingField) {
		t.Errorf("bad config error = %v, want ErrMissingField", err)
	}
}

func TestRun_ToProfile(t *testing.T) {
	h := newHarness(t)
	office := h.addProfile(t, "Office")
	home := h.addProfile(t, "Home")
	h.prompt.config = sampleConfig
	h.prompt.pick = home.ID

	out, _, err := h.run(t, "", "run")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	wantOptions := []common.Option{
		{Label: "Office", Value: office.ID},
		{Label: "Home", Value: home.ID},
		{Label: "Copy to clipboard", Value: common.ClipboardOption},
	}
	if diff := cmp.Diff(wantOptions, h.prompt.options); diff != "" {
		t.Errorf("picker options mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "Updated profile Home") {
		t.Errorf("output = %q", out)
	}

	got, _ := h.store.Get(home.ID)
	if gjson.Get(got.Mixin.Config, "endpoints.0.private_key").String() != "cPrivKey=" {
		t.Errorf("home mixin not updated: %q", got.Mixin.Config)
	}
	untouched, _ := h.store.Get(office.ID)
	if untouched.Mixin.Config != "" {
		t.Errorf("office mixin changed: %q", untouched.Mixin.Config)
	}
}

func TestRun_ToClipboard(t *testing.T) {
	h := newHarness(t)
	h.prompt.config = sampleConfig
	h.prompt.pick = common.ClipboardOption

	out, _, err := h.run(t, "", "run")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, "Copied to clipboard") {
		t.Errorf("output = %q", out)
	}
	if h.clip.Writes != 1 || !gjson.Valid(h.clip.Text) {
		t.Errorf("clipboard writes = %d, text = %q", h.clip.Writes, h.clip.Text)
	}
}

func TestRun_Cancelled(t *testing.T) {
	tests := []struct {
		name      string
		configErr error
		pickErr   error
	}{
		{"prompt", common.ErrCancelled, nil},
		{"picker", nil, common.ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.prompt.config = sampleConfig
			h.prompt.configErr = tt.configErr
			h.prompt.pickErr = tt.pickErr

			out, _, err := h.run(t, "", "run")
			if err != nil {
				t.Fatalf("run error = %v", err)
			}
			if !strings.Contains(out, "Cancelled.") {
				t.Errorf("output = %q", out)
			}
			if h.clip.Writes != 0 {
				t.Error("clipboard written after cancel")
			}
		})
	}
}

func TestRun_MissingProfile(t *testing.T) {
	h := newHarness(t)
	h.prompt.config = sampleConfig
	h.prompt.pick = "deleted-id"

	if _, _, err := h.run(t, "", "run"); !errors.Is(err, common.ErrProfileNotFound) {
		t.Errorf("run error = %v, want ErrProfileNotFound", err)
	}
	if diff := cmp.Diff([]string{"Profile not found"}, h.notes.titles); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_RemembersInput(t *testing.T) {
	h := newHarness(t)
	history, err := keyring.OpenFile(filepath.Join(h.dir, "creds"), bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	h.history = history
	h.writeConfig(t, func(c *config.Config) { c.RememberInput = true })
	h.prompt.config = sampleConfig
	h.prompt.pick = common.ClipboardOption

	if _, _, err := h.run(t, "", "run"); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if h.prompt.initial != "" {
		t.Errorf("first prompt initial = %q, want empty", h.prompt.initial)
	}

	if _, _, err := h.run(t, "", "run"); err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if h.prompt.initial != sampleConfig {
		t.Errorf("second prompt initial = %q, want the previous input", h.prompt.initial)
	}
}

func TestProfilesCommands(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "", "profiles", "list")
	if err != nil || !strings.Contains(out, "No profiles configured.") {
		t.Fatalf("empty list = %q, %v", out, err)
	}

	if out, _, err = h.run(t, "", "profiles", "add", "Office"); err != nil {
		t.Fatalf("add error = %v", err)
	}
	if !strings.Contains(out, "Added profile Office") {
		t.Errorf("add output = %q", out)
	}
	if _, _, err := h.run(t, "", "profiles", "add", "office"); !errors.Is(err, common.ErrDuplicateName) {
		t.Errorf("duplicate add error = %v, want ErrDuplicateName", err)
	}

	p, err := h.store.Find("Office")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	h.writeConfig(t, func(c *config.Config) { c.ActiveProfile = p.ID })

	out, _, err = h.run(t, "", "profiles", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	for _, want := range []string{"NAME", "Office", common.ShortID(p.ID), "empty", "*"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	if _, _, err = h.run(t, "", "profiles", "remove", "Office"); err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if _, err := h.store.Get(p.ID); !errors.Is(err, common.ErrProfileNotFound) {
		t.Errorf("Get() after remove error = %v", err)
	}
	cfg, err := config.LoadFrom(h.configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ActiveProfile != "" {
		t.Errorf("active profile = %q after removing it", cfg.ActiveProfile)
	}

	if _, _, err := h.run(t, "", "profiles", "remove", "Office"); !errors.Is(err, common.ErrProfileNotFound) {
		t.Errorf("second remove error = %v, want ErrProfileNotFound", err)
	}
}

func TestProfilesShow(t *testing.T) {
	h := newHarness(t)
	p := h.addProfile(t, "Office")
	if err := h.store.Update(p.WithMixinConfig(`{"endpoints":[]}`)); err != nil {
		t.Fatal(err)
	}

	out, _, err := h.run(t, "", "profiles", "show", "Office")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if out != "{\"endpoints\":[]}\n" {
		t.Errorf("show output = %q", out)
	}

	out, _, err = h.run(t, "", "profiles", "show", "--json", "Office")
	if err != nil {
		t.Fatalf("show --json error = %v", err)
	}
	if gjson.Get(out, "name").String() != "Office" || gjson.Get(out, "mixin.config").String() != `{"endpoints":[]}` {
		t.Errorf("show --json output = %q", out)
	}
}

func TestKernelCommands(t *testing.T) {
	h := newHarness(t)
	office := h.addProfile(t, "Office")

	if _, _, err := h.run(t, "", "kernel", "start"); err == nil {
		t.Error("start without a profile should fail")
	}

	out, _, err := h.run(t, "", "kernel", "status")
	if err != nil || !strings.Contains(out, "Kernel: Stopped") {
		t.Errorf("status = %q, %v", out, err)
	}

	if out, _, err = h.run(t, "", "kernel", "start", "Office"); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if !strings.Contains(out, "Kernel running Office") {
		t.Errorf("start output = %q", out)
	}
	cfg, _ := config.LoadFrom(h.configPath)
	if cfg.ActiveProfile != office.ID {
		t.Errorf("active profile = %q, want %q", cfg.ActiveProfile, office.ID)
	}

	out, _, err = h.run(t, "", "kernel", "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{"Kernel: Running", "Profile: Office", "Uptime: 1m 30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	if out, _, err = h.run(t, "", "kernel", "stop"); err != nil || !strings.Contains(out, "Kernel stopped") {
		t.Errorf("stop = %q, %v", out, err)
	}
	if out, _, err = h.run(t, "", "kernel", "stop"); err != nil || !strings.Contains(out, "not running") {
		t.Errorf("second stop = %q, %v", out, err)
	}

	if _, _, err = h.run(t, "", "kernel", "start"); err != nil {
		t.Fatalf("start with active profile error = %v", err)
	}
	if diff := cmp.Diff([]string{office.ID, office.ID}, h.kernel.started); diff != "" {
		t.Errorf("started mismatch (-want +got):\n%s", diff)
	}
}

func TestKernelWatch(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.run(t, "", "kernel", "watch"); err == nil {
		t.Error("watch without an active profile should fail")
	}

	office := h.addProfile(t, "Office")
	h.writeConfig(t, func(c *config.Config) {
		c.ActiveProfile = office.ID
		c.Kernel.RestartDelay = time.Millisecond
	})
	h.kernel.startErr = common.ErrKernelStart

	_, _, err := h.run(t, "", "kernel", "watch", "--interval", "10ms", "--max-restarts", "1")
	if !errors.Is(err, common.ErrKernelStart) {
		t.Errorf("watch error = %v, want ErrKernelStart", err)
	}
	if diff := cmp.Diff([]string{"Kernel failed"}, h.notes.titles); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "", "--version")
	if err != nil {
		t.Fatalf("--version error = %v", err)
	}
	if !strings.Contains(out, "test") {
		t.Errorf("version output = %q", out)
	}
}

func TestBuildInfo_String(t *testing.T) {
	tests := []struct {
		info BuildInfo
		want string
	}{
		{BuildInfo{Version: "dev", Commit: "unknown"}, "dev"},
		{BuildInfo{Version: "1.2.0"}, "1.2.0"},
		{BuildInfo{Version: "1.2.0", Commit: "abc123", Date: "2026-01-02"}, "1.2.0 (commit: abc123, built: 2026-01-02)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2h 3m 4s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
