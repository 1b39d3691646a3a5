package cli

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpherrinm/xmppcert/decoder"
	"github.com/mcpherrinm/xmppcert/internal/testcert"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func serverCert(t *testing.T) string {
	return testcert.WritePEM(t, testcert.Build(t, testcert.Spec{
		Subject: pkix.RDNSequence{testcert.CN("example.com")},
		SAN: []testcert.GeneralName{
			testcert.XmppAddr("example.com"),
			testcert.SRVName("_xmpp-server.example.net"),
			testcert.DNS("xmpp.example.com"),
		},
	}))
}

func clientCert(t *testing.T) string {
	return testcert.WritePEM(t, testcert.Build(t, testcert.Spec{
		SAN: []testcert.GeneralName{
			testcert.XmppAddr("alice@example.com"),
			testcert.XmppAddr("alice@example.org"),
		},
	}))
}

func TestRootCmd(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantOutput string
	}{
		{
			name:       "no arguments shows help",
			args:       []string{},
			wantOutput: "Inspect and verify XMPP identities in X.509 certificates",
		},
		{
			name:       "help flag",
			args:       []string{"--help"},
			wantOutput: "XMPPCERT_* environment variables",
		},
		{
			name:       "verify lists subcommands",
			args:       []string{"verify"},
			wantOutput: "Find the client JID a certificate authenticates",
		},
		{
			name:    "invalid command",
			args:    []string{"invalid-command"},
			wantErr: true,
		},
		{
			name:    "missing argument",
			args:    []string{"inspect"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, output, tt.wantOutput)
		})
	}
}

func TestInspect(t *testing.T) {
	output, err := run(t, "inspect", serverCert(t))
	require.NoError(t, err)

	var got struct {
		DisplayName string
		Validated   bool
		CommonNames []string
		AltNames    map[string][]string
		NotAfter    string
	}
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, "CommonName=example.com", got.DisplayName)
	assert.False(t, got.Validated)
	assert.Equal(t, []string{"example.com"}, got.CommonNames)
	assert.Equal(t, map[string][]string{
		"XmppAddr": {"example.com"},
		"SRVName":  {"_xmpp-server.example.net"},
		"DNS":      {"xmpp.example.com"},
	}, got.AltNames)
	assert.Equal(t, "2040-01-01T00:00:00Z", got.NotAfter)
	assert.NotContains(t, output, "Warnings")
}

func TestInspectRaw(t *testing.T) {
	output, err := run(t, "inspect", "--raw", serverCert(t))
	require.NoError(t, err)

	var got struct {
		TBSCertificate struct {
			Version      string
			SerialNumber string
			Signature    struct {
				Algorithm  string
				Parameters []byte
			}
			Validity   struct{ NotBefore, NotAfter string }
			Subject    [][]struct{ Type string }
			Extensions []struct{ ExtnID string }
		}
		SignatureAlgorithm struct{ Algorithm string }
	}
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	tbs := got.TBSCertificate
	assert.Equal(t, "v3(2)", tbs.Version)
	assert.Equal(t, "01", tbs.SerialNumber)
	assert.Equal(t, "1.2.840.10045.4.3.2", tbs.Signature.Algorithm)
	assert.Nil(t, tbs.Signature.Parameters)
	assert.Equal(t, "1.2.840.10045.4.3.2", got.SignatureAlgorithm.Algorithm)
	assert.Equal(t, "2020-01-01T00:00:00Z", tbs.Validity.NotBefore)
	assert.Equal(t, "2040-01-01T00:00:00Z", tbs.Validity.NotAfter)
	require.Len(t, tbs.Subject, 1)
	assert.Equal(t, "2.5.4.3", tbs.Subject[0][0].Type)
	require.Len(t, tbs.Extensions, 1)
	assert.Equal(t, "2.5.29.17", tbs.Extensions[0].ExtnID)

	assert.NotContains(t, output, "UniqueID")
}

func TestInspectRawMalformed(t *testing.T) {
	path := testcert.WritePEM(t, []byte{0x30, 0x00})
	_, err := run(t, "inspect", "--raw", path)

	var decodeErr *decoder.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, decoder.KindDER, decodeErr.Kind)
}

func TestInspectPlatformDecoder(t *testing.T) {
	output, err := run(t, "inspect", "--decoder", "platform", serverCert(t))
	require.NoError(t, err)
	assert.NotContains(t, output, "XmppAddr")
	assert.Contains(t, output, "xmpp.example.com")
}

func TestJIDs(t *testing.T) {
	output, err := run(t, "jids", serverCert(t))
	require.NoError(t, err)
	assert.Equal(t, "example.com\nxmpp.example.com\n", output)

	empty := testcert.WritePEM(t, testcert.Build(t, testcert.Spec{}))
	_, err = run(t, "jids", empty)
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestVerifyServer(t *testing.T) {
	cert := serverCert(t)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"xmppaddr", []string{"example.com"}, false},
		{"dns", []string{"xmpp.example.com"}, false},
		{"unlisted domain", []string{"other.example.com"}, true},
		{"srv name needs matching service", []string{"example.net"}, true},
		{"srv name", []string{"example.net", "--srv-type", "xmpp-server"}, false},
		{"srv names ignored", []string{"example.net", "--srv-type="}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, append([]string{"verify", "server", cert}, tt.args...)...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotVerified)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, output, "is valid for "+tt.args[0])
		})
	}
}

func TestVerifyClient(t *testing.T) {
	cert := clientCert(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr error
	}{
		{"first jid", nil, "alice@example.com", nil},
		{"requested jid", []string{"--jid", "alice@example.org"}, "alice@example.org", nil},
		{"accepted domain", []string{"--domain", "example.org"}, "alice@example.org", nil},
		{"several domains", []string{"--domain", "example.net", "--domain", "example.com"}, "alice@example.com", nil},
		{"no accepted domain", []string{"--domain", "example.net"}, "", ErrNotVerified},
		{"bad requested jid", []string{"--jid", "alice@"}, "", ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, append([]string{"verify", "client", cert}, tt.args...)...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(output))
		})
	}
}

func TestVerifyClientDomainsFromEnvironment(t *testing.T) {
	t.Setenv("XMPPCERT_DOMAINS", "example.org")

	output, err := run(t, "verify", "client", clientCert(t))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org\n", output)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmppcert.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decoder: platform\n"), 0o600))

	_, err := run(t, "verify", "server", serverCert(t), "example.com", "--config", path)
	assert.ErrorIs(t, err, ErrNotVerified)

	_, err = run(t, "verify", "server", serverCert(t), "example.com", "--config", path, "--decoder", "der")
	assert.NoError(t, err)
}

func TestConfigErrors(t *testing.T) {
	_, err := run(t, "jids", serverCert(t), "--decoder", "openssl")
	assert.ErrorIs(t, err, ErrConfig)

	_, err = run(t, "jids", serverCert(t), "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestMissingCertificate(t *testing.T) {
	_, err := run(t, "inspect", filepath.Join(t.TempDir(), "missing.pem"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
