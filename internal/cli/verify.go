package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"mellium.im/xmpp/jid"

	"github.com/mcpherrinm/xmppcert/decoder"
	"github.com/mcpherrinm/xmppcert/internal/config"
)

func (a *app) verifyCmd() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a certificate against a server domain or client account",
		Long: `Check a certificate the way an XMPP server checks a TLS peer.

Available subcommands:
  server    Check that a certificate is valid for a server domain
  client    Find the client JID a certificate authenticates`,
	}
	verifyCmd.AddCommand(a.verifyServerCmd())
	verifyCmd.AddCommand(a.verifyClientCmd())
	return verifyCmd
}

func (a *app) verifyServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server <cert.pem> <domain>",
		Short: "Check that a certificate is valid for a server domain",
		Long: `Check that a certificate is valid for a server domain.

The domain is matched against DNS and XmppAddr alternative names and SRVName
names for --srv-type. The subject common name is only used when the
certificate has none of those. Wildcards are not expanded.

Example:
  xmppcert verify server cert.pem example.com --srv-type xmpp-server`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decoder.FromFile(a.decoder, args[0])
			if err != nil {
				return err
			}
			if !data.VerifyServer(args[1], a.cfg.SRVType) {
				return fmt.Errorf("%w: %s is not valid for %s", ErrNotVerified, data.DisplayName(), args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid for %s\n", data.DisplayName(), args[1])
			return nil
		},
	}
	cmd.Flags().String("srv-type", "", `SRV service to accept in SRVName names, "" to ignore them (default xmpp-client)`)
	a.bind(config.KeySRVType, cmd.Flags(), "srv-type")
	return cmd
}

func (a *app) verifyClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client <cert.pem>",
		Short: "Find the client JID a certificate authenticates",
		Long: `Find the client JID a certificate authenticates.

With --jid, that JID is used if the certificate names it. With --domain, only
JIDs in one of the listed domains are accepted.

Example:
  xmppcert verify client cert.pem --jid alice@example.com --domain example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var requested jid.JID
			if s, _ := cmd.Flags().GetString("jid"); s != "" {
				var err error
				requested, err = jid.Parse(s)
				if err != nil {
					return fmt.Errorf("%w: --jid %q: %w", ErrUsage, s, err)
				}
			}

			data, err := decoder.FromFile(a.decoder, args[0])
			if err != nil {
				return err
			}
			j, err := data.VerifyClient(requested, a.cfg.Domains)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrNotVerified, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), j.String())
			return nil
		},
	}
	cmd.Flags().String("jid", "", "JID the client asks to use")
	cmd.Flags().StringSlice("domain", nil, "accepted client domain (repeatable)")
	a.bind(config.KeyDomains, cmd.Flags(), "domain")
	return cmd
}
