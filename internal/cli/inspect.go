package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpherrinm/xmppcert"
	"github.com/mcpherrinm/xmppcert/decoder"
	"github.com/mcpherrinm/xmppcert/der"
)

type inspectOutput struct {
	DisplayName string
	*xmppcert.CertificateData
}

func (a *app) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <cert.pem>",
		Short: "Print the identity information in a certificate as JSON",
		Long: `Print the subject, common names, alternative names, expiry and decode
warnings of the first certificate in a PEM file as JSON.

With --raw, print the certificate structure as parsed by the der package
instead. Subject values and extension contents are left undecoded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any
			if raw, _ := cmd.Flags().GetBool("raw"); raw {
				cert, err := readRaw(args[0])
				if err != nil {
					return err
				}
				v = cert
			} else {
				data, err := decoder.FromFile(a.decoder, args[0])
				if err != nil {
					return err
				}
				v = inspectOutput{
					DisplayName:     data.DisplayName(),
					CertificateData: data,
				}
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "print the parsed certificate structure")
	return cmd
}

func readRaw(path string) (*der.Certificate, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := decoder.FirstCertificate(contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cert, err := der.ParseCertificate(data)
	if err != nil {
		return nil, &decoder.DecodeError{Kind: decoder.KindDER, Err: err}
	}
	return cert, nil
}

func (a *app) jidsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jids <cert.pem>",
		Short: "List the JIDs a certificate is issued for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decoder.FromFile(a.decoder, args[0])
			if err != nil {
				return err
			}
			jids := data.GetJIDs()
			if len(jids) == 0 {
				return fmt.Errorf("%w: %s names no JIDs", ErrNotVerified, args[0])
			}
			for _, j := range jids {
				fmt.Fprintln(cmd.OutOrStdout(), j.String())
			}
			return nil
		},
	}
}
